// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// oauth2-basic is a demo web client which authenticates users with any
// OAuth2 provider using the authorization code flow with PKCE, and shows the
// uid and info resolved from the provider's token response.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/cap-oauth2/oauth"
	"github.com/hashicorp/go-hclog"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:   "oauth2-basic",
		Usage:  "OAuth2 authorization code (PKCE) demo client",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "client-id",
				Usage:    "OAuth2 client id",
				Required: true,
				EnvVars:  []string{"OAUTH2_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "OAuth2 client secret (empty for a public client)",
				EnvVars: []string{"OAUTH2_CLIENT_SECRET"},
			},
			&cli.StringFlag{
				Name:     "authorize-url",
				Usage:    "provider's authorization endpoint",
				Required: true,
				EnvVars:  []string{"OAUTH2_AUTHORIZE_URL"},
			},
			&cli.StringFlag{
				Name:     "token-url",
				Usage:    "provider's token endpoint",
				Required: true,
				EnvVars:  []string{"OAUTH2_TOKEN_URL"},
			},
			&cli.StringFlag{
				Name:    "userinfo-url",
				Usage:   "optional provider userinfo endpoint",
				EnvVars: []string{"OAUTH2_USERINFO_URL"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "public URL of this client, used to build the callback URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"OAUTH2_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "script-name",
				Usage:   "path prefix this client is mounted under behind a proxy",
				EnvVars: []string{"OAUTH2_SCRIPT_NAME"},
			},
			&cli.StringFlag{
				Name:    "callback-path",
				Usage:   "path of the callback endpoint",
				Value:   oauth.DefaultCallbackPath,
				EnvVars: []string{"OAUTH2_CALLBACK_PATH"},
			},
			&cli.StringSliceFlag{
				Name:    "scopes",
				Usage:   "scopes to request",
				EnvVars: []string{"OAUTH2_SCOPES"},
			},
			&cli.StringFlag{
				Name:    "uid-path",
				Usage:   "dotted path of the uid in the token response (e.g. user.id)",
				EnvVars: []string{"OAUTH2_UID_PATH"},
			},
			&cli.StringFlag{
				Name:    "info-paths",
				Usage:   "| separated key:dotted.path pairs (e.g. email:user.email|name:user.name)",
				EnvVars: []string{"OAUTH2_INFO_PATHS"},
			},
			&cli.StringFlag{
				Name:    "auth-style",
				Usage:   "token endpoint client authentication: auto, params or header",
				Value:   "auto",
				EnvVars: []string{"OAUTH2_AUTH_STYLE"},
			},
			&cli.StringFlag{
				Name:    "session-store",
				Usage:   "where attempts are kept: cookie, memory or redis (memory and redis don't bind an attempt to the browser)",
				Value:   storeCookie,
				EnvVars: []string{"SESSION_STORE"},
			},
			&cli.StringFlag{
				Name:    "session-secret",
				Usage:   "random string used for session cookie security (cookie store; generated per run when unset)",
				EnvVars: []string{"SESSION_SECRET"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "redis URL (redis store)",
				Value:   "redis://localhost:6379/0",
				EnvVars: []string{"REDIS_URL"},
			},
			&cli.DurationFlag{
				Name:    "attempt-ttl",
				Usage:   "how long an authentication attempt may take",
				Value:   10 * time.Minute,
				EnvVars: []string{"ATTEMPT_TTL"},
			},
			&cli.StringFlag{
				Name:    "bind",
				Usage:   "address to listen on",
				Value:   ":8080",
				EnvVars: []string{"BIND"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
	}
	app.RunAndExitOnError()
}

func run(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "oauth2-basic",
		Level: hclog.LevelFromString(cctx.String("log-level")),
	})

	p, err := newProvider(cctx, logger)
	if err != nil {
		return err
	}
	defer p.Done()

	secret := cctx.String("session-secret")
	if secret == "" && strings.EqualFold(cctx.String("session-store"), storeCookie) {
		if secret, err = ephemeralSecret(); err != nil {
			return err
		}
		logger.Warn("no session secret set, using a random one: login attempts won't survive a restart")
	}
	store, closeStore, err := newStore(ctx, cctx.String("session-store"), storeConfig{
		ttl:           cctx.Duration("attempt-ttl"),
		redisURL:      cctx.String("redis-url"),
		sessionSecret: secret,
		secureCookie:  isHTTPS(cctx.String("base-url")),
	})
	if err != nil {
		return err
	}
	defer closeStore()

	h, err := newHandler(ctx, p, store, cctx.String("callback-path"), logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cctx.String("bind"),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "bind", srv.Addr, "redirect_url", p.Config().RedirectURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvCh <- err
		}
		close(srvCh)
	}()

	select {
	case err := <-srvCh:
		if err != nil {
			return fmt.Errorf("server closed with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newProvider(cctx *cli.Context, logger hclog.Logger) (*oauth.Provider, error) {
	const op = "newProvider"
	redirectURL, err := oauth.CallbackURL(cctx.String("base-url"), cctx.String("script-name"), cctx.String("callback-path"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	authStyle, err := oauth.ParseAuthStyle(cctx.String("auth-style"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := []oauth.Option{
		oauth.WithUIDPath(cctx.String("uid-path")),
		oauth.WithInfoPaths(cctx.String("info-paths")),
		oauth.WithUserInfoURL(cctx.String("userinfo-url")),
		oauth.WithAuthStyle(authStyle),
		oauth.WithLogger(logger),
	}
	if scopes := cctx.StringSlice("scopes"); len(scopes) > 0 {
		opts = append(opts, oauth.WithScopes(scopes...))
	}
	c, err := oauth.NewConfig(
		cctx.String("client-id"),
		oauth.ClientSecret(cctx.String("client-secret")),
		cctx.String("authorize-url"),
		cctx.String("token-url"),
		redirectURL,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := oauth.NewProvider(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
