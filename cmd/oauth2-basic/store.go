// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/hashicorp/go-secure-stdlib/base62"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"
	storeCookie = "cookie"
)

// ephemeralSecretLength is about 256 bits of base62.
const ephemeralSecretLength = 43

type storeConfig struct {
	ttl           time.Duration
	redisURL      string
	sessionSecret string
	secureCookie  bool
}

// newStore creates the session.Store named kind.  The returned func releases
// the store's resources.
func newStore(ctx context.Context, kind string, cfg storeConfig) (session.Store, func(), error) {
	const op = "newStore"
	noop := func() {}
	switch strings.ToLower(kind) {
	case storeMemory:
		s, err := session.NewMemoryStore(session.WithTTL(cfg.ttl))
		if err != nil {
			return nil, noop, fmt.Errorf("%s: %w", op, err)
		}
		return s, noop, nil
	case storeRedis:
		s, err := session.NewRedisStoreFromURL(ctx, cfg.redisURL, session.WithTTL(cfg.ttl))
		if err != nil {
			return nil, noop, fmt.Errorf("%s: %w", op, err)
		}
		return s, func() { _ = s.Close() }, nil
	case storeCookie:
		if cfg.sessionSecret == "" {
			return nil, noop, fmt.Errorf("%s: session secret is required by the cookie store: %w", op, session.ErrInvalidParameter)
		}
		cs := sessions.NewCookieStore([]byte(cfg.sessionSecret))
		cs.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   int(cfg.ttl.Seconds()),
			HttpOnly: true,
			Secure:   cfg.secureCookie,
			// the callback is a top level navigation from the provider
			SameSite: http.SameSiteLaxMode,
		}
		s, err := session.NewCookieStore(cs, session.WithTTL(cfg.ttl))
		if err != nil {
			return nil, noop, fmt.Errorf("%s: %w", op, err)
		}
		return s, noop, nil
	default:
		return nil, noop, fmt.Errorf("%s: unknown session store %q: %w", op, kind, session.ErrInvalidParameter)
	}
}

// ephemeralSecret generates a cookie store secret for a single run.
func ephemeralSecret() (string, error) {
	const op = "ephemeralSecret"
	s, err := base62.Random(ephemeralSecretLength)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate session secret: %w", op, err)
	}
	return s, nil
}

func isHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme == "https"
}
