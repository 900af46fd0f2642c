// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hashicorp/cap-oauth2/oauth"
	"github.com/hashicorp/cap-oauth2/oauth/callback"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/hashicorp/go-hclog"
)

// loginPath is the path of the request phase.
const loginPath = "/auth/" + oauth.Name

var homeTmpl = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>oauth2-basic</title></head>
<body>
<p><a href="{{.}}">Sign in</a></p>
</body>
</html>
`))

// result is the body of a successful login.
type result struct {
	Provider    string                 `json:"provider"`
	UID         string                 `json:"uid"`
	Info        map[string]interface{} `json:"info,omitempty"`
	TokenType   string                 `json:"token_type"`
	Scopes      []string               `json:"scopes,omitempty"`
	HasRefresh  bool                   `json:"has_refresh_token"`
	ExpiresUnix int64                  `json:"expires_at,omitempty"`
}

// newHandler returns the routes of the demo: the home page, the login
// (request phase) and the callback.
func newHandler(ctx context.Context, p *oauth.Provider, s session.Store, callbackPath string, logger hclog.Logger) (http.Handler, error) {
	const op = "newHandler"
	if callbackPath == "" {
		callbackPath = oauth.DefaultCallbackPath
	}
	eFn := errorResponse(logger)
	login, err := callback.Login(ctx, p, s, callback.WithErrorResponseFunc(eFn))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	authCode, err := callback.AuthCode(ctx, p, s, successResponse(p, logger), eFn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := homeTmpl.Execute(w, loginPath); err != nil {
			logger.Error("unable to render home page", "error", err)
		}
	})
	mux.HandleFunc(loginPath, login)
	mux.HandleFunc(callbackPath, authCode)
	return mux, nil
}

func successResponse(p *oauth.Provider, logger hclog.Logger) callback.SuccessResponseFunc {
	return func(state string, id oauth.Identity, t oauth.Token, w http.ResponseWriter, req *http.Request) {
		if !id.HasUID() {
			logger.Warn("login succeeded without a uid", "attempt", state)
		}
		logger.Info("login succeeded", "attempt", state, "uid", id.UID)
		r := result{
			Provider:   oauth.Name,
			UID:        id.UID,
			Info:       id.Info,
			TokenType:  t.TokenType(),
			Scopes:     p.Config().Scopes,
			HasRefresh: t.RefreshToken() != "",
		}
		if exp := t.Expiry(); !exp.IsZero() {
			r.ExpiresUnix = exp.Unix()
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			logger.Error("unable to write response", "error", err)
		}
	}
}

func errorResponse(logger hclog.Logger) callback.ErrorResponseFunc {
	return func(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		switch {
		case respErr != nil:
			logger.Info("provider returned an error", "attempt", state, "error", respErr.Error, "description", respErr.Description)
		case e != nil:
			logger.Warn("login failed", "attempt", state, "error", e)
		}
		callback.DefaultErrorResponse(state, respErr, e, w, req)
	}
}
