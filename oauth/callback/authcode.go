// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-oauth2/oauth"
	"github.com/hashicorp/cap-oauth2/session"
)

// AuthCode creates an oauth authorization code callback handler which finds
// the authentication attempt in s via the request's "state" parameter.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails.  A callback for an attempt that was never started, has expired or
// was already completed fails with an error wrapping oauth.ErrLoginFailed
// and oauth.ErrMissingVerifier, and no request is sent to the provider.
//
// With a session.CookieStore the attempt lives in the browser that started the
// login, so a callback from any other browser finds no verifier.  Stores that
// are shared by every client (session.MemoryStore, session.RedisStore) find the
// attempt by state alone: an attacker who starts a login and sends a victim
// the callback URL signs the victim in as the attacker (login CSRF, RFC 6749
// section 10.12).  Use those stores only behind something that binds the state
// to the user agent, like a browser session cookie.
func AuthCode(ctx context.Context, p *oauth.Provider, s session.Store, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oauth.ErrInvalidParameter)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, oauth.ErrInvalidParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, oauth.ErrInvalidParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, oauth.ErrInvalidParameter)
	}
	logger := p.Config().Logger().Named("callback")

	return func(w http.ResponseWriter, req *http.Request) {
		ctx := session.WithHTTP(ctx, w, req)

		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found
		reqState := req.FormValue("state")

		if err := req.FormValue("error"); err != "" {
			reqError := &AuthenErrorResponse{
				Error:       err,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			if reqState != "" {
				if a, aErr := oauth.NewAttempt(reqState, s); aErr == nil {
					if clearErr := a.Clear(ctx); clearErr != nil {
						logger.Warn("unable to clear attempt", "attempt", reqState, "error", clearErr)
					}
				}
			}
			eFn(reqState, reqError, nil, w, req)
			return
		}

		if reqState == "" {
			eFn(reqState, nil, fmt.Errorf("%s: missing state parameter: %w", op, oauth.ErrResponseStateInvalid), w, req)
			return
		}
		a, err := oauth.NewAttempt(reqState, s)
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}

		tk, err := p.Exchange(ctx, a, reqState, req.FormValue("code"))
		if err != nil {
			eFn(reqState, nil, fmt.Errorf("%s: %w: %w", op, oauth.ErrLoginFailed, err), w, req)
			return
		}
		sFn(reqState, p.Identity(tk), tk, w, req)
	}, nil
}
