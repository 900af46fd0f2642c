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

// Login creates a handler for the request phase of the flow.  Every request
// starts a new authentication attempt, stored in s, and is redirected to the
// provider's authorization endpoint.
//
// Supported options:
//
//	WithErrorResponseFunc
//	WithAuthURLOptions
func Login(ctx context.Context, p *oauth.Provider, s session.Store, opt ...oauth.Option) (http.HandlerFunc, error) {
	const op = "callback.Login"
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oauth.ErrInvalidParameter)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, oauth.ErrInvalidParameter)
	}
	opts := getLoginOpts(opt...)
	eFn := opts.withErrorResponseFunc

	return func(w http.ResponseWriter, req *http.Request) {
		ctx := session.WithHTTP(ctx, w, req)
		id, err := oauth.NewAttemptID()
		if err != nil {
			eFn("", nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		a, err := oauth.NewAttempt(id, s)
		if err != nil {
			eFn(id, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		authURL, err := p.AuthURL(ctx, a, opts.withAuthURLOptions...)
		if err != nil {
			eFn(id, nil, fmt.Errorf("%s: unable to create auth url: %w", op, err), w, req)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	}, nil
}

// loginOptions is the set of available options for Login
type loginOptions struct {
	withErrorResponseFunc ErrorResponseFunc
	withAuthURLOptions    []oauth.Option
}

// loginDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func loginDefaults() loginOptions {
	return loginOptions{
		withErrorResponseFunc: DefaultErrorResponse,
	}
}

// getLoginOpts gets the defaults and applies the opt overrides passed in.
func getLoginOpts(opt ...oauth.Option) loginOptions {
	opts := loginDefaults()
	oauth.ApplyOpts(&opts, opt...)
	return opts
}

// WithErrorResponseFunc provides an optional ErrorResponseFunc.  The default
// is DefaultErrorResponse.
//
// Valid for: Login
func WithErrorResponseFunc(fn ErrorResponseFunc) oauth.Option {
	return func(o interface{}) {
		if fn == nil {
			return
		}
		if o, ok := o.(*loginOptions); ok {
			o.withErrorResponseFunc = fn
		}
	}
}

// WithAuthURLOptions provides optional options passed to
// oauth.Provider.AuthURL (oauth.WithScopes, oauth.WithAuthParams).
//
// Valid for: Login
func WithAuthURLOptions(opt ...oauth.Option) oauth.Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withAuthURLOptions = opt
		}
	}
}
