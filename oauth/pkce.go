// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

const (
	// CodeVerifierKey is the Attempt key the PKCE code verifier is stored
	// under between the authorization request and the token exchange.
	CodeVerifierKey = "code_verifier"

	codeChallengeParam       = "code_challenge"
	codeChallengeMethodParam = "code_challenge_method"
	codeVerifierParam        = "code_verifier"
)

// BeginAuthorization starts the PKCE part of an authorization request.  It
// creates a new CodeVerifier, stores its verifier in the Attempt (replacing
// any verifier stored by an earlier call) and sets the code_challenge and
// code_challenge_method parameters of authParams.  No other parameter of
// authParams is changed.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.3
func BeginAuthorization(ctx context.Context, a *Attempt, authParams url.Values) (CodeVerifier, error) {
	const op = "BeginAuthorization"
	if a == nil {
		return nil, fmt.Errorf("%s: attempt is nil: %w", op, ErrNilParameter)
	}
	if authParams == nil {
		return nil, fmt.Errorf("%s: auth params are nil: %w", op, ErrNilParameter)
	}
	v, err := NewCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := a.Store(ctx, CodeVerifierKey, v.Verifier()); err != nil {
		return nil, fmt.Errorf("%s: unable to store code verifier: %w", op, err)
	}
	authParams.Set(codeChallengeParam, v.Challenge())
	authParams.Set(codeChallengeMethodParam, string(v.Method()))
	return v, nil
}

// AttachVerifier sets the code_verifier parameter of tokenParams to the
// verifier stored in the Attempt by BeginAuthorization.  It returns an error
// wrapping ErrMissingVerifier when the Attempt has no verifier, in which case
// the token request must not be made.  The stored verifier is left in place.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.5
func AttachVerifier(ctx context.Context, a *Attempt, tokenParams url.Values) error {
	const op = "AttachVerifier"
	if a == nil {
		return fmt.Errorf("%s: attempt is nil: %w", op, ErrNilParameter)
	}
	if tokenParams == nil {
		return fmt.Errorf("%s: token params are nil: %w", op, ErrNilParameter)
	}
	v, err := a.Load(ctx, CodeVerifierKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%s: attempt %q: %w", op, a.ID(), ErrMissingVerifier)
	case err != nil:
		return fmt.Errorf("%s: unable to load code verifier: %w", op, err)
	case v == "":
		return fmt.Errorf("%s: attempt %q has an empty code verifier: %w", op, a.ID(), ErrMissingVerifier)
	}
	tokenParams.Set(codeVerifierParam, v)
	return nil
}
