// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"errors"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrIdGeneratorFailed          = errors.New("id generation failed")
	ErrMissingVerifier            = errors.New("missing pkce code verifier")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
	ErrResponseStateInvalid       = errors.New("oauth response state")
	ErrNotFound                   = errors.New("not found")
	ErrLoginFailed                = errors.New("login failed")
	ErrExchangeFailed             = errors.New("authorization code exchange failed")
	ErrUserInfoFailed             = errors.New("user info failed")
)
