// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Token interface represents an OAuth2 token response.
type Token interface {
	// AccessToken returns the access_token.  It may be empty.
	AccessToken() AccessToken

	// TokenType returns the token_type (typically "Bearer").
	TokenType() string

	// RefreshToken returns the refresh_token.  It may be empty.
	RefreshToken() RefreshToken

	// Expiry returns the expiration of the access_token.  A zero value means
	// the token doesn't expire.
	Expiry() time.Time

	// Valid will ensure that the access_token is not empty or expired.
	Valid() bool

	// IsExpired returns true if the token has expired.
	IsExpired() bool

	// UserInfo returns the user's profile from the provider's userinfo
	// endpoint, when one is configured.
	UserInfo() map[string]interface{}

	// Lookup returns a value of the raw token response by its key.
	Lookup(key string) (interface{}, bool)
}

// StaticTokenSource is a single function interface that defines a method to
// create a oauth2.TokenSource that always returns the same token. Because the
// token is never refreshed.  A TokenSource can be used to when calling a
// provider's UserInfo(), among other things.
type StaticTokenSource interface {
	StaticTokenSource() oauth2.TokenSource
}

// Tk satisfies the Token interface and represents an OAuth2 token response
// from a provider's token endpoint.
type Tk struct {
	underlying *oauth2.Token
	userInfo   map[string]interface{}

	// nowFunc is an optional function that returns the current time
	nowFunc func() time.Time
}

// ensure that Tk implements the Token interface.
var _ Token = (*Tk)(nil)

// NewToken creates a new Token (*Tk).  The oauth2.Token must not be nil and
// must have a non-empty access_token.
//
// Supported options:
//
//	WithNow
//	WithUserInfo
func NewToken(t *oauth2.Token, opt ...Option) (*Tk, error) {
	const op = "NewToken"
	if t == nil {
		return nil, fmt.Errorf("%s: oauth2 token is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrInvalidParameter)
	}
	opts := getTokenOpts(opt...)
	return &Tk{
		underlying: t,
		userInfo:   opts.withUserInfo,
		nowFunc:    opts.withNowFunc,
	}, nil
}

// AccessToken implements the Token.AccessToken() interface function.
func (t *Tk) AccessToken() AccessToken {
	if t == nil || t.underlying == nil {
		return ""
	}
	return AccessToken(t.underlying.AccessToken)
}

// TokenType implements the Token.TokenType() interface function.
func (t *Tk) TokenType() string {
	if t == nil || t.underlying == nil {
		return ""
	}
	return t.underlying.Type()
}

// RefreshToken implements the Token.RefreshToken() interface function.
func (t *Tk) RefreshToken() RefreshToken {
	if t == nil || t.underlying == nil {
		return ""
	}
	return RefreshToken(t.underlying.RefreshToken)
}

// Expiry implements the Token.Expiry() interface function.
func (t *Tk) Expiry() time.Time {
	if t == nil || t.underlying == nil {
		return time.Time{}
	}
	return t.underlying.Expiry
}

// UserInfo implements the Token.UserInfo() interface function.
func (t *Tk) UserInfo() map[string]interface{} {
	if t == nil {
		return nil
	}
	return t.userInfo
}

// Lookup implements the Token.Lookup() interface function.  It returns the
// value of any field of the raw token response, including fields beyond the
// standard ones (for example a "user" object).  Nested JSON objects are
// returned as map[string]interface{}.
func (t *Tk) Lookup(key string) (interface{}, bool) {
	if t == nil || t.underlying == nil {
		return nil, false
	}
	v := t.underlying.Extra(key)
	if v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" && t.formEncoded() {
		// form encoded responses return "" for missing keys
		return nil, false
	}
	return v, true
}

// absentExtraKey is a key no token response carries.
const absentExtraKey = "\x00"

// formEncoded reports whether the raw token response was form encoded.
// x/oauth2 returns nil for a key missing from a JSON response and "" for one
// missing from a form encoded response.
func (t *Tk) formEncoded() bool {
	return t.underlying.Extra(absentExtraKey) != nil
}

// StaticTokenSource returns a TokenSource that always returns the same token.
// Because the provided token t is never refreshed.  It will return nil, if the
// t is nil.
func (t *Tk) StaticTokenSource() oauth2.TokenSource {
	if t == nil || t.underlying == nil {
		return nil
	}
	return oauth2.StaticTokenSource(t.underlying)
}

// expirySkew is the time before expiry at which a token is considered
// expired.
const expirySkew = 10 * time.Second

// IsExpired will return true if the token's access token is expired.  If the
// token doesn't have an expiry, it's assumed to never expire.
func (t *Tk) IsExpired() bool {
	if t == nil || t.underlying == nil {
		return true
	}
	if t.underlying.Expiry.IsZero() {
		return false
	}
	return t.underlying.Expiry.Round(0).Before(t.now().Add(expirySkew))
}

// Valid will ensure that the access_token is not empty or expired.
func (t *Tk) Valid() bool {
	if t == nil || t.underlying == nil {
		return false
	}
	if t.underlying.AccessToken == "" {
		return false
	}
	return !t.IsExpired()
}

// now returns the current time using the optional timeFn
func (t *Tk) now() time.Time {
	if t.nowFunc != nil {
		return t.nowFunc()
	}
	return time.Now() // fallback to this default
}

// tokenOptions is the set of available options for Token functions
type tokenOptions struct {
	withNowFunc  func() time.Time
	withUserInfo map[string]interface{}
}

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed
// in
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithUserInfo provides an optional user profile for a Token.
//
// Valid for: Tk
func WithUserInfo(info map[string]interface{}) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok {
			o.withUserInfo = info
		}
	}
}

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}
