// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// maxUserInfoSize limits how much of a userinfo response is read.
const maxUserInfoSize = 1 << 20

// Provider provides integration with an OAuth2 provider using the typical
// 3-legged authorization code flow with PKCE.
type Provider struct {
	config *Config
	client *http.Client
	logger hclog.Logger

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like: requests made with the provider's http client, etc
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider.  Unlike OIDC providers, no
// http request is made to discover the provider's endpoints: they're taken
// from the Config.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with it's background ctx/cancel will
	// allow us to use p.Done() to release any resources when returning errors
	// from this function.
	p := &Provider{
		config:              c,
		logger:              c.Logger().Named("provider"),
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client
	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}

// Config returns the provider's config.
func (p *Provider) Config() *Config {
	return p.config
}

// HTTPClient returns the provider's http client, which trusts the config's
// ProviderCA.
func (p *Provider) HTTPClient() *http.Client {
	return p.client
}

// AuthURL will generate a URL the caller can use to kick off an OAuth2
// authorization code flow with the provider.  The provider will redirect the
// user to the config's RedirectURL with the Attempt's ID as the state
// parameter once the authentication is completed.
//
// A new PKCE code verifier is created and stored in the Attempt (see
// BeginAuthorization), and its challenge is included in the URL.
//
// Supported options:
//
//	WithScopes (overrides the config's scopes)
//	WithAuthParams (merged with the config's auth params; params the flow
//	sets itself, like state and code_challenge, are rejected with
//	ErrInvalidParameter)
func (p *Provider) AuthURL(ctx context.Context, a *Attempt, opt ...Option) (string, error) {
	const op = "Provider.AuthURL"
	if a == nil {
		return "", fmt.Errorf("%s: attempt is nil: %w", op, ErrNilParameter)
	}
	opts := getAuthURLOpts(opt...)
	for _, k := range reservedAuthParams {
		if _, ok := opts.withAuthParams[k]; ok {
			return "", fmt.Errorf("%s: auth param %q is reserved: %w", op, k, ErrInvalidParameter)
		}
	}

	params := url.Values{}
	for k, v := range p.config.AuthParams {
		params[k] = v
	}
	for k, v := range opts.withAuthParams {
		params[k] = v
	}
	// set last, so the challenge can't be overridden by static params
	if _, err := BeginAuthorization(ctx, a, params); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	oauth2Config := p.config.oauth2Config()
	if opts.withScopes != nil {
		oauth2Config.Scopes = opts.withScopes
	}
	authURL := oauth2Config.AuthCodeURL(a.ID(), paramOpts(params)...)
	p.logger.Debug("created auth url", "attempt", a.ID(), "scopes", oauth2Config.Scopes)
	return authURL, nil
}

// Exchange will request a token from the provider's token endpoint, using
// the authorizationCode and authorizationState it received in an earlier
// successful authentication response.
//
// The authorizationState must be the Attempt's ID.  The Attempt's PKCE code
// verifier is sent with the request (see AttachVerifier); if the Attempt has
// no verifier, an error wrapping ErrMissingVerifier is returned and no request
// is made.
//
// When the config has a UserInfoURL, the user's profile is retrieved and made
// available via the Token's UserInfo().  A failed userinfo request doesn't
// fail the exchange: it's logged as a warning and UserInfo() returns nil.
//
// After a successful exchange, the Attempt's values are cleared so its
// verifier can't be replayed, unless WithKeepVerifier is used.
func (p *Provider) Exchange(ctx context.Context, a *Attempt, authorizationState string, authorizationCode string, opt ...Option) (*Tk, error) {
	const op = "Provider.Exchange"
	if p.config == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if a == nil {
		return nil, fmt.Errorf("%s: attempt is nil: %w", op, ErrNilParameter)
	}
	if a.ID() != authorizationState {
		return nil, fmt.Errorf("%s: attempt id and authorization state are not equal: %w", op, ErrResponseStateInvalid)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	opts := getExchangeOpts(opt...)

	tokenParams := url.Values{}
	if err := AttachVerifier(ctx, a, tokenParams); err != nil {
		p.logger.Warn("code verifier unavailable, token request not sent", "attempt", a.ID(), "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	oauth2Token, err := p.config.oauth2Config().Exchange(HTTPClientContext(ctx, p.client), authorizationCode, paramOpts(tokenParams)...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w: %w", op, ErrExchangeFailed, err)
	}
	tk, err := NewToken(oauth2Token, WithNow(p.config.NowFunc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchangeFailed, err)
	}

	if p.config.UserInfoURL != "" {
		info, err := p.UserInfo(ctx, tk)
		switch {
		case err != nil:
			// profile data is optional, the token is still good
			p.logger.Warn("unable to get user info", "attempt", a.ID(), "error", err)
		default:
			tk.userInfo = info
		}
	}

	if !opts.withKeepVerifier {
		if err := a.Clear(ctx); err != nil {
			// the exchange succeeded and the code can't be reused anyway
			p.logger.Warn("unable to clear attempt", "attempt", a.ID(), "error", err)
		}
	}
	p.logger.Debug("exchanged authorization code", "attempt", a.ID(), "token_type", tk.TokenType())
	return tk, nil
}

// UserInfo gets the user's profile from the provider's userinfo endpoint
// using the Token's access_token.
func (p *Provider) UserInfo(ctx context.Context, t Token) (map[string]interface{}, error) {
	const op = "Provider.UserInfo"
	if t == nil {
		return nil, fmt.Errorf("%s: token is nil: %w", op, ErrNilParameter)
	}
	if p.config.UserInfoURL == "" {
		return nil, fmt.Errorf("%s: user info URL is not configured: %w", op, ErrInvalidParameter)
	}
	if t.AccessToken() == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrInvalidParameter)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w: %w", op, ErrUserInfoFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	tokenType := t.TokenType()
	if tokenType == "" {
		tokenType = "Bearer"
	}
	req.Header.Set("Authorization", tokenType+" "+string(t.AccessToken()))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w: %w", op, ErrUserInfoFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w: %w", op, ErrUserInfoFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s: %s: %w", op, resp.Status, body, ErrUserInfoFailed)
	}
	var info map[string]interface{}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%s: unable to decode response: %w: %w", op, ErrUserInfoFailed, err)
	}
	return info, nil
}

// Identity resolves the user's Identity from the Token using the config's
// uid path and info paths.
func (p *Provider) Identity(t Token) Identity {
	id := ResolveIdentity(t, p.config.UIDPath, p.config.InfoPaths)
	if !id.HasUID() && len(p.config.UIDPath) > 0 {
		p.logger.Debug("uid path did not resolve", "uid_path", p.config.UIDPath.String())
	}
	return id
}

// paramOpts converts params into auth code options.  Only the first value of
// each parameter is used.
func paramOpts(params url.Values) []oauth2.AuthCodeOption {
	opts := make([]oauth2.AuthCodeOption, 0, len(params))
	for k := range params {
		opts = append(opts, oauth2.SetAuthURLParam(k, params.Get(k)))
	}
	return opts
}

// authURLOptions is the set of available options for Provider.AuthURL
type authURLOptions struct {
	withScopes     []string
	withAuthParams url.Values
}

// authURLDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func authURLDefaults() authURLOptions {
	return authURLOptions{}
}

// getAuthURLOpts gets the defaults and applies the opt overrides passed
// in.
func getAuthURLOpts(opt ...Option) authURLOptions {
	opts := authURLDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// exchangeOptions is the set of available options for Provider.Exchange
type exchangeOptions struct {
	withKeepVerifier bool
}

// exchangeDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func exchangeDefaults() exchangeOptions {
	return exchangeOptions{}
}

// getExchangeOpts gets the defaults and applies the opt overrides passed
// in.
func getExchangeOpts(opt ...Option) exchangeOptions {
	opts := exchangeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithKeepVerifier keeps the Attempt's values after a successful exchange.
//
// Valid for: Provider.Exchange
func WithKeepVerifier() Option {
	return func(o interface{}) {
		if o, ok := o.(*exchangeOptions); ok {
			o.withKeepVerifier = true
		}
	}
}
