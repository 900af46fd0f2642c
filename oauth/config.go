// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/cap-oauth2/extract"
	"github.com/hashicorp/cap-oauth2/oauth/internal/strutils"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
)

// Name of the strategy, which is also used for the default callback path.
const Name = "oauth2_basic"

// DefaultCallbackPath is the default path of the callback (redirect) endpoint.
const DefaultCallbackPath = "/auth/" + Name + "/callback"

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// AuthStyle represents how requests for tokens are authenticated to the
// provider's token endpoint.
type AuthStyle int

const (
	// AuthStyleAutoDetect means to auto-detect which authentication style the
	// provider wants by trying both ways and caching the successful way for
	// the future.
	AuthStyleAutoDetect AuthStyle = iota

	// AuthStyleInParams sends the "client_id" and "client_secret" in the POST
	// body as application/x-www-form-urlencoded parameters.
	AuthStyleInParams

	// AuthStyleInHeader sends the client_id and client_password using HTTP
	// Basic Authorization.
	AuthStyleInHeader
)

// ParseAuthStyle parses "auto", "params" or "header" into an AuthStyle.
func ParseAuthStyle(s string) (AuthStyle, error) {
	const op = "oauth.ParseAuthStyle"
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AuthStyleAutoDetect, nil
	case "params":
		return AuthStyleInParams, nil
	case "header":
		return AuthStyleInHeader, nil
	default:
		return AuthStyleAutoDetect, fmt.Errorf("%s: unknown auth style %q: %w", op, s, ErrInvalidParameter)
	}
}

// String returns the name of the auth style.
func (s AuthStyle) String() string {
	switch s {
	case AuthStyleInParams:
		return "params"
	case AuthStyleInHeader:
		return "header"
	default:
		return "auto"
	}
}

func (s AuthStyle) toOAuth2() oauth2.AuthStyle {
	switch s {
	case AuthStyleInParams:
		return oauth2.AuthStyleInParams
	case AuthStyleInHeader:
		return oauth2.AuthStyleInHeader
	default:
		return oauth2.AuthStyleAutoDetect
	}
}

// reservedAuthParams can't be set via Config.AuthParams since they're set by
// the flow itself.
var reservedAuthParams = []string{
	"response_type",
	"client_id",
	"redirect_uri",
	"state",
	codeChallengeParam,
	codeChallengeMethodParam,
}

// Config represents the configuration for a typical 3-legged OAuth2
// authorization code flow with PKCE.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret.  It may be empty for public
	// clients, which rely on PKCE alone.
	ClientSecret ClientSecret

	// AuthURL is the provider's authorization endpoint.
	AuthURL string

	// TokenURL is the provider's token endpoint.
	TokenURL string

	// RedirectURL is the URL where the provider will redirect responses to
	// authentication requests (the callback).
	RedirectURL string

	// UserInfoURL is an optional endpoint used to retrieve the user's profile
	// after a successful exchange.  The profile is available to uid and info
	// paths via the "userinfo" segment.
	UserInfoURL string

	// Scopes is a list of optional scopes to request of the provider.
	Scopes []string

	// UIDPath is the path resolved against the token response to produce the
	// user's uid.
	UIDPath extract.Path

	// InfoPaths are the key/path pairs resolved against the token response to
	// produce the user's info.
	InfoPaths extract.InfoPaths

	// AuthStyle determines how the client authenticates to the token
	// endpoint.
	AuthStyle AuthStyle

	// AuthParams are optional static parameters added to every authorization
	// request.
	AuthParams url.Values

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.  If you have a list of *x509.Certificates,
	// then see EncodeCertificates(...) to PEM encode them.
	ProviderCA string

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time

	logger hclog.Logger
}

// NewConfig composes a new config for a provider.
//
// The uid and info paths are parsed once, here, using the
// extract.ParsePath and extract.ParseInfoPaths mini languages.  Malformed
// info path entries are skipped unless WithStrictInfoPaths is used.
//
// Supported options:
//
//	WithProviderCA
//	WithScopes
//	WithUIDPath
//	WithInfoPaths
//	WithStrictInfoPaths
//	WithUserInfoURL
//	WithAuthStyle
//	WithAuthParams
//	WithNow
//	WithLogger
func NewConfig(clientID string, clientSecret ClientSecret, authURL, tokenURL, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)

	var xOpts []extract.Option
	xOpts = append(xOpts, extract.WithLogger(opts.withLogger))
	if opts.withStrictInfoPaths {
		xOpts = append(xOpts, extract.WithStrict())
	}
	infoPaths, err := extract.ParseInfoPaths(opts.withInfoPaths, xOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid info paths: %w: %w", op, ErrInvalidParameter, err)
	}

	c := &Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      authURL,
		TokenURL:     tokenURL,
		RedirectURL:  redirectURL,
		UserInfoURL:  opts.withUserInfoURL,
		Scopes:       opts.withScopes,
		UIDPath:      extract.ParsePath(opts.withUIDPath),
		InfoPaths:    infoPaths,
		AuthStyle:    opts.withAuthStyle,
		AuthParams:   opts.withAuthParams,
		ProviderCA:   opts.withProviderCA,
		NowFunc:      opts.withNowFunc,
		logger:       opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration.  Every problem found is reported in
// the returned error (a *multierror.Error), each wrapping
// ErrInvalidParameter or ErrInvalidCACert.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client ID is empty: %w", op, ErrInvalidParameter))
	}
	for _, u := range []struct {
		name, value string
	}{
		{"authorization URL", c.AuthURL},
		{"token URL", c.TokenURL},
		{"redirect URL", c.RedirectURL},
	} {
		if err := validateURL(u.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %s %q: %w", op, u.name, u.value, err))
		}
	}
	if c.UserInfoURL != "" {
		if err := validateURL(c.UserInfoURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: user info URL %q: %w", op, c.UserInfoURL, err))
		}
	}
	for k := range c.AuthParams {
		if strutils.StrListContains(reservedAuthParams, k) {
			result = multierror.Append(result, fmt.Errorf("%s: auth param %q is reserved: %w", op, k, ErrInvalidParameter))
		}
	}
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, ErrInvalidCACert))
		}
	}
	return result.ErrorOrNil()
}

func validateURL(u string) error {
	if u == "" {
		return fmt.Errorf("is empty: %w", ErrInvalidParameter)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("is invalid: %w: %w", ErrInvalidParameter, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, parsed.Scheme) || parsed.Host == "" {
		return fmt.Errorf("is not an absolute http or https URL: %w", ErrInvalidParameter)
	}
	return nil
}

// Logger returns the config's logger.
func (c *Config) Logger() hclog.Logger {
	if c.logger == nil {
		return hclog.NewNullLogger()
	}
	return c.logger
}

// Now will return the current time which can be overridden by the NowFunc
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now() // fallback to this default
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCACert)
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// oauth2Config returns the golang.org/x/oauth2 config used for the flow.
func (c *Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: string(c.ClientSecret),
		RedirectURL:  c.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: c.AuthStyle.toOAuth2(),
		},
		Scopes: c.Scopes,
	}
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the golang.org/x/oauth2 package, so the returned context works for that
// package as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// CallbackURL composes the callback (redirect) URL of an application from
// its public base URL, an optional script name (the path prefix the
// application is mounted under) and the callback path.  Any path of the base
// URL is dropped: only its scheme and host are used.  An empty callbackPath
// uses DefaultCallbackPath.
func CallbackURL(baseURL, scriptName, callbackPath string) (string, error) {
	const op = "oauth.CallbackURL"
	if err := validateURL(baseURL); err != nil {
		return "", fmt.Errorf("%s: base URL %q: %w", op, baseURL, err)
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%s: base URL %q: %w: %w", op, baseURL, ErrInvalidParameter, err)
	}
	if callbackPath == "" {
		callbackPath = DefaultCallbackPath
	}
	scriptName = strings.TrimSuffix(scriptName, "/")
	if scriptName != "" && !strings.HasPrefix(scriptName, "/") {
		scriptName = "/" + scriptName
	}
	if !strings.HasPrefix(callbackPath, "/") {
		callbackPath = "/" + callbackPath
	}
	return u.Scheme + "://" + u.Host + scriptName + callbackPath, nil
}

// EncodeCertificates will encode a number of x509 certificates to PEMs.
func EncodeCertificates(certs ...*x509.Certificate) (string, error) {
	const op = "EncodeCertificates"
	var buffer strings.Builder
	if len(certs) == 0 {
		return "", fmt.Errorf("%s: no certs provided: %w", op, ErrInvalidParameter)
	}
	for _, cert := range certs {
		if cert == nil {
			return "", fmt.Errorf("%s: empty cert: %w", op, ErrNilParameter)
		}
		if err := pem.Encode(&buffer, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
			return "", fmt.Errorf("%s: unable to encode cert: %w", op, err)
		}
	}
	return buffer.String(), nil
}

// configOptions is the set of available options
type configOptions struct {
	withScopes          []string
	withProviderCA      string
	withUIDPath         string
	withInfoPaths       string
	withStrictInfoPaths bool
	withUserInfoURL     string
	withAuthStyle       AuthStyle
	withAuthParams      url.Values
	withNowFunc         func() time.Time
	withLogger          hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withAuthStyle: AuthStyleAutoDetect,
		withNowFunc:   time.Now,
		withLogger:    hclog.NewNullLogger(),
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional list of scopes.  Duplicates are removed.
//
// Valid for: Config and Provider.AuthURL
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		scopes := strutils.RemoveDuplicatesStable(scopes, false)
		switch v := o.(type) {
		case *configOptions:
			v.withScopes = scopes
		case *authURLOptions:
			v.withScopes = scopes
		}
	}
}

// WithProviderCA provides optional CA certs (PEM encoded) for the provider's
// config.  These certs will can be used when making http requests to the
// provider.
//
// Valid for: Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithUIDPath provides the optional dotted path (for example "user.id") used
// to resolve the user's uid from the token response.
//
// Valid for: Config
func WithUIDPath(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUIDPath = path
		}
	}
}

// WithInfoPaths provides the optional "|" separated list of key:dotted.path
// pairs (for example "email:user.email|name:user.name") used to resolve the
// user's info from the token response.
//
// Valid for: Config
func WithInfoPaths(paths string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withInfoPaths = paths
		}
	}
}

// WithStrictInfoPaths makes NewConfig fail when any info path entry is
// malformed, instead of skipping the entry.
//
// Valid for: Config
func WithStrictInfoPaths() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withStrictInfoPaths = true
		}
	}
}

// WithUserInfoURL provides an optional userinfo endpoint.
//
// Valid for: Config
func WithUserInfoURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUserInfoURL = u
		}
	}
}

// WithAuthStyle provides an optional auth style for token requests.
//
// Valid for: Config
func WithAuthStyle(s AuthStyle) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthStyle = s
		}
	}
}

// WithAuthParams provides optional parameters added to authorization
// requests.
//
// Valid for: Config and Provider.AuthURL
func WithAuthParams(params url.Values) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withAuthParams = params
		case *authURLOptions:
			v.withAuthParams = params
		}
	}
}
