// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/cap-oauth2/oauth/internal/strutils"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// TestProvider is a local OAuth2 provider that supports the authorization
// code flow and enforces PKCE, which makes writing tests much easier.
//
// Every authorization request issues an authorization code bound to the
// request's client_id, redirect_uri and code_challenge.  The token endpoint
// only redeems a code once, and only with a code_verifier matching the
// code's challenge.
//
// The token response includes the configured reply fields (by default a
// "user" object) alongside the standard fields, and the userinfo endpoint
// returns the configured userinfo for the access tokens it issued.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	allowedRedirectURIs []string
	expectedAuthCode    string
	expectedState       string
	pkceRequired        bool
	disableToken        bool
	disableUserInfo     bool
	replyExpiry         time.Duration
	replyFields         map[string]interface{}
	replyUserInfo       map[string]interface{}

	issuedCodes   map[string]testIssuedCode
	issuedTokens  map[string]struct{}
	tokenRequests []url.Values

	logger hclog.Logger
	client *http.Client
}

type testIssuedCode struct {
	clientID            string
	redirectURI         string
	codeChallenge       string
	codeChallengeMethod string
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test and all its subtests complete.
//
// Supported options:
//
//	WithTestPort
//	WithLogger
func StartTestProvider(t *testing.T, opt ...Option) *TestProvider {
	t.Helper()
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	p := &TestProvider{
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		pkceRequired: true,
		replyExpiry:  5 * time.Second,
		replyFields: map[string]interface{}{
			"user": map[string]interface{}{
				"id":    "42",
				"email": "alice@example.com",
				"name":  "Alice Doe",
				"profile": map[string]interface{}{
					"username": "alice",
					"groups":   []interface{}{"admins", "users"},
				},
			},
		},
		replyUserInfo: map[string]interface{}{
			"sub":   "alice@example.com",
			"color": "red",
			"flavor": map[string]interface{}{
				"name": "umami",
			},
		},
		issuedCodes:  map[string]testIssuedCode{},
		issuedTokens: map[string]struct{}{},
		logger:       opts.withLogger,
	}

	if opts.withPort != 0 {
		p.httpServer = httptestNewUnstartedServerWithPort(t, p, opts.withPort)
	} else {
		p.httpServer = httptest.NewUnstartedServer(p)
	}
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.Stop)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	tr := cleanhttp.DefaultPooledTransport()
	tr.TLSClientConfig = p.httpServer.Client().Transport.(*http.Transport).TLSClientConfig.Clone()
	p.client = &http.Client{Transport: tr}
	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
	if p.client != nil {
		p.client.CloseIdleConnections()
	}
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// AuthURL returns the test provider's authorization endpoint.
func (p *TestProvider) AuthURL() string { return p.Addr() + "/authorize" }

// TokenURL returns the test provider's token endpoint.
func (p *TestProvider) TokenURL() string { return p.Addr() + "/token" }

// UserInfoURL returns the test provider's userinfo endpoint.
func (p *TestProvider) UserInfoURL() string { return p.Addr() + "/userinfo" }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http.Client for the test provider. The returned client
// uses a pooled transport (so it can reuse connections) that trusts the test
// provider's certificate (and so the certificate of any httptest TLS server).
func (p *TestProvider) HTTPClient() *http.Client {
	return p.client
}

// SetClientCreds is for configuring the client information required for the
// OAuth2 workflows.  An empty clientSecret configures a public client, which
// doesn't authenticate to the token endpoint.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the relying party client information required for the
// OAuth2 workflows.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetExpectedAuthCode configures the auth code issued by /authorize.  When
// it's not set, a random code is issued for every authorization request.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedState configures the state returned by /authorize, regardless
// of the state it was sent.  An empty state restores the default behavior.
func (p *TestProvider) SetExpectedState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedState = state
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs for
// the OAuth2 workflow. If not configured a sample of "https://example.com" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetPKCERequired configures whether authorization requests without a
// code_challenge are rejected.  PKCE is required by default.  Codes issued
// with a challenge always require a matching verifier.
func (p *TestProvider) SetPKCERequired(required bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pkceRequired = required
}

// SetDisableToken makes the token endpoint return an error.
func (p *TestProvider) SetDisableToken(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableToken = disable
}

// SetDisableUserInfo makes the userinfo endpoint return 404.
func (p *TestProvider) SetDisableUserInfo(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = disable
}

// SetExpectedExpiry is for configuring the expires_in of issued tokens.
func (p *TestProvider) SetExpectedExpiry(exp time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiry = exp
}

// SetReplyFields sets the fields added to token responses, in addition to
// the standard access_token, token_type, refresh_token and expires_in.
func (p *TestProvider) SetReplyFields(fields map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyFields = fields
}

// SetUserInfoReply sets the response of the userinfo endpoint.
func (p *TestProvider) SetUserInfoReply(resp map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserInfo = resp
}

// TokenRequests returns the form values of every request made to the token
// endpoint.
func (p *TestProvider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	reqs := make([]url.Values, 0, len(p.tokenRequests))
	for _, r := range p.tokenRequests {
		reqs = append(reqs, cloneValues(r))
	}
	return reqs
}

func cloneValues(v url.Values) url.Values {
	c := make(url.Values, len(v))
	for k, vals := range v {
		c[k] = append([]string(nil), vals...)
	}
	return c
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, redirectURI, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI += "?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/authorize":
		p.handleAuthorize(w, req)
	case "/token":
		p.handleToken(w, req)
	case "/userinfo":
		p.handleUserInfo(w, req)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	qv := req.URL.Query()

	// errors can't be redirected to a redirect_uri that's not allowed
	redirectURI := qv.Get("redirect_uri")
	if redirectURI == "" || !strutils.StrListContains(p.allowedRedirectURIs, redirectURI) {
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
		return
	}
	if qv.Get("response_type") != "code" {
		p.writeAuthErrorResponse(w, req, redirectURI, "unsupported_response_type", "")
		return
	}
	if qv.Get("client_id") != p.clientID {
		p.writeAuthErrorResponse(w, req, redirectURI, "unauthorized_client", "unknown client_id")
		return
	}
	state := qv.Get("state")
	if state == "" {
		p.writeAuthErrorResponse(w, req, redirectURI, "invalid_request", "missing state parameter")
		return
	}

	challenge := qv.Get("code_challenge")
	method := qv.Get("code_challenge_method")
	switch {
	case challenge == "" && p.pkceRequired:
		p.writeAuthErrorResponse(w, req, redirectURI, "invalid_request", "code challenge required")
		return
	case challenge != "" && method != string(S256):
		p.writeAuthErrorResponse(w, req, redirectURI, "invalid_request", "transform algorithm not supported")
		return
	}

	code := p.expectedAuthCode
	if code == "" {
		var err error
		if code, err = NewID(WithPrefix("code")); err != nil {
			p.writeAuthErrorResponse(w, req, redirectURI, "server_error", err.Error())
			return
		}
	}
	p.issuedCodes[code] = testIssuedCode{
		clientID:            p.clientID,
		redirectURI:         redirectURI,
		codeChallenge:       challenge,
		codeChallengeMethod: method,
	}
	if p.logger != nil {
		p.logger.Debug("issued authorization code", "state", state, "pkce", challenge != "")
	}

	if p.expectedState != "" {
		state = p.expectedState
	}
	redirectURI += "?state=" + url.QueryEscape(state) +
		"&code=" + url.QueryEscape(code)

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := req.ParseForm(); err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p.tokenRequests = append(p.tokenRequests, cloneValues(req.PostForm))

	if p.disableToken {
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "access_denied", "token endpoint disabled")
		return
	}

	clientID, clientSecret, ok := req.BasicAuth()
	if ok {
		// RFC 6749 section 2.3.1 form encodes the credentials
		clientID, _ = url.QueryUnescape(clientID)
		clientSecret, _ = url.QueryUnescape(clientSecret)
	} else {
		clientID = req.PostFormValue("client_id")
		clientSecret = req.PostFormValue("client_secret")
	}

	code := req.PostFormValue("code")
	issued, found := p.issuedCodes[code]
	switch {
	case req.PostFormValue("grant_type") != "authorization_code":
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
		return
	case clientID != p.clientID || subtle.ConstantTimeCompare([]byte(clientSecret), []byte(p.clientSecret)) != 1:
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	case !found:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
		return
	case issued.clientID != clientID:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "auth code issued to another client")
		return
	case req.PostFormValue("redirect_uri") != issued.redirectURI:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "redirect_uri does not match")
		return
	}
	if issued.codeChallenge != "" {
		verifier := req.PostFormValue("code_verifier")
		if verifier == "" {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "missing code_verifier")
			return
		}
		challenge, err := CreateCodeChallenge(ChallengeMethod(issued.codeChallengeMethod), &S256Verifier{verifier: verifier})
		if err != nil || subtle.ConstantTimeCompare([]byte(challenge), []byte(issued.codeChallenge)) != 1 {
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
			return
		}
	}
	// codes are single use
	delete(p.issuedCodes, code)

	accessToken, err := NewID(WithPrefix("at"))
	if err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	refreshToken, err := NewID(WithPrefix("rt"))
	if err != nil {
		_ = p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	p.issuedTokens[accessToken] = struct{}{}

	reply := map[string]interface{}{}
	for k, v := range p.replyFields {
		reply[k] = v
	}
	reply["access_token"] = accessToken
	reply["token_type"] = "Bearer"
	reply["refresh_token"] = refreshToken
	reply["expires_in"] = int64(p.replyExpiry.Seconds())
	if err := p.writeJSON(w, reply); err != nil {
		return
	}
}

func (p *TestProvider) handleUserInfo(w http.ResponseWriter, req *http.Request) {
	if p.disableUserInfo {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if req.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	authz := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if _, ok := p.issuedTokens[authz[len(prefix):]]; !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if err := p.writeJSON(w, p.replyUserInfo); err != nil {
		return
	}
}

// testProviderOptions is the set of available options for TestProvider
// functions
type testProviderOptions struct {
	withPort   int
	withLogger hclog.Logger
}

// testProviderDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func testProviderDefaults() testProviderOptions {
	return testProviderOptions{}
}

// getTestProviderOpts gets the test provider defaults and applies the opt
// overrides passed in
func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTestPort provides an optional port for the test provider.
//
// Valid for: TestProvider.StartTestProvider
func WithTestPort(port int) Option {
	return func(o interface{}) {
		if o, ok := o.(*testProviderOptions); ok {
			o.withPort = port
		}
	}
}

// httptestNewUnstartedServerWithPort is roughly the same as
// httptest.NewUnstartedServer() but allows the caller to explicitly choose the
// port if desired.
func httptestNewUnstartedServerWithPort(t *testing.T, handler http.Handler, port int) *httptest.Server {
	t.Helper()
	require := require.New(t)
	require.NotEmpty(port)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	l, err := net.Listen("tcp", addr)
	require.NoError(err)

	return &httptest.Server{
		Listener: l,
		Config:   &http.Server{Handler: handler},
	}
}

// String describes the test provider, for test failure messages.
func (p *TestProvider) String() string {
	return fmt.Sprintf("TestProvider(%s)", p.Addr())
}
