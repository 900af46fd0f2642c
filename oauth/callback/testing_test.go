// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/cap-oauth2/oauth"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/stretchr/testify/require"
)

// testSuccessFn is a test SuccessResponseFunc which writes the identity as
// JSON.
func testSuccessFn(state string, id oauth.Identity, t oauth.Token, w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(id)
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		status := http.StatusInternalServerError
		if errors.Is(e, oauth.ErrMissingVerifier) {
			status = http.StatusUnauthorized
		}
		w.WriteHeader(status)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// testBrowser returns a client, with its own cookie jar, which trusts the
// TestProvider and any httptest TLS server.
func testBrowser(t *testing.T, tp *oauth.TestProvider) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := *tp.HTTPClient()
	client.Jar = jar
	return &client
}

// testStores returns every kind of session.Store, keyed by name.
func testStores(t *testing.T) map[string]session.Store {
	t.Helper()
	require := require.New(t)
	mem, err := session.NewMemoryStore()
	require.NoError(err)
	cs, err := session.NewCookieStore(sessions.NewCookieStore(
		[]byte("test-hash-key-0123456789abcdefgh"),
		[]byte("test-block-key-0123456789abcdefg"),
	))
	require.NoError(err)
	return map[string]session.Store{
		"memory": mem,
		"cookie": cs,
	}
}
