// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/cap-oauth2/oauth"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFailingStore is a session.Store which fails every operation.
type testFailingStore struct{}

var errTestStore = errors.New("store unavailable")

func (testFailingStore) Set(context.Context, string, string, string) error { return errTestStore }
func (testFailingStore) Get(context.Context, string, string) (string, error) {
	return "", errTestStore
}
func (testFailingStore) Delete(context.Context, string) error { return errTestStore }

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := oauth.StartTestProvider(t)
	p := oauth.TestNewProvider(t, tp, "test-client-id", "test-client-secret", "https://example.com/callback",
		oauth.WithScopes("email"),
	)

	t.Run("invalid-parameters", func(t *testing.T) {
		assert := assert.New(t)
		s, err := session.NewMemoryStore()
		require.NoError(t, err)

		_, err = Login(ctx, nil, s)
		assert.Truef(errors.Is(err, oauth.ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", oauth.ErrInvalidParameter, err)
		_, err = Login(ctx, p, nil)
		assert.Truef(errors.Is(err, oauth.ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", oauth.ErrInvalidParameter, err)
	})
	t.Run("redirects", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s, err := session.NewMemoryStore()
		require.NoError(err)
		h, err := Login(ctx, p, s)
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, testLoginPath, nil))
		require.Equal(http.StatusFound, w.Code)
		loc := w.Header().Get("Location")
		assert.True(strings.HasPrefix(loc, tp.AuthURL()+"?"))

		locURL, err := w.Result().Location()
		require.NoError(err)
		qv := locURL.Query()
		state := qv.Get("state")
		assert.True(strings.HasPrefix(state, "st_"))
		assert.Equal("email", qv.Get("scope"))
		assert.NotEmpty(qv.Get("code_challenge"))
		assert.Equal(1, s.Len())

		// every request starts a new attempt
		w = httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, testLoginPath, nil))
		other, err := w.Result().Location()
		require.NoError(err)
		assert.NotEqual(state, other.Query().Get("state"))
		assert.Equal(2, s.Len())
	})
	t.Run("with-auth-url-options", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s, err := session.NewMemoryStore()
		require.NoError(err)
		h, err := Login(ctx, p, s, WithAuthURLOptions(oauth.WithScopes("openid", "profile")))
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, testLoginPath, nil))
		loc, err := w.Result().Location()
		require.NoError(err)
		assert.Equal("openid profile", loc.Query().Get("scope"))
	})
	t.Run("store-error-default-response", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		h, err := Login(ctx, p, testFailingStore{})
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, testLoginPath, nil))
		assert.Equal(http.StatusInternalServerError, w.Code)
		assert.Equal("application/json", w.Header().Get("Content-Type"))
		assert.Contains(w.Body.String(), "server_error")
		assert.Contains(w.Body.String(), errTestStore.Error())
	})
	t.Run("store-error-custom-response", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var gotErr error
		h, err := Login(ctx, p, testFailingStore{}, WithErrorResponseFunc(func(_ string, _ *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
			gotErr = e
			w.WriteHeader(http.StatusTeapot)
		}))
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, testLoginPath, nil))
		assert.Equal(http.StatusTeapot, w.Code)
		assert.Truef(errors.Is(gotErr, errTestStore), "wanted \"%s\" but got \"%s\"", errTestStore, gotErr)
	})
}

func TestDefaultErrorResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		respErr    *AuthenErrorResponse
		e          error
		wantStatus int
		wantError  string
	}{
		{"provider-error", &AuthenErrorResponse{Error: "access_denied"}, nil, http.StatusUnauthorized, "access_denied"},
		{"login-failed", nil, oauth.ErrLoginFailed, http.StatusUnauthorized, "access_denied"},
		{"bad-state", nil, oauth.ErrResponseStateInvalid, http.StatusUnauthorized, "access_denied"},
		{"internal", nil, errors.New("boom"), http.StatusInternalServerError, "server_error"},
		{"nothing", nil, nil, http.StatusInternalServerError, "server_error"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			w := httptest.NewRecorder()
			DefaultErrorResponse("state", tt.respErr, tt.e, w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(tt.wantStatus, w.Code)
			resp := testReadError(t, w.Result())
			assert.Equal(tt.wantError, resp.Error)
		})
	}
}
