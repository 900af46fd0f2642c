// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCookieSessions() sessions.Store {
	return sessions.NewCookieStore([]byte("test-hash-key-at-least-32-bytes!"))
}

func TestNewAttemptID(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	id, err := NewAttemptID()
	require.NoError(err)
	assert.True(strings.HasPrefix(id, attemptIDPrefix+"_"))
	assert.Len(id, len(attemptIDPrefix)+1+DefaultIDLength)

	other, err := NewAttemptID()
	require.NoError(err)
	assert.NotEqual(id, other)
}

func TestNewAttempt(t *testing.T) {
	t.Parallel()
	s, err := session.NewMemoryStore()
	require.NoError(t, err)
	tests := []struct {
		name      string
		id        string
		s         session.Store
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", id: "st_1", s: s},
		{name: "empty-id", id: "", s: s, wantErr: true, wantIsErr: ErrInvalidParameter},
		{name: "nil-store", id: "st_1", s: nil, wantErr: true, wantIsErr: ErrNilParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewAttempt(tt.id, tt.s)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Equal(tt.id, got.ID())
		})
	}
}

func TestAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t.Run("memory", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s, err := session.NewMemoryStore()
		require.NoError(err)
		a, err := NewAttempt("st_a", s)
		require.NoError(err)
		b, err := NewAttempt("st_b", s)
		require.NoError(err)

		_, err = a.Load(ctx, "k")
		assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)

		require.NoError(a.Store(ctx, "k", "a-value"))
		require.NoError(b.Store(ctx, "k", "b-value"))
		got, err := a.Load(ctx, "k")
		require.NoError(err)
		assert.Equal("a-value", got)

		require.NoError(a.Clear(ctx))
		_, err = a.Load(ctx, "k")
		assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
		got, err = b.Load(ctx, "k")
		require.NoError(err)
		assert.Equal("b-value", got)
	})
	t.Run("cookie", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s, err := session.NewCookieStore(testCookieSessions())
		require.NoError(err)
		a, err := NewAttempt("st_a", s)
		require.NoError(err)

		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		rec := httptest.NewRecorder()
		require.NoError(a.Store(session.WithHTTP(ctx, rec, req), "k", "a-value"))

		callback := httptest.NewRequest(http.MethodGet, "/callback", nil)
		for _, c := range rec.Result().Cookies() {
			callback.AddCookie(c)
		}
		got, err := a.Load(session.WithHTTP(ctx, httptest.NewRecorder(), callback), "k")
		require.NoError(err)
		assert.Equal("a-value", got)

		err = a.Store(ctx, "k", "v")
		assert.Truef(errors.Is(err, session.ErrNoHTTPContext), "wanted \"%s\" but got \"%s\"", session.ErrNoHTTPContext, err)
	})
}
