// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBrowser carries cookies between requests the way a browser would.
type testBrowser struct {
	cookies map[string]*http.Cookie
}

func newTestBrowser() *testBrowser {
	return &testBrowser{cookies: map[string]*http.Cookie{}}
}

// do calls fn with a context bound to a new request/response pair and keeps
// the cookies set by the response.
func (b *testBrowser) do(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	fn(WithHTTP(context.Background(), rec, req))
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
}

func testCookieStore(t *testing.T, opt ...Option) *CookieStore {
	t.Helper()
	s, err := NewCookieStore(sessions.NewCookieStore([]byte("test-hash-key-at-least-32-bytes!")), opt...)
	require.NoError(t, err)
	return s
}

func TestNewCookieStore(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	got, err := NewCookieStore(nil)
	require.Error(err)
	assert.Truef(errors.Is(err, ErrNilParameter), "wanted \"%s\" but got \"%s\"", ErrNilParameter, err)
	assert.Nil(got)

	gs := sessions.NewCookieStore([]byte("key"))
	got, err = NewCookieStore(gs, WithTTL(0))
	require.Error(err)
	assert.Truef(errors.Is(err, ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", ErrInvalidParameter, err)
	assert.Nil(got)

	got, err = NewCookieStore(gs, WithSessionName(""))
	require.Error(err)
	assert.Truef(errors.Is(err, ErrInvalidParameter), "wanted \"%s\" but got \"%s\"", ErrInvalidParameter, err)
	assert.Nil(got)

	got, err = NewCookieStore(gs, WithSessionName("test"))
	require.NoError(err)
	assert.Equal("test", got.name)
}

func TestCookieStore(t *testing.T) {
	t.Parallel()
	t.Run("round-trip", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testCookieStore(t)
		b := newTestBrowser()
		b.do(t, func(ctx context.Context) {
			require.NoError(s.Set(ctx, "a", "code_verifier", "verifier-a"))
		})
		require.Contains(b.cookies, DefaultSessionName)
		b.do(t, func(ctx context.Context) {
			require.NoError(s.Set(ctx, "b", "code_verifier", "verifier-b"))
		})
		b.do(t, func(ctx context.Context) {
			got, err := s.Get(ctx, "a", "code_verifier")
			require.NoError(err)
			assert.Equal("verifier-a", got)
			got, err = s.Get(ctx, "b", "code_verifier")
			require.NoError(err)
			assert.Equal("verifier-b", got)
			_, err = s.Get(ctx, "a", "missing")
			assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
		})
		b.do(t, func(ctx context.Context) {
			require.NoError(s.Delete(ctx, "a"))
		})
		b.do(t, func(ctx context.Context) {
			_, err := s.Get(ctx, "a", "code_verifier")
			assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
			got, err := s.Get(ctx, "b", "code_verifier")
			require.NoError(err)
			assert.Equal("verifier-b", got)
		})
	})
	t.Run("other-browser", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testCookieStore(t)
		b := newTestBrowser()
		b.do(t, func(ctx context.Context) {
			require.NoError(s.Set(ctx, "a", "code_verifier", "verifier-a"))
		})
		newTestBrowser().do(t, func(ctx context.Context) {
			_, err := s.Get(ctx, "a", "code_verifier")
			assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
		})
	})
	t.Run("expired", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		now := time.Now()
		s := testCookieStore(t, WithTTL(time.Minute), WithNow(func() time.Time { return now }))
		b := newTestBrowser()
		b.do(t, func(ctx context.Context) {
			require.NoError(s.Set(ctx, "a", "code_verifier", "verifier-a"))
		})
		now = now.Add(2 * time.Minute)
		b.do(t, func(ctx context.Context) {
			_, err := s.Get(ctx, "a", "code_verifier")
			assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
			// a new attempt drops the expired one from the cookie
			require.NoError(s.Set(ctx, "b", "code_verifier", "verifier-b"))
		})
		now = now.Add(-2 * time.Minute)
		b.do(t, func(ctx context.Context) {
			_, err := s.Get(ctx, "a", "code_verifier")
			assert.Truef(errors.Is(err, ErrNotFound), "wanted \"%s\" but got \"%s\"", ErrNotFound, err)
		})
	})
	t.Run("missing-http-context", func(t *testing.T) {
		assert := assert.New(t)
		s := testCookieStore(t)
		ctx := context.Background()
		err := s.Set(ctx, "a", "k", "v")
		assert.Truef(errors.Is(err, ErrNoHTTPContext), "wanted \"%s\" but got \"%s\"", ErrNoHTTPContext, err)
		_, err = s.Get(ctx, "a", "k")
		assert.Truef(errors.Is(err, ErrNoHTTPContext), "wanted \"%s\" but got \"%s\"", ErrNoHTTPContext, err)
		err = s.Delete(ctx, "a")
		assert.Truef(errors.Is(err, ErrNoHTTPContext), "wanted \"%s\" but got \"%s\"", ErrNoHTTPContext, err)
	})
}
