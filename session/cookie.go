// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

type httpContextKey struct{}

type httpPair struct {
	w http.ResponseWriter
	r *http.Request
}

// WithHTTP returns a new Context carrying the response writer and request a
// CookieStore reads and writes its cookie with. Values set by a CookieStore
// are written as a Set-Cookie header, so they must be set before the
// response's headers are written.
func WithHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request) context.Context {
	return context.WithValue(ctx, httpContextKey{}, httpPair{w: w, r: r})
}

func httpFromContext(ctx context.Context) (http.ResponseWriter, *http.Request, bool) {
	p, ok := ctx.Value(httpContextKey{}).(httpPair)
	if !ok || p.w == nil || p.r == nil {
		return nil, nil, false
	}
	return p.w, p.r, true
}

// expiresKey is the suffix of the value holding an attempt's expiration.
const expiresKey = "expires"

// CookieStore is a Store that keeps attempt values in the user's browser,
// in a cookie managed by a gorilla sessions.Store. Attempts are bound to the
// browser that started them: a callback made from another browser won't find
// the attempt.
type CookieStore struct {
	store   sessions.Store
	name    string
	ttl     time.Duration
	nowFunc func() time.Time
}

// ensure that CookieStore implements the Store interface
var _ Store = (*CookieStore)(nil)

// NewCookieStore creates a new CookieStore using the gorilla sessions.Store
// (typically a *sessions.CookieStore).
//
// Supported options:
//
//	WithTTL
//	WithSessionName
//	WithNow
func NewCookieStore(s sessions.Store, opt ...Option) (*CookieStore, error) {
	const op = "session.NewCookieStore"
	if s == nil {
		return nil, fmt.Errorf("%s: sessions store is nil: %w", op, ErrNilParameter)
	}
	opts := getStoreOpts(opt...)
	if opts.withTTL <= 0 {
		return nil, fmt.Errorf("%s: ttl must be greater than zero: %w", op, ErrInvalidParameter)
	}
	if opts.withSessionName == "" {
		return nil, fmt.Errorf("%s: session name is empty: %w", op, ErrInvalidParameter)
	}
	return &CookieStore{
		store:   s,
		name:    opts.withSessionName,
		ttl:     opts.withTTL,
		nowFunc: opts.withNowFunc,
	}, nil
}

func valueKey(attemptID, key string) string {
	return attemptID + "." + key
}

// Set implements the Store interface.
func (c *CookieStore) Set(ctx context.Context, attemptID, key, value string) error {
	const op = "CookieStore.Set"
	if attemptID == "" {
		return fmt.Errorf("%s: missing attempt id: %w", op, ErrInvalidParameter)
	}
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	w, r, ok := httpFromContext(ctx)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoHTTPContext)
	}
	// an existing cookie that can't be decoded is replaced by a new session
	sess, _ := c.store.Get(r, c.name)
	if sess == nil {
		return fmt.Errorf("%s: unable to get session %q", op, c.name)
	}
	c.expire(sess)
	sess.Values[valueKey(attemptID, key)] = value
	sess.Values[valueKey(attemptID, expiresKey)] = c.nowFunc().Add(c.ttl).Unix()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("%s: unable to save session: %w", op, err)
	}
	return nil
}

// Get implements the Store interface.
func (c *CookieStore) Get(ctx context.Context, attemptID, key string) (string, error) {
	const op = "CookieStore.Get"
	_, r, ok := httpFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNoHTTPContext)
	}
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		return "", fmt.Errorf("%s: unable to decode session %q: %w", op, c.name, err)
	}
	expires, ok := sess.Values[valueKey(attemptID, expiresKey)].(int64)
	if !ok || c.nowFunc().Unix() >= expires {
		return "", fmt.Errorf("%s: attempt %q: %w", op, attemptID, ErrNotFound)
	}
	v, ok := sess.Values[valueKey(attemptID, key)].(string)
	if !ok {
		return "", fmt.Errorf("%s: attempt %q key %q: %w", op, attemptID, key, ErrNotFound)
	}
	return v, nil
}

// Delete implements the Store interface.
func (c *CookieStore) Delete(ctx context.Context, attemptID string) error {
	const op = "CookieStore.Delete"
	w, r, ok := httpFromContext(ctx)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoHTTPContext)
	}
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		// nothing readable to delete
		return nil
	}
	prefix := attemptID + "."
	for k := range sess.Values {
		if s, ok := k.(string); ok && strings.HasPrefix(s, prefix) {
			delete(sess.Values, k)
		}
	}
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("%s: unable to save session: %w", op, err)
	}
	return nil
}

// expire removes the values of expired attempts, so abandoned attempts don't
// accumulate in the cookie.
func (c *CookieStore) expire(sess *sessions.Session) {
	now := c.nowFunc().Unix()
	var expired []string
	for k, v := range sess.Values {
		s, ok := k.(string)
		if !ok || !strings.HasSuffix(s, "."+expiresKey) {
			continue
		}
		if exp, ok := v.(int64); !ok || now >= exp {
			expired = append(expired, strings.TrimSuffix(s, expiresKey))
		}
	}
	for _, prefix := range expired {
		for k := range sess.Values {
			if s, ok := k.(string); ok && strings.HasPrefix(s, prefix) {
				delete(sess.Values, k)
			}
		}
	}
}
