// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hashicorp/cap-oauth2/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		kind      string
		cfg       storeConfig
		want      interface{}
		wantErr   bool
		wantIsErr error
	}{
		{name: "memory", kind: "memory", cfg: storeConfig{ttl: time.Minute}, want: &session.MemoryStore{}},
		{name: "memory-upper", kind: "MEMORY", cfg: storeConfig{ttl: time.Minute}, want: &session.MemoryStore{}},
		{name: "redis", kind: "redis", cfg: storeConfig{ttl: time.Minute, redisURL: "redis://" + mr.Addr() + "/0"}, want: &session.RedisStore{}},
		{name: "cookie", kind: "cookie", cfg: storeConfig{ttl: time.Minute, sessionSecret: "secret"}, want: &session.CookieStore{}},
		{name: "cookie-no-secret", kind: "cookie", cfg: storeConfig{ttl: time.Minute}, wantErr: true, wantIsErr: session.ErrInvalidParameter},
		{name: "unknown", kind: "postgres", cfg: storeConfig{ttl: time.Minute}, wantErr: true, wantIsErr: session.ErrInvalidParameter},
		{name: "zero-ttl", kind: "memory", wantErr: true, wantIsErr: session.ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, closeFn, err := newStore(ctx, tt.kind, tt.cfg)
			require.NotNil(closeFn)
			defer closeFn()
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.IsType(tt.want, got)
		})
	}
}

func TestEphemeralSecret(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	first, err := ephemeralSecret()
	require.NoError(err)
	assert.Len(first, ephemeralSecretLength)
	second, err := ephemeralSecret()
	require.NoError(err)
	assert.NotEqual(first, second)

	s, closeFn, err := newStore(context.Background(), storeCookie, storeConfig{ttl: time.Minute, sessionSecret: first})
	defer closeFn()
	require.NoError(err)
	assert.IsType(&session.CookieStore{}, s)
}

func TestIsHTTPS(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.True(isHTTPS("https://example.com"))
	assert.False(isHTTPS("http://localhost:8080"))
	assert.False(isHTTPS("%%"))
}
