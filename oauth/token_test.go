// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/hashicorp/cap-oauth2/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// testTokenFromJSON creates an oauth2.Token the way x/oauth2 does for a JSON
// token response.
func testTokenFromJSON(t *testing.T, raw string) *oauth2.Token {
	t.Helper()
	require := require.New(t)
	var fields map[string]interface{}
	require.NoError(json.Unmarshal([]byte(raw), &fields))
	tk := &oauth2.Token{}
	if v, ok := fields["access_token"].(string); ok {
		tk.AccessToken = v
	}
	if v, ok := fields["token_type"].(string); ok {
		tk.TokenType = v
	}
	if v, ok := fields["refresh_token"].(string); ok {
		tk.RefreshToken = v
	}
	return tk.WithExtra(fields)
}

func TestNewToken(t *testing.T) {
	t.Parallel()
	testNow := func() time.Time {
		return time.Now().Add(-time.Minute)
	}
	tests := []struct {
		name      string
		token     *oauth2.Token
		opt       []Option
		wantErr   bool
		wantIsErr error
	}{
		{
			name:  "valid",
			token: &oauth2.Token{AccessToken: "access", TokenType: "Bearer", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)},
		},
		{
			name:  "with-options",
			token: &oauth2.Token{AccessToken: "access"},
			opt:   []Option{WithNow(testNow), WithUserInfo(map[string]interface{}{"sub": "alice"})},
		},
		{
			name:      "nil-token",
			token:     nil,
			wantErr:   true,
			wantIsErr: ErrNilParameter,
		},
		{
			name:      "empty-access-token",
			token:     &oauth2.Token{TokenType: "Bearer"},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewToken(tt.token, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.Equal(AccessToken(tt.token.AccessToken), got.AccessToken())
			assert.Equal(RefreshToken(tt.token.RefreshToken), got.RefreshToken())
			assert.Equal(tt.token.Expiry, got.Expiry())
			assert.Equal(tt.token.Type(), got.TokenType())
			opts := getTokenOpts(tt.opt...)
			assert.Equal(opts.withUserInfo, got.UserInfo())
		})
	}
}

func TestTk_IsExpired(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		expiry time.Time
		now    func() time.Time
		want   bool
	}{
		{"no-expiry", time.Time{}, nil, false},
		{"expired", time.Now().Add(-time.Minute), nil, true},
		{"within-skew", time.Now().Add(expirySkew / 2), nil, true},
		{"not-expired", time.Now().Add(time.Hour), nil, false},
		{"now-func", time.Now().Add(time.Hour), func() time.Time { return time.Now().Add(2 * time.Hour) }, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			tk, err := NewToken(&oauth2.Token{AccessToken: "access", Expiry: tt.expiry}, WithNow(tt.now))
			require.NoError(err)
			assert.Equal(tt.want, tk.IsExpired())
			assert.Equal(!tt.want, tk.Valid())
		})
	}
	t.Run("nil", func(t *testing.T) {
		assert := assert.New(t)
		var tk *Tk
		assert.True(tk.IsExpired())
		assert.False(tk.Valid())
		assert.Empty(tk.AccessToken())
		assert.Nil(tk.StaticTokenSource())
		v, ok := tk.Lookup("user")
		assert.False(ok)
		assert.Nil(v)
	})
}

func TestTk_Lookup(t *testing.T) {
	t.Parallel()
	t.Run("json", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tk, err := NewToken(testTokenFromJSON(t, `{"access_token": "access", "token_type": "Bearer", "user": {"id": "42", "email": "a@b.com"}, "expires_in": 3600}`))
		require.NoError(err)

		v, ok := tk.Lookup("user")
		require.True(ok)
		assert.Equal(map[string]interface{}{"id": "42", "email": "a@b.com"}, v)

		v, ok = tk.Lookup("expires_in")
		require.True(ok)
		assert.Equal(float64(3600), v)

		v, ok = tk.Lookup("missing")
		assert.False(ok)
		assert.Nil(v)
	})
	t.Run("json-empty-string", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tk, err := NewToken(testTokenFromJSON(t, `{"access_token": "access", "name": "", "email": "a@b.com"}`))
		require.NoError(err)

		v, ok := tk.Lookup("name")
		require.True(ok)
		assert.Equal("", v)

		assert.Equal(map[string]interface{}{"name": "", "email": "a@b.com"}, extract.InfoString(tk, "name:name|email:email"))
	})
	t.Run("form", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		raw := url.Values{
			"access_token": []string{"access"},
			"user_id":      []string{"42"},
			"login":        []string{"alice"},
		}
		tk, err := NewToken((&oauth2.Token{AccessToken: "access"}).WithExtra(raw))
		require.NoError(err)

		v, ok := tk.Lookup("login")
		require.True(ok)
		assert.Equal("alice", v)

		v, ok = tk.Lookup("user_id")
		require.True(ok)
		assert.Equal(int64(42), v)

		_, ok = tk.Lookup("missing")
		assert.False(ok)

		assert.Equal(map[string]interface{}{"login": "alice", "name": nil}, extract.InfoString(tk, "login:login|name:name"))
	})
}

func TestTk_Extract(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tk, err := NewToken(
		testTokenFromJSON(t, `{"access_token": "access", "token_type": "Bearer", "user": {"id": "42", "email": "a@b.com"}}`),
		WithUserInfo(map[string]interface{}{"sub": "alice", "flavor": map[string]interface{}{"name": "umami"}}),
	)
	require.NoError(err)

	tests := []struct {
		path string
		want interface{}
	}{
		{"user.id", "42"},
		{"user.email", "a@b.com"},
		{"user.phone", nil},
		{"token_type", "Bearer"},
		{"access_token", AccessToken("access")},
		{"userinfo.sub", "alice"},
		{"user_info.flavor.name", "umami"},
	}
	for _, tt := range tests {
		assert.Equalf(tt.want, extract.Resolve(tk, extract.ParsePath(tt.path)), "path %s", tt.path)
	}

	uid, ok := extract.UIDString(tk, "access_token")
	assert.True(ok)
	assert.Equal("access", uid)
}

func TestAccessToken_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedAccessToken
		tk := AccessToken("super secret token")
		assert.Equalf(want, tk.String(), "AccessToken.String() = %v, want %v", tk.String(), want)
	})
}

func TestAccessToken_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedAccessToken)
		tk := AccessToken("super secret token")
		got, err := tk.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "AccessToken.MarshalJSON() = %s, want %s", got, want)
	})
}

func TestRefreshToken_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedRefreshToken
		tk := RefreshToken("super secret token")
		assert.Equalf(want, tk.String(), "RefreshToken.String() = %v, want %v", tk.String(), want)
	})
}

func TestRefreshToken_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedRefreshToken)
		tk := RefreshToken("super secret token")
		got, err := tk.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "RefreshToken.MarshalJSON() = %s, want %s", got, want)
	})
}
