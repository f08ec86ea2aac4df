package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"genai-gallery/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGoogleServer(t *testing.T, profile GoogleProfile) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *GoogleOAuth {
	return NewGoogleOAuth(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/auth/google/callback",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, srv.URL+"/userinfo")
}

func TestProvider_SignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)

	created, err := p.SignUp(ctx, " Fox@Example.com ", "secret-pw", "Fox")
	require.NoError(t, err)
	assert.Equal(t, "fox@example.com", created.Email)
	assert.Equal(t, ProviderPassword, created.Provider)

	user, err := p.SignIn(ctx, "fox@example.com", "secret-pw")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	looked, err := p.Lookup(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fox", looked.DisplayName)
}

func TestProvider_SignInRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)
	_, err := p.SignUp(ctx, "fox@example.com", "secret-pw", "Fox")
	require.NoError(t, err)

	cases := map[string]struct{ email, password string }{
		"wrong password": {"fox@example.com", "wrong-pw"},
		"unknown email":  {"wolf@example.com", "secret-pw"},
		"invalid email":  {"not-an-email", "secret-pw"},
		"short password": {"fox@example.com", "123"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.SignIn(ctx, tc.email, tc.password)
			assert.True(t, errors.Is(err, common.ErrUnauthorized))
		})
	}
}

func TestProvider_SignUpDuplicate(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(NewMemoryStore(), nil)

	_, err := p.SignUp(ctx, "fox@example.com", "secret-pw", "Fox")
	require.NoError(t, err)

	_, err = p.SignUp(ctx, "FOX@example.com", "other-pw", "Fox 2")
	assert.True(t, errors.Is(err, common.ErrAccountExists))
}

func TestProvider_SignUpValidation(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil)

	_, err := p.SignUp(context.Background(), "fox@example.com", "secret-pw", "  ")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrAccountExists))
}

func TestProvider_GoogleDisabled(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil)

	_, err := p.GoogleAuthURL("state")
	assert.True(t, errors.Is(err, common.ErrGoogleDisabled))

	_, err = p.SignInWithGoogle(context.Background(), "code")
	assert.True(t, errors.Is(err, common.ErrGoogleDisabled))
}

func TestProvider_GoogleAuthURL(t *testing.T) {
	srv := newGoogleServer(t, GoogleProfile{})
	p := NewProvider(NewMemoryStore(), newTestGoogle(srv))

	raw, err := p.GoogleAuthURL("state-123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
}

func TestProvider_SignInWithGoogle(t *testing.T) {
	ctx := context.Background()
	srv := newGoogleServer(t, GoogleProfile{Subject: "g-42", Email: "Fox@Gmail.com", Name: "Fox"})
	store := NewMemoryStore()
	p := NewProvider(store, newTestGoogle(srv))

	first, err := p.SignInWithGoogle(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, first.Provider)
	assert.Equal(t, "fox@gmail.com", first.Email)

	// 再次登录复用同一账号
	second, err := p.SignInWithGoogle(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = p.SignInWithGoogle(ctx, "bad-code")
	require.Error(t, err)
}

func TestProvider_LookupInvalidID(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil)

	_, err := p.Lookup(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
