package tiktok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/configuration"
)

func testOAuthClient(serverURL string) *OAuthClient {
	c := NewOAuthClient(&configuration.TikTokConfig{
		ClientKey:    "awtestkey",
		ClientSecret: "testsecret",
		RedirectURL:  "http://localhost:10001/auth/tiktok/callback",
		Scopes:       []string{"user.info.basic", "video.list"},
	})
	c.tokenURL = serverURL
	return c
}

func TestAuthorizationURL(t *testing.T) {
	c := testOAuthClient("")

	u := c.AuthorizationURL("state-123", "challenge-abc")
	require.Contains(t, u, AuthorizeURL)
	require.Contains(t, u, "client_key=awtestkey")
	require.Contains(t, u, "state=state-123")
	require.Contains(t, u, "code_challenge=challenge-abc")
	require.Contains(t, u, "code_challenge_method=S256")
	require.Contains(t, u, "response_type=code")
	require.NotContains(t, u, "testsecret", "client secret must never reach the browser")
}

func TestExchangeCodeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		require.Equal(t, "awtestkey", r.PostForm.Get("client_key"))
		require.Equal(t, "the-code", r.PostForm.Get("code"))
		require.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"act.abc","expires_in":86400,"open_id":"open-1","refresh_token":"rft.def","refresh_expires_in":31536000,"scope":"user.info.basic,video.list","token_type":"Bearer"}`))
	}))
	defer server.Close()

	token, err := testOAuthClient(server.URL).ExchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	require.Equal(t, "act.abc", token.AccessToken)
	require.Equal(t, "open-1", token.OpenID)
	require.Equal(t, "rft.def", token.RefreshToken)
}

func TestExchangeCodeProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"code expired"}`))
	}))
	defer server.Close()

	_, err := testOAuthClient(server.URL).ExchangeCode(context.Background(), "stale", "verifier")
	require.ErrorIs(t, err, apperrors.ErrUpstreamAuth)
}

func TestRefreshTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "rft.old", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"act.new","expires_in":86400,"open_id":"open-1","refresh_token":"rft.new","refresh_expires_in":31536000,"scope":"video.list","token_type":"Bearer"}`))
	}))
	defer server.Close()

	token, err := testOAuthClient(server.URL).RefreshToken(context.Background(), "rft.old")
	require.NoError(t, err)
	require.Equal(t, "act.new", token.AccessToken)
	require.Equal(t, "rft.new", token.RefreshToken, "rotated refresh token must be carried through")
}

func TestRefreshTokenInvalidGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"user revoked access"}`))
	}))
	defer server.Close()

	_, err := testOAuthClient(server.URL).RefreshToken(context.Background(), "rft.revoked")
	require.ErrorIs(t, err, apperrors.ErrCredentialRevoked)
}

func TestRefreshTokenServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testOAuthClient(server.URL).RefreshToken(context.Background(), "rft.old")
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrCredentialRevoked)
	require.NotErrorIs(t, err, apperrors.ErrUpstreamAuth)
}
