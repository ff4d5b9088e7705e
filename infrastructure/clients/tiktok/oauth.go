package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/configuration"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

const (
	// AuthorizeURL is the user-facing authorization page.
	AuthorizeURL = "https://www.tiktok.com/v2/auth/authorize/"

	// TokenURL serves both authorization_code and refresh_token grants.
	TokenURL = "https://open.tiktokapis.com/v2/oauth/token/"
)

// OAuthClient performs the provider-side token exchanges. TikTok deviates
// from plain OAuth2: the client id parameter is named client_key and the
// token endpoint is form encoded.
type OAuthClient struct {
	cfg        *configuration.TikTokConfig
	httpClient *http.Client
	tokenURL   string
}

func NewOAuthClient(cfg *configuration.TikTokConfig) *OAuthClient {
	return &OAuthClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   TokenURL,
	}
}

// AuthorizationURL builds the user-facing authorize URL with PKCE challenge.
func (c *OAuthClient) AuthorizationURL(state, codeChallenge string) string {
	q := url.Values{}
	q.Set("client_key", c.cfg.ClientKey)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.cfg.Scopes, ","))
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	return AuthorizeURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code (plus its PKCE verifier) for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*dto.TokenResponse, error) {
	form := url.Values{}
	form.Set("client_key", c.cfg.ClientKey)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURL)
	form.Set("code_verifier", codeVerifier)

	token, err := c.postTokenForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if token.Error != "" {
		logger.GetLogger().WithFields(map[string]interface{}{
			"provider_error": token.Error,
			"description":    token.ErrorDescription,
		}).Warn("code exchange rejected by provider")
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUpstreamAuth, token.Error)
	}
	if token.AccessToken == "" || token.OpenID == "" {
		return nil, fmt.Errorf("%w: token response missing required fields", apperrors.ErrUpstreamAuth)
	}
	return token, nil
}

// RefreshToken trades a refresh token for a new token pair. An invalid_grant
// answer means the user revoked access; that maps to ErrCredentialRevoked.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	form := url.Values{}
	form.Set("client_key", c.cfg.ClientKey)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := c.postTokenForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if token.Error != "" {
		if token.Error == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrCredentialRevoked, token.ErrorDescription)
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"provider_error": token.Error,
			"description":    token.ErrorDescription,
		}).Warn("refresh exchange rejected by provider")
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUpstreamAuth, token.Error)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access token", apperrors.ErrUpstreamAuth)
	}
	return token, nil
}

// postTokenForm performs the form-encoded token call. Transport failures and
// 5xx answers return plain errors so the refresh coordinator may retry them.
func (c *OAuthClient) postTokenForm(ctx context.Context, form url.Values) (*dto.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	token := &dto.TokenResponse{}
	if err := json.Unmarshal(body, token); err != nil {
		return nil, fmt.Errorf("decode token response (status %d): %w", resp.StatusCode, err)
	}
	return token, nil
}
