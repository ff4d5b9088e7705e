package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// ITikTokOAuth performs the provider-side token exchanges.
type ITikTokOAuth interface {
	// ExchangeCode trades an authorization code (plus PKCE verifier) for tokens.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*dto.TokenResponse, error)
	// RefreshToken trades a refresh token for a new token pair.
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
}

// ITokenSource hands out a valid access token for a user immediately before a
// remote call. Implemented by the token refresh coordinator.
type ITokenSource interface {
	// AccessToken returns a token valid for at least the safety margin.
	AccessToken(ctx context.Context, userID string) (string, error)
	// ForceRefresh discards the cached access token and performs one refresh
	// exchange; used after the provider answers 401 to a supposedly-fresh token.
	ForceRefresh(ctx context.Context, userID string) (string, error)
}

// ITikTok is the rate-limited data client against the provider API.
type ITikTok interface {
	// GetUserInfo fetches the live account profile.
	GetUserInfo(ctx context.Context, userID string) (*model.TikTokProfile, error)
	// ListVideos fetches one page of the user's video list. Cursor 0 requests
	// the first page; the returned page carries the next cursor and has_more.
	ListVideos(ctx context.Context, userID string, cursor int64, maxCount int) (*dto.VideoPage, error)
	// QueryVideos fetches specific videos by id, at most 20 per call. Ids the
	// provider does not know are simply absent from the result.
	QueryVideos(ctx context.Context, userID string, videoIDs []string) ([]model.TikTokVideo, error)
}
