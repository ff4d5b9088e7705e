package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

const (
	// ExpiryMargin is how far before the recorded expiry a token is already
	// treated as stale.
	ExpiryMargin = 60 * time.Second

	refreshMaxAttempts = 3
	refreshBackoffBase = time.Second
)

type ITokenUsecase interface {
	repository.ITokenSource
	// Status reports whether the user has a live, non-expired connection.
	Status(ctx context.Context, userID string) (*model.TikTokCredential, error)
	// Disconnect deletes the stored credential. Idempotent.
	Disconnect(ctx context.Context, userID string) error
}

// tokenUsecase is the refresh coordinator. Simultaneous callers for one user
// share a single refresh exchange through singleflight; refresh tokens may be
// single-use, so duplicate exchanges would strand the stored credential.
type tokenUsecase struct {
	vault repository.ICredentialVault
	oauth repository.ITikTokOAuth
	group singleflight.Group
}

func NewTokenUsecase(vault repository.ICredentialVault, oauth repository.ITikTokOAuth) ITokenUsecase {
	return &tokenUsecase{vault: vault, oauth: oauth}
}

func (u *tokenUsecase) AccessToken(ctx context.Context, userID string) (string, error) {
	cred, err := u.vault.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if !cred.Expired(ExpiryMargin) {
		return cred.AccessToken, nil
	}
	return u.refresh(ctx, userID, false)
}

// ForceRefresh always performs an exchange, even when the stored expiry still
// looks fresh. The provider just rejected that token; handing it back would
// only bounce the caller off the same 401.
func (u *tokenUsecase) ForceRefresh(ctx context.Context, userID string) (string, error) {
	return u.refresh(ctx, userID, true)
}

func (u *tokenUsecase) Status(ctx context.Context, userID string) (*model.TikTokCredential, error) {
	return u.vault.Load(ctx, userID)
}

func (u *tokenUsecase) Disconnect(ctx context.Context, userID string) error {
	if err := u.vault.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	logger.GetLogger().WithField("user_id", userID).Info("TikTok account disconnected")
	return nil
}

// refresh funnels concurrent callers for the same user into one exchange.
// Callers joining an in-flight refresh all receive its outcome.
func (u *tokenUsecase) refresh(ctx context.Context, userID string, force bool) (string, error) {
	token, err, _ := u.group.Do(userID, func() (interface{}, error) {
		return u.refreshLocked(ctx, userID, force)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (u *tokenUsecase) refreshLocked(ctx context.Context, userID string, force bool) (string, error) {
	// Re-load inside the flight: a caller that queued behind a completed
	// refresh finds the fresh credential and skips the exchange. Forced
	// refreshes never take this shortcut; the recorded expiry already lied.
	cred, err := u.vault.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if !force && !cred.Expired(ExpiryMargin) {
		return cred.AccessToken, nil
	}

	var lastErr error
	for attempt := 0; attempt < refreshMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := refreshBackoffBase << uint(attempt-1)
			delay += time.Duration(rand.Int63n(int64(delay / 2)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		token, err := u.oauth.RefreshToken(ctx, cred.RefreshToken)
		if err != nil {
			if errors.Is(err, apperrors.ErrCredentialRevoked) {
				// revoked upstream: drop the credential so the user re-connects
				if delErr := u.vault.Delete(ctx, userID); delErr != nil {
					logger.GetLogger().WithFields(map[string]interface{}{
						"error":   delErr,
						"user_id": userID,
					}).Error("failed to delete revoked credential")
				}
				logger.GetLogger().WithField("user_id", userID).Warn("credential revoked upstream")
				return "", err
			}
			if errors.Is(err, apperrors.ErrUpstreamAuth) {
				return "", err
			}
			lastErr = err
			continue
		}

		now := time.Now().UTC()
		cred.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			cred.RefreshToken = token.RefreshToken
		}
		if token.OpenID != "" {
			cred.OpenID = token.OpenID
		}
		if token.Scope != "" {
			cred.Scope = token.Scope
		}
		cred.ExpiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
		if token.RefreshExpiresIn > 0 {
			cred.RefreshExpiresAt = now.Add(time.Duration(token.RefreshExpiresIn) * time.Second)
		}
		if err := u.vault.Store(ctx, cred); err != nil {
			return "", fmt.Errorf("store refreshed credential: %w", err)
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"user_id":    userID,
			"expires_at": cred.ExpiresAt,
		}).Info("access token refreshed")
		return cred.AccessToken, nil
	}
	return "", fmt.Errorf("%w: %v", apperrors.ErrRefreshUnavailable, lastErr)
}
