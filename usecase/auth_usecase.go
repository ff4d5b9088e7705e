package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// IAuthorizer builds the provider authorize URL; implemented by the OAuth client.
type IAuthorizer interface {
	AuthorizationURL(state, codeChallenge string) string
}

type IAuthUsecase interface {
	// BuildAuthorizationURL issues a handshake state with a PKCE pair and
	// returns the URL the user should be redirected to.
	BuildAuthorizationURL(ctx context.Context, userID string) (*dto.AuthorizationRequest, error)
	// CompleteHandshake consumes the callback state, exchanges the code, and
	// stores the resulting credential. Returns the platform user the
	// handshake belongs to.
	CompleteHandshake(ctx context.Context, stateValue, code string) (string, error)
}

type authUsecase struct {
	states     repository.IStateStore
	oauth      repository.ITikTokOAuth
	authorizer IAuthorizer
	vault      repository.ICredentialVault
}

func NewAuthUsecase(states repository.IStateStore, oauth repository.ITikTokOAuth, authorizer IAuthorizer, vault repository.ICredentialVault) IAuthUsecase {
	return &authUsecase{states: states, oauth: oauth, authorizer: authorizer, vault: vault}
}

func (u *authUsecase) BuildAuthorizationURL(ctx context.Context, userID string) (*dto.AuthorizationRequest, error) {
	if userID == "" {
		return nil, errors.New("userID required")
	}
	verifier, challenge, err := newPKCEPair()
	if err != nil {
		return nil, err
	}
	state, err := u.states.Issue(ctx, userID, verifier)
	if err != nil {
		return nil, fmt.Errorf("issue handshake state: %w", err)
	}
	return &dto.AuthorizationRequest{
		AuthorizationURL: u.authorizer.AuthorizationURL(state.StateValue, challenge),
		State:            state.StateValue,
	}, nil
}

func (u *authUsecase) CompleteHandshake(ctx context.Context, stateValue, code string) (string, error) {
	if stateValue == "" || code == "" {
		return "", apperrors.ErrInvalidOrExpiredState
	}
	state, err := u.states.Consume(ctx, stateValue)
	if err != nil {
		return "", err
	}

	token, err := u.oauth.ExchangeCode(ctx, code, state.CodeVerifier)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   apperrors.Kind(err),
			"user_id": state.UserID,
		}).Warn("code exchange failed")
		return "", err
	}

	now := time.Now().UTC()
	cred := &model.TikTokCredential{
		UserID:           state.UserID,
		OpenID:           token.OpenID,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		Scope:            token.Scope,
		ExpiresAt:        now.Add(time.Duration(token.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(time.Duration(token.RefreshExpiresIn) * time.Second),
	}
	if err := u.vault.Store(ctx, cred); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"user_id": state.UserID,
		"open_id": token.OpenID,
		"scope":   token.Scope,
	}).Info("TikTok account connected")
	return state.UserID, nil
}

// newPKCEPair generates a code verifier and its S256 challenge.
func newPKCEPair() (verifier, challenge string, err error) {
	buf := make([]byte, 64)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate code verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge, nil
}
