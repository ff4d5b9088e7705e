package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/cache"
)

// fakeAuthorizer captures the challenge passed into the authorize URL.
type fakeAuthorizer struct {
	lastState     string
	lastChallenge string
}

func (f *fakeAuthorizer) AuthorizationURL(state, codeChallenge string) string {
	f.lastState = state
	f.lastChallenge = codeChallenge
	return "https://www.tiktok.com/v2/auth/authorize/?state=" + state
}

// exchangeRecorder captures the verifier presented at code exchange.
type exchangeRecorder struct {
	lastCode     string
	lastVerifier string
	fail         error
}

func (e *exchangeRecorder) ExchangeCode(_ context.Context, code, codeVerifier string) (*dto.TokenResponse, error) {
	e.lastCode = code
	e.lastVerifier = codeVerifier
	if e.fail != nil {
		return nil, e.fail
	}
	return freshTokenResponse("act.new"), nil
}

func (e *exchangeRecorder) RefreshToken(context.Context, string) (*dto.TokenResponse, error) {
	panic("not used")
}

func newTestAuthUsecase(oauth *exchangeRecorder) (IAuthUsecase, *memVault, *fakeAuthorizer) {
	vault := newMemVault()
	authorizer := &fakeAuthorizer{}
	return NewAuthUsecase(cache.NewMemoryStateStore(), oauth, authorizer, vault), vault, authorizer
}

func TestBuildAuthorizationURLIssuesStateAndPKCE(t *testing.T) {
	uc, _, authorizer := newTestAuthUsecase(&exchangeRecorder{})

	req, err := uc.BuildAuthorizationURL(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, req.State)
	require.Contains(t, req.AuthorizationURL, req.State)
	require.Equal(t, req.State, authorizer.lastState)
	require.NotEmpty(t, authorizer.lastChallenge)
}

func TestCompleteHandshakeStoresCredential(t *testing.T) {
	oauth := &exchangeRecorder{}
	uc, vault, authorizer := newTestAuthUsecase(oauth)

	req, err := uc.BuildAuthorizationURL(context.Background(), "user-1")
	require.NoError(t, err)

	userID, err := uc.CompleteHandshake(context.Background(), req.State, "the-code")
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	// the verifier presented at exchange matches the challenge sent to the
	// browser (S256)
	sum := sha256.Sum256([]byte(oauth.lastVerifier))
	require.Equal(t, authorizer.lastChallenge, base64.RawURLEncoding.EncodeToString(sum[:]))
	require.Equal(t, "the-code", oauth.lastCode)

	cred, err := vault.Load(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "act.new", cred.AccessToken)
	require.Equal(t, "open-1", cred.OpenID)
}

func TestCompleteHandshakeSingleUseState(t *testing.T) {
	uc, _, _ := newTestAuthUsecase(&exchangeRecorder{})

	req, err := uc.BuildAuthorizationURL(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = uc.CompleteHandshake(context.Background(), req.State, "the-code")
	require.NoError(t, err)

	_, err = uc.CompleteHandshake(context.Background(), req.State, "the-code")
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredState)
}

func TestCompleteHandshakeTamperedState(t *testing.T) {
	uc, vault, _ := newTestAuthUsecase(&exchangeRecorder{})

	_, err := uc.CompleteHandshake(context.Background(), "garbage", "the-code")
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredState)

	// no credential written
	_, err = vault.Load(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
}

func TestCompleteHandshakeExchangeFailureWritesNothing(t *testing.T) {
	oauth := &exchangeRecorder{fail: apperrors.ErrUpstreamAuth}
	uc, vault, _ := newTestAuthUsecase(oauth)

	req, err := uc.BuildAuthorizationURL(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = uc.CompleteHandshake(context.Background(), req.State, "bad-code")
	require.ErrorIs(t, err, apperrors.ErrUpstreamAuth)

	_, err = vault.Load(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrCredentialNotFound)
}

func TestCompleteHandshakeMissingParams(t *testing.T) {
	uc, _, _ := newTestAuthUsecase(&exchangeRecorder{})

	_, err := uc.CompleteHandshake(context.Background(), "", "code")
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredState)

	_, err = uc.CompleteHandshake(context.Background(), "state", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredState)
}
