package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// IStateStore issues and validates one-time anti-forgery state values for the
// authorization handshake.
type IStateStore interface {
	// Issue generates a random state value, records it together with the PKCE
	// code verifier under a short expiry, and returns the stored record.
	Issue(ctx context.Context, userID, codeVerifier string) (*model.HandshakeState, error)
	// Consume atomically looks up and deletes the state. At most one caller
	// succeeds per value; missing, expired, or replayed states return
	// apperrors.ErrInvalidOrExpiredState.
	Consume(ctx context.Context, stateValue string) (*model.HandshakeState, error)
}
