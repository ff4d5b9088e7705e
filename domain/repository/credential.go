package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// ICredentialVault persists OAuth token material encrypted at rest.
// Implementations never log or expose plaintext tokens outside Load.
type ICredentialVault interface {
	// Store encrypts the token fields and upserts the credential row.
	Store(ctx context.Context, cred *model.TikTokCredential) error
	// Load returns the decrypted credential, apperrors.ErrCredentialNotFound
	// when absent, or apperrors.ErrCorruptedCredential when decryption fails.
	Load(ctx context.Context, userID string) (*model.TikTokCredential, error)
	// Delete removes the credential row. Deleting a missing row is not an error.
	Delete(ctx context.Context, userID string) error
}
