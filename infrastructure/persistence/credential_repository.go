package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// TokenCipher seals token material before it is written and opens it on read.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// CredentialRepository stores TikTok OAuth credentials in PostgreSQL with
// both tokens encrypted at rest.
type CredentialRepository struct {
	db     *sql.DB
	cipher TokenCipher
}

func NewCredentialRepository(db *sql.DB, cipher TokenCipher) *CredentialRepository {
	return &CredentialRepository{db: db, cipher: cipher}
}

// EnsureCredentialSchema creates the tiktok_credentials table if missing.
func EnsureCredentialSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS tiktok_credentials (
		user_id TEXT PRIMARY KEY,
		open_id TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		scope TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		refresh_expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create tiktok_credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Store(ctx context.Context, cred *model.TikTokCredential) error {
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	sealedAccess, err := r.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	sealedRefresh, err := r.cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	q := `INSERT INTO tiktok_credentials (user_id, open_id, access_token, refresh_token, scope, expires_at, refresh_expires_at, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		  ON CONFLICT (user_id) DO UPDATE SET
			open_id=EXCLUDED.open_id,
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			scope=EXCLUDED.scope,
			expires_at=EXCLUDED.expires_at,
			refresh_expires_at=EXCLUDED.refresh_expires_at,
			updated_at=EXCLUDED.updated_at`
	_, err = r.db.ExecContext(ctx, q, cred.UserID, cred.OpenID, sealedAccess, sealedRefresh, cred.Scope, cred.ExpiresAt, cred.RefreshExpiresAt, cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   err,
			"user_id": cred.UserID,
		}).Error("upsert tiktok credential failed")
	}
	return err
}

func (r *CredentialRepository) Load(ctx context.Context, userID string) (*model.TikTokCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, open_id, access_token, refresh_token, scope, expires_at, refresh_expires_at, created_at, updated_at FROM tiktok_credentials WHERE user_id=$1`, userID)
	cred := &model.TikTokCredential{}
	var sealedAccess, sealedRefresh string
	if err := row.Scan(&cred.UserID, &cred.OpenID, &sealedAccess, &sealedRefresh, &cred.Scope, &cred.ExpiresAt, &cred.RefreshExpiresAt, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrCredentialNotFound
		}
		return nil, err
	}

	access, err := r.cipher.Decrypt(sealedAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := r.cipher.Decrypt(sealedRefresh)
	if err != nil {
		return nil, err
	}
	cred.AccessToken = access
	cred.RefreshToken = refresh
	return cred, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tiktok_credentials WHERE user_id=$1`, userID)
	return err
}

// ListUserIDs returns every user with a stored credential. Used by the
// background auto-sync loop.
func (r *CredentialRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM tiktok_credentials ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
