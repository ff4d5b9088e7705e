package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// CredentialRepositoryMSSQL is the SQL Server variant used against Azure SQL.
type CredentialRepositoryMSSQL struct {
	db     *sql.DB
	cipher TokenCipher
}

func NewCredentialRepositoryMSSQL(db *sql.DB, cipher TokenCipher) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db, cipher: cipher}
}

// EnsureCredentialSchemaMSSQL creates the tiktok_credentials table for SQL Server if it does not exist.
func EnsureCredentialSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.tiktok_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[tiktok_credentials] (
        user_id NVARCHAR(128) PRIMARY KEY,
        open_id NVARCHAR(128) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NOT NULL,
        scope NVARCHAR(512) NOT NULL DEFAULT '',
        expires_at DATETIME2 NOT NULL,
        refresh_expires_at DATETIME2 NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create tiktok_credentials (mssql): %w", err)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) Store(ctx context.Context, cred *model.TikTokCredential) error {
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

	// MERGE upsert by user_id
	q := `MERGE dbo.[tiktok_credentials] AS target
USING (VALUES (@p1)) AS src(user_id)
ON target.user_id = src.user_id
WHEN MATCHED THEN UPDATE SET
    open_id=@p2,
    access_token=@p3,
    refresh_token=@p4,
    scope=@p5,
    expires_at=@p6,
    refresh_expires_at=@p7,
    updated_at=@p9
WHEN NOT MATCHED THEN
    INSERT (user_id, open_id, access_token, refresh_token, scope, expires_at, refresh_expires_at, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9);`
	_, err = r.db.ExecContext(ctx, q,
		cred.UserID, cred.OpenID, sealedAccess, sealedRefresh, cred.Scope,
		cred.ExpiresAt, cred.RefreshExpiresAt, cred.CreatedAt, cred.UpdatedAt)
	return err
}

func (r *CredentialRepositoryMSSQL) Load(ctx context.Context, userID string) (*model.TikTokCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, open_id, access_token, refresh_token, scope, expires_at, refresh_expires_at, created_at, updated_at FROM dbo.[tiktok_credentials] WHERE user_id=@p1`, userID)
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

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[tiktok_credentials] WHERE user_id=@p1`, userID)
	return err
}

// ListUserIDs returns every user with a stored credential.
func (r *CredentialRepositoryMSSQL) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM dbo.[tiktok_credentials] ORDER BY user_id`)
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
