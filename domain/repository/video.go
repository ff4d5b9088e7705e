package repository

import (
	"context"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// IVideo persists synced remote video records with upsert-by-natural-key
// semantics: (user_id, video_id) is unique, re-sync overwrites metadata.
type IVideo interface {
	// UpsertVideos inserts or updates a batch inside one transaction.
	UpsertVideos(ctx context.Context, videos []model.TikTokVideo) error
	// ListByUser returns all stored videos for the user ordered by
	// view_count desc, video_id asc (stable for repeatable analytics).
	ListByUser(ctx context.Context, userID string) ([]model.TikTokVideo, error)
	// CountByUser returns the number of stored videos for the user.
	CountByUser(ctx context.Context, userID string) (int64, error)
}

// IProfile persists the account-level snapshot taken during sync.
type IProfile interface {
	Upsert(ctx context.Context, profile *model.TikTokProfile) error
	// Get returns the stored snapshot or nil when the user never synced.
	Get(ctx context.Context, userID string) (*model.TikTokProfile, error)
}
