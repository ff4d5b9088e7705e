package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
)

// VideoRepository stores synced TikTok videos in PostgreSQL.
type VideoRepository struct{ db *sql.DB }

func NewVideoRepository(db *sql.DB) *VideoRepository { return &VideoRepository{db: db} }

// EnsureVideoSchema creates the tiktok_videos and tiktok_profiles tables if missing.
func EnsureVideoSchema(db *sql.DB) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS tiktok_videos (
			user_id TEXT NOT NULL,
			video_id TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			duration BIGINT NOT NULL DEFAULT 0,
			create_time TIMESTAMPTZ NOT NULL,
			cover_image_url TEXT NOT NULL DEFAULT '',
			share_url TEXT NOT NULL DEFAULT '',
			height INT NOT NULL DEFAULT 0,
			width INT NOT NULL DEFAULT 0,
			view_count BIGINT NOT NULL DEFAULT 0,
			like_count BIGINT NOT NULL DEFAULT 0,
			comment_count BIGINT NOT NULL DEFAULT 0,
			share_count BIGINT NOT NULL DEFAULT 0,
			synced_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, video_id)
		)`,
		`CREATE TABLE IF NOT EXISTS tiktok_profiles (
			user_id TEXT PRIMARY KEY,
			open_id TEXT NOT NULL,
			union_id TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			bio_description TEXT NOT NULL DEFAULT '',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			follower_count BIGINT NOT NULL DEFAULT 0,
			following_count BIGINT NOT NULL DEFAULT 0,
			likes_count BIGINT NOT NULL DEFAULT 0,
			video_count BIGINT NOT NULL DEFAULT 0,
			synced_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create tiktok video schema: %w", err)
		}
	}
	return nil
}

func (r *VideoRepository) UpsertVideos(ctx context.Context, videos []model.TikTokVideo) error {
	if len(videos) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	q := `INSERT INTO tiktok_videos (user_id, video_id, description, duration, create_time, cover_image_url, share_url, height, width, view_count, like_count, comment_count, share_count, synced_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		  ON CONFLICT (user_id, video_id) DO UPDATE SET
			description=EXCLUDED.description,
			duration=EXCLUDED.duration,
			create_time=EXCLUDED.create_time,
			cover_image_url=EXCLUDED.cover_image_url,
			share_url=EXCLUDED.share_url,
			height=EXCLUDED.height,
			width=EXCLUDED.width,
			view_count=EXCLUDED.view_count,
			like_count=EXCLUDED.like_count,
			comment_count=EXCLUDED.comment_count,
			share_count=EXCLUDED.share_count,
			synced_at=EXCLUDED.synced_at`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range videos {
		v := &videos[i]
		if v.SyncedAt.IsZero() {
			v.SyncedAt = now
		}
		if _, err := stmt.ExecContext(ctx, v.UserID, v.VideoID, v.Description, v.Duration, v.CreateTime, v.CoverImageURL, v.ShareURL, v.Height, v.Width, v.ViewCount, v.LikeCount, v.CommentCount, v.ShareCount, v.SyncedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (r *VideoRepository) ListByUser(ctx context.Context, userID string) ([]model.TikTokVideo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, video_id, description, duration, create_time, cover_image_url, share_url, height, width, view_count, like_count, comment_count, share_count, synced_at FROM tiktok_videos WHERE user_id=$1 ORDER BY view_count DESC, video_id ASC`, userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("list videos failed")
		return nil, err
	}
	defer rows.Close()

	var videos []model.TikTokVideo
	for rows.Next() {
		var v model.TikTokVideo
		if err := rows.Scan(&v.UserID, &v.VideoID, &v.Description, &v.Duration, &v.CreateTime, &v.CoverImageURL, &v.ShareURL, &v.Height, &v.Width, &v.ViewCount, &v.LikeCount, &v.CommentCount, &v.ShareCount, &v.SyncedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tiktok_videos WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// ProfileRepository stores the account snapshot taken at sync time.
type ProfileRepository struct{ db *sql.DB }

func NewProfileRepository(db *sql.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.TikTokProfile) error {
	if profile.SyncedAt.IsZero() {
		profile.SyncedAt = time.Now().UTC()
	}
	q := `INSERT INTO tiktok_profiles (user_id, open_id, union_id, display_name, avatar_url, bio_description, is_verified, follower_count, following_count, likes_count, video_count, synced_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		  ON CONFLICT (user_id) DO UPDATE SET
			open_id=EXCLUDED.open_id,
			union_id=EXCLUDED.union_id,
			display_name=EXCLUDED.display_name,
			avatar_url=EXCLUDED.avatar_url,
			bio_description=EXCLUDED.bio_description,
			is_verified=EXCLUDED.is_verified,
			follower_count=EXCLUDED.follower_count,
			following_count=EXCLUDED.following_count,
			likes_count=EXCLUDED.likes_count,
			video_count=EXCLUDED.video_count,
			synced_at=EXCLUDED.synced_at`
	_, err := r.db.ExecContext(ctx, q, profile.UserID, profile.OpenID, profile.UnionID, profile.DisplayName, profile.AvatarURL, profile.BioDescription, profile.IsVerified, profile.FollowerCount, profile.FollowingCount, profile.LikesCount, profile.VideoCount, profile.SyncedAt)
	return err
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (*model.TikTokProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, open_id, union_id, display_name, avatar_url, bio_description, is_verified, follower_count, following_count, likes_count, video_count, synced_at FROM tiktok_profiles WHERE user_id=$1`, userID)
	p := &model.TikTokProfile{}
	if err := row.Scan(&p.UserID, &p.OpenID, &p.UnionID, &p.DisplayName, &p.AvatarURL, &p.BioDescription, &p.IsVerified, &p.FollowerCount, &p.FollowingCount, &p.LikesCount, &p.VideoCount, &p.SyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
