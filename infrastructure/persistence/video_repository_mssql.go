package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

// VideoRepositoryMSSQL is the SQL Server variant of the video store.
type VideoRepositoryMSSQL struct{ db *sql.DB }

func NewVideoRepositoryMSSQL(db *sql.DB) *VideoRepositoryMSSQL {
	return &VideoRepositoryMSSQL{db: db}
}

// EnsureVideoSchemaMSSQL creates the tiktok_videos and tiktok_profiles tables for SQL Server.
func EnsureVideoSchemaMSSQL(db *sql.DB) error {
	ddls := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.tiktok_videos') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[tiktok_videos] (
        user_id NVARCHAR(128) NOT NULL,
        video_id NVARCHAR(128) NOT NULL,
        description NVARCHAR(MAX) NOT NULL DEFAULT '',
        duration BIGINT NOT NULL DEFAULT 0,
        create_time DATETIME2 NOT NULL,
        cover_image_url NVARCHAR(2048) NOT NULL DEFAULT '',
        share_url NVARCHAR(2048) NOT NULL DEFAULT '',
        height INT NOT NULL DEFAULT 0,
        width INT NOT NULL DEFAULT 0,
        view_count BIGINT NOT NULL DEFAULT 0,
        like_count BIGINT NOT NULL DEFAULT 0,
        comment_count BIGINT NOT NULL DEFAULT 0,
        share_count BIGINT NOT NULL DEFAULT 0,
        synced_at DATETIME2 NOT NULL,
        CONSTRAINT PK_tiktok_videos PRIMARY KEY (user_id, video_id)
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.tiktok_profiles') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[tiktok_profiles] (
        user_id NVARCHAR(128) PRIMARY KEY,
        open_id NVARCHAR(128) NOT NULL,
        union_id NVARCHAR(128) NOT NULL DEFAULT '',
        display_name NVARCHAR(256) NOT NULL DEFAULT '',
        avatar_url NVARCHAR(2048) NOT NULL DEFAULT '',
        bio_description NVARCHAR(MAX) NOT NULL DEFAULT '',
        is_verified BIT NOT NULL DEFAULT 0,
        follower_count BIGINT NOT NULL DEFAULT 0,
        following_count BIGINT NOT NULL DEFAULT 0,
        likes_count BIGINT NOT NULL DEFAULT 0,
        video_count BIGINT NOT NULL DEFAULT 0,
        synced_at DATETIME2 NOT NULL
    );
END`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create tiktok video schema (mssql): %w", err)
		}
	}
	return nil
}

func (r *VideoRepositoryMSSQL) UpsertVideos(ctx context.Context, videos []model.TikTokVideo) error {
	if len(videos) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	q := `MERGE dbo.[tiktok_videos] AS target
USING (VALUES (@p1, @p2)) AS src(user_id, video_id)
ON target.user_id = src.user_id AND target.video_id = src.video_id
WHEN MATCHED THEN UPDATE SET
    description=@p3,
    duration=@p4,
    create_time=@p5,
    cover_image_url=@p6,
    share_url=@p7,
    height=@p8,
    width=@p9,
    view_count=@p10,
    like_count=@p11,
    comment_count=@p12,
    share_count=@p13,
    synced_at=@p14
WHEN NOT MATCHED THEN
    INSERT (user_id, video_id, description, duration, create_time, cover_image_url, share_url, height, width, view_count, like_count, comment_count, share_count, synced_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14);`

	now := time.Now().UTC()
	for i := range videos {
		v := &videos[i]
		if v.SyncedAt.IsZero() {
			v.SyncedAt = now
		}
		if _, err := tx.ExecContext(ctx, q, v.UserID, v.VideoID, v.Description, v.Duration, v.CreateTime, v.CoverImageURL, v.ShareURL, v.Height, v.Width, v.ViewCount, v.LikeCount, v.CommentCount, v.ShareCount, v.SyncedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert video %s: %w", v.VideoID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (r *VideoRepositoryMSSQL) ListByUser(ctx context.Context, userID string) ([]model.TikTokVideo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, video_id, description, duration, create_time, cover_image_url, share_url, height, width, view_count, like_count, comment_count, share_count, synced_at FROM dbo.[tiktok_videos] WHERE user_id=@p1 ORDER BY view_count DESC, video_id ASC`, userID)
	if err != nil {
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

func (r *VideoRepositoryMSSQL) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dbo.[tiktok_videos] WHERE user_id=@p1`, userID).Scan(&n)
	return n, err
}

// ProfileRepositoryMSSQL is the SQL Server variant of the profile snapshot store.
type ProfileRepositoryMSSQL struct{ db *sql.DB }

func NewProfileRepositoryMSSQL(db *sql.DB) *ProfileRepositoryMSSQL {
	return &ProfileRepositoryMSSQL{db: db}
}

func (r *ProfileRepositoryMSSQL) Upsert(ctx context.Context, profile *model.TikTokProfile) error {
	if profile.SyncedAt.IsZero() {
		profile.SyncedAt = time.Now().UTC()
	}
	q := `MERGE dbo.[tiktok_profiles] AS target
USING (VALUES (@p1)) AS src(user_id)
ON target.user_id = src.user_id
WHEN MATCHED THEN UPDATE SET
    open_id=@p2,
    union_id=@p3,
    display_name=@p4,
    avatar_url=@p5,
    bio_description=@p6,
    is_verified=@p7,
    follower_count=@p8,
    following_count=@p9,
    likes_count=@p10,
    video_count=@p11,
    synced_at=@p12
WHEN NOT MATCHED THEN
    INSERT (user_id, open_id, union_id, display_name, avatar_url, bio_description, is_verified, follower_count, following_count, likes_count, video_count, synced_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12);`
	_, err := r.db.ExecContext(ctx, q, profile.UserID, profile.OpenID, profile.UnionID, profile.DisplayName, profile.AvatarURL, profile.BioDescription, profile.IsVerified, profile.FollowerCount, profile.FollowingCount, profile.LikesCount, profile.VideoCount, profile.SyncedAt)
	return err
}

func (r *ProfileRepositoryMSSQL) Get(ctx context.Context, userID string) (*model.TikTokProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, open_id, union_id, display_name, avatar_url, bio_description, is_verified, follower_count, following_count, likes_count, video_count, synced_at FROM dbo.[tiktok_profiles] WHERE user_id=@p1`, userID)
	p := &model.TikTokProfile{}
	if err := row.Scan(&p.UserID, &p.OpenID, &p.UnionID, &p.DisplayName, &p.AvatarURL, &p.BioDescription, &p.IsVerified, &p.FollowerCount, &p.FollowingCount, &p.LikesCount, &p.VideoCount, &p.SyncedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}
