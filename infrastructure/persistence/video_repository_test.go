package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

func videoColumns() []string {
	return []string{"user_id", "video_id", "description", "duration", "create_time", "cover_image_url", "share_url", "height", "width", "view_count", "like_count", "comment_count", "share_count", "synced_at"}
}

func TestVideoRepositoryUpsertVideos(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	videos := []model.TikTokVideo{
		{UserID: "user-1", VideoID: "v1", Description: "first", ViewCount: 100},
		{UserID: "user-1", VideoID: "v2", Description: "second", ViewCount: 50},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO tiktok_videos`)
	mock.ExpectExec(`INSERT INTO tiktok_videos`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tiktok_videos`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewVideoRepository(db)
	require.NoError(t, repo.UpsertVideos(context.Background(), videos))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryUpsertVideosEmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewVideoRepository(db)
	require.NoError(t, repo.UpsertVideos(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryUpsertVideosRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	videos := []model.TikTokVideo{{UserID: "user-1", VideoID: "v1"}}

	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO tiktok_videos`)
	mock.ExpectExec(`INSERT INTO tiktok_videos`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	repo := NewVideoRepository(db)
	require.Error(t, repo.UpsertVideos(context.Background(), videos))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryListByUserOrdering(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM tiktok_videos WHERE user_id=\$1 ORDER BY view_count DESC, video_id ASC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(videoColumns()).
			AddRow("user-1", "v2", "top", int64(10), now, "", "", 0, 0, int64(500), int64(20), int64(3), int64(1), now).
			AddRow("user-1", "v1", "second", int64(8), now, "", "", 0, 0, int64(100), int64(9), int64(2), int64(0), now))

	repo := NewVideoRepository(db)
	videos, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, "v2", videos[0].VideoID)
	require.Equal(t, int64(24), videos[0].Engagement())
}

func TestVideoRepositoryCountByUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tiktok_videos WHERE user_id=\$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	repo := NewVideoRepository(db)
	n, err := repo.CountByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
}

func TestProfileRepositoryGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM tiktok_profiles WHERE user_id=\$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	repo := NewProfileRepository(db)
	p, err := repo.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestProfileRepositoryUpsert(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO tiktok_profiles`).
		WithArgs("user-1", "open-1", "union-1", "Creator", "https://example.com/a.jpg", "bio", true,
			int64(1000), int64(50), int64(20000), int64(42), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewProfileRepository(db)
	err = repo.Upsert(context.Background(), &model.TikTokProfile{
		UserID:         "user-1",
		OpenID:         "open-1",
		UnionID:        "union-1",
		DisplayName:    "Creator",
		AvatarURL:      "https://example.com/a.jpg",
		BioDescription: "bio",
		IsVerified:     true,
		FollowerCount:  1000,
		FollowingCount: 50,
		LikesCount:     20000,
		VideoCount:     42,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
