package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
	"github.com/halilenesdaghan/tiktok-api-integration/usecase"
)

type stubTokenUsecase struct {
	cred          *model.TikTokCredential
	statusErr     error
	disconnectErr error
	disconnected  []string
}

func (s *stubTokenUsecase) AccessToken(_ context.Context, _ string) (string, error) {
	return "token", nil
}

func (s *stubTokenUsecase) ForceRefresh(_ context.Context, _ string) (string, error) {
	return "token", nil
}

func (s *stubTokenUsecase) Status(_ context.Context, _ string) (*model.TikTokCredential, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.cred, nil
}

func (s *stubTokenUsecase) Disconnect(_ context.Context, userID string) error {
	if s.disconnectErr != nil {
		return s.disconnectErr
	}
	s.disconnected = append(s.disconnected, userID)
	return nil
}

type stubSyncUsecase struct {
	run        *model.SyncRun
	runErr     error
	gotMax     int
	summary    *dto.AnalyticsSummary
	recent     *dto.RecentPerformance
	recentDays int
	trends     *dto.GrowthTrends
	video      *dto.VideoAnalytics
	gotVideoID string
}

func (s *stubSyncUsecase) RunSync(_ context.Context, _ string, maxItems int) (*model.SyncRun, error) {
	s.gotMax = maxItems
	return s.run, s.runErr
}

func (s *stubSyncUsecase) Summarize(_ context.Context, _ string) (*dto.AnalyticsSummary, error) {
	return s.summary, nil
}

func (s *stubSyncUsecase) RecentPerformance(_ context.Context, _ string, days int) (*dto.RecentPerformance, error) {
	s.recentDays = days
	return s.recent, nil
}

func (s *stubSyncUsecase) GrowthTrends(_ context.Context, _ string) (*dto.GrowthTrends, error) {
	return s.trends, nil
}

func (s *stubSyncUsecase) VideoAnalytics(_ context.Context, _ string, videoID string) (*dto.VideoAnalytics, error) {
	s.gotVideoID = videoID
	return s.video, nil
}

type stubRemote struct {
	profile    *model.TikTokProfile
	profileErr error
	page       *dto.VideoPage
	gotUser    string
	gotCursor  int64
	gotMax     int
}

func (s *stubRemote) GetUserInfo(_ context.Context, _ string) (*model.TikTokProfile, error) {
	return s.profile, s.profileErr
}

func (s *stubRemote) ListVideos(_ context.Context, userID string, cursor int64, maxCount int) (*dto.VideoPage, error) {
	s.gotUser = userID
	s.gotCursor = cursor
	s.gotMax = maxCount
	if s.page != nil {
		return s.page, nil
	}
	return &dto.VideoPage{}, nil
}

func (s *stubRemote) QueryVideos(_ context.Context, _ string, _ []string) ([]model.TikTokVideo, error) {
	return nil, nil
}

type stubProfileStore struct {
	snapshot *model.TikTokProfile
}

func (s *stubProfileStore) Upsert(_ context.Context, _ *model.TikTokProfile) error { return nil }

func (s *stubProfileStore) Get(_ context.Context, _ string) (*model.TikTokProfile, error) {
	return s.snapshot, nil
}

type stubAuthUsecase struct {
	request      *dto.AuthorizationRequest
	handshakeErr error
	gotState     string
	gotCode      string
}

func (s *stubAuthUsecase) BuildAuthorizationURL(_ context.Context, _ string) (*dto.AuthorizationRequest, error) {
	return s.request, nil
}

func (s *stubAuthUsecase) CompleteHandshake(_ context.Context, state, code string) (string, error) {
	s.gotState = state
	s.gotCode = code
	if s.handshakeErr != nil {
		return "", s.handshakeErr
	}
	return "user-1", nil
}

func performRequest(handler gin.HandlerFunc, method, target string, userID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(method, target, nil)
	if userID != "" {
		ctx.Set("user_id", userID)
	}
	handler(ctx)
	return rec
}

func performParamRequest(handler gin.HandlerFunc, method, target string, params gin.Params, userID string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(method, target, nil)
	ctx.Params = params
	if userID != "" {
		ctx.Set("user_id", userID)
	}
	handler(ctx)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newTestHandler(tokens usecase.ITokenUsecase, sync usecase.ISyncUsecase, remote *stubRemote, store *stubProfileStore) ITikTokHandler {
	if remote == nil {
		remote = &stubRemote{}
	}
	if store == nil {
		store = &stubProfileStore{}
	}
	return NewTikTokHandler(tokens, sync, remote, store)
}

func TestStatusConnected(t *testing.T) {
	tokens := &stubTokenUsecase{cred: &model.TikTokCredential{
		UserID:    "user-1",
		OpenID:    "open-abc",
		Scope:     "user.info.basic,video.list",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	h := newTestHandler(tokens, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.Status, http.MethodGet, "/api/tiktok/status", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["connected"])
	require.Equal(t, "open-abc", body["open_id"])
}

func TestStatusNotConnected(t *testing.T) {
	tokens := &stubTokenUsecase{statusErr: apperrors.ErrCredentialNotFound}
	h := newTestHandler(tokens, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.Status, http.MethodGet, "/api/tiktok/status", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["connected"])
}

func TestDisconnect(t *testing.T) {
	tokens := &stubTokenUsecase{}
	h := newTestHandler(tokens, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.Disconnect, http.MethodDelete, "/api/tiktok/disconnect", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"user-1"}, tokens.disconnected)
}

func TestProfileLive(t *testing.T) {
	remote := &stubRemote{profile: &model.TikTokProfile{UserID: "user-1", DisplayName: "Creator"}}
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, remote, nil)

	rec := performRequest(h.Profile, http.MethodGet, "/api/tiktok/profile", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["stale"])
}

func TestProfileFallsBackToSnapshot(t *testing.T) {
	remote := &stubRemote{profileErr: errors.New("upstream timeout")}
	store := &stubProfileStore{snapshot: &model.TikTokProfile{UserID: "user-1", DisplayName: "Creator"}}
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, remote, store)

	rec := performRequest(h.Profile, http.MethodGet, "/api/tiktok/profile", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["stale"])
}

func TestProfileRevokedDoesNotServeSnapshot(t *testing.T) {
	remote := &stubRemote{profileErr: apperrors.ErrCredentialRevoked}
	store := &stubProfileStore{snapshot: &model.TikTokProfile{UserID: "user-1"}}
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, remote, store)

	rec := performRequest(h.Profile, http.MethodGet, "/api/tiktok/profile", "user-1")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVideosPassesCursorAndMaxCount(t *testing.T) {
	remote := &stubRemote{page: &dto.VideoPage{
		Videos:  []model.TikTokVideo{{UserID: "user-1", VideoID: "a"}},
		Cursor:  40,
		HasMore: true,
	}}
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, remote, nil)

	rec := performRequest(h.Videos, http.MethodGet, "/api/tiktok/videos?cursor=20&max_count=10", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(20), remote.gotCursor)
	require.Equal(t, 10, remote.gotMax)
	body := decodeBody(t, rec)
	require.Equal(t, float64(40), body["cursor"])
	require.Equal(t, true, body["has_more"])
}

func TestVideosRejectsBadCursor(t *testing.T) {
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.Videos, http.MethodGet, "/api/tiktok/videos?cursor=sideways", "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideosRejectQueryIdentity(t *testing.T) {
	remote := &stubRemote{}
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, remote, nil)

	// no authenticated identity; a user_id query parameter must not stand in
	rec := performRequest(h.Videos, http.MethodGet, "/api/tiktok/videos?user_id=somebody-else", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, remote.gotUser, "no provider call without an authenticated user")
}

func TestVideoByID(t *testing.T) {
	sync := &stubSyncUsecase{video: &dto.VideoAnalytics{
		TikTokVideo:    model.TikTokVideo{UserID: "user-1", VideoID: "v42", ViewCount: 100},
		EngagementRate: 12.5,
	}}
	h := newTestHandler(&stubTokenUsecase{}, sync, nil, nil)

	rec := performParamRequest(h.Video, http.MethodGet, "/api/tiktok/videos/v42",
		gin.Params{{Key: "video_id", Value: "v42"}}, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "v42", sync.gotVideoID)
	body := decodeBody(t, rec)
	require.Equal(t, float64(12.5), body["engagement_rate"])
}

func TestVideoByIDNotFound(t *testing.T) {
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, nil, nil)

	rec := performParamRequest(h.Video, http.MethodGet, "/api/tiktok/videos/ghost",
		gin.Params{{Key: "video_id", Value: "ghost"}}, "user-1")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var res struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "video_not_found", res.ErrorCode)
}

func TestAnalyticsTrends(t *testing.T) {
	sync := &stubSyncUsecase{trends: &dto.GrowthTrends{WeeklyViewTrend: 42.5, PostingFrequency: 2}}
	h := newTestHandler(&stubTokenUsecase{}, sync, nil, nil)

	rec := performRequest(h.AnalyticsTrends, http.MethodGet, "/api/tiktok/analytics/trends", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, float64(42.5), body["weekly_view_trend"])
}

func TestSyncPassesMaxItems(t *testing.T) {
	sync := &stubSyncUsecase{run: &model.SyncRun{UserID: "user-1", ItemsSucceeded: 12}}
	h := newTestHandler(&stubTokenUsecase{}, sync, nil, nil)

	rec := performRequest(h.Sync, http.MethodPost, "/api/tiktok/sync?max_items=50", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 50, sync.gotMax)
}

func TestSyncRejectsBadMaxItems(t *testing.T) {
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.Sync, http.MethodPost, "/api/tiktok/sync?max_items=lots", "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRateLimitedMapsTo429(t *testing.T) {
	sync := &stubSyncUsecase{runErr: apperrors.ErrRateLimited}
	h := newTestHandler(&stubTokenUsecase{}, sync, nil, nil)

	rec := performRequest(h.Sync, http.MethodPost, "/api/tiktok/sync", "user-1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAnalyticsRecentDefaultsDays(t *testing.T) {
	sync := &stubSyncUsecase{recent: &dto.RecentPerformance{PeriodDays: 30}}
	h := newTestHandler(&stubTokenUsecase{}, sync, nil, nil)

	rec := performRequest(h.AnalyticsRecent, http.MethodGet, "/api/tiktok/analytics/recent", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 30, sync.recentDays)
}

func TestAnalyticsRecentRejectsBadDays(t *testing.T) {
	h := newTestHandler(&stubTokenUsecase{}, &stubSyncUsecase{}, nil, nil)

	rec := performRequest(h.AnalyticsRecent, http.MethodGet, "/api/tiktok/analytics/recent?days=0", "user-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeReturnsURL(t *testing.T) {
	auth := &stubAuthUsecase{request: &dto.AuthorizationRequest{
		AuthorizationURL: "https://www.tiktok.com/v2/auth/authorize/?client_key=k",
		State:            "state-1",
	}}
	h := NewTikTokAuthHandler(auth)

	rec := performRequest(h.Authorize, http.MethodGet, "/auth/tiktok", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body["authorization_url"], "tiktok.com")
}

func TestAuthorizeRequiresIdentity(t *testing.T) {
	h := NewTikTokAuthHandler(&stubAuthUsecase{})

	rec := performRequest(h.Authorize, http.MethodGet, "/auth/tiktok", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackEchoesChallenge(t *testing.T) {
	h := NewTikTokAuthHandler(&stubAuthUsecase{})

	rec := performRequest(h.Callback, http.MethodGet, "/auth/tiktok/callback?challenge=abc123", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc123", rec.Body.String())
}

func TestCallbackCompletesHandshake(t *testing.T) {
	auth := &stubAuthUsecase{}
	h := NewTikTokAuthHandler(auth)

	rec := performRequest(h.Callback, http.MethodGet, "/auth/tiktok/callback?state=s1&code=c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "s1", auth.gotState)
	require.Equal(t, "c1", auth.gotCode)
	body := decodeBody(t, rec)
	require.Equal(t, "user-1", body["user_id"])
}

func TestCallbackProviderError(t *testing.T) {
	h := NewTikTokAuthHandler(&stubAuthUsecase{})

	rec := performRequest(h.Callback, http.MethodGet, "/auth/tiktok/callback?error=access_denied", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackMissingParams(t *testing.T) {
	h := NewTikTokAuthHandler(&stubAuthUsecase{})

	rec := performRequest(h.Callback, http.MethodGet, "/auth/tiktok/callback?code=c1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackExpiredState(t *testing.T) {
	auth := &stubAuthUsecase{handshakeErr: apperrors.ErrInvalidOrExpiredState}
	h := NewTikTokAuthHandler(auth)

	rec := performRequest(h.Callback, http.MethodGet, "/auth/tiktok/callback?state=s1&code=c1", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var res struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "invalid_or_expired_state", res.ErrorCode)
}
