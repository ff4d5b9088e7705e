package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/dto"
	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
	"github.com/halilenesdaghan/tiktok-api-integration/usecase"
)

// ITikTokHandler exposes the connected-account data and sync endpoints.
type ITikTokHandler interface {
	Status(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	Profile(ctx *gin.Context)
	Videos(ctx *gin.Context)
	Video(ctx *gin.Context)
	Sync(ctx *gin.Context)
	Analytics(ctx *gin.Context)
	AnalyticsRecent(ctx *gin.Context)
	AnalyticsTrends(ctx *gin.Context)
}

type TikTokHandler struct {
	tokenUsecase usecase.ITokenUsecase
	syncUsecase  usecase.ISyncUsecase
	client       repository.ITikTok
	profiles     repository.IProfile
}

func NewTikTokHandler(tokenUsecase usecase.ITokenUsecase, syncUsecase usecase.ISyncUsecase, client repository.ITikTok, profiles repository.IProfile) ITikTokHandler {
	return &TikTokHandler{
		tokenUsecase: tokenUsecase,
		syncUsecase:  syncUsecase,
		client:       client,
		profiles:     profiles,
	}
}

// Status handles GET /api/tiktok/status.
func (h *TikTokHandler) Status(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	cred, err := h.tokenUsecase.Status(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrCredentialNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"connected": false})
			return
		}
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected":  true,
		"open_id":    cred.OpenID,
		"scope":      cred.Scope,
		"expires_at": cred.ExpiresAt,
	})
}

// Disconnect handles DELETE /api/tiktok/disconnect.
func (h *TikTokHandler) Disconnect(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	if err := h.tokenUsecase.Disconnect(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "TikTok account disconnected"})
}

// Profile handles GET /api/tiktok/profile. Live fetch by default; falls back
// to the last synced snapshot when the provider is unavailable.
func (h *TikTokHandler) Profile(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	profile, err := h.client.GetUserInfo(ctx.Request.Context(), userID)
	if err != nil {
		if isConnectionError(err) {
			respondError(ctx, err)
			return
		}
		snapshot, snapErr := h.profiles.Get(ctx.Request.Context(), userID)
		if snapErr != nil || snapshot == nil {
			respondError(ctx, err)
			return
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   err,
			"user_id": userID,
		}).Warn("live profile fetch failed, serving snapshot")
		ctx.JSON(http.StatusOK, gin.H{"profile": snapshot, "stale": true})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile, "stale": false})
}

// Videos handles GET /api/tiktok/videos?cursor=&max_count=, a live paginated
// call against the provider.
func (h *TikTokHandler) Videos(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	var cursor int64
	if v := ctx.Query("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "cursor must be a non-negative integer"})
			return
		}
		cursor = n
	}
	maxCount := 0
	if v := ctx.Query("max_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "max_count must be a positive integer"})
			return
		}
		maxCount = n
	}

	page, err := h.client.ListVideos(ctx.Request.Context(), userID, cursor, maxCount)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, page)
}

// Video handles GET /api/tiktok/videos/:video_id. Stored metrics when the
// video was synced, a live provider query otherwise.
func (h *TikTokHandler) Video(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	videoID := ctx.Param("video_id")
	if videoID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "video id is required"})
		return
	}

	analytics, err := h.syncUsecase.VideoAnalytics(ctx.Request.Context(), userID, videoID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if analytics == nil {
		ctx.JSON(http.StatusNotFound, dto.ResError{
			ErrorCode: "video_not_found",
			Message:   "No such video for this account.",
		})
		return
	}
	ctx.JSON(http.StatusOK, analytics)
}

// Sync handles POST /api/tiktok/sync and runs a synchronous sync.
func (h *TikTokHandler) Sync(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	maxItems := 0
	if v := ctx.Query("max_items"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "max_items must be a non-negative integer"})
			return
		}
		maxItems = n
	}

	run, err := h.syncUsecase.RunSync(ctx.Request.Context(), userID, maxItems)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, run)
}

// Analytics handles GET /api/tiktok/analytics.
func (h *TikTokHandler) Analytics(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	summary, err := h.syncUsecase.Summarize(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// AnalyticsRecent handles GET /api/tiktok/analytics/recent?days=N.
func (h *TikTokHandler) AnalyticsRecent(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	days := 30
	if v := ctx.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	perf, err := h.syncUsecase.RecentPerformance(ctx.Request.Context(), userID, days)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, perf)
}

// AnalyticsTrends handles GET /api/tiktok/analytics/trends.
func (h *TikTokHandler) AnalyticsTrends(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	trends, err := h.syncUsecase.GrowthTrends(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, trends)
}

// requestUserID resolves the authenticated platform user for this request.
// Only the auth middleware sets user_id; nothing caller-controlled is
// accepted in its place.
func requestUserID(ctx *gin.Context) string {
	if v, ok := ctx.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// requireUserID rejects the request when no authenticated identity is set.
func requireUserID(ctx *gin.Context) (string, bool) {
	userID := requestUserID(ctx)
	if userID == "" {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ResError{
			ErrorCode: "unauthorized",
			Message:   "Authentication required.",
		})
		return "", false
	}
	return userID, true
}

// respondError maps taxonomy errors onto HTTP responses without leaking
// internals or token material.
func respondError(ctx *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	kind := apperrors.Kind(err)
	if status == http.StatusInternalServerError {
		logger.GetLogger().WithField("error", err).Error("request failed")
	}
	ctx.JSON(status, dto.ResError{
		ErrorCode: kind,
		Message:   publicMessage(kind),
	})
}

func publicMessage(kind string) string {
	switch kind {
	case "invalid_or_expired_state":
		return "Authorization session expired or invalid. Start over at /auth/tiktok."
	case "upstream_auth_error":
		return "TikTok rejected the authorization. Please re-connect your account."
	case "credential_revoked", "unauthorized":
		return "TikTok access was revoked. Please re-connect your account."
	case "refresh_unavailable":
		return "TikTok is temporarily unavailable. Please try again later."
	case "rate_limited":
		return "Too many requests to TikTok right now. Please try again later."
	case "not_connected":
		return "No TikTok account connected. Start at /auth/tiktok."
	case "corrupted_credential":
		return "Stored credential could not be read. Please re-connect your account."
	default:
		return "Something went wrong."
	}
}

func isConnectionError(err error) bool {
	return errors.Is(err, apperrors.ErrCredentialNotFound) ||
		errors.Is(err, apperrors.ErrCredentialRevoked) ||
		errors.Is(err, apperrors.ErrUnauthorized) ||
		errors.Is(err, apperrors.ErrCorruptedCredential)
}
