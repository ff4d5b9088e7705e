package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
	"github.com/halilenesdaghan/tiktok-api-integration/usecase"
)

// ITikTokAuthHandler handles the TikTok OAuth handshake endpoints.
type ITikTokAuthHandler interface {
	Authorize(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

type TikTokAuthHandler struct {
	authUsecase usecase.IAuthUsecase
}

func NewTikTokAuthHandler(authUsecase usecase.IAuthUsecase) ITikTokAuthHandler {
	return &TikTokAuthHandler{authUsecase: authUsecase}
}

// Authorize handles GET /auth/tiktok. The authenticated platform user gets a
// fresh authorization URL with PKCE and anti-forgery state.
func (h *TikTokAuthHandler) Authorize(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	req, err := h.authUsecase.BuildAuthorizationURL(ctx.Request.Context(), userID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("build authorization URL failed")
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, req)
}

// Callback handles GET and POST /auth/tiktok/callback. TikTok's endpoint
// verification presents a challenge parameter that must be echoed verbatim.
func (h *TikTokAuthHandler) Callback(ctx *gin.Context) {
	if challenge := ctx.Query("challenge"); challenge != "" {
		ctx.String(http.StatusOK, challenge)
		return
	}

	if errParam := ctx.Query("error"); errParam != "" {
		logger.GetLogger().WithFields(map[string]interface{}{
			"provider_error": errParam,
			"description":    ctx.Query("error_description"),
		}).Warn("authorization denied at provider")
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   errParam,
			"message": "Authorization was not granted. Visit /auth/tiktok to start over.",
		})
		return
	}

	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   apperrors.Kind(apperrors.ErrInvalidOrExpiredState),
			"message": "state and code parameters are required",
		})
		return
	}

	userID, err := h.authUsecase.CompleteHandshake(ctx.Request.Context(), state, code)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected": true,
		"message":   "TikTok account connected",
		"user_id":   userID,
	})
}
