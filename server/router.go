package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	httpHandler "github.com/halilenesdaghan/tiktok-api-integration/interfaces/http"
	"github.com/halilenesdaghan/tiktok-api-integration/interfaces/middleware"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	tiktokAuthHandler httpHandler.ITikTokAuthHandler,
	tiktokHandler httpHandler.ITikTokHandler,
	userRepository repository.IUser,
	limiter middleware.ILimiter,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.POST("/register", userHandler.Register)

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth handshake. The authorize route needs the caller's identity; the
	// callback is hit by the provider and must stay public. It also answers
	// TikTok's endpoint verification, so both GET and POST are registered.
	router.GET("/auth/tiktok", middleware.Auth(userRepository), tiktokAuthHandler.Authorize)
	router.GET("/auth/tiktok/callback", tiktokAuthHandler.Callback)
	router.POST("/auth/tiktok/callback", tiktokAuthHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}

	tiktok := api.Group("/tiktok")
	{
		tiktok.GET("/status", tiktokHandler.Status)
		tiktok.DELETE("/disconnect", tiktokHandler.Disconnect)
		tiktok.GET("/profile", tiktokHandler.Profile)
		tiktok.GET("/videos", tiktokHandler.Videos)
		tiktok.GET("/videos/:video_id", tiktokHandler.Video)
		tiktok.POST("/sync", tiktokHandler.Sync)
		tiktok.GET("/analytics", tiktokHandler.Analytics)
		tiktok.GET("/analytics/recent", tiktokHandler.AnalyticsRecent)
		tiktok.GET("/analytics/trends", tiktokHandler.AnalyticsTrends)
	}

	return router
}
