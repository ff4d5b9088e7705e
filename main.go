package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/repository"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/cache"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/clients/tiktok"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/configuration"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/persistence"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/pubsub"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/security"
	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/servicebus"
	httpHandler "github.com/halilenesdaghan/tiktok-api-integration/interfaces/http"
	"github.com/halilenesdaghan/tiktok-api-integration/interfaces/middleware"
	"github.com/halilenesdaghan/tiktok-api-integration/server"
	"github.com/halilenesdaghan/tiktok-api-integration/usecase"
)

var httpServer *http.Server

// credentialLister enumerates connected users for the auto-sync loop.
// Both SQL credential repositories implement it.
type credentialLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, useMSSQL, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"vendor": map[bool]string{true: "mssql", false: "postgres"}[useMSSQL],
		"ping":   db.Ping(),
	}).Info("Database connected.")

	if err := EnsureSchemas(db, useMSSQL); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema migration failed")
		os.Exit(1)
	}

	cipher, err := security.NewTokenCipherFromEnv()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Token encryption key missing or invalid; set TOKEN_ENCRYPTION_KEY")
		os.Exit(1)
	}

	// Optional collaborators. Each degrades to a no-op when unavailable so
	// the core OAuth and sync paths never depend on them.
	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
	)
	if err != nil || configuration.C.Database.Mongo.Host == "" {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - sync runs will not be audited")
		mongoDb = nil
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - sync runs will not be audited")
		mongoDb = nil
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - sync events will not be published")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus features")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - using in-memory state store and rate limiter")
		redisClient = nil
	}

	// Handshake state and API rate limiting ride Redis when present so
	// multiple instances share them, and fall back to process memory.
	var stateStore repository.IStateStore
	var apiLimiter middleware.ILimiter
	if redisClient != nil {
		stateStore = cache.NewStateStore(redisClient)
		apiLimiter = cache.NewSlidingWindowLimiter(redisClient, configuration.C.Sync.RequestsPerMinute, time.Minute)
	} else {
		stateStore = cache.NewMemoryStateStore()
		apiLimiter = cache.NewMemoryLimiter(configuration.C.Sync.RequestsPerMinute, time.Minute)
	}

	// Repository wiring: MSSQL in production, otherwise PostgreSQL.
	var userRepository repository.IUser
	var credentialRepository repository.ICredentialVault
	var videoRepository repository.IVideo
	var profileRepository repository.IProfile
	var lister credentialLister
	if useMSSQL {
		userRepository = persistence.NewUserRepositoryMSSQL(db)
		mssqlCreds := persistence.NewCredentialRepositoryMSSQL(db, cipher)
		credentialRepository = mssqlCreds
		lister = mssqlCreds
		videoRepository = persistence.NewVideoRepositoryMSSQL(db)
		profileRepository = persistence.NewProfileRepositoryMSSQL(db)
	} else {
		userRepository = persistence.NewUserRepository(db)
		psqlCreds := persistence.NewCredentialRepository(db, cipher)
		credentialRepository = psqlCreds
		lister = psqlCreds
		videoRepository = persistence.NewVideoRepository(db)
		profileRepository = persistence.NewProfileRepository(db)
	}

	auditRepository := persistence.NewSyncAuditRepository(mongoDb, configuration.C.Database.Mongo.Name)
	pubSubNotifier := pubsub.NewSyncEventPubSub(pubSubClient, configuration.C.Pubsub.Topic)
	serviceBusNotifier := servicebus.NewSyncEventServiceBus(azServiceBusClient, configuration.C.ServiceBus.Queue)

	tiktokConfig, err := configuration.GetTikTokConfig()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("TikTok configuration incomplete; OAuth handshake will fail until TIKTOK_CLIENT_KEY and TIKTOK_CLIENT_SECRET are set")
	}
	oauthClient := tiktok.NewOAuthClient(tiktokConfig)

	tokenUsecase := usecase.NewTokenUsecase(credentialRepository, oauthClient)
	providerLimiter := tiktok.NewRateLimiter(configuration.C.Sync.RatePerSecond, configuration.C.Sync.Burst)
	tiktokClient := tiktok.NewClient(tokenUsecase, providerLimiter)

	authUsecase := usecase.NewAuthUsecase(stateStore, oauthClient, oauthClient, credentialRepository)
	syncUsecase := usecase.NewSyncUsecase(
		tiktokClient,
		videoRepository,
		profileRepository,
		configuration.C.Sync.PageSize,
		auditRepository,
		pubSubNotifier,
		serviceBusNotifier,
	)
	userUsecase := usecase.NewUserUsecase(userRepository)

	userHandler := httpHandler.NewUserHandler(userUsecase)
	tiktokAuthHandler := httpHandler.NewTikTokAuthHandler(authUsecase)
	tiktokHandler := httpHandler.NewTikTokHandler(tokenUsecase, syncUsecase, tiktokClient, profileRepository)

	router := server.InitiateRouter(userHandler, tiktokAuthHandler, tiktokHandler, userRepository, apiLimiter)

	// Background auto-sync for connected accounts, off unless an interval is
	// configured.
	if configuration.C.Sync.IntervalMinutes > 0 {
		interval := time.Duration(configuration.C.Sync.IntervalMinutes) * time.Minute
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					runAutoSync(ctx, lister, syncUsecase)
				}
			}
		})
		logger.GetLogger().WithField("interval_minutes", configuration.C.Sync.IntervalMinutes).Info("Background auto-sync enabled")
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			if err := httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if mongoDb != nil {
		_ = mongoDb.Disconnect(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase picks the SQL backend: MSSQL in production (or when
// DB_VENDOR=mssql), PostgreSQL otherwise.
func InitiateDatabase() (*sql.DB, bool, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, true, err
		}
		return db, true, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, false, err
	}
	return db, false, nil
}

// EnsureSchemas runs the idempotent DDL for the active backend.
func EnsureSchemas(db *sql.DB, useMSSQL bool) error {
	if useMSSQL {
		if err := persistence.EnsureUserSchemaMSSQL(db); err != nil {
			return err
		}
		if err := persistence.EnsureCredentialSchemaMSSQL(db); err != nil {
			return err
		}
		return persistence.EnsureVideoSchemaMSSQL(db)
	}
	if err := persistence.EnsureUserSchema(db); err != nil {
		return err
	}
	if err := persistence.EnsureCredentialSchema(db); err != nil {
		return err
	}
	return persistence.EnsureVideoSchema(db)
}

func runAutoSync(ctx context.Context, lister credentialLister, syncUsecase usecase.ISyncUsecase) {
	userIDs, err := lister.ListUserIDs(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("auto-sync: listing connected users failed")
		return
	}
	for _, userID := range userIDs {
		runCtx, cancelRun := context.WithTimeout(ctx, 5*time.Minute)
		run, err := syncUsecase.RunSync(runCtx, userID, configuration.C.Sync.MaxItems)
		cancelRun()
		if err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"error":   err,
				"user_id": userID,
			}).Error("auto-sync failed")
			continue
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"user_id":   userID,
			"succeeded": run.ItemsSucceeded,
			"failed":    run.ItemsFailed,
		}).Info("auto-sync completed")
	}
}
