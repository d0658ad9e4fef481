package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-recruitment-intake/config"
	_ "go-recruitment-intake/docs" // Important for Swagger
	v1 "go-recruitment-intake/internal/delivery/http/v1"
	"go-recruitment-intake/internal/realtime"
	"go-recruitment-intake/internal/repository/api"
	"go-recruitment-intake/internal/repository/memory"
	"go-recruitment-intake/internal/usecase"
	"go-recruitment-intake/pkg/auth"
	"go-recruitment-intake/pkg/httpclient"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/redis"
	"go-recruitment-intake/pkg/security"
	"go-recruitment-intake/pkg/security/antivirus"

	goredis "github.com/redis/go-redis/v9"
)

// @title           Recruitment Intake API
// @version         1.0
// @description     Chat-driven CV intake and admin notification feed.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Logger
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting recruitment intake", "port", cfg.Port)

	secLogger := security.DefaultLogger()
	defer func() { _ = secLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Redis (optional)
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			logger.Log.Warn("Redis unavailable - upload limits disabled", "error", err)
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	// 4. Setup Recruitment API client
	breaker := httpclient.NewCircuitBreaker("recruitment-api", httpclient.BreakerSettings{
		MinimumRequests:          cfg.CBMinimumRequests,
		FailureRateThreshold:     cfg.CBFailureRateThreshold,
		PermittedCallsInHalfOpen: cfg.CBPermittedCallsInHalfOpen,
		OpenStateTimeout:         cfg.CBOpenStateTimeout,
		Interval:                 cfg.CBSlidingWindow,
	}, logger.Log)
	reader := httpclient.New(httpclient.Options{
		Timeout:    cfg.HTTPClientTimeout,
		RetryCount: cfg.HTTPRetryCount,
		RetryWait:  cfg.HTTPRetryWait,
	}, breaker, logger.Log)
	// Resume uploads are never retried automatically
	uploader := httpclient.New(httpclient.Options{Timeout: cfg.HTTPClientTimeout}, breaker, logger.Log)
	resumeRepo := api.NewResumeRepository(cfg.RecruitmentAPIURL, cfg.RecruitmentAPIToken, reader, uploader)

	// 5. Setup Stores
	store := memory.NewNotificationStore()
	sessions := memory.NewSessionRepository(cfg.ChatSessionTTL)

	// 6. Setup Realtime Channel
	channel := realtime.NewChannel(realtime.Config{
		URL:        cfg.RealtimeURL,
		Token:      cfg.RealtimeToken,
		MaxBackoff: cfg.RealtimeReconnectMax,
	}, store, logger.Log)
	channel.Connect(ctx)
	defer channel.Close()

	// 7. Setup UseCases
	scanner := antivirus.New(cfg.ClamAVAddress, 30*time.Second)
	chatUC := usecase.NewConversationUsecase(usecase.ConversationDeps{
		Sessions:       sessions,
		Resumes:        resumeRepo,
		Store:          store,
		Limiter:        security.NewUploadLimiter(redisClient, cfg.UploadLimitPerMinute, cfg.UploadLimitPerDay),
		Scanner:        scanner,
		SecurityLogger: secLogger,
		Logger:         logger.Log,
	}, usecase.ConversationConfig{
		TypingDelay:        cfg.ChatTypingDelay,
		CloseDelay:         cfg.ChatCloseDelay,
		JobTitleCreatePath: cfg.JobTitleCreatePath,
	})

	feed := usecase.NewAdminFeedUsecase(store, resumeRepo, cfg.ResumePageLimit, logger.Log)
	feed.Start(ctx)
	defer feed.Stop()

	checks := map[string]usecase.DependencyCheck{"redis": nil, "antivirus": nil}
	if redisClient != nil {
		checks["redis"] = redis.HealthCheck(redisClient)
	}
	if cfg.ClamAVAddress != "" {
		checks["antivirus"] = func(ctx context.Context) error {
			if !scanner.Available(ctx) {
				return errors.New("clamd did not answer")
			}
			return nil
		}
	}
	healthUC := usecase.NewHealthUsecase(channel, checks)

	// 8. Setup Auth Provider (JWKS, optional)
	var jwksProvider *auth.Provider
	if cfg.AdminJWKSURL != "" {
		jwksProvider = auth.NewProvider(cfg.AdminJWKSURL, nil)
	}

	// 9. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		ConversationUC: chatUC,
		AdminFeedUC:    feed,
		HealthUC:       healthUC,
		SecurityLogger: secLogger,
		Redis:          redisClient,
		Config:         cfg,
		JWKSProvider:   jwksProvider,
	})

	// 10. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// SSE streams end when the feed closes their channels
	feed.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
