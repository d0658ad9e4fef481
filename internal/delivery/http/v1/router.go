package v1

import (
	"net/http"
	"time"

	"go-recruitment-intake/config"
	"go-recruitment-intake/internal/delivery/http/middleware"
	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/internal/usecase"
	"go-recruitment-intake/pkg/auth"
	"go-recruitment-intake/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ConversationUC domain.ConversationUsecase
	AdminFeedUC    domain.AdminFeedUsecase
	HealthUC       usecase.HealthUsecase
	SecurityLogger *security.SecurityLogger
	Redis          *goredis.Client // optional, rate limit counters
	Config         *config.Config
	JWKSProvider   *auth.Provider // optional, RS256 admin tokens
	// StreamHeartbeat overrides the SSE ping interval
	StreamHeartbeat time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendURL)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "System operational", deps.HealthUC.Check(c.Request.Context()))
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	NewChatHandler(v1, deps.ConversationUC,
		middleware.RateLimitMiddleware(deps.Redis, middleware.ChatOpenRateLimitConfig(), deps.SecurityLogger))

	// Protected routes
	admin := v1.Group("/admin")
	admin.Use(middleware.RateLimitMiddleware(deps.Redis, middleware.AdminRateLimitConfig(), deps.SecurityLogger))
	admin.Use(middleware.AdminAuthMiddleware(auth.NewVerifier(deps.Config.AdminJWTSecret, deps.JWKSProvider), deps.SecurityLogger))
	{
		NewAdminHandler(admin, deps.AdminFeedUC, deps.SecurityLogger, deps.StreamHeartbeat)
	}

	return r
}
