package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vrc-auth-service/app/port"
	"vrc-auth-service/app/rest/handlers"
	custommw "vrc-auth-service/app/rest/middleware"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger          *slog.Logger
	LoginUsecase    port.LoginUsecase
	SessionUsecase  port.SessionUsecase
	CredentialStore port.CredentialStore
	TokenIssuer     port.TokenIssuer
	DBHealth        handlers.HealthChecker
	RateLimitRPS    float64
	RateLimitBurst  int
}

// NewRouter creates and configures the Echo router
func NewRouter(config RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	authHandler := handlers.NewAuthHandler(config.LoginUsecase, config.CredentialStore, config.TokenIssuer, config.Logger)
	sessionHandler := handlers.NewSessionHandler(config.SessionUsecase, config.Logger)
	healthHandler := handlers.NewHealthHandler(config.DBHealth, config.Logger)

	rateLimiter := custommw.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}, error=${error}\n",
	}))
	e.Use(custommw.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())

	// API versioning
	v1 := e.Group("/v1")

	v1.GET("/health", healthHandler.HealthCheck)
	v1.GET("/live", healthHandler.LivenessCheck)

	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/login/factor", authHandler.SubmitFactor)
	auth.POST("/revoke", authHandler.Revoke)
	auth.GET("/credential/:ownerId", authHandler.GetCredential)
	auth.GET("/user/:ownerId", sessionHandler.GetProviderUser)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
