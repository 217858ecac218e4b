package di

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"vrc-auth-service/app/config"
	"vrc-auth-service/app/driver/postgres"
	"vrc-auth-service/app/driver/vrchat"
	"vrc-auth-service/app/gateway"
	"vrc-auth-service/app/port"
	"vrc-auth-service/app/rest"
	"vrc-auth-service/app/usecase"
	"vrc-auth-service/app/utils/token"
)

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Drivers
	DB             *postgres.DB
	ProviderClient *vrchat.Client

	// Gateways
	AuthGateway port.AuthGateway

	// Stores and issuers
	CredentialStore port.CredentialStore
	TokenIssuer     port.TokenIssuer

	// Usecases. LoginUsecase stays concrete so cmd/server can drive the
	// attempt-registry janitor.
	LoginUsecase   *usecase.LoginUseCase
	SessionUsecase port.SessionUsecase
}

// NewContainer creates and initializes a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: logger,
	}

	var err error

	container.DB, err = postgres.NewConnection(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	container.ProviderClient, err = vrchat.NewClient(vrchat.Config{
		BaseURL:          cfg.ProviderBaseURL,
		UserAgent:        cfg.ProviderUserAgent,
		Timeout:          cfg.ProviderTimeout,
		TransportRetries: cfg.TransportRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider client: %w", err)
	}

	container.CredentialStore = postgres.NewCredentialRepository(container.DB.Pool(), logger)

	container.TokenIssuer, err = token.NewJWTIssuer(token.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   "vrc-auth-service",
		Audience: "vrc-auth-service",
		TTL:      cfg.JWTTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	container.AuthGateway = gateway.NewProviderGateway(container.ProviderClient, logger)

	container.LoginUsecase = usecase.NewLoginUseCase(container.AuthGateway, container.CredentialStore, cfg.ChallengeWindow, logger)
	container.SessionUsecase = usecase.NewSessionUseCase(container.CredentialStore, container.ProviderClient, logger)

	logger.Info("container initialized")

	return container, nil
}

// CreateRouter creates and returns a fully configured Echo router
func (c *Container) CreateRouter() *echo.Echo {
	return rest.NewRouter(rest.RouterConfig{
		Logger:          c.Logger,
		LoginUsecase:    c.LoginUsecase,
		SessionUsecase:  c.SessionUsecase,
		CredentialStore: c.CredentialStore,
		TokenIssuer:     c.TokenIssuer,
		DBHealth:        c.DB,
		RateLimitRPS:    c.Config.RateLimitRPS,
		RateLimitBurst:  c.Config.RateLimitBurst,
	})
}

// Close closes all resources
func (c *Container) Close() error {
	if c.DB != nil {
		c.DB.Close()
	}
	c.Logger.Info("container closed")
	return nil
}
