package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service. Values come from an
// optional YAML file (CONFIG_FILE) overridden by environment variables, so
// containerized deployments can ship a base file and tweak per environment.
type Config struct {
	// Server
	Port     string `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`

	// Database
	DatabaseHost     string `yaml:"db_host"`
	DatabasePort     string `yaml:"db_port"`
	DatabaseName     string `yaml:"db_name"`
	DatabaseUser     string `yaml:"db_user"`
	DatabasePassword string `yaml:"-"`
	DatabaseSSLMode  string `yaml:"db_ssl_mode"`

	// Identity provider
	ProviderBaseURL   string        `yaml:"provider_base_url"`
	ProviderUserAgent string        `yaml:"provider_user_agent"`
	ProviderTimeout   time.Duration `yaml:"provider_timeout"`
	TransportRetries  uint64        `yaml:"transport_retries"`

	// Login orchestration
	ChallengeWindow time.Duration `yaml:"challenge_window"`

	// Application tokens
	JWTSecret string        `yaml:"-"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	// HTTP rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Load reads configuration from CONFIG_FILE (if set) and the environment.
// Environment variables always win.
func Load() (*Config, error) {
	config := &Config{
		Port:              "9500",
		Host:              "0.0.0.0",
		LogLevel:          "info",
		DatabaseHost:      "auth-postgres",
		DatabasePort:      "5432",
		DatabaseName:      "vrc_auth_db",
		DatabaseUser:      "vrc_auth_user",
		DatabaseSSLMode:   "require",
		ProviderBaseURL:   "https://api.vrchat.cloud/api/1",
		ProviderUserAgent: "vrc-auth-service/1.0",
		ProviderTimeout:   30 * time.Second,
		TransportRetries:  3,
		ChallengeWindow:   5 * time.Minute,
		JWTTTL:            24 * time.Hour,
		RateLimitRPS:      20,
		RateLimitBurst:    40,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Server configuration
	config.Port = getEnvOrDefault("PORT", config.Port)
	config.Host = getEnvOrDefault("HOST", config.Host)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)

	// Database configuration
	config.DatabaseHost = getEnvOrDefault("DB_HOST", config.DatabaseHost)
	config.DatabasePort = getEnvOrDefault("DB_PORT", config.DatabasePort)
	config.DatabaseName = getEnvOrDefault("DB_NAME", config.DatabaseName)
	config.DatabaseUser = getEnvOrDefault("DB_USER", config.DatabaseUser)
	config.DatabasePassword = os.Getenv("DB_PASSWORD")
	if config.DatabasePassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	config.DatabaseSSLMode = getEnvOrDefault("DB_SSL_MODE", config.DatabaseSSLMode)

	// Provider configuration
	config.ProviderBaseURL = getEnvOrDefault("PROVIDER_BASE_URL", config.ProviderBaseURL)
	config.ProviderUserAgent = getEnvOrDefault("PROVIDER_USER_AGENT", config.ProviderUserAgent)

	var err error
	if config.ProviderTimeout, err = getDurationEnv("PROVIDER_TIMEOUT", config.ProviderTimeout); err != nil {
		return nil, err
	}
	if retries := os.Getenv("TRANSPORT_RETRIES"); retries != "" {
		parsed, err := strconv.ParseUint(retries, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TRANSPORT_RETRIES: %w", err)
		}
		config.TransportRetries = parsed
	}

	// Login orchestration
	if config.ChallengeWindow, err = getDurationEnv("CHALLENGE_WINDOW", config.ChallengeWindow); err != nil {
		return nil, err
	}

	// Application tokens
	config.JWTSecret = os.Getenv("JWT_SECRET")
	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if config.JWTTTL, err = getDurationEnv("JWT_TTL", config.JWTTTL); err != nil {
		return nil, err
	}

	// Rate limiting
	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		parsed, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		config.RateLimitRPS = parsed
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		parsed, err := strconv.Atoi(burst)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		config.RateLimitBurst = parsed
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.ProviderBaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}
	if c.ProviderUserAgent == "" {
		return fmt.Errorf("provider user agent is required")
	}
	if c.ProviderTimeout < time.Second {
		return fmt.Errorf("provider timeout must be at least 1 second, got: %v", c.ProviderTimeout)
	}

	if c.ChallengeWindow < time.Minute {
		return fmt.Errorf("challenge window must be at least 1 minute, got: %v", c.ChallengeWindow)
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes, got: %d", len(c.JWTSecret))
	}
	if c.JWTTTL < time.Minute {
		return fmt.Errorf("JWT TTL must be at least 1 minute, got: %v", c.JWTTTL)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive, got: %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1, got: %d", c.RateLimitBurst)
	}

	return nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
