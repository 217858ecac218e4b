package main

import (
	"embed"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vrc-auth-service/app/config"
	"vrc-auth-service/app/utils/database"
	"vrc-auth-service/app/utils/logger"
	"vrc-auth-service/app/utils/migration"
)

//go:embed migrations
var migrationsFS embed.FS

func main() {
	var (
		command = flag.String("command", "up", "Migration command (up, down, status)")
		steps   = flag.String("steps", "0", "Number of steps for down migration")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := cfg.LogLevel
	if *verbose {
		logLevel = "debug"
	}

	appLogger, err := logger.New(logLevel)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	dbConfig := &database.Config{
		Host:            cfg.DatabaseHost,
		Port:            parsePort(cfg.DatabasePort),
		User:            cfg.DatabaseUser,
		Password:        cfg.DatabasePassword,
		Database:        cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnTimeout:     30 * time.Second,
	}

	dbConn, err := database.NewConnection(dbConfig, appLogger)
	if err != nil {
		appLogger.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	migrator := migration.NewMigrator(dbConn.DB(), appLogger, migrationsFS)

	switch *command {
	case "up":
		if err := migrator.Up(); err != nil {
			appLogger.Error("migration up failed", "error", err)
			os.Exit(1)
		}
		appLogger.Info("all migrations applied successfully")

	case "down":
		stepCount, err := strconv.Atoi(*steps)
		if err != nil {
			appLogger.Error("invalid steps value", "steps", *steps, "error", err)
			os.Exit(1)
		}
		if stepCount <= 0 {
			stepCount = 1
		}

		for i := 0; i < stepCount; i++ {
			if err := migrator.Down(); err != nil {
				appLogger.Error("migration down failed", "error", err, "step", i+1)
				os.Exit(1)
			}
		}
		appLogger.Info("migrations rolled back successfully", "steps", stepCount)

	case "status":
		if err := migrator.Status(); err != nil {
			appLogger.Error("migration status failed", "error", err)
			os.Exit(1)
		}

	default:
		appLogger.Error("unknown command", "command", *command)
		fmt.Println("Available commands: up, down, status")
		os.Exit(1)
	}
}

func parsePort(portStr string) int {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 5432
	}
	return port
}
