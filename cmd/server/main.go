package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"cash-posting-backend/internal/config"
	"cash-posting-backend/internal/logging"
	"cash-posting-backend/internal/repository"
	"cash-posting-backend/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logger.Error("database unavailable", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}

	if err := repository.AutoMigrate(db); err != nil {
		logger.Error("auto migrate failed", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Error("create output dir", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := routes.RegisterRoutes(r, db, cfg, logger); err != nil {
		logger.Error("register routes", "error", err)
		os.Exit(1)
	}

	logger.Info("server starting",
		"port", cfg.Port,
		"db_driver", cfg.DB.Driver,
		"output_dir", cfg.OutputDir,
		"fuzzy_accept_threshold", cfg.Matching.FuzzyAcceptThreshold,
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
