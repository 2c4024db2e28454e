package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"cash-posting-backend/internal/config"
	handler "cash-posting-backend/internal/handlers"
	"cash-posting-backend/internal/services/matching"
	"cash-posting-backend/internal/services/posting"
	service "cash-posting-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.AppConfig, logger *slog.Logger) error {
	engine, err := matching.NewEngine(cfg.Matching, logger)
	if err != nil {
		return fmt.Errorf("matching engine: %w", err)
	}

	reconService := service.NewReconciliationService(
		db,
		engine,
		posting.NewGenerator(cfg.OutputDir),
		logger,
	)

	reconHandler := handler.NewReconciliationHandler(reconService, logger)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := api.Group("/v1")

	// Posting runs
	postings := v1.Group("/postings")
	postings.POST("/process", reconHandler.Process)
	postings.GET("/results", reconHandler.GetResults)
	postings.GET("/exceptions", reconHandler.GetExceptions)
	postings.POST("/exceptions/:id/resolve", reconHandler.ResolveException)
	postings.GET("/runs/:runId", reconHandler.GetRun)
	postings.GET("/runs/:runId/journal", reconHandler.GetJournal)

	// Invoice routes
	invoices := v1.Group("/invoices")
	{
		invoices.POST("/upload", reconHandler.UploadInvoices)
		invoices.GET("", reconHandler.ListInvoices)
	}

	// Generated posting files
	r.Static("/output", cfg.OutputDir)
	return nil
}
