package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexscan/regtracker/config"
	"github.com/lexscan/regtracker/handler"
	"github.com/lexscan/regtracker/middleware"
	"github.com/lexscan/regtracker/pkg/logger"
	"github.com/lexscan/regtracker/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Resolve the text extraction and report rendering capabilities once at
	// startup
	extractor := service.ResolveExtractor()
	renderer := service.ResolveRenderer(cfg.Engine.ReportFormat)

	// Optional artifact mirror
	var mirror *service.ArtifactMirror
	if cfg.Minio.Enabled {
		mirror, err = service.NewArtifactMirror(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize artifact mirror", "error", err)
			os.Exit(1)
		}
		if err := mirror.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure mirror bucket", "error", err)
			os.Exit(1)
		}
		slog.Info("artifact mirror enabled", "bucket", cfg.Minio.Bucket)
	}

	// Load the contract registry and regulation catalog
	registry := service.NewRegistry(cfg.Store.RegistryFile, cfg.Store.SnapshotLimit)
	if err := registry.Load(); err != nil {
		slog.Error("failed to load contract registry", "error", err)
		os.Exit(1)
	}

	catalog := service.NewRegCatalog(cfg.Engine.CatalogFile)
	if err := catalog.Load(); err != nil {
		slog.Error("failed to load regulation catalog", "error", err)
		os.Exit(1)
	}

	feed := service.NewRegFeedService(&cfg.RegFeed)
	if feed.Enabled() {
		slog.Info("regulation feed enabled", "api_url", cfg.RegFeed.APIURL)
	}

	// Core services
	applier := service.NewApplier(cfg.Store.ArchiveDir, extractor, renderer)
	scanner := service.NewScanner(registry, extractor, renderer, mirror, &cfg.Store)
	engine := service.NewRiskEngine(catalog, registry, extractor, renderer, applier, mirror, &cfg.Engine, &cfg.Store)

	// Scan, regulatory, and apply operations share one pass mutex; the
	// registry must never see two passes at once
	var passMu sync.Mutex

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(registry, extractor, applier, &passMu)
	passHandler := handler.NewPassHandler(scanner, engine, catalog, feed, &passMu)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"contracts": registry.Count(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/scan", passHandler.RunScan)
		protected.POST("/regulatory/run", passHandler.RunRegulatory)
		protected.GET("/regulations", passHandler.ListRegulations)
		protected.POST("/regulations/reload", passHandler.ReloadRegulations)
		protected.POST("/regulations/fetch", passHandler.FetchRegulations)

		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.GET("/contracts/:id/diff", contractHandler.Diff)
		protected.POST("/contracts/:id/archive", contractHandler.Archive)
		protected.PUT("/contracts/:id/auto-apply", contractHandler.SetAutoApply)
		protected.PUT("/contracts/:id/jurisdiction", contractHandler.SetJurisdiction)
		protected.POST("/contracts/:id/proposals/:index/apply", contractHandler.ApplyProposal)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
