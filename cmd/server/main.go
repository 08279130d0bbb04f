package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidgrab/vidgrab/internal/api"
	"github.com/vidgrab/vidgrab/internal/api/handler"
	"github.com/vidgrab/vidgrab/internal/config"
	"github.com/vidgrab/vidgrab/internal/engine"
	"github.com/vidgrab/vidgrab/internal/preview"
	"github.com/vidgrab/vidgrab/internal/service"
	"github.com/vidgrab/vidgrab/internal/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidgrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting vidgrab",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	artifactStore := store.New(cfg.Store.Dir, cfg.Store.MaxArtifacts, logger)
	engineClient := engine.NewClient(cfg.Engine, logger)
	previewProxy := preview.New(cfg.Preview)

	// Initialize services
	resolveSvc := service.NewResolveService(engineClient, logger)
	deliverySvc := service.NewDeliveryService(resolveSvc, engineClient, artifactStore, logger)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(resolveSvc, deliverySvc, logger)
	previewHandler := handler.NewPreviewHandler(previewProxy, logger)
	healthHandler := handler.NewHealthHandler(artifactStore, cfg.Engine.Path)

	// Setup router
	router := api.NewRouter(mediaHandler, previewHandler, healthHandler, cfg.Server.APIKey)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Drop any artifacts abandoned by interrupted transfers
	if err := artifactStore.Sweep(); err != nil {
		logger.Error("final store sweep failed", "error", err)
	}

	logger.Info("shutdown complete")
}
