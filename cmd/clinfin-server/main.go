package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinfin/clinfin/internal/config"
	"github.com/clinfin/clinfin/internal/domain/backup"
	"github.com/clinfin/clinfin/internal/domain/billing"
	"github.com/clinfin/clinfin/internal/domain/reporting"
	"github.com/clinfin/clinfin/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinfin-server",
		Short: "Medical office financial tracking API server",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")
			return runServer(seed)
		},
	}
	cmd.Flags().Bool("seed", false, "Load sample patients and receipts at startup")
	return cmd
}

func runServer(seed bool) error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// In-memory store and repositories
	store := billing.NewMemStore()
	patientRepo := billing.NewPatientRepoMem(store)
	receiptRepo := billing.NewReceiptRepoMem(store)

	// Services
	billingSvc := billing.NewService(patientRepo, receiptRepo)
	reportingSvc := reporting.NewService(patientRepo, receiptRepo)
	backupSvc := backup.NewService(store, reportingSvc, cfg.BackupKeep)

	if seed {
		ctx := context.Background()
		if err := seedSampleData(ctx, billingSvc); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed sample data")
		}
		logger.Info().Msg("sample data loaded")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// API group
	api := e.Group("/api")

	billing.NewHandler(billingSvc).RegisterRoutes(api)
	reporting.NewHandler(reportingSvc).RegisterRoutes(api)
	backup.NewHandler(backupSvc).RegisterRoutes(api)

	// Scheduled snapshots, when configured
	if cfg.BackupCron != "" {
		scheduler := backup.NewScheduler(backupSvc, cfg.BackupCron, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start backup scheduler")
		}
		defer scheduler.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	go func() {
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
