package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tahkootay/LabTrack/internal/config"
	"github.com/tahkootay/LabTrack/internal/domain/catalog"
	"github.com/tahkootay/LabTrack/internal/domain/document"
	"github.com/tahkootay/LabTrack/internal/domain/result"
	"github.com/tahkootay/LabTrack/internal/normalize"
	"github.com/tahkootay/LabTrack/internal/pipeline"
	"github.com/tahkootay/LabTrack/internal/platform/blobstore"
	"github.com/tahkootay/LabTrack/internal/platform/db"
	"github.com/tahkootay/LabTrack/internal/platform/extract"
	"github.com/tahkootay/LabTrack/internal/platform/middleware"
	"github.com/tahkootay/LabTrack/internal/platform/tasks"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labtrack-server",
		Short: "Lab result normalization API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the analyte reference catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := catalog.Seed(ctx, catalog.NewAnalyteRepoPG(pool))
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			fmt.Printf("Seeded %d analyte(s).\n", count)
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
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

	defaultSubject, err := cfg.DefaultSubjectID()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid default subject")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Report storage
	blobs, err := blobstore.NewFSStore(cfg.StorageDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.StorageDir).Msg("failed to open report storage")
	}

	// Repositories
	analyteRepo := catalog.NewAnalyteRepoPG(pool)
	mappingRepo := catalog.NewMappingRepoPG(pool)
	documentRepo := document.NewRepoPG(pool)
	observationRepo := result.NewRepoPG(pool)

	// Matching and normalization
	matcher := catalog.NewMatcher(analyteRepo, mappingRepo, nil)
	normalizer := normalize.NewNormalizer(matcher, observationRepo, logger)

	// Extraction
	extractor := extract.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)

	// Background task runner and processing pipeline
	runner := tasks.NewRunner(logger, tasks.WithConcurrency(cfg.WorkerConcurrency))
	processor := pipeline.NewProcessor(documentRepo, observationRepo, blobs, extractor, normalizer, runner, logger)
	processor.Register(runner)

	runnerCtx, runnerCancel := context.WithCancel(ctx)
	defer runnerCancel()
	runner.Start(runnerCtx)
	defer runner.Stop()

	// Services
	catalogSvc := catalog.NewService(analyteRepo, mappingRepo, matcher)
	resultSvc := result.NewService(observationRepo)
	enqueue := document.EnqueueFunc(func(id uuid.UUID) {
		runner.Enqueue(tasks.KindProcessDocument, id)
	})
	documentSvc := document.NewService(documentRepo, blobs, enqueue, logger)

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
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API routes
	api := e.Group("/api")
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	document.NewHandler(documentSvc, processor, defaultSubject).RegisterRoutes(api)
	result.NewHandler(resultSvc, defaultSubject).RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
