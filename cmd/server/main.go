package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/document-chat-api/internal/config"
	"github.com/BerylCAtieno/document-chat-api/internal/db"
	"github.com/BerylCAtieno/document-chat-api/internal/jobs"
	"github.com/BerylCAtieno/document-chat-api/internal/llm"
	"github.com/BerylCAtieno/document-chat-api/internal/repository"
	"github.com/BerylCAtieno/document-chat-api/internal/router"
	"github.com/BerylCAtieno/document-chat-api/internal/services"
	"github.com/BerylCAtieno/document-chat-api/internal/storage"
	"github.com/BerylCAtieno/document-chat-api/internal/utils"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "document-chat-api",
		Short:        "Upload documents and ask questions about them",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file layered under the process environment")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(envFile)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(envFile)
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cfg.LogLevel, cfg.Debug)
			defer logger.Sync()

			if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("Migrations applied", "driver", db.DriverName(cfg.DatabaseURL))
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.Debug)
	defer logger.Sync()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	store, err := storage.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err, "backend", cfg.StorageBackend)
	}

	ctx := context.Background()
	generator, err := llm.NewGenerator(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize LLM provider", "error", err, "provider", cfg.LLMProvider)
	}
	llmClient := llm.NewClient(generator, cfg.RetryAttempts, cfg.Timeout(), cfg.RetryBackoff(), logger)

	repo := repository.NewRepository(database)
	docService := services.NewDocumentService(repo, store, cfg, logger)
	chatService := services.NewChatService(repo, store, llmClient, cfg, logger)

	if cfg.OrphanSweepSchedule != "" {
		sweeper := jobs.NewOrphanSweeper(repo, store, cfg.OrphanGrace(), logger)
		scheduler, err := sweeper.Start(cfg.OrphanSweepSchedule)
		if err != nil {
			logger.Fatal("Failed to start orphan sweeper", "error", err)
		}
		defer scheduler.Stop()
		logger.Info("Orphan sweeper scheduled", "schedule", cfg.OrphanSweepSchedule, "grace", cfg.OrphanGrace().String())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(docService, chatService, cfg, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.LLMBudget() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"database", db.DriverName(cfg.DatabaseURL),
			"storage", cfg.StorageBackend,
			"llm_provider", cfg.LLMProvider,
			"model", cfg.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}

	logger.Info("Server exited")
	return nil
}
