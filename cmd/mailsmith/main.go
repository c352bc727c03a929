// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the mailsmith API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailsmith/internal/ai"
	"mailsmith/internal/blocks"
	"mailsmith/internal/config"
	"mailsmith/internal/database"
	"mailsmith/internal/generator"
	"mailsmith/internal/handlers"
	"mailsmith/internal/jobs"
	"mailsmith/internal/mailer"
	"mailsmith/internal/middleware"
	"mailsmith/internal/mjml"
	"mailsmith/internal/router"
	"mailsmith/internal/storage"
	"mailsmith/internal/store"
	"mailsmith/library"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"template_source", cfg.TemplateSource,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (async job store).
	valkeyClient, err := jobs.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	jobStore := jobs.NewStore(valkeyClient, cfg.JobTTL)
	runner := jobs.NewRunner(jobStore, cfg.GenerateTimeout)

	// Fragment library.
	src, err := templateSource(cfg)
	if err != nil {
		slog.Error("failed to open template library", "error", err)
		os.Exit(1)
	}
	repo := blocks.NewRepository(src)

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, cfg.AIProviders())
	if _, err := aiRegistry.Active(); err != nil {
		slog.Warn("no usable ai provider, generation requests will fail", "error", err)
	}
	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)

	format := mjml.DefaultOptions
	format.StripTracking = cfg.StripTracking
	gen := generator.New(repo, aiRegistry, format)

	api := handlers.NewAPI(gen, runner, jobStore, store.NewEmailStore(db))

	// Preview delivery is optional; without a Postmark token the endpoint answers 503.
	previews, err := mailer.NewPostmark(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.PreviewFrom)
	if err != nil {
		slog.Error("failed to configure preview mailer", "error", err)
		os.Exit(1)
	}
	if previews != nil {
		api.WithMailer(previews)
		slog.Info("preview delivery enabled", "from", cfg.PreviewFrom)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	if cfg.APIKeyHash == "" {
		slog.Warn("API_KEY_HASH not set, /api is unauthenticated")
	}
	r := router.New(api, router.Options{
		APIKeyHash:    cfg.APIKeyHash,
		Limiter:       limiter,
		LimitByAPIKey: cfg.RateLimitBy == config.RateLimitByAPIKey,
		Timeout:       cfg.GenerateTimeout,
	})

	// WriteTimeout must cover a synchronous generation, which waits on the
	// model for up to GENERATE_TIMEOUT.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GenerateTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Jobs are bounded by GENERATE_TIMEOUT; let running ones record results.
	slog.Info("waiting for background jobs")
	runner.Wait()

	slog.Info("server stopped gracefully")
}

// templateSource opens the fragment library named by TEMPLATE_SOURCE.
func templateSource(cfg *config.Config) (blocks.Source, error) {
	switch cfg.TemplateSource {
	case config.TemplateSourceDir:
		if _, err := os.Stat(cfg.TemplateDir); err != nil {
			return nil, fmt.Errorf("template dir: %w", err)
		}
		return blocks.NewFSSource(os.DirFS(cfg.TemplateDir)), nil
	case config.TemplateSourceS3:
		client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3TemplateBucket)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("s3 template source is not configured")
		}
		slog.Info("s3 template library", "endpoint", cfg.S3Endpoint, "bucket", client.Bucket(), "prefix", cfg.S3TemplatePrefix)
		return blocks.NewS3Source(client, cfg.S3TemplatePrefix), nil
	default:
		return blocks.NewFSSource(library.FS()), nil
	}
}
