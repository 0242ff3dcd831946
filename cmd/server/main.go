/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server: configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and environment configuration
  2. Configure structured logging
  3. Open the SQLite record store (seed the dev user if configured)
  4. Wire handler and router
  5. Start server with graceful shutdown

CONFIGURATION (environment):
  PORT               HTTP server port (default: 8080)
  DB_PATH            SQLite database path (default: invoices.db,
                     ":memory:" for an in-memory database)
  PAYMENT_LINK_BASE  External payment page the generated links point at
  CORS_ORIGINS       Comma-separated allowed origins
  SEED_USER_EMAIL /  Dev seed: create this user with this token on
  SEED_USER_TOKEN    startup so a fresh database has a working login

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment schema
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/landflow/billing-engine/api"
	"github.com/landflow/billing-engine/config"
	"github.com/landflow/billing-engine/crm"
	"github.com/landflow/billing-engine/export"
	"github.com/landflow/billing-engine/paylink"
	"github.com/landflow/billing-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.SeedUserEmail != "" && cfg.SeedUserToken != "" {
		if _, err := store.EnsureUser(context.Background(), cfg.SeedUserEmail, cfg.SeedUserToken); err != nil {
			slog.Error("failed to seed user", "error", err)
			os.Exit(1)
		}
		slog.Info("seeded dev user", "email", cfg.SeedUserEmail)
	}

	handler := api.NewHandler(store, crm.NewRegistry(), export.NewPDFExporter(),
		paylink.Generator{BaseURL: cfg.PaymentLinkBase})
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}
