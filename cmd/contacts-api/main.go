// main is the entry point of the Contacts API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from the environment, .env and an optional YAML file
//  2. Initialise the logger
//  3. Open the contact store selected by storage.driver
//  4. Register all HTTP routes
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close the store, exit
//
// RUNNING THE SERVER:
//
//	MONGO_URL=mongodb://localhost:27017/contacts go run ./cmd/contacts-api
//
// or with a config file:
//
//	go run ./cmd/contacts-api --config=config/local.yaml
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/aanand-mishra/contacts-api/internal/config"
	"github.com/aanand-mishra/contacts-api/internal/http/router"
	"github.com/aanand-mishra/contacts-api/internal/logger"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/storage/memory"
	"github.com/aanand-mishra/contacts-api/internal/storage/mongodb"
	"github.com/aanand-mishra/contacts-api/internal/storage/sqldb"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := logger.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting contacts-api",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Storage.Driver),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// A store that cannot be reached is not fatal: the server still listens
	// and every contact request answers 500 until the store comes back.
	store, closeStore := openStorage(log, cfg.Storage)
	store = storage.WithTimeout(store, cfg.Storage.Timeout)

	// ── 4. Register HTTP Routes ───────────────────────────────────────────
	handler := router.New(store, log, metrics.NewSet())

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:     cfg.HTTPServer.Addr(),
		Handler:  handler,
		ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError),

		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	go func() {
		log.Info("server started", slog.String("address", server.Addr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
	}
	if err := closeStore(ctx); err != nil {
		log.Error("failed to close storage", slog.String("error", err.Error()))
	}

	log.Info("server stopped gracefully")
}

// openStorage builds the store named by cfg.Driver and the function that
// releases it. Connection failures are logged, never returned.
func openStorage(log *slog.Logger, cfg config.Storage) (storage.Storage, func(context.Context) error) {
	noop := func(context.Context) error { return nil }

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch cfg.Driver {
	case "memory":
		log.Warn("using the in-memory store, contacts are lost on exit")
		return memory.New(), noop

	case sqldb.DriverSQLite, sqldb.DriverPostgres:
		db, err := sqldb.New(ctx, cfg)
		if err != nil {
			log.Error("failed to initialise storage", slog.String("error", err.Error()))
			return storage.Unavailable{Err: err}, noop
		}
		log.Info("storage initialised", slog.String("table", cfg.Collection))
		return db, func(context.Context) error { return db.Close() }

	default:
		db, err := mongodb.New(ctx, cfg)
		if err != nil {
			log.Error("failed to initialise storage", slog.String("error", err.Error()))
			return storage.Unavailable{Err: err}, noop
		}
		// the driver reconnects on its own; a failed ping only gets logged
		if err := db.Ping(ctx); err != nil {
			log.Error("database connection failed", slog.String("error", err.Error()))
		} else {
			log.Info("database connected", slog.String("collection", cfg.Collection))
		}
		return db, db.Disconnect
	}
}
