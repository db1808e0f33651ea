package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/ledger_engine/internal/adapters/amqp"
	"github.com/SscSPs/ledger_engine/internal/adapters/analytics"
	"github.com/SscSPs/ledger_engine/internal/adapters/rates"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/handlers"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/memory"
	"github.com/SscSPs/ledger_engine/internal/repositories/database/pgsql"
	"github.com/SscSPs/ledger_engine/pkg/database"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.3 init -d ../../ -g cmd/ledger_engine/main.go -o ../docs

// @title Ledger Engine API
// @version 1.0
// @description Income and expense records with per-currency balances, budgets and live aggregations.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey OwnerAuth
// @in header
// @name X-User-ID
// @description Identifier of the owner whose ledger is accessed.

// @security OwnerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := setupRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("backend", cfg.StorageBackend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeRepos()

	hub := services.NewHub(services.WithMaxBackoff(cfg.SubscriptionMaxBackoff))
	defer hub.Close()

	if cfg.AMQPURL != "" {
		bus, err := amqp.NewChangeBus(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to connect to change bus", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := bus.Close(); cerr != nil {
				logger.Error("Error closing change bus", slog.String("error", cerr.Error()))
			}
		}()
		hub.AddRelay(bus)
		go func() {
			if err := bus.Consume(ctx, hub.HandleRemote); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Change bus consumer stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Change bus connected", slog.String("exchange", cfg.AMQPExchange), slog.String("instance_id", hub.InstanceID()))
	}

	if cfg.PostHogAPIKey != "" {
		tracker, err := analytics.NewTracker(cfg.PostHogAPIKey, cfg.PostHogEndpoint, logger)
		if err != nil {
			logger.Error("Failed to initialize analytics", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := tracker.Close(); cerr != nil {
				logger.Error("Error closing analytics client", slog.String("error", cerr.Error()))
			}
		}()
		hub.AddRelay(tracker)
	} else {
		logger.Warn("PostHog API key is empty, analytics disabled")
	}

	var rateSource portssvc.RateSource
	if cfg.RatesAPIURL != "" {
		rateSource = rates.NewClient(cfg.RatesAPIURL, cfg.RatesAPIKey, nil)
	}

	svc := services.NewServiceContainer(cfg, repos, hub, rateSource)
	if err := svc.Currency.Start(ctx); err != nil {
		logger.Error("Failed to start rate refresher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Currency.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop rate refresher", slog.String("error", err.Error()))
		}
	}()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := handlers.RegisterRoutes(r, cfg, svc); err != nil {
		logger.Error("Failed to register routes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

// setupRepositories opens the configured storage backend. The returned func releases it.
func setupRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StorageBackend == config.StorageMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return memory.NewRepositoryProvider(memory.NewStore()), func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL, "file://migrations", logger); err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}

	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
}
