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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rift-labs/rift-core/internal/adapter/agent"
	rifthttp "github.com/rift-labs/rift-core/internal/adapter/http"
	riftnats "github.com/rift-labs/rift-core/internal/adapter/nats"
	"github.com/rift-labs/rift-core/internal/adapter/postgres"
	"github.com/rift-labs/rift-core/internal/adapter/ristretto"
	"github.com/rift-labs/rift-core/internal/adapter/ws"
	"github.com/rift-labs/rift-core/internal/artifacts"
	"github.com/rift-labs/rift-core/internal/config"
	"github.com/rift-labs/rift-core/internal/contract"
	domainrun "github.com/rift-labs/rift-core/internal/domain/run"
	"github.com/rift-labs/rift-core/internal/logger"
	"github.com/rift-labs/rift-core/internal/port/cache"
	"github.com/rift-labs/rift-core/internal/port/runlog"
	"github.com/rift-labs/rift-core/internal/resilience"
	"github.com/rift-labs/rift-core/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"agent_url", cfg.Agent.BaseURL,
		"nats_url", cfg.NATS.URL,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// PostgreSQL is best effort: run history survives restarts when it
	// is up, but a missing database never blocks run processing.
	var pool *pgxpool.Pool
	var history runlog.Store = runlog.Disabled{}
	if cfg.Postgres.DSN != "" {
		pool, err = postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, run history disabled", "error", err)
			pool = nil
		} else {
			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			history = postgres.NewStore(pool)
			defer pool.Close()
			slog.Info("postgres connected, migrations applied")
		}
	} else {
		slog.Warn("no postgres dsn configured, run history disabled")
	}

	// NATS carries both the job queue and the event bus. Without it
	// nothing works, so failure here is fatal.
	bus, err := riftnats.Connect(ctx, cfg.NATS.URL, cfg.Queue)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = bus.Close() }()
	slog.Info("nats connected")

	// Artifact cache is optional.
	var artifactCache cache.Cache
	if c, err := ristretto.New(cfg.Artifacts.CacheBytes); err != nil {
		slog.Warn("artifact cache disabled", "error", err)
	} else {
		artifactCache = c
	}

	// --- Services ---
	gate := contract.New()
	runs := domainrun.NewStore()
	hub := ws.NewHub()
	arts := artifacts.NewStore(cfg.Artifacts.Dir, gate, artifactCache, cfg.Artifacts.CacheTTL)

	agentClient := agent.NewClient(cfg.Agent.BaseURL)
	agentClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	submitter := service.NewSubmitter(runs, bus, gate, history, cfg.Agent.MaxIterations)
	emitter := service.NewEmitter(hub, gate)
	bridge := service.NewBridge(bus, runs, emitter, gate, history, arts)
	worker := service.NewWorker(agentClient, bus, cfg.Agent)
	querier := service.NewQuerier(agentClient, history)

	cancelBridge, err := bridge.Start(ctx)
	if err != nil {
		return fmt.Errorf("event bridge: %w", err)
	}
	defer cancelBridge()

	cancelWorker, err := worker.Start(ctx)
	if err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer cancelWorker()

	// --- HTTP ---
	handlers := &rifthttp.Handlers{
		Submit:    submitter,
		Runs:      runs,
		History:   history,
		Artifacts: arts,
		Query:     querier,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(rifthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rifthttp.Logger)
	r.Use(rifthttp.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Health endpoint with dependency status
	var pinger rifthttp.Pinger
	if pool != nil {
		pinger = pool
	}
	r.Get("/health", rifthttp.HealthHandler(bus, pinger))

	// WebSocket endpoint (room per run)
	r.Get("/ws", hub.HandleWS)

	// API routes
	rifthttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bus.Drain(); err != nil {
		slog.Warn("nats drain failed", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}
