package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	arhttp "github.com/arbiterhq/arbiter/internal/adapter/http"
	"github.com/arbiterhq/arbiter/internal/adapter/jsonfile"
	"github.com/arbiterhq/arbiter/internal/adapter/llm"
	armcp "github.com/arbiterhq/arbiter/internal/adapter/mcp"
	arnats "github.com/arbiterhq/arbiter/internal/adapter/nats"
	arotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/postgres"
	"github.com/arbiterhq/arbiter/internal/adapter/ristretto"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/logger"
	"github.com/arbiterhq/arbiter/internal/middleware"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
	"github.com/arbiterhq/arbiter/internal/port/executor"
	"github.com/arbiterhq/arbiter/internal/port/history"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
	"github.com/arbiterhq/arbiter/internal/service"
)

const version = "0.1.0"

// approvedSubject is where autopilot publishes tasks that passed review.
const approvedSubject = "arbiter.tasks.approved"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

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

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"history_backend", cfg.History.Backend,
		"reviewers", len(cfg.Reviewers),
	)

	ctx := context.Background()

	// --- Telemetry ---
	var metrics *arotel.Metrics
	if cfg.Telemetry.Enabled {
		shutdown, err := arotel.Init(ctx, cfg.Telemetry, cfg.Logging.Service, version)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		if metrics, err = arotel.NewMetrics(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		slog.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	// --- Event fan-out ---
	hub := ws.NewHub()
	events := broadcast.Multi{hub}
	if metrics != nil {
		events = append(events, metrics)
	}

	// NATS mirrors events and feeds the autopilot task queue.
	var queue *arnats.Queue
	if cfg.NATS.Enabled {
		queue, err = arnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		events = append(events, arnats.NewBroadcaster(queue, log))
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// --- History store ---
	var store history.Store
	switch cfg.History.Backend {
	case "memory":
		// Records live only as long as the process.
	case "file":
		store = jsonfile.NewStore(cfg.History.Path)
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewHistoryStore(pool)
		slog.Info("postgres connected")
	default:
		return fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	historySvc := service.NewHistoryService(cfg.History.MaxRecords, cfg.Cache.AnalyticsTTL, store, cache, events, log)
	historySvc.Restore(ctx)
	historySvc.StartAutosave(cfg.History.AutosaveInterval)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := historySvc.Close(sctx); err != nil {
			slog.Error("history close failed", "error", err)
		}
	}()

	// --- Council ---
	llm.Configure(cfg.LLM, cfg.Breaker)

	analytics := service.NewAnalyticsService()
	selector := service.NewTeamSelector(analytics, log)
	templates := service.NewTemplateService()
	council := service.NewCouncilService(cfg.Council, selector, analytics, historySvc, events, log)

	for _, rc := range cfg.Reviewers {
		backend := rc.Backend
		if backend == "" {
			backend = llm.BackendName
		}
		rv, err := reviewer.New(backend, reviewer.Config{
			Name:        rc.Name,
			Weight:      rc.Weight,
			Specialties: rc.Specialties,
			Model:       rc.Model,
		})
		if err != nil {
			return fmt.Errorf("reviewer %q: %w", rc.Name, err)
		}
		if err := council.RegisterReviewer(rv); err != nil {
			return fmt.Errorf("reviewer %q: %w", rc.Name, err)
		}
	}
	slog.Info("council assembled", "reviewers", len(cfg.Reviewers))

	// --- Autopilot ---
	var autopilot *service.AutopilotService
	if cfg.Autopilot.Enabled {
		if queue == nil {
			return fmt.Errorf("autopilot requires nats to be enabled")
		}
		source, err := arnats.NewTaskSource(ctx, queue, 0, log)
		if err != nil {
			return fmt.Errorf("task source: %w", err)
		}
		defer source.Close()

		exec := executor.Func(func(ctx context.Context, t *task.Task) error {
			data, err := json.Marshal(t)
			if err != nil {
				return err
			}
			return queue.Publish(ctx, approvedSubject, data)
		})
		autopilot = service.NewAutopilotService(cfg.Autopilot, council, source, exec, events, log)
		if err := autopilot.Start(ctx); err != nil {
			return fmt.Errorf("autopilot: %w", err)
		}
		defer autopilot.Stop()
		slog.Info("autopilot started", "interval", cfg.Autopilot.PollInterval)
	}

	// --- HTTP ---
	handlers := arhttp.NewHandlers(council, historySvc, templates, analytics, autopilot, log)

	rl := middleware.NewLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopReap := rl.Reap(5*time.Minute, 15*time.Minute)
	defer stopReap()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(arhttp.Logger)
	r.Use(arhttp.SecurityHeaders)
	r.Use(arhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(rl.Handler)
	r.Use(middleware.APIKeyAuth(cfg.Server.APIKeyHash))
	if cfg.Telemetry.Enabled {
		r.Use(arotel.HTTPMiddleware(cfg.Logging.Service))
	}

	r.Get("/health", healthHandler(cfg, hub))
	r.Get("/ws", hub.HandleWS)
	arhttp.MountRoutes(r, handlers)

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := armcp.NewServer(armcp.ServerConfig{
			Addr:    ":" + cfg.MCP.Port,
			Name:    cfg.Logging.Service,
			Version: version,
		}, armcp.ServerDeps{
			Council:   council,
			History:   historySvc,
			Reviewers: council,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(sctx)
		}()
		slog.Info("mcp server started", "port", cfg.MCP.Port)
	}

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Debates hold the response open across several reviewer
		// round-trips, so the write timeout is generous.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(cfg *config.Config, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status      string `json:"status"`
		Version     string `json:"version"`
		History     string `json:"history"`
		NATS        bool   `json:"nats"`
		Connections int    `json:"wsConnections"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:      "ok",
			Version:     version,
			History:     cfg.History.Backend,
			NATS:        cfg.NATS.Enabled,
			Connections: hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
