package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/pesio-ai/be-pd-compliance/internal/client"
	"github.com/pesio-ai/be-pd-compliance/internal/config"
	"github.com/pesio-ai/be-pd-compliance/internal/database"
	"github.com/pesio-ai/be-pd-compliance/internal/handler"
	"github.com/pesio-ai/be-pd-compliance/internal/logger"
	"github.com/pesio-ai/be-pd-compliance/internal/middleware"
	"github.com/pesio-ai/be-pd-compliance/internal/repository"
	"github.com/pesio-ai/be-pd-compliance/internal/service"
	"github.com/pesio-ai/be-pd-compliance/internal/workflow"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Compliance Service (PD-2)")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Connect to NATS for workflow event publishing. The bus is optional:
	// without it the service still serves requests, events are just dropped.
	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name(cfg.Service.Name))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; workflow events disabled")
			nc = nil
		} else {
			defer nc.Drain()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}
	events := client.NewEventPublisher(nc, log.Logger)

	// Initialize repositories
	stepRepo := repository.NewStepRepository(db)
	deliverableRepo := repository.NewDeliverableRepository(db)

	// Initialize services
	workflowService := service.NewWorkflowService(stepRepo, deliverableRepo, events, log)

	autosave := service.NewAutosaveManager(
		service.DraftSaverFunc(func(ctx context.Context, stepID string, c workflow.Content) error {
			_, err := workflowService.SaveDraft(ctx, stepID, workflow.RoleVendor, c)
			return err
		}),
		log,
		cfg.Autosave.QuietPeriod,
		cfg.Autosave.PersistTimeout,
	)
	defer autosave.CloseAll()

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(workflowService, autosave, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Submitter routes
	mux.HandleFunc("/api/v1/deliverables/steps", httpHandler.GetSteps)
	mux.HandleFunc("/api/v1/deliverables/progress", httpHandler.GetProgress)
	mux.HandleFunc("/api/v1/steps/draft", httpHandler.SaveDraft)
	mux.HandleFunc("/api/v1/steps/draft/release", httpHandler.ReleaseDraft)
	mux.HandleFunc("/api/v1/steps/submit", httpHandler.Submit)

	// Admin routes
	mux.HandleFunc("/api/v1/admin/steps/approve", httpHandler.Approve)
	mux.HandleFunc("/api/v1/admin/steps/reject", httpHandler.Reject)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
