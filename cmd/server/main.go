package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/backend"
	"github.com/swissconsulthub/intake-engine/internal/breaker"
	"github.com/swissconsulthub/intake-engine/internal/config"
	"github.com/swissconsulthub/intake-engine/internal/files"
	"github.com/swissconsulthub/intake-engine/internal/handler"
	"github.com/swissconsulthub/intake-engine/internal/metrics"
	"github.com/swissconsulthub/intake-engine/internal/notify"
	"github.com/swissconsulthub/intake-engine/internal/repository"
	"github.com/swissconsulthub/intake-engine/internal/service"
	"github.com/swissconsulthub/intake-engine/internal/simulation"
	"github.com/swissconsulthub/intake-engine/internal/storage"
	"github.com/swissconsulthub/intake-engine/internal/submission"
	"github.com/swissconsulthub/intake-engine/internal/wizard"
	"github.com/swissconsulthub/intake-engine/pkg/logger"
	"github.com/swissconsulthub/intake-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	db, err := initDB(cfg)
	if err != nil {
		zapLog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	sessions := storage.NewRedisSessionStore(redisClient)
	m := metrics.New()

	// Simulation engine and session snapshot slot.
	simService := simulation.NewService(
		simulation.NewEngine(cfg),
		simulation.NewStore(sessions, cfg.GetSnapshotTTL()),
	)

	// Outbound path: breaker-guarded backend client plus local attachment store.
	circuitBreaker := breaker.New(zapLog, cfg.Breaker.FailureThreshold, cfg.GetBreakerCooldown())
	circuitBreaker.OnStateChange(func(s breaker.State) {
		var v float64
		switch s {
		case breaker.StateHalfOpen:
			v = 1
		case breaker.StateOpen:
			v = 2
		}
		m.SetBreakerState(v)
	})
	backendClient := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.GetBackendTimeout(),
		circuitBreaker,
		func() string { return cfg.Backend.Token },
		zapLog,
	)
	fileStorage := files.NewLocalStorage(cfg.Upload.StorageDir, cfg.Upload.BaseURL, zapLog)
	adapter := submission.NewAdapter(backendClient, fileStorage, m, zapLog)

	// Wizard state machine.
	drafts := wizard.NewDraftStore(sessions, cfg.GetDraftTTL(), cfg.GetDraftDebounce(), zapLog)
	validator := files.NewPDFValidator(cfg.Upload.MaxFileSizeBytes)
	machine := wizard.NewMachine(drafts, simService, adapter, validator, wizard.DefaultRequirements(), zapLog)

	// Back office over the local database, with the notification bus.
	bus := notify.NewBus(zapLog, cfg.GetRefreshInterval())
	defer bus.Close()

	requestRepo := repository.NewRequestRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	adminService := service.NewAdminService(requestRepo, attachmentRepo, bus, m, zapLog)

	machine.SetOnClose(func(sessionID string) {
		bus.Emit(notify.EventRequestCreated, map[string]string{"session_id": sessionID})
		m.ObserveBusEvent(string(notify.EventRequestCreated))
	})

	intakeHandler := handler.NewIntakeHandler(simService, machine, m, cfg.Upload.MaxFileSizeBytes)
	adminHandler := handler.NewAdminHandler(adminService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(intakeHandler, adminHandler, healthHandler, m, zapLog)

	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zapLog.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLog.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	intakeHandler *handler.IntakeHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware(zapLog))

	// Health and metrics
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	router.Handle("/metrics", m.Handler()).Methods("GET")

	// Public intake API
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/simulations", intakeHandler.Simulate).Methods("POST")
	api.HandleFunc("/simulations/latest", intakeHandler.LastSimulation).Methods("GET")

	api.HandleFunc("/intake", intakeHandler.OpenWizard).Methods("GET")
	api.HandleFunc("/intake/requirements", intakeHandler.Requirements).Methods("GET")
	api.HandleFunc("/intake/fields", intakeHandler.UpdateFields).Methods("PATCH")
	api.HandleFunc("/intake/next", intakeHandler.Next).Methods("POST")
	api.HandleFunc("/intake/previous", intakeHandler.Previous).Methods("POST")
	api.HandleFunc("/intake/documents/{type}", intakeHandler.AttachDocument).Methods("POST")
	api.HandleFunc("/intake/documents/{type}", intakeHandler.RemoveDocument).Methods("DELETE")
	api.HandleFunc("/intake/submit", intakeHandler.Submit).Methods("POST")

	// Back-office API
	admin := api.PathPrefix("/admin").Subrouter()

	admin.HandleFunc("/requests", adminHandler.ListRequests).Methods("GET")
	admin.HandleFunc("/requests/bulk/update", adminHandler.BulkUpdate).Methods("POST")
	admin.HandleFunc("/requests/bulk/delete", adminHandler.BulkDelete).Methods("POST")
	admin.HandleFunc("/requests/{id}", adminHandler.GetRequest).Methods("GET")
	admin.HandleFunc("/requests/{id}", adminHandler.UpdateRequest).Methods("PATCH")
	admin.HandleFunc("/requests/{id}", adminHandler.DeleteRequest).Methods("DELETE")
	admin.HandleFunc("/requests/{id}/attachments", adminHandler.GetAttachments).Methods("GET")

	return router
}
