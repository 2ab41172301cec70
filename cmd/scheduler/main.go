package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/swissconsulthub/intake-engine/internal/config"
	"github.com/swissconsulthub/intake-engine/internal/metrics"
	"github.com/swissconsulthub/intake-engine/internal/notify"
	"github.com/swissconsulthub/intake-engine/internal/repository"
	"github.com/swissconsulthub/intake-engine/internal/service"
	"github.com/swissconsulthub/intake-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		zapLog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// The scheduler runs headless: no dashboard listeners, no refresh ticker.
	bus := notify.NewBus(zapLog, 0)
	defer bus.Close()

	adminService := service.NewAdminService(
		repository.NewRequestRepository(db),
		repository.NewAttachmentRepository(db),
		bus,
		metrics.New(),
		zapLog,
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		zapLog.Fatal("Invalid scheduler timezone", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))
	setupCronJobs(c, cfg, adminService, zapLog)

	c.Start()
	zapLog.Info("Scheduler started", zap.String("timezone", cfg.Scheduler.Timezone))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	zapLog.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, adminService *service.AdminService, zapLog *zap.Logger) {
	staleAfter := time.Duration(cfg.Scheduler.StaleAfterDays) * 24 * time.Hour

	// Nightly sweep: requests nobody touched within the retention window are
	// flagged stale so the back office surfaces them first.
	_, err := c.AddFunc("0 0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		count, err := adminService.FlagStaleRequests(ctx, staleAfter)
		if err != nil {
			zapLog.Error("Stale request sweep failed", zap.Error(err))
			return
		}
		zapLog.Info("Stale request sweep finished", zap.Int("flagged", count))
	})
	if err != nil {
		zapLog.Error("Error scheduling stale request sweep", zap.Error(err))
	}

	// Weekly summary of everything still open, Monday morning before the
	// consultants start.
	_, err = c.AddFunc("0 0 7 * * MON", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		summary, err := adminService.PendingReviewSummary(ctx)
		if err != nil {
			zapLog.Error("Weekly review summary failed", zap.Error(err))
			return
		}
		zapLog.Info("Weekly review summary",
			zap.Int("new", summary["new"]),
			zap.Int("in_review", summary["in_review"]),
			zap.Int("stale", summary["stale"]),
		)
	})
	if err != nil {
		zapLog.Error("Error scheduling weekly review summary", zap.Error(err))
	}

	zapLog.Info("Cron jobs scheduled")
}
