package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/swissconsulthub/intake-engine/pkg/response"
)

// readyCheckKey is the throwaway key the readiness check round-trips through
// redis. Draft and snapshot storage need working writes, not just a live
// connection, so Ready does a SET/GET instead of a bare PING.
const readyCheckKey = "health:ready"

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func newHealthStatus() HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Service:   "intake-engine",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}
}

// Health reports liveness only; no dependency is touched.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, newHealthStatus())
}

// Ready verifies the request database and the session store are usable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := newHealthStatus()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "error"
		status.Checks["database"] = "failed: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if err := h.checkSessionStore(ctx); err != nil {
		status.Status = "error"
		status.Checks["session_store"] = "failed: " + err.Error()
	} else {
		status.Checks["session_store"] = "ok"
	}

	if status.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "Service not ready", nil)
		return
	}

	response.Success(w, status)
}

func (h *HealthHandler) checkSessionStore(ctx context.Context) error {
	if err := h.redis.Set(ctx, readyCheckKey, "ok", 10*time.Second).Err(); err != nil {
		return err
	}
	return h.redis.Get(ctx, readyCheckKey).Err()
}
