package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fleets-server/internal/scheduler"
	"fleets-server/internal/shared/response"
)

type HealthResponse struct {
	Status          string        `json:"status"`
	Timestamp       string        `json:"timestamp"`
	Database        string        `json:"database"`
	PendingMissions int           `json:"pending_missions"`
	Process         *ProcessStats `json:"process,omitempty"`
}

// Pinger is satisfied by *database.DB. A nil Pinger means the server runs on
// the in-memory store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db    Pinger
	queue scheduler.Queue
}

func NewHealthHandler(db Pinger, queue scheduler.Queue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "health")

	dbStatus := "memory"
	if h.db != nil {
		dbStatus = "disconnected"
		if err := h.db.PingContext(ctx); err == nil {
			dbStatus = "connected"
		} else {
			logger.Warn("Database ping failed", "error", err)
		}
	}

	status := "healthy"
	pending, err := h.queue.Len(ctx)
	if err != nil {
		logger.Warn("Mission queue unavailable", "error", err)
		status = "degraded"
		pending = -1
	}

	stats, err := readProcessStats(ctx)
	if err != nil {
		logger.Debug("Process stats unavailable", "error", err)
	}

	resp := HealthResponse{
		Status:          status,
		Timestamp:       time.Now().Format(time.RFC3339),
		Database:        dbStatus,
		PendingMissions: pending,
		Process:         stats,
	}

	response.Success(w, http.StatusOK, resp)
}
