// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/ascend/internal/app"
	"github.com/okian/ascend/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EventDependencies
	ProgressDependencies
	BadgeDependencies
}

// Server wires HTTP routes for the progression API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	progressHandler *ProgressHandler
	badgesHandler   *BadgesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		progressHandler: NewProgressHandler(deps),
		badgesHandler:   NewBadgesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("GET /progress", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("GET /notification", MetricsMiddleware(s.progressHandler.HandleGetNotification, "notification"))
	mux.HandleFunc("DELETE /notification", MetricsMiddleware(s.progressHandler.HandleClearNotification, "notification"))
	mux.HandleFunc("POST /tours/{level}/viewed", MetricsMiddleware(s.progressHandler.HandleTourViewed, "tours"))
	mux.HandleFunc("GET /badges", MetricsMiddleware(s.badgesHandler.HandleGetBadges, "badges"))
	mux.HandleFunc("GET /badges/recent", MetricsMiddleware(s.badgesHandler.HandleGetRecent, "badges_recent"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels into HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidLevel):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// ProgressDependencies defines the progression read and navigation operations.
type ProgressDependencies interface {
	Progress(ctx context.Context) (types.Progress, error)
	Notification() (int, bool, error)
	ClearNotification() error
	MarkTourViewed(level int) error
}

// BadgeDependencies defines the badge read operations.
type BadgeDependencies interface {
	Badges(ctx context.Context) (types.BadgeBoard, error)
	RecentlyUnlocked(ctx context.Context, within time.Duration) (bool, error)
	RecentWindow() time.Duration
}
