package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/okian/ascend/internal/domain/types"
)

// EventDependencies defines the interface for event submission.
type EventDependencies interface {
	SubmitEvent(ctx context.Context, eventType string, metadata map[string]any, requestID string) (types.EventResult, error)
}

// eventRequest mirrors the OpenAPI schema for POST /events.
type eventRequest struct {
	Type      string         `json:"type" validate:"required,max=64"`
	Metadata  map[string]any `json:"metadata"`
	RequestID string         `json:"request_id" validate:"omitempty,max=128"`
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps     EventDependencies
	validate *validator.Validate
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SubmitEvent(r.Context(), req.Type, req.Metadata, req.RequestID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
