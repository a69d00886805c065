package api

import (
	"net/http"
	"strconv"
)

// ProgressHandler serves progression reads, the unlock notification and
// tour navigation.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

type notificationResponse struct {
	Level int `json:"level"`
}

// HandleGetProgress handles GET /progress requests.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Progress(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_progress", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetNotification handles GET /notification. It answers 204 when
// nothing is surfaced.
func (h *ProgressHandler) HandleGetNotification(w http.ResponseWriter, _ *http.Request) {
	level, ok, err := h.deps.Notification()
	if err != nil {
		writeServiceError(w, "api.get_notification", err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, notificationResponse{Level: level})
}

// HandleClearNotification handles DELETE /notification.
func (h *ProgressHandler) HandleClearNotification(w http.ResponseWriter, _ *http.Request) {
	if err := h.deps.ClearNotification(); err != nil {
		writeServiceError(w, "api.clear_notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTourViewed handles POST /tours/{level}/viewed.
func (h *ProgressHandler) HandleTourViewed(w http.ResponseWriter, r *http.Request) {
	const op = "api.tour_viewed"
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.MarkTourViewed(level); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
