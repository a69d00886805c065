package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// BadgesHandler serves the badge board.
type BadgesHandler struct {
	deps BadgeDependencies
}

// NewBadgesHandler creates a new badges handler.
func NewBadgesHandler(deps BadgeDependencies) *BadgesHandler {
	return &BadgesHandler{deps: deps}
}

type recentResponse struct {
	RecentlyUnlocked bool   `json:"recently_unlocked"`
	Within           string `json:"within"`
}

// HandleGetBadges handles GET /badges requests.
func (h *BadgesHandler) HandleGetBadges(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.Badges(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_badges", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleGetRecent handles GET /badges/recent?within=30s. A bare number is
// read as seconds.
func (h *BadgesHandler) HandleGetRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recent"
	within := h.deps.RecentWindow()
	if raw := r.URL.Query().Get("within"); raw != "" {
		d, err := parseWindow(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		within = d
	}
	recent, err := h.deps.RecentlyUnlocked(r.Context(), within)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, recentResponse{RecentlyUnlocked: recent, Within: within.String()})
}

func parseWindow(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, errors.New("within must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("within must not be negative")
	}
	return d, nil
}
