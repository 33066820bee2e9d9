package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

// LoopView is the read-only slice of the strategy engine the status
// endpoints need.
type LoopView interface {
	Status() strategy.Status
	RecentReports(limit int) []domain.TickReport
}

// StatusHandler serves the loop status for operators.
type StatusHandler struct {
	mode   string
	loop   LoopView
	logger *slog.Logger
}

// NewStatusHandler creates a StatusHandler for the given mode.
func NewStatusHandler(mode string, loop LoopView, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:   mode,
		loop:   loop,
		logger: logger.With(slog.String("handler", "status")),
	}
}

// GetStatus responds with the loop counters and the most recent tick
// reports, newest first.
// GET /api/status?limit=N
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	reports := h.loop.RecentReports(limit)
	if reports == nil {
		reports = []domain.TickReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    h.mode,
		"status":  h.loop.Status(),
		"reports": reports,
	})
}
