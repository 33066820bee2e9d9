package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/tickbot/internal/strategy"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	state  func() strategy.State
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. state may be nil.
func NewHealthHandler(state func() strategy.State, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{state: state, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive. Once the loop has terminated the status turns "stopped" and the
// response is 503 so supervisors can restart the process.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if h.state != nil {
		st := h.state()
		body["loop"] = st
		if st == strategy.StateTerminated {
			body["status"] = "stopped"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, body)
}
