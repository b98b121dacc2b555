package handlers

import (
	"net/http"
	"os"
)

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	code := http.StatusOK
	if !h.service.HealthCheck(r.Context()) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	tracker := h.service.Tracker()
	h.writeJSONStatus(w, code, map[string]any{
		"status":             status,
		"storage":            h.service.Store().Type(),
		"api_key_configured": os.Getenv("GEMINI_API_KEY") != "",
		"capacity": map[string]any{
			"active_sessions": tracker.Count(),
			"max_sessions":    tracker.Max(),
			"available":       tracker.Available(),
		},
	})
}
