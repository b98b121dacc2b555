package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/tudelft-ide/captioner/internal/captioning"
)

type Handler struct {
	service    *captioning.Service
	accessCode string
}

func New(service *captioning.Service) *Handler {
	return &Handler{
		service:    service,
		accessCode: os.Getenv("SECRET_ACCESS_CODE"),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeServiceError maps the orchestration layer's sentinel errors to
// HTTP status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, captioning.ErrSessionNotFound):
		h.writeError(w, "Invalid session ID", http.StatusNotFound)
	case errors.Is(err, captioning.ErrImageNotFound):
		h.writeError(w, "Image not found in session", http.StatusNotFound)
	case errors.Is(err, captioning.ErrNoImages):
		h.writeError(w, "No images provided", http.StatusBadRequest)
	case errors.Is(err, captioning.ErrContextRequired):
		h.writeError(w, "Semantic context is required", http.StatusBadRequest)
	case errors.Is(err, captioning.ErrContextTooLong):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, captioning.ErrStorageFailed):
		h.writeError(w, "Failed to save session", http.StatusInternalServerError)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// resolveAPIKey turns the client-supplied credential into the key the
// provider should use. The shared access code grants use of the
// server's own key; anything else is treated as the caller's personal
// API key. Empty means the server key as well.
func (h *Handler) resolveAPIKey(provided string) string {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return ""
	}
	if h.accessCode != "" && strings.EqualFold(provided, h.accessCode) {
		return ""
	}
	return provided
}
