package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tudelft-ide/captioner/internal/captioning"
)

func (h *Handler) HandleCaption(w http.ResponseWriter, r *http.Request) {
	if r.Method != "PUT" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SessionID string `json:"session_id"`
		Filename  string `json:"filename"`
		Caption   string `json:"caption"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" || request.Filename == "" {
		h.writeError(w, "session_id and filename are required", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateCaption(r.Context(), request.SessionID, request.Filename, request.Caption); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"filename": request.Filename,
		"edited":   true,
		"message":  "Caption updated",
	})
}

func (h *Handler) HandleCaptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/captions/")
	if sessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	listing, err := h.service.Captions(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, listing)
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/preview/")
	if sessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	preview, err := h.service.PreviewExport(r.Context(), sessionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, preview)
}

func (h *Handler) HandleValidateContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SemanticContext string `json:"semantic_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := captioning.ValidateSemanticContext(request.SemanticContext); err != nil {
		h.writeJSON(w, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	h.writeJSON(w, map[string]any{"valid": true})
}
