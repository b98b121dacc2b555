package handlers

import (
	"encoding/json"
	"net/http"
)

type generateRequest struct {
	SessionID       string `json:"session_id"`
	Filename        string `json:"filename"`
	SemanticContext string `json:"semantic_context"`
	Category        string `json:"category"`
	APIKey          string `json:"api_key"`
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.GenerateBatch(r.Context(), request.SessionID, request.SemanticContext, request.Category, h.resolveAPIKey(request.APIKey))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, result)
}

func (h *Handler) HandleGenerateSingle(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request generateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" || request.Filename == "" {
		h.writeError(w, "session_id and filename are required", http.StatusBadRequest)
		return
	}

	caption, err := h.service.GenerateSingle(r.Context(), request.SessionID, request.Filename, request.SemanticContext, request.Category, h.resolveAPIKey(request.APIKey))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"filename": request.Filename,
		"caption":  caption,
		"status":   "completed",
	})
}
