package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tudelft-ide/captioner/internal/captioning"
)

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		SessionID   string `json:"session_id"`
		DatasetName string `json:"dataset_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.SessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Export(r.Context(), request.SessionID, request.DatasetName)
	if err != nil {
		if errors.Is(err, captioning.ErrSessionNotFound) {
			h.writeServiceError(w, err)
			return
		}
		// Missing captions come back as a descriptive validation error
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(result.ZipData)))
	w.Header().Set("X-Export-Message", result.Message)
	if _, err := w.Write(result.ZipData); err != nil {
		// Headers are already out; nothing to do but log
		slog.Error("Failed to stream archive", "filename", result.Filename, "err", err)
	}
}
