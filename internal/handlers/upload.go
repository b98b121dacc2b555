package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tudelft-ide/captioner/internal/captioning"
	"github.com/tudelft-ide/captioner/internal/images"
)

// maxUploadMemory bounds how much of the multipart body is buffered in
// memory before spilling to temp files
const maxUploadMemory = 32 * 1024 * 1024

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = r.MultipartForm.File["file"]
	}
	if len(fileHeaders) == 0 {
		h.writeError(w, "No images provided", http.StatusBadRequest)
		return
	}

	uploads := make([]captioning.Upload, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, images.MaxFileSize+1))
		file.Close()
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, captioning.Upload{Filename: header.Filename, Data: data})
	}

	sessionID, accepted, rejected, err := h.service.CreateSession(r.Context(), uploads)
	if err != nil {
		if errors.Is(err, captioning.ErrServerBusy) {
			h.writeJSONStatus(w, http.StatusServiceUnavailable, map[string]any{
				"error":       "Server is at capacity. Please try again later.",
				"retry_after": 300,
			})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"session_id": sessionID,
		"message":    fmt.Sprintf("Successfully uploaded %d images", len(accepted)),
		"images":     accepted,
		"rejected":   rejected,
	})
}
