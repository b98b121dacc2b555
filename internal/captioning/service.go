// Package captioning coordinates session state and the caption
// generator: batch and single-image generation, manual edits, and
// export preparation.
package captioning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tudelft-ide/captioner/internal/admission"
	"github.com/tudelft-ide/captioner/internal/caption"
	"github.com/tudelft-ide/captioner/internal/export"
	"github.com/tudelft-ide/captioner/internal/images"
	"github.com/tudelft-ide/captioner/internal/models"
	"github.com/tudelft-ide/captioner/internal/providers"
	"github.com/tudelft-ide/captioner/internal/storage"

	"github.com/google/uuid"
)

// MaxContextLength bounds the semantic context; it must leave room in
// the 50-word caption budget.
const MaxContextLength = 50

var (
	ErrServerBusy      = errors.New("server at capacity")
	ErrSessionNotFound = errors.New("session not found")
	ErrImageNotFound   = errors.New("image not found in session")
	ErrContextRequired = errors.New("semantic context is required")
	ErrContextTooLong  = fmt.Errorf("semantic context too long (max %d characters)", MaxContextLength)
	ErrStorageFailed   = errors.New("session could not be saved")
	ErrNoImages        = errors.New("no images provided")
)

// Service runs the captioning workflow against a session store
type Service struct {
	store    storage.Store
	tracker  *admission.Tracker
	provider providers.Provider
	prompts  *caption.Prompts
	slowMode bool
}

// NewService wires the orchestration layer. The provider is the vision
// backend every generator built by this service will call.
func NewService(store storage.Store, tracker *admission.Tracker, provider providers.Provider, prompts *caption.Prompts, slowMode bool) *Service {
	if prompts == nil {
		prompts = caption.NewPrompts()
	}
	return &Service{
		store:    store,
		tracker:  tracker,
		provider: provider,
		prompts:  prompts,
		slowMode: slowMode,
	}
}

// Store exposes the backing session store for health reporting
func (s *Service) Store() storage.Store {
	return s.store
}

// Tracker exposes the admission state for health reporting
func (s *Service) Tracker() *admission.Tracker {
	return s.tracker
}

// HealthCheck probes the session store with a save/load/delete round
// trip. The store never raises, so a failed probe shows up as a false
// save or a nil load.
func (s *Service) HealthCheck(ctx context.Context) bool {
	const probeID = "healthcheck"
	if !s.store.Save(ctx, probeID, models.NewSession()) {
		return false
	}
	healthy := s.store.Load(ctx, probeID) != nil
	s.store.Delete(ctx, probeID)
	return healthy
}

// Upload is one file arriving from the upload collaborator
type Upload struct {
	Filename string
	Data     []byte
}

// UploadResult describes the outcome for one uploaded file
type UploadResult struct {
	Filename  string `json:"filename"`
	Size      int    `json:"size,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CreateSession validates the uploads and persists a fresh session
// holding the accepted images. Rejected files are reported, not fatal;
// the session is created as long as at least one file was provided.
func (s *Service) CreateSession(ctx context.Context, uploads []Upload) (string, []UploadResult, []UploadResult, error) {
	if !s.tracker.Available() {
		slog.Warn("Server at capacity", "active", s.tracker.Count(), "max", s.tracker.Max())
		return "", nil, nil, ErrServerBusy
	}
	if len(uploads) == 0 {
		return "", nil, nil, ErrNoImages
	}

	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tracker.Register(sessionID)
	slog.Info("Session registered", "session_id", sessionID, "active", s.tracker.Count(), "max", s.tracker.Max())

	session := models.NewSession()
	var accepted, rejected []UploadResult

	for _, upload := range uploads {
		filename := images.SanitizeFilename(upload.Filename)

		if err := images.Validate(filename, upload.Data); err != nil {
			rejected = append(rejected, UploadResult{Filename: filename, Reason: err.Error()})
			continue
		}

		session.AddImage(filename, &models.ImageRecord{
			Data:   base64.StdEncoding.EncodeToString(upload.Data),
			Status: models.StatusPending,
		})
		accepted = append(accepted, UploadResult{
			Filename:  filename,
			Size:      len(upload.Data),
			Thumbnail: images.Thumbnail(filename, upload.Data, 150),
			Status:    "valid",
		})
	}

	if !s.store.Save(ctx, sessionID, session) {
		s.tracker.Release(sessionID)
		return "", nil, nil, ErrStorageFailed
	}

	slog.Info("Session created", "session_id", sessionID, "accepted", len(accepted), "rejected", len(rejected))
	return sessionID, accepted, rejected, nil
}

// newGenerator builds a per-request caption client. The rate-limit
// window is scoped to this generator, i.e. to this request.
func (s *Service) newGenerator(apiKey string) *caption.Generator {
	return caption.NewGenerator(s.provider, caption.GeneratorConfig{
		APIKey:   apiKey,
		SlowMode: s.slowMode,
		Prompts:  s.prompts,
	})
}

// GenerateBatch captions every image in the session in upload order.
// The session is loaded once, mutated in memory, and persisted after
// every image so completed captions survive a later failure. One
// image failing never aborts its siblings.
func (s *Service) GenerateBatch(ctx context.Context, sessionID, semanticContext, category, apiKey string) (*models.BatchResult, error) {
	s.tracker.Touch(sessionID)

	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	semanticContext = strings.TrimSpace(semanticContext)
	if semanticContext != "" && len(semanticContext) > MaxContextLength {
		return nil, ErrContextTooLong
	}
	if semanticContext == "" {
		semanticContext = session.SemanticContext
	}
	if semanticContext == "" {
		return nil, ErrContextRequired
	}
	semanticContext = session.SetSemanticContext(semanticContext)
	if !s.store.Save(ctx, sessionID, session) {
		return nil, ErrStorageFailed
	}

	generator := s.newGenerator(apiKey)
	cat := caption.ParseCategory(category)
	result := &models.BatchResult{}

	filenames := session.Filenames()
	for i, filename := range filenames {
		slog.Info("Processing image", "filename", filename, "position", fmt.Sprintf("%d/%d", i+1, len(filenames)))
		record := session.Images[filename]

		text, err := s.generateOne(ctx, generator, filename, record, semanticContext, cat)
		if err != nil {
			record.Status = models.StatusFailed
			record.Error = err.Error()
			result.Failed = append(result.Failed, models.CaptionResult{Filename: filename, Error: err.Error()})
			slog.Error("Failed to generate caption", "filename", filename, "err", err)
		} else {
			record.Caption = text
			record.Status = models.StatusCompleted
			record.Edited = false
			record.Error = ""
			result.Captions = append(result.Captions, models.CaptionResult{
				Filename: filename,
				Caption:  text,
				Status:   string(models.StatusCompleted),
			})
		}

		// Persist per image: partial progress survives a mid-batch crash
		if !s.store.Save(ctx, sessionID, session) {
			slog.Error("Unable to persist session mid-batch", "session_id", sessionID, "filename", filename)
		}
	}

	result.TotalProcessed = len(result.Captions)
	result.TotalFailed = len(result.Failed)
	slog.Info("Batch complete", "session_id", sessionID, "completed", result.TotalProcessed, "failed", result.TotalFailed)
	return result, nil
}

// GenerateSingle captions one image in the session
func (s *Service) GenerateSingle(ctx context.Context, sessionID, filename, semanticContext, category, apiKey string) (string, error) {
	s.tracker.Touch(sessionID)

	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return "", ErrSessionNotFound
	}
	record, ok := session.Images[filename]
	if !ok {
		return "", ErrImageNotFound
	}

	semanticContext = strings.TrimSpace(semanticContext)
	if semanticContext != "" && len(semanticContext) > MaxContextLength {
		return "", ErrContextTooLong
	}
	if semanticContext == "" {
		semanticContext = session.SemanticContext
	}
	if semanticContext == "" {
		return "", ErrContextRequired
	}
	semanticContext = session.SetSemanticContext(semanticContext)
	if !s.store.Save(ctx, sessionID, session) {
		return "", ErrStorageFailed
	}

	generator := s.newGenerator(apiKey)
	text, err := s.generateOne(ctx, generator, filename, record, semanticContext, caption.ParseCategory(category))
	if err != nil {
		record.Status = models.StatusFailed
		record.Error = err.Error()
		s.store.Save(ctx, sessionID, session)
		return "", err
	}

	record.Caption = text
	record.Status = models.StatusCompleted
	record.Edited = false
	record.Error = ""
	if !s.store.Save(ctx, sessionID, session) {
		return "", ErrStorageFailed
	}
	return text, nil
}

func (s *Service) generateOne(ctx context.Context, generator *caption.Generator, filename string, record *models.ImageRecord, semanticContext string, category caption.Category) (string, error) {
	imageData, err := base64.StdEncoding.DecodeString(record.Data)
	if err != nil {
		return "", fmt.Errorf("stored image payload is corrupt: %w", err)
	}
	return generator.Generate(ctx, filename, imageData, semanticContext, category)
}

// UpdateCaption stores a manual edit as-is and marks the record edited
func (s *Service) UpdateCaption(ctx context.Context, sessionID, filename, text string) error {
	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return ErrSessionNotFound
	}
	record, ok := session.Images[filename]
	if !ok {
		return ErrImageNotFound
	}

	record.Caption = strings.TrimSpace(text)
	record.Edited = true
	record.Error = ""
	if record.Caption != "" {
		record.Status = models.StatusCompleted
	} else {
		// An image is only completed while it holds a caption; clearing
		// the text sends it back to pending
		record.Status = models.StatusPending
	}
	if !s.store.Save(ctx, sessionID, session) {
		return ErrStorageFailed
	}
	slog.Info("Caption updated", "session_id", sessionID, "filename", filename)
	return nil
}

// CaptionListing reports every caption in a session
type CaptionListing struct {
	SessionID       string                 `json:"session_id"`
	SemanticContext string                 `json:"semantic_context"`
	Captions        []models.CaptionResult `json:"captions"`
	TotalImages     int                    `json:"total_images"`
	EditedCount     int                    `json:"edited_count"`
}

// Captions lists the session's captions in upload order
func (s *Service) Captions(ctx context.Context, sessionID string) (*CaptionListing, error) {
	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	listing := &CaptionListing{
		SessionID:       sessionID,
		SemanticContext: session.SemanticContext,
	}
	for _, filename := range session.Filenames() {
		record := session.Images[filename]
		listing.Captions = append(listing.Captions, models.CaptionResult{
			Filename: filename,
			Caption:  record.Caption,
			Edited:   record.Edited,
		})
		if record.Edited {
			listing.EditedCount++
		}
	}
	listing.TotalImages = len(listing.Captions)
	return listing, nil
}

// Preview reports the manifest content and export readiness
type Preview struct {
	MetadataContent string   `json:"metadata_content"`
	LineCount       int      `json:"line_count"`
	ReadyForExport  bool     `json:"ready_for_export"`
	Warnings        []string `json:"warnings,omitempty"`
}

// PreviewExport renders the metadata manifest preview and flags any
// images still missing captions.
func (s *Service) PreviewExport(ctx context.Context, sessionID string) (*Preview, error) {
	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	captions := make(map[string]string, len(session.Images))
	for filename, record := range session.Images {
		captions[filename] = record.Caption
	}

	missing := export.ValidateCaptions(session.Filenames(), captions)
	preview := &Preview{
		MetadataContent: export.PreviewManifest(captions, 10),
		LineCount:       len(captions),
		ReadyForExport:  len(missing) == 0,
	}
	for _, filename := range missing {
		preview.Warnings = append(preview.Warnings, filename+" has no caption")
	}
	return preview, nil
}

// ExportResult is a finished archive ready to stream to the client
type ExportResult struct {
	ZipData  []byte
	Filename string
	Message  string
}

// Export assembles the training archive and, on success, deletes the
// session to reclaim memory and releases its admission slot.
func (s *Service) Export(ctx context.Context, sessionID, datasetName string) (*ExportResult, error) {
	session := s.store.Load(ctx, sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if strings.TrimSpace(datasetName) == "" {
		datasetName = session.SemanticContext
	}
	datasetName = export.DatasetName(datasetName)

	entries := make([]export.Entry, 0, len(session.Images))
	for _, filename := range session.Filenames() {
		record := session.Images[filename]
		data, err := base64.StdEncoding.DecodeString(record.Data)
		if err != nil {
			return nil, fmt.Errorf("stored image payload for %s is corrupt: %w", filename, err)
		}
		entries = append(entries, export.Entry{
			Filename: filename,
			Data:     data,
			Caption:  record.Caption,
			Edited:   record.Edited,
		})
	}

	zipData, message, err := export.TrainingZip(entries, datasetName)
	if err != nil {
		return nil, err
	}

	// Mandatory post-export cleanup: the session's base64 payloads are
	// the server's dominant memory cost
	if !s.store.Delete(ctx, sessionID) {
		slog.Warn("Failed to delete session after export", "session_id", sessionID)
	}
	s.tracker.Release(sessionID)
	slog.Info("Session exported and released", "session_id", sessionID, "dataset", datasetName)

	return &ExportResult{
		ZipData:  zipData,
		Filename: datasetName + "_training.zip",
		Message:  message,
	}, nil
}

// ValidateSemanticContext checks the user-supplied context string
func ValidateSemanticContext(context string) error {
	context = strings.TrimSpace(context)
	if context == "" {
		return ErrContextRequired
	}
	if len(context) > MaxContextLength {
		return ErrContextTooLong
	}
	return nil
}
