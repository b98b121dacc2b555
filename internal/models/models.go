package models

import "sort"

// ImageStatus tracks where an image is in the captioning workflow
type ImageStatus string

const (
	StatusPending   ImageStatus = "pending"
	StatusCompleted ImageStatus = "completed"
	StatusFailed    ImageStatus = "failed"
)

// Session represents one user's captioning workspace: a batch of
// uploaded images plus the semantic context their captions must share.
// Sessions are keyed by an opaque 32-character hex token.
type Session struct {
	// Images maps filename -> image record. Go maps do not keep
	// insertion order, so Order carries the upload order alongside.
	Images          map[string]*ImageRecord `json:"images"`
	Order           []string                `json:"order"`
	SemanticContext string                  `json:"semantic_context"`
}

// ImageRecord is one uploaded image and its captioning progress
type ImageRecord struct {
	// Data holds the raw image payload, base64 encoded while resident
	// in session storage
	Data    string      `json:"data"`
	Caption string      `json:"caption"`
	Edited  bool        `json:"edited"`
	Status  ImageStatus `json:"status"`
	Error   string      `json:"error,omitempty"`
}

// NewSession returns an empty session ready to receive uploads
func NewSession() *Session {
	return &Session{
		Images: make(map[string]*ImageRecord),
		Order:  []string{},
	}
}

// AddImage appends an image record, preserving upload order. Adding a
// filename that already exists replaces the record in place.
func (s *Session) AddImage(filename string, record *ImageRecord) {
	if _, exists := s.Images[filename]; !exists {
		s.Order = append(s.Order, filename)
	}
	s.Images[filename] = record
}

// Filenames returns the session's filenames in upload order. Records
// missing from Order (sessions persisted before Order existed) are
// appended in sorted order so batches stay deterministic.
func (s *Session) Filenames() []string {
	names := make([]string, 0, len(s.Images))
	seen := make(map[string]bool, len(s.Images))
	for _, name := range s.Order {
		if _, ok := s.Images[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	if len(names) < len(s.Images) {
		missing := make([]string, 0, len(s.Images)-len(names))
		for name := range s.Images {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		names = append(names, missing...)
	}
	return names
}

// SetSemanticContext records the context if none is set yet. The
// context is immutable once generation may have started; later writes
// are no-ops and the stored value is returned.
func (s *Session) SetSemanticContext(context string) string {
	if s.SemanticContext == "" && context != "" {
		s.SemanticContext = context
	}
	return s.SemanticContext
}

// CaptionResult is the per-image outcome of a generation request
type CaptionResult struct {
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
	Status   string `json:"status,omitempty"`
	Edited   bool   `json:"edited"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates a whole-session generation run. A single
// image failing never aborts the batch; failures are reported here.
type BatchResult struct {
	Captions       []CaptionResult `json:"captions"`
	Failed         []CaptionResult `json:"failed"`
	TotalProcessed int             `json:"total_processed"`
	TotalFailed    int             `json:"total_failed"`
}
