package providers

import (
	"context"
	"strings"
)

// Request carries everything a vision provider needs to caption one image
type Request struct {
	Prompt string

	// ImageData is the raw encoded image; MIMEType names its format,
	// e.g. "image/jpeg"
	ImageData []byte
	MIMEType  string

	Model       string
	Temperature float64

	// APIKey overrides the provider's configured credential when the
	// caller supplies their own key
	APIKey string
}

// Provider defines the interface for a vision-capable LLM provider
type Provider interface {
	// Complete sends the prompt plus image and returns the model's
	// free-text response
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrorCategory classifies an API failure for logging and metrics.
// Providers return untyped errors; categories are derived from the
// error text because no structured error schema is assumed.
type ErrorCategory string

const (
	CategoryRateLimit          ErrorCategory = "RATE_LIMIT"
	CategoryServiceUnavailable ErrorCategory = "SERVICE_UNAVAILABLE"
	CategoryServerError        ErrorCategory = "SERVER_ERROR"
	CategoryOther              ErrorCategory = "OTHER"
)

// Categorize inspects an error's text for known substrings. All
// categories share the same retry policy; this exists for diagnostics.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return CategoryOther
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate") || strings.Contains(msg, "429"):
		return CategoryRateLimit
	case strings.Contains(msg, "503") || strings.Contains(msg, "unavailable"):
		return CategoryServiceUnavailable
	case strings.Contains(msg, "500") || strings.Contains(msg, "internal"):
		return CategoryServerError
	default:
		return CategoryOther
	}
}
