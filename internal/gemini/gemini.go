package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tudelft-ide/captioner/internal/providers"
	"google.golang.org/api/option"
)

// modelPreference is tried in order until a model accepts the request.
// Flash is 4x cheaper than Pro and plenty for training captions.
var modelPreference = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash-exp",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// Gemini is a vision provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// Complete captions the image using Gemini, preferring the caller's
// API key over the server's shared GEMINI_API_KEY.
func (g *Gemini) Complete(ctx context.Context, req providers.Request) (string, error) {
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	format := strings.TrimPrefix(req.MIMEType, "image/")
	if format == "" {
		format = "jpeg"
	}

	models := modelPreference
	if req.Model != "" {
		models = []string{req.Model}
	}

	var lastErr error
	for _, name := range models {
		model := client.GenerativeModel(name)
		resp, err := model.GenerateContent(ctx,
			genai.Text(req.Prompt),
			genai.ImageData(format, req.ImageData),
		)
		if err != nil {
			lastErr = err
			// A model that doesn't exist for this key is worth skipping;
			// quota and server errors belong to the caller's retry policy
			if strings.Contains(strings.ToLower(err.Error()), "not found") {
				slog.Warn("Gemini model unavailable, trying next", "model", name, "err", err)
				continue
			}
			return "", fmt.Errorf("failed to generate content: %w", err)
		}

		text, err := extractText(resp)
		if err != nil {
			return "", err
		}
		slog.Debug("Gemini caption generated", "model", name)
		return text, nil
	}

	return "", fmt.Errorf("no usable gemini model: %w", lastErr)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}
