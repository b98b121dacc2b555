package caption

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tudelft-ide/captioner/internal/images"
	"github.com/tudelft-ide/captioner/internal/providers"
	"github.com/tudelft-ide/captioner/internal/retry"
)

// Inter-call delays. Normal mode suits the paid tier (1,000 RPM);
// slow mode throttles deliberately when quota is shared.
const (
	normalModeDelay = 100 * time.Millisecond
	slowModeDelay   = 3 * time.Second
)

// GeneratorConfig parameterizes one caption client instance
type GeneratorConfig struct {
	// APIKey is a caller-supplied credential forwarded to the provider;
	// empty means the provider's own configured key
	APIKey string

	// Model overrides the provider's default model when non-empty
	Model string

	// SlowMode widens the minimum delay between outbound API calls
	SlowMode bool

	// Prompts supplies the category templates; nil means built-ins
	Prompts *Prompts

	// Policy is the per-call retry budget; zero value means the
	// default 3 attempts with exponential backoff
	Policy retry.Policy
}

// Generator produces validated captions for single images. The
// minimum inter-call delay is scoped to one Generator instance;
// concurrent sessions each construct their own and throttle
// independently.
type Generator struct {
	provider providers.Provider
	prompts  *Prompts
	policy   retry.Policy
	apiKey   string
	model    string

	rateDelay time.Duration
	mu        sync.Mutex
	lastCall  time.Time

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator builds a caption client around a vision provider
func NewGenerator(provider providers.Provider, cfg GeneratorConfig) *Generator {
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = NewPrompts()
	}
	policy := cfg.Policy
	if policy.Attempts == 0 {
		policy = retry.Default()
	}
	delay := normalModeDelay
	if cfg.SlowMode {
		delay = slowModeDelay
		slog.Info("Slow mode enabled", "delay", slowModeDelay)
	}
	return &Generator{
		provider:  provider,
		prompts:   prompts,
		policy:    policy,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		rateDelay: delay,
	}
}

// Generate produces one caption for an image satisfying the training
// contract. The initial call gets the full retry budget; if the result
// fails validation, exactly one regeneration round (with its own retry
// budget) is attempted with a prompt that names the violation. The
// returned caption may hold the rejected text when err is non-nil so
// callers can surface what the model produced.
func (g *Generator) Generate(ctx context.Context, filename string, imageData []byte, semanticContext string, category Category) (string, error) {
	prompt := g.prompts.For(category, semanticContext)

	raw, err := g.callAPI(ctx, filename, prompt, imageData)
	if err != nil {
		return "", fmt.Errorf("failed to generate caption: %w", err)
	}

	result := Validate(raw, semanticContext)
	if result.Accepted {
		slog.Info("Generated caption", "filename", filename, "caption", truncate(result.Text, 60))
		if len(result.Issues) > 0 {
			slog.Info("Auto-fixes applied", "filename", filename, "fixes", strings.Join(result.Issues, ", "))
		}
		return result.Text, nil
	}

	slog.Warn("Caption validation failed, attempting regeneration",
		"filename", filename, "issues", strings.Join(result.Issues, ", "))

	regenPrompt := buildRegenerationPrompt(raw, result.Issues, semanticContext)

	regenRaw, err := g.callAPI(ctx, filename, regenPrompt, imageData)
	if err != nil {
		return result.Text, fmt.Errorf("validation failed and regeneration error: %w", err)
	}

	regenResult := Validate(regenRaw, semanticContext)
	if !regenResult.Accepted {
		slog.Error("Regeneration still failed validation",
			"filename", filename, "issues", strings.Join(regenResult.Issues, ", "))
		return regenResult.Text, fmt.Errorf("regeneration failed: %s", strings.Join(regenResult.Issues, ", "))
	}

	slog.Info("Regeneration successful", "filename", filename, "caption", truncate(regenResult.Text, 60))
	return regenResult.Text, nil
}

// callAPI runs one prompt+image completion under the retry budget,
// waiting out the rate limit before every outbound attempt. MPO
// containers are flattened per attempt since that is a wire-format
// requirement of the vision service.
func (g *Generator) callAPI(ctx context.Context, filename, prompt string, imageData []byte) (string, error) {
	return g.policy.Do(ctx, func() (string, error) {
		if err := g.waitRateLimit(ctx); err != nil {
			return "", err
		}
		payload := images.FlattenForAPI(filename, imageData)
		text, err := g.provider.Complete(ctx, providers.Request{
			Prompt:    prompt,
			ImageData: payload,
			MIMEType:  images.MIMEType(payload),
			Model:     g.model,
			APIKey:    g.apiKey,
		})
		g.markCallDone()
		if err != nil {
			return "", err
		}
		return text, nil
	})
}

// waitRateLimit blocks until the configured delay has elapsed since
// the end of this instance's previous call
func (g *Generator) waitRateLimit(ctx context.Context) error {
	g.mu.Lock()
	last := g.lastCall
	g.mu.Unlock()

	if last.IsZero() {
		return nil
	}
	remaining := g.rateDelay - time.Since(last)
	if remaining <= 0 {
		return nil
	}
	slog.Debug("Rate limiting", "sleep", remaining)
	if g.sleep != nil {
		return g.sleep(ctx, remaining)
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Generator) markCallDone() {
	g.mu.Lock()
	g.lastCall = time.Now()
	g.mu.Unlock()
}

// buildRegenerationPrompt constructs the single targeted correction.
// It quotes the rejected caption, names the specific violation, and
// repeats the hard constraints; a generic "try again" does not
// reliably fix the contract breach.
func buildRegenerationPrompt(previous string, issues []string, semanticContext string) string {
	joined := strings.Join(issues, ", ")

	if strings.Contains(joined, "Doesn't start with") {
		return fmt.Sprintf(`Your previous caption didn't start with "%s" as required.

Previous caption: %s

Generate a NEW caption that begins EXACTLY with: "%s"
Then add connector word and description. Maximum 50 words, aim for 40-50. Output only the sentence.`,
			semanticContext, previous, semanticContext)
	}

	if strings.Contains(joined, "words (max 50)") {
		return fmt.Sprintf(`Your previous caption was %d words, but maximum is 50.

Previous caption: %s

Condense to maximum 50 words. Keep key facts. Start with "%s". Aim for 40-50 words. Output only the sentence.`,
			WordCount(previous), previous, semanticContext)
	}

	return fmt.Sprintf(`Your previous caption had issues: %s

Previous caption: %s

Generate a NEW caption starting with "%s", maximum 50 words. Output only the sentence.`,
		joined, previous, semanticContext)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
