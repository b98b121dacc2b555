package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tudelft-ide/captioner/internal/admission"
	"github.com/tudelft-ide/captioner/internal/caption"
	"github.com/tudelft-ide/captioner/internal/captioning"
	"github.com/tudelft-ide/captioner/internal/gemini"
	"github.com/tudelft-ide/captioner/internal/handlers"
	"github.com/tudelft-ide/captioner/internal/ollama"
	"github.com/tudelft-ide/captioner/internal/openai"
	"github.com/tudelft-ide/captioner/internal/providers"
	"github.com/tudelft-ide/captioner/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string
	var slowMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the captioning workflow",
		Long: `Starts the Captioner web interface on the specified port.

The web interface lets you upload a batch of images, generate captions
with a vision-capable LLM, fix them up by hand, and export the dataset
as a training-ready zip archive.`,
		Example: `  # Start server on default port 8080
  captioner serve

  # Start server on custom port, throttled for free-tier API quotas
  captioner serve --port 3000 --slow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("GEMINI_API_KEY") == "" {
				slog.Warn("GEMINI_API_KEY is not set; callers must supply their own key")
			}

			store := storage.New(cmd.Context(), storage.Config{
				RedisURL: os.Getenv("REDIS_URL"),
				FileDir:  os.Getenv("SESSION_DIR"),
			})

			tracker := admission.NewTracker(maxSessionsFromEnv())
			if fileStore, ok := store.(*storage.FileStore); ok {
				ids := fileStore.SessionIDs()
				tracker.Rebuild(ids)
				if len(ids) > 0 {
					slog.Info("Recovered sessions from disk", "count", len(ids))
				}
			}

			prompts, err := promptsFromEnv()
			if err != nil {
				return err
			}

			service := captioning.NewService(store, tracker, providerFromEnv(), prompts, slowMode)
			handler := handlers.New(service)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/api/generate", handler.HandleGenerate)
			mux.HandleFunc("/api/generate-single", handler.HandleGenerateSingle)
			mux.HandleFunc("/api/caption", handler.HandleCaption)
			mux.HandleFunc("/api/captions/", handler.HandleCaptions)
			mux.HandleFunc("/api/preview/", handler.HandlePreview)
			mux.HandleFunc("/api/export", handler.HandleExport)
			mux.HandleFunc("/api/validate-semantic-context", handler.HandleValidateContext)
			mux.HandleFunc("/api/health", handler.HandleHealth)
			mux.HandleFunc("/", handler.HandleStatic)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Captioner interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().BoolVar(&slowMode, "slow", false, "Throttle API calls for free-tier rate limits")

	return cmd
}

// providerFromEnv selects the vision backend; Gemini is the default
func providerFromEnv() providers.Provider {
	switch os.Getenv("CAPTION_PROVIDER") {
	case "openai":
		slog.Info("Using OpenAI vision provider")
		return openai.New()
	case "ollama":
		slog.Info("Using Ollama vision provider")
		return ollama.New()
	default:
		return gemini.New()
	}
}

func maxSessionsFromEnv() int {
	raw := os.Getenv("MAX_CONCURRENT_SESSIONS")
	if raw == "" {
		return admission.DefaultMaxSessions
	}
	max, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid MAX_CONCURRENT_SESSIONS, using default", "value", raw)
		return admission.DefaultMaxSessions
	}
	return max
}

func promptsFromEnv() (*caption.Prompts, error) {
	path := os.Getenv("CAPTION_PROMPTS")
	if path == "" {
		return caption.NewPrompts(), nil
	}
	prompts, err := caption.LoadPromptOverrides(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded prompt overrides", "path", path)
	return prompts, nil
}
