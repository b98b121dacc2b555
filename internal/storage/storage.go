package storage

import (
	"context"
	"log/slog"

	"github.com/tudelft-ide/captioner/internal/models"
)

// Store persists session state keyed by session ID. Implementations
// never surface I/O or serialization errors to callers: Save and
// Delete report success as a bool, Load reports a missing or unreadable
// session as nil. Callers treat "not found" and "backend down" the
// same way, as "session unavailable".
type Store interface {
	Save(ctx context.Context, id string, session *models.Session) bool
	Load(ctx context.Context, id string) *models.Session
	Exists(ctx context.Context, id string) bool
	Delete(ctx context.Context, id string) bool

	// Type reports the active backend, "redis" or "file"
	Type() string
}

// Config selects and parameterizes the session backend
type Config struct {
	// RedisURL enables the Redis backend when non-empty, e.g.
	// redis://localhost:6379. Connection failure falls back to files.
	RedisURL string

	// FileDir is the directory for the file backend, one JSON file
	// per session
	FileDir string
}

// New builds the session store. When a Redis URL is configured the
// connection is probed with a ping; on any failure the store degrades
// to the file backend so callers see identical semantics either way,
// modulo the 24h expiry Redis applies.
func New(ctx context.Context, cfg Config) Store {
	if cfg.RedisURL != "" {
		store, err := newRedisStore(ctx, cfg.RedisURL)
		if err == nil {
			slog.Info("Session storage connected", "backend", "redis")
			return store
		}
		slog.Warn("Redis unavailable, falling back to file-based sessions", "err", err)
	}

	store := newFileStore(cfg.FileDir)
	slog.Info("Session storage ready", "backend", "file", "dir", store.dir)
	return store
}
