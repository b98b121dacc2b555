package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tudelft-ide/captioner/internal/models"
)

// FileStore keeps one JSON file per session under dir. It carries no
// expiry; stale sessions are reclaimed by the admission tracker's
// rebuild or by manual cleanup.
type FileStore struct {
	dir string
}

func newFileStore(dir string) *FileStore {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "sessions")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("Unable to create session directory", "dir", dir, "err", err)
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(_ context.Context, id string, session *models.Session) bool {
	data, err := json.Marshal(session)
	if err != nil {
		slog.Error("Unable to serialize session", "session_id", shortID(id), "err", err)
		return false
	}
	if err := os.WriteFile(s.path(id), data, 0644); err != nil {
		slog.Error("Unable to write session file", "session_id", shortID(id), "err", err)
		return false
	}
	return true
}

func (s *FileStore) Load(_ context.Context, id string) *models.Session {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("Unable to read session file", "session_id", shortID(id), "err", err)
		}
		return nil
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Error("Unable to parse session file", "session_id", shortID(id), "err", err)
		return nil
	}
	return &session
}

func (s *FileStore) Exists(_ context.Context, id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

func (s *FileStore) Delete(_ context.Context, id string) bool {
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Unable to delete session file", "session_id", shortID(id), "err", err)
		return false
	}
	return true
}

func (s *FileStore) Type() string {
	return "file"
}

// SessionIDs lists the IDs of every persisted session, used to rebuild
// the admission tracker on startup.
func (s *FileStore) SessionIDs() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Error("Unable to list session directory", "dir", s.dir, "err", err)
		return nil
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids
}

// shortID truncates a session token for log lines
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
