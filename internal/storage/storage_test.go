package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tudelft-ide/captioner/internal/models"
)

func testSession() *models.Session {
	session := models.NewSession()
	session.SemanticContext = "TU Delft drawing studio"
	session.AddImage("desk.jpg", &models.ImageRecord{
		Data:    "aGVsbG8=",
		Caption: "TU Delft drawing studio with a wooden desk",
		Status:  models.StatusCompleted,
	})
	session.AddImage("window.jpg", &models.ImageRecord{
		Data:   "d29ybGQ=",
		Status: models.StatusPending,
	})
	return session
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newFileStore(t.TempDir())
	ctx := context.Background()

	session := testSession()
	if !store.Save(ctx, "abc123", session) {
		t.Fatal("Expected Save to succeed")
	}

	loaded := store.Load(ctx, "abc123")
	if loaded == nil {
		t.Fatal("Expected Load to return session")
	}
	if loaded.SemanticContext != session.SemanticContext {
		t.Errorf("Expected context %q, got %q", session.SemanticContext, loaded.SemanticContext)
	}
	if len(loaded.Images) != 2 {
		t.Errorf("Expected 2 images, got %d", len(loaded.Images))
	}
	if loaded.Images["desk.jpg"].Caption != session.Images["desk.jpg"].Caption {
		t.Errorf("Expected caption %q, got %q", session.Images["desk.jpg"].Caption, loaded.Images["desk.jpg"].Caption)
	}

	names := loaded.Filenames()
	if len(names) != 2 || names[0] != "desk.jpg" || names[1] != "window.jpg" {
		t.Errorf("Expected upload order preserved, got %v", names)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := newFileStore(t.TempDir())

	if session := store.Load(context.Background(), "nope"); session != nil {
		t.Errorf("Expected nil for missing session, got %+v", session)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := newFileStore(dir)

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if session := store.Load(context.Background(), "bad"); session != nil {
		t.Errorf("Expected nil for corrupt session, got %+v", session)
	}
}

func TestFileStoreExists(t *testing.T) {
	store := newFileStore(t.TempDir())
	ctx := context.Background()

	if store.Exists(ctx, "abc123") {
		t.Error("Expected Exists to be false before save")
	}

	store.Save(ctx, "abc123", testSession())

	if !store.Exists(ctx, "abc123") {
		t.Error("Expected Exists to be true after save")
	}
}

func TestFileStoreDeleteIdempotent(t *testing.T) {
	store := newFileStore(t.TempDir())
	ctx := context.Background()

	store.Save(ctx, "abc123", testSession())

	if !store.Delete(ctx, "abc123") {
		t.Error("Expected Delete to succeed")
	}
	if store.Exists(ctx, "abc123") {
		t.Error("Expected session gone after delete")
	}
	// Deleting a key that never existed is not an error
	if !store.Delete(ctx, "abc123") {
		t.Error("Expected Delete of missing session to succeed")
	}
}

func TestFileStoreSessionIDs(t *testing.T) {
	store := newFileStore(t.TempDir())
	ctx := context.Background()

	store.Save(ctx, "aaa", testSession())
	store.Save(ctx, "bbb", testSession())

	ids := store.SessionIDs()
	if len(ids) != 2 {
		t.Fatalf("Expected 2 session IDs, got %d", len(ids))
	}
}

func TestNewFallsBackToFileBackend(t *testing.T) {
	// A refused connection must degrade to the file backend without
	// surfacing an error to the caller
	store := New(context.Background(), Config{
		RedisURL: "redis://127.0.0.1:1/0",
		FileDir:  t.TempDir(),
	})

	if store.Type() != "file" {
		t.Errorf("Expected file backend after redis failure, got %s", store.Type())
	}

	session := testSession()
	if !store.Save(context.Background(), "abc123", session) {
		t.Error("Expected fallback store to save")
	}
	if loaded := store.Load(context.Background(), "abc123"); loaded == nil {
		t.Error("Expected fallback store to load saved session")
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	store := New(context.Background(), Config{
		RedisURL: "not a url",
		FileDir:  t.TempDir(),
	})
	if store.Type() != "file" {
		t.Errorf("Expected file backend for malformed URL, got %s", store.Type())
	}
}
