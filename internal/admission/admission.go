// Package admission caps concurrent sessions to bound server memory.
// Each resident session holds base64 image payloads, so an unbounded
// session count will OOM a small instance long before CPU matters.
package admission

import (
	"sync"
	"time"
)

// DefaultMaxSessions suits a 2GB instance at ~80MB per session
const DefaultMaxSessions = 30

// Tracker is the process-wide admission state. It is constructed once
// at startup and injected into the layers that need it; tests build a
// fresh instance per case.
type Tracker struct {
	mu       sync.Mutex
	max      int
	sessions map[string]time.Time
}

// NewTracker builds an empty tracker. A non-positive max falls back to
// the default.
func NewTracker(max int) *Tracker {
	if max <= 0 {
		max = DefaultMaxSessions
	}
	return &Tracker{
		max:      max,
		sessions: make(map[string]time.Time),
	}
}

// Rebuild seeds the tracker from session IDs found in persistent
// storage at startup, so a restart does not forget resident sessions.
func (t *Tracker) Rebuild(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		t.sessions[id] = now
	}
}

// Register records a new active session
func (t *Tracker) Register(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = time.Now()
}

// Touch refreshes a session's activity timestamp, keeping it alive
// through long caption runs.
func (t *Tracker) Touch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[id]; ok {
		t.sessions[id] = time.Now()
	}
}

// Release drops a session from the tracker, typically after export
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Count returns the number of active sessions
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Max returns the configured session ceiling
func (t *Tracker) Max() int {
	return t.max
}

// Available reports whether the server has room for one more session
func (t *Tracker) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions) < t.max
}

// Reset empties the tracker
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = make(map[string]time.Time)
}
