package admission

import "testing"

func TestTrackerCapacity(t *testing.T) {
	tracker := NewTracker(2)

	if !tracker.Available() {
		t.Fatal("Expected capacity in empty tracker")
	}

	tracker.Register("a")
	tracker.Register("b")

	if tracker.Count() != 2 {
		t.Errorf("Expected 2 sessions, got %d", tracker.Count())
	}
	if tracker.Available() {
		t.Error("Expected tracker at capacity")
	}

	tracker.Release("a")
	if !tracker.Available() {
		t.Error("Expected capacity after release")
	}
}

func TestTrackerRegisterIsIdempotentPerID(t *testing.T) {
	tracker := NewTracker(5)
	tracker.Register("a")
	tracker.Register("a")

	if tracker.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", tracker.Count())
	}
}

func TestTrackerRebuild(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Rebuild([]string{"a", "b", "c"})

	if tracker.Count() != 3 {
		t.Errorf("Expected 3 sessions after rebuild, got %d", tracker.Count())
	}
}

func TestTrackerReset(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Register("a")
	tracker.Reset()

	if tracker.Count() != 0 {
		t.Errorf("Expected empty tracker after reset, got %d", tracker.Count())
	}
}

func TestTrackerDefaultMax(t *testing.T) {
	tracker := NewTracker(0)
	if tracker.Max() != DefaultMaxSessions {
		t.Errorf("Expected default max %d, got %d", DefaultMaxSessions, tracker.Max())
	}
}

func TestTrackerTouchUnknownIDIsNoOp(t *testing.T) {
	tracker := NewTracker(10)
	tracker.Touch("ghost")
	if tracker.Count() != 0 {
		t.Errorf("Expected touch of unknown ID to not register it, got %d", tracker.Count())
	}
}
