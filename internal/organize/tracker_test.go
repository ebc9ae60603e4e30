package organize

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testDebounce = 20 * time.Millisecond

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// settle waits long enough for any armed debounce timer to have fired.
func settle() {
	time.Sleep(5 * testDebounce)
}

func TestTracker_ProcessesUntouchedBookmarkOnce(t *testing.T) {
	var processed atomic.Int32
	tr := NewTracker(testDebounce, func(string) { processed.Add(1) }, nil)

	tr.Created("b1", false)

	waitFor(t, func() bool { return processed.Load() == 1 }, "bookmark was not processed")
	settle()
	if got := processed.Load(); got != 1 {
		t.Errorf("expected exactly 1 processing, got %d", got)
	}
	if tr.PendingCount() != 0 {
		t.Errorf("expected no pending records, got %d", tr.PendingCount())
	}
}

func TestTracker_SkipsFolders(t *testing.T) {
	var processed atomic.Int32
	tr := NewTracker(testDebounce, func(string) { processed.Add(1) }, nil)

	tr.Created("f1", true)

	settle()
	if got := processed.Load(); got != 0 {
		t.Errorf("expected no processing for folder, got %d", got)
	}
}

func TestTracker_UserInteractionCancels(t *testing.T) {
	tests := []struct {
		name     string
		interact func(tr *Tracker)
	}{
		{"change within interval", func(tr *Tracker) { tr.Changed("b1") }},
		{"move within interval", func(tr *Tracker) { tr.Moved("b1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var processed, abandoned atomic.Int32
			tr := NewTracker(testDebounce,
				func(string) { processed.Add(1) },
				func(string) { abandoned.Add(1) })

			tr.Created("b1", false)
			tt.interact(tr)

			waitFor(t, func() bool { return abandoned.Load() == 1 }, "interaction was not recorded")
			settle()
			if got := processed.Load(); got != 0 {
				t.Errorf("expected no processing after interaction, got %d", got)
			}
		})
	}
}

func TestTracker_SelfMoveIsNotInteraction(t *testing.T) {
	var processed atomic.Int32
	tr := NewTracker(testDebounce, func(string) { processed.Add(1) }, nil)

	tr.Created("b1", false)
	tr.Created("b2", false)

	// b1's move is system-initiated; b2's arrives from outside the system.
	tr.BeginMove("b1")
	tr.Moved("b1")
	tr.EndMove("b1")
	tr.Moved("b2")

	waitFor(t, func() bool { return processed.Load() >= 1 }, "b1 was not processed")
	settle()
	if got := processed.Load(); got != 1 {
		t.Errorf("expected only b1 processed, got %d calls", got)
	}
}

func TestTracker_RecreationReplacesTimer(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	tr := NewTracker(testDebounce, func(id string) {
		mu.Lock()
		ids = append(ids, id)
		mu.Unlock()
	}, nil)

	tr.Created("b1", false)
	time.Sleep(testDebounce / 2)
	tr.Created("b1", false)

	settle()
	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 1 {
		t.Fatalf("expected exactly 1 processing after re-creation, got %d", len(ids))
	}
}

func TestTracker_StaleTimerDoesNotConsumeFreshRecord(t *testing.T) {
	var processed, abandoned atomic.Int32
	tr := NewTracker(time.Hour,
		func(string) { processed.Add(1) },
		func(string) { abandoned.Add(1) })

	tr.Created("b1", false)
	tr.mu.Lock()
	stale := tr.pending["b1"]
	tr.mu.Unlock()

	// Re-creation replaces the record right as the first timer expires. The
	// stale callback runs anyway and must leave the fresh record alone.
	tr.Created("b1", false)
	tr.fire("b1", stale)

	if got := processed.Load(); got != 0 {
		t.Fatalf("stale timer processed the bookmark, processed = %d", got)
	}
	if tr.PendingCount() != 1 {
		t.Fatalf("fresh record was consumed, pending = %d", tr.PendingCount())
	}

	// An edit within the new interval still wins when the fresh timer fires.
	tr.Changed("b1")
	tr.mu.Lock()
	fresh := tr.pending["b1"]
	tr.mu.Unlock()
	tr.fire("b1", fresh)

	if processed.Load() != 0 || abandoned.Load() != 1 {
		t.Errorf("processed = %d, abandoned = %d; want 0, 1",
			processed.Load(), abandoned.Load())
	}
}

func TestTracker_MoveSuppressionOnlyWhileMoving(t *testing.T) {
	var processed, abandoned atomic.Int32
	tr := NewTracker(testDebounce,
		func(string) { processed.Add(1) },
		func(string) { abandoned.Add(1) })

	tr.Created("b1", false)
	tr.BeginMove("b1")
	tr.EndMove("b1")

	// The suppression window is closed; this move counts as interaction.
	tr.Moved("b1")

	waitFor(t, func() bool { return abandoned.Load() == 1 }, "move after EndMove was not recorded")
	if got := processed.Load(); got != 0 {
		t.Errorf("expected no processing, got %d", got)
	}
}

func TestTracker_InteractionWithoutPendingIsNoop(t *testing.T) {
	tr := NewTracker(testDebounce, func(string) {}, nil)

	// Neither call may panic or create records.
	tr.Changed("ghost")
	tr.Moved("ghost")

	if tr.PendingCount() != 0 {
		t.Errorf("expected no pending records, got %d", tr.PendingCount())
	}
}
