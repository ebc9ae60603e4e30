// Package organize contains the debounced categorization pipeline: the
// per-bookmark debounce/suppression tracker, the placement engine, the event
// glue, and the bulk organizer.
package organize

import (
	"log/slog"
	"sync"
	"time"
)

// pendingEntry records one bookmark awaiting its debounce decision.
type pendingEntry struct {
	timer          *time.Timer
	userInteracted bool
}

// Tracker decides, per bookmark, whether a creation leads to categorization.
// It holds the pending-decision records and the self-move suppression set.
// All state sits behind one mutex because timers fire on their own goroutines.
type Tracker struct {
	debounce  time.Duration
	process   func(id string)
	abandoned func(id string) // optional, fired when a user edit wins

	mu      sync.Mutex
	pending map[string]*pendingEntry
	moving  map[string]struct{}
}

// NewTracker creates a Tracker. process runs when a bookmark survives the
// debounce interval untouched; abandoned (optional) runs when a user edit
// cancels the categorization.
func NewTracker(debounce time.Duration, process func(id string), abandoned func(id string)) *Tracker {
	return &Tracker{
		debounce:  debounce,
		process:   process,
		abandoned: abandoned,
		pending:   make(map[string]*pendingEntry),
		moving:    make(map[string]struct{}),
	}
}

// Created arms the debounce timer for a freshly created bookmark. Folders are
// ignored. A second creation event for the same id cancels and replaces any
// existing timer, so at most one record per id is ever live.
func (t *Tracker) Created(id string, isFolder bool) {
	if isFolder {
		slog.Debug("organize: folder created, skipping", "id", id)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.pending[id]; ok {
		prev.timer.Stop()
	}
	// The callback captures its own entry: a stale timer that already expired
	// before Stop must not consume a record a later creation installed.
	entry := &pendingEntry{}
	entry.timer = time.AfterFunc(t.debounce, func() { t.fire(id, entry) })
	t.pending[id] = entry
}

// Changed records a user edit against a pending bookmark.
func (t *Tracker) Changed(id string) {
	t.markInteraction(id)
}

// Moved records a user move against a pending bookmark. Moves issued by the
// placement engine itself are suppressed and not counted as interaction; the
// id stays in the suppression set because removal is the mover's job.
func (t *Tracker) Moved(id string) {
	t.mu.Lock()
	if _, ok := t.moving[id]; ok {
		t.mu.Unlock()
		slog.Debug("organize: self-initiated move, skipping", "id", id)
		return
	}
	t.mu.Unlock()
	t.markInteraction(id)
}

// BeginMove marks id as being moved by the system. Call immediately before
// issuing the move.
func (t *Tracker) BeginMove(id string) {
	t.mu.Lock()
	t.moving[id] = struct{}{}
	t.mu.Unlock()
}

// EndMove removes id from the suppression set. Must run on every exit path of
// a placement, success or failure.
func (t *Tracker) EndMove(id string) {
	t.mu.Lock()
	delete(t.moving, id)
	t.mu.Unlock()
}

// PendingCount returns the number of live pending records.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// fire consumes the pending record once the debounce interval has elapsed.
// It only consumes the record it was armed for; when a newer creation has
// replaced it, the newer timer owns the decision.
func (t *Tracker) fire(id string, entry *pendingEntry) {
	t.mu.Lock()
	current, ok := t.pending[id]
	if !ok || current != entry {
		t.mu.Unlock()
		return
	}
	delete(t.pending, id)
	t.mu.Unlock()

	if entry.userInteracted {
		// The user touched it; it is theirs now, permanently.
		slog.Info("organize: user interacted, skipping categorization", "id", id)
		if t.abandoned != nil {
			t.abandoned(id)
		}
		return
	}
	t.process(id)
}

func (t *Tracker) markInteraction(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.pending[id]; ok {
		entry.userInteracted = true
	}
}
