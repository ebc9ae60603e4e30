package organize

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/categorize"
	"github.com/nikbrunner/tidymark/internal/model"
)

// Resolution describes how the pipeline finished with one bookmark.
type Resolution struct {
	ID       string
	Category string // empty when not placed
	Placed   bool
	Err      error // non-nil when placement failed
}

// Pipeline glues store events to the tracker and drives one bookmark from
// debounce decision through classification to placement. It is the top-level
// boundary for the automatic path: every fault is absorbed and logged here.
type Pipeline struct {
	store   bookmarks.Store
	gateway *categorize.Gateway
	tracker *Tracker
	placer  *Placer

	// OnResolved, when set, observes the outcome for every debounced
	// bookmark, including abandoned ones. Set before Attach.
	OnResolved func(Resolution)
}

// NewPipeline wires a tracker and placer over the store and gateway.
func NewPipeline(store bookmarks.Store, gateway *categorize.Gateway, debounce time.Duration) *Pipeline {
	p := &Pipeline{store: store, gateway: gateway}
	p.tracker = NewTracker(debounce, p.process, p.abandon)
	p.placer = NewPlacer(store, p.tracker)
	return p
}

// Attach subscribes the pipeline to the store's events.
func (p *Pipeline) Attach() {
	p.store.Subscribe(p)
}

// Tracker exposes the underlying tracker, mainly for tests and status.
func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Placer exposes the placement engine for reuse by the bulk organizer.
func (p *Pipeline) Placer() *Placer { return p.placer }

// NodeCreated implements bookmarks.Subscriber.
func (p *Pipeline) NodeCreated(id string, node model.Node) {
	p.tracker.Created(id, node.IsFolder())
}

// NodeChanged implements bookmarks.Subscriber.
func (p *Pipeline) NodeChanged(id string, _ model.ChangeInfo) {
	p.tracker.Changed(id)
}

// NodeMoved implements bookmarks.Subscriber.
func (p *Pipeline) NodeMoved(id string, _ model.MoveInfo) {
	p.tracker.Moved(id)
}

// process categorizes and places one bookmark that survived its debounce.
func (p *Pipeline) process(id string) {
	ctx := context.Background()

	node, err := p.store.Get(ctx, id)
	if err != nil {
		slog.Error("organize: cannot load bookmark", "id", id, "err", err)
		p.resolved(Resolution{ID: id, Err: err})
		return
	}
	if node.IsFolder() {
		slog.Debug("organize: node is a folder, skipping", "id", id)
		p.resolved(Resolution{ID: id})
		return
	}

	category := p.gateway.ClassifyOne(ctx, node.Title, node.URL)
	slog.Info("organize: categorized", "id", id, "title", node.Title, "category", category)

	if err := p.placer.Place(ctx, id, category); err != nil {
		slog.Error("organize: placement failed", "id", id, "category", category, "err", err)
		p.resolved(Resolution{ID: id, Category: category, Err: err})
		return
	}
	p.resolved(Resolution{ID: id, Category: category, Placed: true})
}

// abandon reports a categorization cancelled by user interaction.
func (p *Pipeline) abandon(id string) {
	p.resolved(Resolution{ID: id})
}

func (p *Pipeline) resolved(r Resolution) {
	if p.OnResolved != nil {
		p.OnResolved(r)
	}
}
