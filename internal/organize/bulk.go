package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/categorize"
)

// DefaultBatchSize is how many bookmarks go into one classification request.
const DefaultBatchSize = 25

// ErrAlreadyRunning rejects a bulk run while another is in flight.
var ErrAlreadyRunning = errors.New("organize: bulk run already in progress")

// Report summarizes a completed bulk run.
type Report struct {
	Processed int // successfully placed
	Total     int // leaf bookmarks found
	Duration  time.Duration
}

// Organizer re-categorizes every leaf bookmark in the store, batch by batch.
// Batches run strictly in order; a faulty batch is logged and skipped, never
// fatal to the run. Only one run may be in flight at a time.
type Organizer struct {
	store     bookmarks.Store
	gateway   *categorize.Gateway
	placer    *Placer
	batchSize int
	running   atomic.Bool
}

// NewOrganizer creates an Organizer. batchSize <= 0 takes the default.
func NewOrganizer(store bookmarks.Store, gateway *categorize.Gateway, placer *Placer, batchSize int) *Organizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Organizer{
		store:     store,
		gateway:   gateway,
		placer:    placer,
		batchSize: batchSize,
	}
}

// Running reports whether a bulk run is in flight.
func (o *Organizer) Running() bool {
	return o.running.Load()
}

// OrganizeAll traverses the whole tree and re-categorizes every leaf
// bookmark. It returns ErrAlreadyRunning when called concurrently with
// itself and otherwise only fails when the tree cannot be read at all or the
// context ends mid-run.
func (o *Organizer) OrganizeAll(ctx context.Context) (Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	start := time.Now()
	slog.Info("organize: starting bulk run")

	forest, err := o.store.GetTree(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load bookmark tree: %w", err)
	}
	leaves := leafNodes(forest)
	total := len(leaves)
	processed := 0

	for offset := 0; offset < total; offset += o.batchSize {
		if err := ctx.Err(); err != nil {
			return Report{Processed: processed, Total: total, Duration: time.Since(start)}, err
		}

		end := offset + o.batchSize
		if end > total {
			end = total
		}
		batch := leaves[offset:end]

		items := make([]categorize.Item, len(batch))
		for i, node := range batch {
			items[i] = categorize.Item{Title: node.Title, URL: node.URL}
		}

		categories := o.gateway.ClassifyMany(ctx, items)
		for i, node := range batch {
			if err := o.placer.Place(ctx, node.ID, categories[i]); err != nil {
				slog.Error("organize: bulk placement failed",
					"id", node.ID, "category", categories[i], "err", err)
				continue
			}
			processed++
		}
		slog.Info("organize: batch done", "processed", processed, "total", total)
	}

	report := Report{Processed: processed, Total: total, Duration: time.Since(start)}
	slog.Info("organize: bulk run finished",
		"processed", report.Processed, "total", report.Total, "duration", report.Duration)
	return report, nil
}
