package organize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/categorize"
	"github.com/nikbrunner/tidymark/internal/oracle"
)

var batchItemRe = regexp.MustCompile(`(?m)^Bookmark (\d+):$`)

// batchResponder answers any batch prompt with a well-formed reply and
// records how many bookmarks each prompt carried.
type batchResponder struct {
	mu    sync.Mutex
	sizes []int
}

func (r *batchResponder) respond(prompt string) (string, error) {
	count := len(batchItemRe.FindAllString(prompt, -1))
	r.mu.Lock()
	r.sizes = append(r.sizes, count)
	r.mu.Unlock()

	var b strings.Builder
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&b, "Bookmark %d: Technology\n", i)
	}
	return b.String(), nil
}

func (r *batchResponder) batchSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.sizes...)
}

func newBulkFixture(t *testing.T, respond func(string) (string, error), leaves int) (*bookmarks.MemStore, *Organizer) {
	t.Helper()
	store := bookmarks.NewSeededMemStore()
	ctx := context.Background()
	rootID := rootIDByTitle(t, store, bookmarks.RootTitleOther)
	for i := 0; i < leaves; i++ {
		_, err := store.Create(ctx, bookmarks.CreateParams{
			ParentID: rootID,
			Title:    fmt.Sprintf("bookmark %d", i),
			URL:      fmt.Sprintf("https://example.com/%d", i),
		})
		if err != nil {
			t.Fatalf("seed bookmark %d: %v", i, err)
		}
	}

	gateway := categorize.NewGateway(oracle.NewPool(oracle.NewStaticHost("bulk", respond)), categorize.Options{
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(gateway.Close)

	tracker := NewTracker(testDebounce, func(string) {}, nil)
	placer := NewPlacer(store, tracker)
	return store, NewOrganizer(store, gateway, placer, 0)
}

func TestOrganizeAll_BatchesInOrder(t *testing.T) {
	responder := &batchResponder{}
	store, organizer := newBulkFixture(t, responder.respond, 60)
	ctx := context.Background()

	report, err := organizer.OrganizeAll(ctx)
	if err != nil {
		t.Fatalf("organize all: %v", err)
	}
	if report.Total != 60 || report.Processed != 60 {
		t.Errorf("report = %+v, want 60/60", report)
	}
	if report.Duration < 0 {
		t.Errorf("negative duration %v", report.Duration)
	}

	want := []int{25, 25, 10}
	got := responder.batchSizes()
	if len(got) != len(want) {
		t.Fatalf("batch sizes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("batch sizes = %v, want %v", got, want)
		}
	}

	// Every leaf must now live under the Technology folder.
	rootID := rootIDByTitle(t, store, bookmarks.RootTitleBar)
	children, _ := store.GetChildren(ctx, rootID)
	var folderID string
	for _, c := range children {
		if c.IsFolder() && c.Title == "Technology" {
			folderID = c.ID
		}
	}
	if folderID == "" {
		t.Fatal("Technology folder missing")
	}
	moved, _ := store.GetChildren(ctx, folderID)
	if len(moved) != 60 {
		t.Errorf("folder holds %d bookmarks, want 60", len(moved))
	}
}

func TestOrganizeAll_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	respond := func(prompt string) (string, error) {
		once.Do(func() { close(started) })
		<-release
		return "Bookmark 1: News", nil
	}
	_, organizer := newBulkFixture(t, respond, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := organizer.OrganizeAll(ctx)
		done <- err
	}()

	<-started
	if !organizer.Running() {
		t.Error("Running() = false during a run")
	}
	if _, err := organizer.OrganizeAll(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if organizer.Running() {
		t.Error("Running() = true after the run finished")
	}
}

func TestOrganizeAll_EmptyTree(t *testing.T) {
	responder := &batchResponder{}
	_, organizer := newBulkFixture(t, responder.respond, 0)

	report, err := organizer.OrganizeAll(context.Background())
	if err != nil {
		t.Fatalf("organize all: %v", err)
	}
	if report.Total != 0 || report.Processed != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
	if len(responder.batchSizes()) != 0 {
		t.Errorf("oracle was called for an empty tree")
	}
}

func TestOrganizeAll_ContextCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	responder := &batchResponder{}
	respond := func(prompt string) (string, error) {
		reply, err := responder.respond(prompt)
		cancel() // stop before the next batch
		return reply, err
	}
	_, organizer := newBulkFixture(t, respond, 60)

	report, err := organizer.OrganizeAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Processed != 25 || report.Total != 60 {
		t.Errorf("report = %+v, want 25 processed of 60", report)
	}
}
