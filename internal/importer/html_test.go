package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/importer"
	"github.com/nikbrunner/tidymark/internal/model"
)

func importInto(t *testing.T, doc string) (*bookmarks.MemStore, string, importer.Result) {
	t.Helper()
	store := bookmarks.NewSeededMemStore()
	ctx := context.Background()

	roots, err := store.GetChildren(ctx, "")
	if err != nil {
		t.Fatalf("list roots: %v", err)
	}
	var rootID string
	for _, r := range roots {
		if r.Title == bookmarks.RootTitleOther {
			rootID = r.ID
		}
	}
	if rootID == "" {
		t.Fatal("seeded root missing")
	}

	result, err := importer.ImportHTML(ctx, store, strings.NewReader(doc), rootID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store, rootID, result
}

func childByTitle(t *testing.T, store bookmarks.Store, parentID, title string) model.Node {
	t.Helper()
	children, err := store.GetChildren(context.Background(), parentID)
	if err != nil {
		t.Fatalf("get children of %q: %v", parentID, err)
	}
	for _, c := range children {
		if c.Title == title {
			return c
		}
	}
	t.Fatalf("node %q not found under %q", title, parentID)
	return model.Node{}
}

func TestImportHTML_SingleBookmark(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://example.com" ADD_DATE="1234567890">Example Site</A>
</DL><p>`

	store, rootID, result := importInto(t, doc)

	if result.Folders != 0 {
		t.Errorf("expected 0 folders, got %d", result.Folders)
	}
	if result.Bookmarks != 1 {
		t.Fatalf("expected 1 bookmark, got %d", result.Bookmarks)
	}

	node := childByTitle(t, store, rootID, "Example Site")
	if node.URL != "https://example.com" {
		t.Errorf("expected URL 'https://example.com', got %q", node.URL)
	}
	if node.IsFolder() {
		t.Error("expected a leaf bookmark, got a folder")
	}
}

func TestImportHTML_NestedFolders(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3 ADD_DATE="1234567890">Development</H3>
    <DL><p>
        <DT><H3 ADD_DATE="1234567890">React</H3>
        <DL><p>
            <DT><A HREF="https://react.dev" ADD_DATE="1234567890">React Docs</A>
        </DL><p>
        <DT><A HREF="https://github.com" ADD_DATE="1234567890">GitHub</A>
    </DL><p>
    <DT><A HREF="https://google.com" ADD_DATE="1234567890">Google</A>
</DL><p>`

	store, rootID, result := importInto(t, doc)

	if result.Folders != 2 {
		t.Fatalf("expected 2 folders, got %d", result.Folders)
	}
	if result.Bookmarks != 3 {
		t.Fatalf("expected 3 bookmarks, got %d", result.Bookmarks)
	}

	dev := childByTitle(t, store, rootID, "Development")
	if !dev.IsFolder() {
		t.Fatal("Development should be a folder")
	}
	react := childByTitle(t, store, dev.ID, "React")
	if !react.IsFolder() {
		t.Fatal("React should be a folder")
	}

	if n := childByTitle(t, store, react.ID, "React Docs"); n.URL != "https://react.dev" {
		t.Errorf("React Docs URL = %q", n.URL)
	}
	childByTitle(t, store, dev.ID, "GitHub")
	childByTitle(t, store, rootID, "Google")
}

func TestImportHTML_EmptyFile(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
</DL><p>`

	_, _, result := importInto(t, doc)

	if result.Folders != 0 || result.Bookmarks != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestImportHTML_MissingHref(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A ADD_DATE="1234567890">No URL</A>
    <DT><A HREF="https://valid.com" ADD_DATE="1234567890">Valid</A>
</DL><p>`

	store, rootID, result := importInto(t, doc)

	// The anchor without HREF is skipped, the valid one kept.
	if result.Bookmarks != 1 {
		t.Fatalf("expected 1 bookmark (skip missing href), got %d", result.Bookmarks)
	}
	childByTitle(t, store, rootID, "Valid")
}

func TestImportHTML_UntitledBookmarkFallsBackToURL(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><A HREF="https://example.com/page"></A>
</DL><p>`

	store, rootID, result := importInto(t, doc)

	if result.Bookmarks != 1 {
		t.Fatalf("expected 1 bookmark, got %d", result.Bookmarks)
	}
	node := childByTitle(t, store, rootID, "https://example.com/page")
	if node.URL != "https://example.com/page" {
		t.Errorf("URL = %q", node.URL)
	}
}

func TestImportHTML_SubscribersObserveImports(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<DL><p>
    <DT><H3>Stuff</H3>
    <DL><p>
        <DT><A HREF="https://example.com">Example</A>
    </DL><p>
</DL><p>`

	store := bookmarks.NewSeededMemStore()
	ctx := context.Background()
	roots, _ := store.GetChildren(ctx, "")

	sub := &countingSubscriber{}
	store.Subscribe(sub)

	if _, err := importer.ImportHTML(ctx, store, strings.NewReader(doc), roots[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.created != 2 {
		t.Errorf("subscriber saw %d creations, want 2", sub.created)
	}
}

type countingSubscriber struct {
	created int
}

func (s *countingSubscriber) NodeCreated(string, model.Node) { s.created++ }

func (s *countingSubscriber) NodeChanged(string, model.ChangeInfo) {}

func (s *countingSubscriber) NodeMoved(string, model.MoveInfo) {}
