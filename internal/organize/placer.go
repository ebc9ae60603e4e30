package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
	"github.com/nikbrunner/tidymark/internal/model"
)

// ErrNoRootFolder means no top-level folder qualified as the category root.
var ErrNoRootFolder = errors.New("organize: no root folder found")

// MoveGuard marks moves as system-initiated so the event handlers can tell
// them apart from user moves. The Tracker implements it.
type MoveGuard interface {
	BeginMove(id string)
	EndMove(id string)
}

// Placer moves bookmarks into category folders under the designated root.
type Placer struct {
	store bookmarks.Store
	guard MoveGuard
}

// NewPlacer creates a Placer over the store. guard may not be nil.
func NewPlacer(store bookmarks.Store, guard MoveGuard) *Placer {
	return &Placer{store: store, guard: guard}
}

// Place finds or creates the category folder under the root and moves the
// bookmark there. Folder lookup is search-before-create, so repeated calls
// reuse one folder; it is not atomic against concurrent external creation.
func (p *Placer) Place(ctx context.Context, id, category string) error {
	rootID, err := p.resolveRoot(ctx)
	if err != nil {
		return err
	}

	folderID, err := p.findOrCreateFolder(ctx, rootID, category)
	if err != nil {
		return fmt.Errorf("resolve category folder %q: %w", category, err)
	}

	// The deferred EndMove guarantees cleanup on every exit path, panics
	// included; the suppression window stays as narrow as the move itself.
	err = func() error {
		p.guard.BeginMove(id)
		defer p.guard.EndMove(id)
		return p.store.Move(ctx, id, folderID)
	}()
	if err != nil {
		return fmt.Errorf("move %s into %q: %w", id, category, err)
	}

	// Observability check only; a mismatch is logged, never an error.
	moved, err := p.store.Get(ctx, id)
	switch {
	case err != nil:
		slog.Warn("organize: could not verify move", "id", id, "err", err)
	case moved.ParentID != folderID:
		slog.Warn("organize: bookmark not under expected folder",
			"id", id, "parent", moved.ParentID, "want", folderID)
	default:
		slog.Debug("organize: bookmark placed", "id", id, "category", category)
	}
	return nil
}

// resolveRoot returns the id of the first top-level folder named
// "Bookmarks Bar" or "Other Bookmarks".
func (p *Placer) resolveRoot(ctx context.Context) (string, error) {
	roots, err := p.store.GetChildren(ctx, "")
	if err != nil {
		return "", fmt.Errorf("list roots: %w", err)
	}
	for _, node := range roots {
		if !node.IsFolder() {
			continue
		}
		if node.Title == bookmarks.RootTitleBar || node.Title == bookmarks.RootTitleOther {
			return node.ID, nil
		}
	}
	return "", ErrNoRootFolder
}

// findOrCreateFolder returns the id of the folder child of rootID titled
// category, creating it when absent.
func (p *Placer) findOrCreateFolder(ctx context.Context, rootID, category string) (string, error) {
	children, err := p.store.GetChildren(ctx, rootID)
	if err != nil {
		return "", err
	}
	for _, child := range children {
		if child.IsFolder() && child.Title == category {
			return child.ID, nil
		}
	}

	folder, err := p.store.Create(ctx, bookmarks.CreateParams{
		ParentID: rootID,
		Title:    category,
	})
	if err != nil {
		return "", err
	}
	slog.Info("organize: created category folder", "category", category, "id", folder.ID)
	return folder.ID, nil
}

// leafNodes flattens a bookmark forest into its ordered leaf bookmarks.
func leafNodes(forest []model.TreeNode) []model.Node {
	var out []model.Node
	var walk func(nodes []model.TreeNode)
	walk = func(nodes []model.TreeNode) {
		for _, n := range nodes {
			if len(n.Children) > 0 || n.IsFolder() {
				walk(n.Children)
				continue
			}
			out = append(out, n.Node)
		}
	}
	walk(forest)
	return out
}
