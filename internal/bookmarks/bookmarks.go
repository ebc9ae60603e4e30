// Package bookmarks defines the bookmark store contract the organizer runs
// against, plus the SQLite and in-memory backends implementing it.
package bookmarks

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nikbrunner/tidymark/internal/model"
)

// Titles of the browser-style top-level roots seeded into a fresh store.
const (
	RootTitleBar   = "Bookmarks Bar"
	RootTitleOther = "Other Bookmarks"
)

var (
	ErrNotFound  = errors.New("bookmarks: node not found")
	ErrNotFolder = errors.New("bookmarks: node is not a folder")
)

// CreateParams holds parameters for creating a node. An empty URL creates a
// folder; an empty ParentID creates a top-level root.
type CreateParams struct {
	ParentID string
	Title    string
	URL      string
}

// Subscriber receives change notifications from a Store. Notifications fire
// synchronously after the mutation has committed, in the mutating call.
type Subscriber interface {
	NodeCreated(id string, node model.Node)
	NodeChanged(id string, info model.ChangeInfo)
	NodeMoved(id string, info model.MoveInfo)
}

// Store is the bookmark ownership authority. The organizer only reads nodes
// and moves them; creation and deletion of leaf bookmarks happen elsewhere.
type Store interface {
	Get(ctx context.Context, id string) (model.Node, error)
	GetChildren(ctx context.Context, folderID string) ([]model.Node, error)
	GetTree(ctx context.Context) ([]model.TreeNode, error)
	Create(ctx context.Context, params CreateParams) (model.Node, error)
	Update(ctx context.Context, id string, info model.ChangeInfo) error
	Move(ctx context.Context, id, parentID string) error
	Subscribe(sub Subscriber)
}

// notifier fans mutations out to subscribers. Embedded by the backends.
type notifier struct {
	mu   sync.RWMutex
	subs []Subscriber
}

func (n *notifier) Subscribe(sub Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, sub)
}

func (n *notifier) emitCreated(id string, node model.Node) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, s := range subs {
		s.NodeCreated(id, node)
	}
}

func (n *notifier) emitChanged(id string, info model.ChangeInfo) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, s := range subs {
		s.NodeChanged(id, info)
	}
}

func (n *notifier) emitMoved(id string, info model.MoveInfo) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()
	for _, s := range subs {
		s.NodeMoved(id, info)
	}
}

// BuildTree assembles a forest from a flat node list. Children are ordered by
// position; top-level roots are the nodes with an empty parent.
func BuildTree(nodes []model.Node) []model.TreeNode {
	byParent := make(map[string][]model.Node)
	for _, n := range nodes {
		byParent[n.ParentID] = append(byParent[n.ParentID], n)
	}
	for _, siblings := range byParent {
		sortByPosition(siblings)
	}

	var build func(parentID string) []model.TreeNode
	build = func(parentID string) []model.TreeNode {
		children := byParent[parentID]
		if len(children) == 0 {
			return nil
		}
		out := make([]model.TreeNode, 0, len(children))
		for _, c := range children {
			out = append(out, model.TreeNode{Node: c, Children: build(c.ID)})
		}
		return out
	}
	return build("")
}

func sortByPosition(nodes []model.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Position < nodes[j].Position
	})
}
