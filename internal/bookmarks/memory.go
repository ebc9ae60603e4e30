package bookmarks

import (
	"context"
	"sync"

	"github.com/nikbrunner/tidymark/internal/model"
)

// MemStore is an in-memory Store used by tests and ephemeral runs.
type MemStore struct {
	notifier

	mu    sync.Mutex
	nodes map[string]model.Node
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]model.Node)}
}

// NewSeededMemStore creates a MemStore with the two browser-style roots.
func NewSeededMemStore() *MemStore {
	s := NewMemStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, CreateParams{Title: RootTitleBar})
	_, _ = s.Create(ctx, CreateParams{Title: RootTitleOther})
	return s
}

// Get returns the node with the given id.
func (s *MemStore) Get(_ context.Context, id string) (model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[id]
	if !ok {
		return model.Node{}, ErrNotFound
	}
	return node, nil
}

// GetChildren returns the direct children of a folder, ordered by position.
func (s *MemStore) GetChildren(_ context.Context, folderID string) ([]model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if folderID != "" {
		parent, ok := s.nodes[folderID]
		if !ok {
			return nil, ErrNotFound
		}
		if !parent.IsFolder() {
			return nil, ErrNotFolder
		}
	}
	return s.childrenLocked(folderID), nil
}

// GetTree returns the full forest of top-level roots.
func (s *MemStore) GetTree(_ context.Context) ([]model.TreeNode, error) {
	s.mu.Lock()
	all := make([]model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		all = append(all, n)
	}
	s.mu.Unlock()
	return BuildTree(all), nil
}

// Create inserts a new node and notifies subscribers.
func (s *MemStore) Create(_ context.Context, params CreateParams) (model.Node, error) {
	s.mu.Lock()
	if params.ParentID != "" {
		parent, ok := s.nodes[params.ParentID]
		if !ok {
			s.mu.Unlock()
			return model.Node{}, ErrNotFound
		}
		if !parent.IsFolder() {
			s.mu.Unlock()
			return model.Node{}, ErrNotFolder
		}
	}

	node := model.NewNode(model.NewNodeParams{
		ParentID: params.ParentID,
		Title:    params.Title,
		URL:      params.URL,
	})
	node.Position = len(s.childrenLocked(params.ParentID))
	s.nodes[node.ID] = node
	s.mu.Unlock()

	s.emitCreated(node.ID, node)
	return node, nil
}

// Update edits a node's title and, for leaf bookmarks, its URL.
func (s *MemStore) Update(_ context.Context, id string, info model.ChangeInfo) error {
	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	node.Title = info.Title
	if !node.IsFolder() && info.URL != "" {
		node.URL = info.URL
	}
	s.nodes[id] = node
	s.mu.Unlock()

	s.emitChanged(id, model.ChangeInfo{Title: node.Title, URL: node.URL})
	return nil
}

// Move re-parents a node and notifies subscribers.
func (s *MemStore) Move(_ context.Context, id, parentID string) error {
	s.mu.Lock()
	node, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if parentID != "" {
		parent, ok := s.nodes[parentID]
		if !ok {
			s.mu.Unlock()
			return ErrNotFound
		}
		if !parent.IsFolder() {
			s.mu.Unlock()
			return ErrNotFolder
		}
	}

	oldParent := node.ParentID
	node.ParentID = parentID
	node.Position = len(s.childrenLocked(parentID))
	s.nodes[id] = node
	s.mu.Unlock()

	s.emitMoved(id, model.MoveInfo{ParentID: parentID, OldParentID: oldParent})
	return nil
}

// childrenLocked returns the ordered children of a parent. Caller holds mu.
func (s *MemStore) childrenLocked(parentID string) []model.Node {
	var out []model.Node
	for _, n := range s.nodes {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	sortByPosition(out)
	return out
}
