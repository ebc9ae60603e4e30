package model

import "time"

// Node represents a single entry in the bookmark tree. A node with a URL is a
// leaf bookmark; a node without one is a folder.
type Node struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId"` // empty = top-level root
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsFolder reports whether the node is a folder rather than a leaf bookmark.
func (n Node) IsFolder() bool {
	return n.URL == ""
}

// NewNodeParams holds parameters for creating a new Node.
type NewNodeParams struct {
	ParentID string
	Title    string
	URL      string
}

// NewNode creates a Node with a generated UUID and creation timestamp.
// Position is assigned by the store when the node is persisted.
func NewNode(params NewNodeParams) Node {
	return Node{
		ID:        generateUUID(),
		ParentID:  params.ParentID,
		Title:     params.Title,
		URL:       params.URL,
		CreatedAt: time.Now(),
	}
}

// TreeNode is a Node together with its resolved children, as returned by
// Store.GetTree. Children are ordered by position.
type TreeNode struct {
	Node
	Children []TreeNode `json:"children,omitempty"`
}
