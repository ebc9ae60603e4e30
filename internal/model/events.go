package model

// ChangeInfo describes an edit to a node's title or URL.
type ChangeInfo struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// MoveInfo describes a node being re-parented.
type MoveInfo struct {
	ParentID    string `json:"parentId"`
	OldParentID string `json:"oldParentId"`
}
