package model

import "testing"

func TestNode_IsFolder(t *testing.T) {
	if !(Node{Title: "Development"}).IsFolder() {
		t.Error("node without URL should be a folder")
	}
	if (Node{Title: "GitHub", URL: "https://github.com"}).IsFolder() {
		t.Error("node with URL should be a leaf bookmark")
	}
}

func TestNewNode(t *testing.T) {
	a := NewNode(NewNodeParams{ParentID: "p1", Title: "Go Docs", URL: "https://go.dev/doc"})
	b := NewNode(NewNodeParams{Title: "Stuff"})

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated ids")
	}
	if a.ID == b.ID {
		t.Error("ids should be unique")
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected creation timestamp")
	}
	if a.ParentID != "p1" || a.Title != "Go Docs" || a.URL != "https://go.dev/doc" {
		t.Errorf("node = %+v", a)
	}
	if !b.IsFolder() {
		t.Error("empty URL should produce a folder")
	}
}
