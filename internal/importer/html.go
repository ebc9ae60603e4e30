// Package importer reads Netscape bookmark HTML exports into the store.
package importer

import (
	"context"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/tidymark/internal/bookmarks"
)

// Result counts what an import created.
type Result struct {
	Folders   int
	Bookmarks int
}

// ImportHTML parses Netscape bookmark HTML and creates the folders and
// bookmarks through the store, rooted under rootID. Creation goes through the
// normal store mutation path, so subscribers observe every imported node.
func ImportHTML(ctx context.Context, store bookmarks.Store, r io.Reader, rootID string) (Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, err
	}

	var result Result
	var createErr error

	// Track current folder stack for hierarchy; bottom is the import root.
	folderStack := []string{rootID}
	var pendingFolderID string // folder waiting to be pushed on next DL

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if createErr != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - get name from text content
				name := getTextContent(n)
				if name != "" {
					folder, err := store.Create(ctx, bookmarks.CreateParams{
						ParentID: folderStack[len(folderStack)-1],
						Title:    name,
					})
					if err != nil {
						createErr = err
						return
					}
					result.Folders++
					// Pushed when we see the folder's DL
					pendingFolderID = folder.ID
				}
				return // Don't recurse into H3

			case "a":
				// Bookmark definition
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				title := getTextContent(n)
				if title == "" {
					title = href // fallback to URL as title
				}

				_, err := store.Create(ctx, bookmarks.CreateParams{
					ParentID: folderStack[len(folderStack)-1],
					Title:    title,
					URL:      href,
				})
				if err != nil {
					createErr = err
					return
				}
				result.Bookmarks++
				return // Don't recurse into A

			case "dl":
				// Definition list - marks folder contents
				// If we have a pending folder, push it now
				pushedFolder := false
				if pendingFolderID != "" {
					folderStack = append(folderStack, pendingFolderID)
					pendingFolderID = ""
					pushedFolder = true
				}

				// Process children
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				// Pop if we pushed
				if pushedFolder && len(folderStack) > 1 {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		// Recurse into children
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return result, createErr
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
