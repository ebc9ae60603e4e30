package categorize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const systemPrompt = "You are an assistant that categorizes bookmarks into appropriate categories."

// buildSinglePrompt asks for a bare one-word category for one bookmark.
func buildSinglePrompt(title, url string) string {
	return fmt.Sprintf(`Categorize the following into a single, one-word category.

Title: %q
URL: %q

Provide only one word as the category (e.g., News, Sports, Technology) in English. Do not include any additional text, explanations, or formatting.`, title, url)
}

// buildBatchPrompt enumerates all items and asks for one line per item in the
// fixed "Bookmark <n>: <category>" format, in input order.
func buildBatchPrompt(items []Item) string {
	var b strings.Builder
	b.WriteString("Categorize each of the following bookmarks into a single, one-word category.\n\n")
	for i, item := range items {
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "Bookmark %d:\nTitle: %q\nURL: %q\n\n", i+1, title, item.URL)
	}
	b.WriteString("Respond with exactly one line per bookmark, in the same order, in the format:\n")
	b.WriteString("Bookmark <number>: <category>\n")
	b.WriteString("Do not include any additional text, explanations, or formatting.")
	return b.String()
}

var batchLineRe = regexp.MustCompile(`(?m)^\s*Bookmark\s+(\d+)\s*:\s*(\S.*?)\s*$`)

// parseBatchResponse extracts one category per item from the oracle's reply.
// The whole batch fails on a count mismatch, a duplicate index, or an index
// out of range; partial results are never accepted.
func parseBatchResponse(reply string, count int) ([]string, error) {
	matches := batchLineRe.FindAllStringSubmatch(reply, -1)
	if len(matches) != count {
		return nil, fmt.Errorf("%w: got %d lines, want %d", ErrCountMismatch, len(matches), count)
	}

	categories := make([]string, count)
	seen := make([]bool, count)
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > count {
			return nil, fmt.Errorf("%w: bookmark index %q out of range", ErrMalformedResponse, m[1])
		}
		if seen[n-1] {
			return nil, fmt.Errorf("%w: duplicate index %d", ErrMalformedResponse, n)
		}
		seen[n-1] = true
		categories[n-1] = strings.TrimSpace(m[2])
	}
	return categories, nil
}
