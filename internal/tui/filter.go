package tui

import (
	"strings"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/sahilm/fuzzy"
)

// titleIndex implements sahilm/fuzzy.Source over the titles of one page
type titleIndex struct {
	lowerTitles []string
}

func newTitleIndex(items []domain.ListItem) *titleIndex {
	idx := &titleIndex{lowerTitles: make([]string, len(items))}
	for i, item := range items {
		idx.lowerTitles[i] = strings.ToLower(item.GetTitle())
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *titleIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of titles (implements fuzzy.Source)
func (idx *titleIndex) Len() int { return len(idx.lowerTitles) }

// filterIndexes returns the indexes of items matching query, best first.
// An empty query returns nil, meaning no filter.
func filterIndexes(items []domain.ListItem, query string) []int {
	if query == "" {
		return nil
	}
	matches := fuzzy.FindFrom(strings.ToLower(query), newTitleIndex(items))
	out := make([]int, len(matches))
	for i, match := range matches {
		out[i] = match.Index
	}
	return out
}
