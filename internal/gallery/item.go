package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/query"
)

const expandItem = "idol,group,uploader,tag,set,collections,likes"

// ItemFetcher loads a single content with its full expansion
type ItemFetcher struct {
	records domain.RecordRepository
	logger  *slog.Logger

	mu      sync.RWMutex
	item    *domain.ContentItem
	loading bool
}

// NewItemFetcher creates a fetcher over records
func NewItemFetcher(records domain.RecordRepository, logger *slog.Logger) *ItemFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemFetcher{records: records, logger: logger}
}

// Fetch loads the content with id. On failure the previous item is kept.
func (f *ItemFetcher) Fetch(ctx context.Context, id string) error {
	f.mu.Lock()
	f.loading = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()

	raw, err := f.records.GetOne(ctx, domain.CollectionContents, id, domain.ListOptions{
		Sort:   query.SortRecent,
		Expand: expandItem,
	})
	if err != nil {
		f.logger.Error("error fetching record", "error", err, "id", id)
		return err
	}

	var item domain.ContentItem
	if err := json.Unmarshal(raw, &item); err != nil {
		f.logger.Error("error decoding record", "error", err, "id", id)
		return fmt.Errorf("decode content %s: %w", id, err)
	}

	f.mu.Lock()
	f.item = &item
	f.mu.Unlock()
	return nil
}

// Item returns the last fetched content, or nil
func (f *ItemFetcher) Item() *domain.ContentItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.item
}

// IsLoading reports whether a fetch is running
func (f *ItemFetcher) IsLoading() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loading
}

var plainText = bluemonday.StrictPolicy()

// PlainDescription renders a rich-text description as terminal text
func PlainDescription(item *domain.ContentItem) string {
	if item == nil || item.Description == "" {
		return ""
	}
	desc := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(item.Description)
	desc = html.UnescapeString(plainText.Sanitize(desc))
	return strings.TrimSpace(desc)
}
