package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/query"
)

// Identity supplies the signed-in user and uploader profile
type Identity interface {
	User() *domain.User
	Uploader() *domain.Uploader
}

// ItemsSnapshot is a consistent copy of a dispatcher's state
type ItemsSnapshot struct {
	Variation Variation
	Items     []domain.ListItem
	Total     int
	Page      int
	Loading   bool
}

// Items fetches pages of one variation and holds the last result.
// Overlapping fetches are not cancelled; the last one to finish wins.
type Items struct {
	variation Variation
	strategy  strategy
	parentID  string
	records   domain.RecordRepository
	identity  Identity
	builder   *query.Builder
	perPage   int
	logger    *slog.Logger

	mu        sync.RWMutex
	items     []domain.ListItem
	total     int
	page      int
	loading   bool
}

func newItems(v Variation, parentID string, records domain.RecordRepository, identity Identity, builder *query.Builder, perPage int, logger *slog.Logger) (*Items, error) {
	strat, ok := variations[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariation, v)
	}
	if strat.needParent && parentID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingParent, v)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Items{
		variation: v,
		strategy:  strat,
		parentID:  parentID,
		records:   records,
		identity:  identity,
		builder:   builder,
		perPage:   perPage,
		page:      1,
		logger:    logger.With("variation", string(v)),
	}, nil
}

// Variation returns the dispatcher's variation
func (it *Items) Variation() Variation {
	return it.variation
}

// Items returns the current page of records
func (it *Items) Items() []domain.ListItem {
	it.mu.RLock()
	defer it.mu.RUnlock()
	out := make([]domain.ListItem, len(it.items))
	copy(out, it.items)
	return out
}

// Total returns the backend's total for the current query
func (it *Items) Total() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.total
}

// PageCount returns how many pages the current total spans, at least one
func (it *Items) PageCount() int {
	it.mu.RLock()
	defer it.mu.RUnlock()
	if it.perPage <= 0 || it.total <= it.perPage {
		return 1
	}
	return (it.total + it.perPage - 1) / it.perPage
}

// IsLoading reports whether a fetch is running
func (it *Items) IsLoading() bool {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.loading
}

// Snapshot returns the full state at once
func (it *Items) Snapshot() ItemsSnapshot {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.snapshotLocked()
}

func (it *Items) snapshotLocked() ItemsSnapshot {
	items := make([]domain.ListItem, len(it.items))
	copy(items, it.items)
	return ItemsSnapshot{
		Variation: it.variation,
		Items:     items,
		Total:     it.total,
		Page:      it.page,
		Loading:   it.loading,
	}
}

// Query returns the filter and sort a fetch would send right now
func (it *Items) Query() (filter, sort string, err error) {
	filter, sort = it.builder.Build(it.strategy.prefixed)
	if it.strategy.sort != "" {
		sort = it.strategy.sort
	}
	if it.strategy.clause == nil {
		return filter, sort, nil
	}

	clause, err := it.strategy.clause(it.scope())
	if err != nil {
		return "", "", err
	}
	if filter != "" {
		filter += "&&"
	}
	return filter + "(" + clause + ")", sort, nil
}

// Fetch loads one page. On failure the previous items stay in place and
// the error is returned.
func (it *Items) Fetch(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	filter, sort, err := it.Query()
	if err != nil {
		it.logger.Error("cannot build item query", "error", err)
		return err
	}

	it.setLoading(true)

	res, err := it.records.List(ctx, it.strategy.collection, page, it.perPage, domain.ListOptions{
		Sort:   sort,
		Filter: filter,
		Expand: it.strategy.expand,
	})
	if err != nil {
		it.logger.Error("error fetching records", "error", err, "page", page)
		it.setLoading(false)
		return err
	}

	items := make([]domain.ListItem, 0, len(res.Items))
	for _, raw := range res.Items {
		item, err := it.strategy.decode(raw)
		if err != nil {
			it.logger.Error("error decoding record", "error", err, "page", page)
			it.setLoading(false)
			return fmt.Errorf("decode %s record: %w", it.strategy.collection, err)
		}
		items = append(items, item)
	}

	it.mu.Lock()
	it.items = items
	it.total = res.TotalItems
	it.page = page
	it.loading = false
	it.mu.Unlock()

	it.logger.Debug("fetched records", "page", page, "count", len(items), "total", res.TotalItems)
	return nil
}

func (it *Items) setLoading(loading bool) {
	it.mu.Lock()
	it.loading = loading
	it.mu.Unlock()
}

func (it *Items) scope() scope {
	s := scope{parentID: it.parentID}
	if it.identity == nil {
		return s
	}
	if u := it.identity.User(); u != nil {
		s.userID = u.ID
	}
	if up := it.identity.Uploader(); up != nil {
		s.uploaderID = up.ID
	}
	return s
}
