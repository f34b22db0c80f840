package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/query"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	optionsTTL     = 5 * time.Minute
	optionsPerPage = 200
)

// optionCollections maps a filter category to the collection holding its choices
var optionCollections = map[string]string{
	query.CategoryIdol:     domain.CollectionIdols,
	query.CategoryGroup:    domain.CollectionGroups,
	query.CategoryTag:      domain.CollectionTags,
	query.CategoryUploader: domain.CollectionUploaders,
}

// Option is one selectable filter choice
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OptionCategories returns the categories whose choices live in a collection
func OptionCategories() []string {
	return []string{query.CategoryIdol, query.CategoryGroup, query.CategoryTag, query.CategoryUploader}
}

// Options loads and caches the choice lists of the filter categories
type Options struct {
	records domain.RecordRepository
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewOptions creates an option loader over records
func NewOptions(records domain.RecordRepository, logger *slog.Logger) *Options {
	if logger == nil {
		logger = slog.Default()
	}
	return &Options{
		records: records,
		cache:   cache.New(optionsTTL, 2*optionsTTL),
		logger:  logger,
	}
}

// LoadAll fetches every category concurrently
func (o *Options) LoadAll(ctx context.Context) (map[string][]Option, error) {
	categories := OptionCategories()
	results := make([][]Option, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			opts, err := o.List(gctx, category)
			if err != nil {
				return err
			}
			results[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]Option, len(categories))
	for i, category := range categories {
		out[category] = results[i]
	}
	return out, nil
}

// List returns the choices of one category, sorted by name
func (o *Options) List(ctx context.Context, category string) ([]Option, error) {
	collection, ok := optionCollections[category]
	if !ok {
		return nil, fmt.Errorf("category %q has no option list", category)
	}
	if cached, ok := o.cache.Get(category); ok {
		return cached.([]Option), nil
	}

	var opts []Option
	for page := 1; ; page++ {
		res, err := o.records.List(ctx, collection, page, optionsPerPage, domain.ListOptions{Sort: "name"})
		if err != nil {
			o.logger.Error("error fetching filter options", "error", err, "category", category)
			return nil, err
		}
		for _, raw := range res.Items {
			var opt Option
			if err := json.Unmarshal(raw, &opt); err != nil {
				return nil, fmt.Errorf("decode %s option: %w", category, err)
			}
			if opt.Name != "" {
				opts = append(opts, opt)
			}
		}
		if page >= res.TotalPages || len(res.Items) == 0 {
			break
		}
	}

	sort.SliceStable(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Name) < strings.ToLower(opts[j].Name)
	})
	o.cache.Set(category, opts, cache.DefaultExpiration)
	return opts, nil
}

// Resolve finds the choice best matching input. An exact case-insensitive
// match wins; otherwise the closest fuzzy match is returned.
func (o *Options) Resolve(ctx context.Context, category, input string) (Option, error) {
	opts, err := o.List(ctx, category)
	if err != nil {
		return Option{}, err
	}
	for _, opt := range opts {
		if strings.EqualFold(opt.Name, input) {
			return opt, nil
		}
	}

	names := make([]string, len(opts))
	for i, opt := range opts {
		names[i] = opt.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(input, names)
	if len(ranks) == 0 {
		return Option{}, fmt.Errorf("%w: no %s matching %q", domain.ErrNotFound, category, input)
	}
	sort.Sort(ranks)
	return opts[ranks[0].OriginalIndex], nil
}

// Invalidate drops cached choices
func (o *Options) Invalidate() {
	o.cache.Flush()
}
