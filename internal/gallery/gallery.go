// Package gallery is the client core: listing, single-item reads, like
// toggling, the auth session and filter choice lists.
package gallery

import (
	"log/slog"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/query"
)

// DefaultPageSize is used when no page size is configured
const DefaultPageSize = 20

// Config holds the settings the core reads
type Config struct {
	PageSize     int
	FilterPrefix string
}

// Gallery bundles the backend, local preferences and the auth session.
// One is created at startup and handed to every surface.
type Gallery struct {
	backend  domain.Backend
	prefs    domain.Preferences
	session  *Session
	builder  *query.Builder
	options  *Options
	notifier domain.Notifier
	pageSize int
	logger   *slog.Logger
}

// New creates the core. The session is seeded from the backend immediately.
func New(backend domain.Backend, prefs domain.Preferences, cfg Config, notifier domain.Notifier, logger *slog.Logger) *Gallery {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = domain.NoOpNotifier{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Gallery{
		backend:  backend,
		prefs:    prefs,
		session:  NewSession(backend, backend, logger),
		builder:  query.NewBuilder(prefs, cfg.FilterPrefix, logger),
		options:  NewOptions(backend, logger),
		notifier: notifier,
		pageSize: cfg.PageSize,
		logger:   logger,
	}
}

// Session returns the auth session
func (g *Gallery) Session() *Session {
	return g.session
}

// Options returns the filter choice loader
func (g *Gallery) Options() *Options {
	return g.options
}

// Preferences returns the local preference store
func (g *Gallery) Preferences() domain.Preferences {
	return g.prefs
}

// Items creates a dispatcher for v. parentID is required for the set and
// collection content variations and ignored otherwise.
func (g *Gallery) Items(v Variation, parentID string) (*Items, error) {
	return newItems(v, parentID, g.backend, g.session, g.builder, g.pageSize, g.logger)
}

// ItemFetcher creates a single-content fetcher
func (g *Gallery) ItemFetcher() *ItemFetcher {
	return NewItemFetcher(g.backend, g.logger)
}

// Liker creates a like toggle bound to item and initializes it
func (g *Gallery) Liker(item *domain.ContentItem) *Liker {
	l := NewLiker(item, g.backend, g.session, g.notifier, g.logger)
	l.Initialize()
	return l
}
