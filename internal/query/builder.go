package query

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
)

// Sort keys
const (
	SortRecent    = "-created"
	SortMostLiked = "-likes:length"
)

// DefaultPrefix is prepended to field references when querying a parent
// entity that embeds contents
const DefaultPrefix = "content."

// filterDateLayout is how date bounds appear inside filter literals
const filterDateLayout = "2006-01-02"

// dateInputLayouts are accepted for stored date range bounds
var dateInputLayouts = []string{
	time.RFC3339Nano,
	domain.DateTimeLayout,
	"2006-01-02 15:04:05",
	filterDateLayout,
}

// Builder turns the persisted filter state into a filter expression and sort
// key. It reads the preferences fresh on every call.
type Builder struct {
	prefs  domain.Preferences
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewBuilder creates a builder over prefs. An empty prefix uses DefaultPrefix.
func NewBuilder(prefs domain.Preferences, prefix string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Builder{
		prefs:  prefs,
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

// Build returns the filter expression and sort key for the current state.
// With prefixed set, every field reference carries the builder's prefix.
// Failures never surface: the offending clause is logged and left out.
func (b *Builder) Build(prefixed bool) (filter, sort string) {
	prefix := ""
	if prefixed {
		prefix = b.prefix
	}

	sel := b.selection()
	window, _ := b.prefs.GetPref(domain.PrefMostLikedMode)
	search, _ := b.prefs.GetPref(domain.PrefSearchValue)

	var clauses []string

	if window != "" {
		start, end, err := MostLikedWindow(window).Range(b.now())
		if err != nil {
			b.logger.Error("error handling date filters", "error", err)
		} else {
			clauses = append(clauses, dateClause(prefix, start, end))
		}
	} else if from, to, ok := sel.DateRange(); ok {
		if clause, err := b.rangeClause(prefix, from, to); err != nil {
			b.logger.Error("error handling date filters", "error", err)
		} else {
			clauses = append(clauses, clause)
		}
	}

	if search != "" {
		clauses = append(clauses, fmt.Sprintf(`%stitle~"%s"`, prefix, escape(search)))
	}

	for _, key := range sel.Keys() {
		if reservedCategories[key] {
			continue
		}
		var parts []string
		for _, v := range sel.Values(key) {
			if clause, ok := v.clause(prefix + key); ok {
				parts = append(parts, clause)
			}
		}
		if len(parts) > 0 {
			clauses = append(clauses, "("+strings.Join(parts, "||")+")")
		}
	}

	sort = SortRecent
	if sel.SortValue() == "liked" || window != "" {
		sort = SortMostLiked
	}

	return strings.Join(clauses, "&&"), sort
}

// selection loads the stored selection; a bad blob degrades to empty
func (b *Builder) selection() *Selection {
	raw, ok := b.prefs.GetPref(domain.PrefFilters)
	if !ok {
		return &Selection{}
	}
	sel, err := ParseSelection([]byte(raw))
	if err != nil {
		b.logger.Error("error parsing stored filters", "error", err)
		return &Selection{}
	}
	return sel
}

func (b *Builder) rangeClause(prefix, from, to string) (string, error) {
	loc := b.now().Location()
	start, err := parseDate(from, loc)
	if err != nil {
		return "", err
	}
	end, err := parseDate(to, loc)
	if err != nil {
		return "", err
	}
	return dateClause(prefix, startOfDay(start), endOfDay(end)), nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateInputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func dateClause(prefix string, start, end time.Time) string {
	return fmt.Sprintf("%screated>='%s 00:00:00'&&%screated<='%s 23:59:59'",
		prefix, start.Format(filterDateLayout),
		prefix, end.Format(filterDateLayout))
}
