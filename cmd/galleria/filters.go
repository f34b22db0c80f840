package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
	"github.com/mmcdole/galleria/internal/query"
)

const dateArgLayout = "2006-01-02"

func cmdFilter(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	sub, rest := args[0], args[1:]

	prefs, err := a.prefs()
	if err != nil {
		return err
	}

	if sub == "options" {
		return printOptions(ctx, a, rest)
	}

	sel, err := loadSelection(prefs)
	if err != nil {
		if sub == "clear" && len(rest) == 0 {
			// A blob that no longer parses can still be dropped
			return prefs.DeletePref(domain.PrefFilters)
		}
		return fmt.Errorf("%w; run 'galleria filter clear' to reset", err)
	}

	switch sub {
	case "show":
		printSelection(a, sel, prefs)
		return nil

	case "add":
		if len(rest) < 2 {
			return errors.New("usage: filter add <idol|group|tag|uploader|filetype> <value>")
		}
		value, err := filterValue(ctx, a, rest[0], joinArgs(rest[1:]))
		if err != nil {
			return err
		}
		if err := sel.Add(rest[0], value); err != nil {
			return err
		}
		a.printf("Added %s %q\n", rest[0], value.Label())

	case "remove":
		if len(rest) < 2 {
			return errors.New("usage: filter remove <category> <value>")
		}
		if err := sel.Remove(rest[0], joinArgs(rest[1:])); err != nil {
			return err
		}
		a.printf("Removed %s %q\n", rest[0], joinArgs(rest[1:]))

	case "clear":
		category := joinArgs(rest)
		sel.Clear(category)
		if category == "" {
			a.printf("Cleared all filters\n")
		} else {
			a.printf("Cleared %s\n", category)
		}

	case "sort":
		if len(rest) != 1 || (rest[0] != "recent" && rest[0] != "liked") {
			return errors.New("usage: filter sort recent|liked")
		}
		if err := sel.SetSort(rest[0]); err != nil {
			return err
		}
		a.printf("Sorting by %s\n", rest[0])

	case "date":
		if len(rest) == 1 && rest[0] == "off" {
			sel.Clear(query.CategoryDate)
			a.printf("Cleared date range\n")
			break
		}
		if len(rest) != 2 {
			return errors.New("usage: filter date <from YYYY-MM-DD> <to YYYY-MM-DD> | off")
		}
		from, err := time.Parse(dateArgLayout, rest[0])
		if err != nil {
			return fmt.Errorf("invalid from date %q", rest[0])
		}
		to, err := time.Parse(dateArgLayout, rest[1])
		if err != nil {
			return fmt.Errorf("invalid to date %q", rest[1])
		}
		if to.Before(from) {
			return errors.New("the range ends before it starts")
		}
		if err := sel.SetDateRange(rest[0], rest[1]); err != nil {
			return err
		}
		a.printf("Date range %s to %s\n", rest[0], rest[1])

	default:
		return fmt.Errorf("unknown filter command %q", sub)
	}

	return saveSelection(prefs, sel)
}

// filterValue turns user input into a stored value. Categories backed by a
// collection are resolved to the closest existing name.
func filterValue(ctx context.Context, a *app, category, input string) (query.FilterValue, error) {
	switch category {
	case query.CategoryFiletype:
		return query.FilterValue{Code: input}, nil
	case query.CategoryIdol, query.CategoryGroup, query.CategoryTag, query.CategoryUploader:
		g, err := a.connect(nil)
		if err != nil {
			return query.FilterValue{}, err
		}
		opt, err := g.Options().Resolve(ctx, category, input)
		if err != nil {
			return query.FilterValue{}, err
		}
		return query.FilterValue{Name: opt.Name}, nil
	}
	return query.FilterValue{}, fmt.Errorf("unknown filter category %q", category)
}

func printOptions(ctx context.Context, a *app, args []string) error {
	g, err := a.connect(nil)
	if err != nil {
		return err
	}

	if category := joinArgs(args); category != "" {
		opts, err := g.Options().List(ctx, category)
		if err != nil {
			return err
		}
		for _, opt := range opts {
			a.printf("%s\n", opt.Name)
		}
		return nil
	}

	all, err := g.Options().LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, category := range gallery.OptionCategories() {
		names := make([]string, len(all[category]))
		for i, opt := range all[category] {
			names[i] = opt.Name
		}
		a.printf("%s (%d): %s\n", category, len(names), strings.Join(names, ", "))
	}
	return nil
}

func loadSelection(prefs domain.Preferences) (*query.Selection, error) {
	raw, _ := prefs.GetPref(domain.PrefFilters)
	return query.ParseSelection([]byte(raw))
}

func saveSelection(prefs domain.Preferences, sel *query.Selection) error {
	if sel.IsEmpty() {
		return prefs.DeletePref(domain.PrefFilters)
	}
	data, err := sel.MarshalJSON()
	if err != nil {
		return err
	}
	return prefs.SetPref(domain.PrefFilters, string(data))
}

func printSelection(a *app, sel *query.Selection, prefs domain.Preferences) {
	empty := true
	for _, key := range sel.Keys() {
		switch key {
		case query.CategorySort:
			if v := sel.SortValue(); v != "" {
				a.printf("sort: %s\n", v)
				empty = false
			}
		case query.CategoryDate:
			if from, to, ok := sel.DateRange(); ok {
				a.printf("date: %s to %s\n", from, to)
				empty = false
			}
		case query.CategoryDateMode:
		default:
			values := sel.Values(key)
			if len(values) == 0 {
				continue
			}
			labels := make([]string, len(values))
			for i, v := range values {
				labels[i] = v.Label()
			}
			a.printf("%s: %s\n", key, strings.Join(labels, ", "))
			empty = false
		}
	}
	if search, ok := prefs.GetPref(domain.PrefSearchValue); ok && search != "" {
		a.printf("search: %s\n", search)
		empty = false
	}
	if window, ok := prefs.GetPref(domain.PrefMostLikedMode); ok && window != "" {
		a.printf("most liked: %s\n", window)
		empty = false
	}
	if empty {
		a.printf("No filters\n")
	}
}

func cmdSearch(_ context.Context, a *app, args []string) error {
	prefs, err := a.prefs()
	if err != nil {
		return err
	}
	term := joinArgs(args)
	if term == "" {
		if err := prefs.DeletePref(domain.PrefSearchValue); err != nil {
			return err
		}
		a.printf("Search cleared\n")
		return nil
	}
	if err := prefs.SetPref(domain.PrefSearchValue, term); err != nil {
		return err
	}
	a.printf("Searching titles for %q\n", term)
	return nil
}

func cmdMostLiked(_ context.Context, a *app, args []string) error {
	prefs, err := a.prefs()
	if err != nil {
		return err
	}

	window := joinArgs(args)
	switch window {
	case "":
		current, _ := prefs.GetPref(domain.PrefMostLikedMode)
		if current == "" {
			current = "off"
		}
		names := make([]string, 0, len(query.Windows()))
		for _, w := range query.Windows() {
			names = append(names, string(w))
		}
		a.printf("most liked: %s (choices: %s, off)\n", current, strings.Join(names, ", "))
		return nil
	case "off":
		if err := prefs.DeletePref(domain.PrefMostLikedMode); err != nil {
			return err
		}
		a.printf("Most liked window off\n")
		return nil
	}

	if _, _, err := query.MostLikedWindow(window).Range(time.Now()); err != nil {
		return err
	}
	if err := prefs.SetPref(domain.PrefMostLikedMode, window); err != nil {
		return err
	}
	a.printf("Most liked within %s\n", window)
	return nil
}
