package query

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapPrefs map[string]string

func (m mapPrefs) GetPref(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapPrefs) SetPref(key, value string) error {
	m[key] = value
	return nil
}

func (m mapPrefs) DeletePref(key string) error {
	delete(m, key)
	return nil
}

var fixedNow = time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)

func newTestBuilder(prefs mapPrefs) *Builder {
	b := NewBuilder(prefs, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.now = func() time.Time { return fixedNow }
	return b
}

func TestBuild_Empty(t *testing.T) {
	filter, sort := newTestBuilder(mapPrefs{}).Build(false)
	assert.Equal(t, "", filter)
	assert.Equal(t, SortRecent, sort)
}

func TestBuild_SearchAndTag(t *testing.T) {
	prefs := mapPrefs{
		domain.PrefFilters:     `{"tag":[{"name":"cute"}]}`,
		domain.PrefSearchValue: "idol1",
	}
	filter, sort := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `title~"idol1"&&(tag.name?="cute")`, filter)
	assert.Equal(t, "-created", sort)
}

func TestBuild_NameDisjunction(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{"idol":[{"name":"A"},{"name":"B"}]}`}
	filter, _ := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `(idol.name?="A"||idol.name?="B")`, filter)
}

func TestBuild_ValueHeuristics(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{
		"filetype":[{"code":"mp4"},{"code":"jpg"}],
		"uploader":[{"option":true,"value":"u123"},"bare",{"other":1}],
		"group":[]
	}`}
	filter, _ := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `(filetype.code?="mp4"||filetype.code?="jpg")&&(uploader?="u123")`, filter)
}

func TestBuild_KeyOrderFollowsBlob(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{"tag":[{"name":"t"}],"idol":[{"name":"i"}]}`}
	filter, _ := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `(tag.name?="t")&&(idol.name?="i")`, filter)
}

func TestBuild_Prefix(t *testing.T) {
	prefs := mapPrefs{
		domain.PrefFilters:     `{"tag":[{"name":"cute"}]}`,
		domain.PrefSearchValue: "x",
	}
	filter, _ := newTestBuilder(prefs).Build(true)
	assert.Equal(t, `content.title~"x"&&(content.tag.name?="cute")`, filter)
}

func TestBuild_EscapesQuotes(t *testing.T) {
	prefs := mapPrefs{domain.PrefSearchValue: `say "hi"`}
	filter, _ := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `title~"say \"hi\""`, filter)

	prefs = mapPrefs{domain.PrefSearchValue: `C:\clips\`}
	filter, _ = newTestBuilder(prefs).Build(false)
	assert.Equal(t, `title~"C:\\clips\\"`, filter)
}

func TestBuild_SortLiked(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{"sort":{"name":"Most liked","value":"liked"}}`}
	filter, sort := newTestBuilder(prefs).Build(false)
	assert.Equal(t, "", filter)
	assert.Equal(t, SortMostLiked, sort)
}

func TestBuild_MostLikedWindowWinsOverDate(t *testing.T) {
	prefs := mapPrefs{
		domain.PrefFilters:       `{"date":["2020-01-01","2020-02-01"]}`,
		domain.PrefMostLikedMode: "1week",
	}
	filter, sort := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `created>='2024-05-08 00:00:00'&&created<='2024-05-15 23:59:59'`, filter)
	assert.Equal(t, SortMostLiked, sort)
}

func TestBuild_DateRange(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{"date":["2020-01-01T10:00:00Z","2020-02-01"],"dateMode":["range"]}`}
	filter, sort := newTestBuilder(prefs).Build(true)
	assert.Equal(t, `content.created>='2020-01-01 00:00:00'&&content.created<='2020-02-01 23:59:59'`, filter)
	assert.Equal(t, SortRecent, sort)
}

func TestBuild_DateRangeNeedsTwoBounds(t *testing.T) {
	prefs := mapPrefs{domain.PrefFilters: `{"date":["2020-01-01"]}`}
	filter, _ := newTestBuilder(prefs).Build(false)
	assert.Equal(t, "", filter)
}

func TestBuild_InvalidWindowOmitsClause(t *testing.T) {
	prefs := mapPrefs{
		domain.PrefMostLikedMode: "fortnight",
		domain.PrefSearchValue:   "x",
	}
	filter, sort := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `title~"x"`, filter)
	assert.Equal(t, SortMostLiked, sort)
}

func TestBuild_BadJSONDegrades(t *testing.T) {
	prefs := mapPrefs{
		domain.PrefFilters:     `{"tag":[`,
		domain.PrefSearchValue: "x",
	}
	filter, sort := newTestBuilder(prefs).Build(false)
	assert.Equal(t, `title~"x"`, filter)
	assert.Equal(t, SortRecent, sort)
}

func TestBuild_ReadsPreferencesOnEveryCall(t *testing.T) {
	prefs := mapPrefs{}
	b := newTestBuilder(prefs)

	filter, _ := b.Build(false)
	require.Equal(t, "", filter)

	require.NoError(t, prefs.SetPref(domain.PrefSearchValue, "late"))
	filter, _ = b.Build(false)
	assert.Equal(t, `title~"late"`, filter)
}

func TestWindowRange(t *testing.T) {
	locations := []*time.Location{time.UTC, time.FixedZone("KST", 9*60*60)}
	for _, loc := range locations {
		now := time.Date(2024, time.March, 31, 1, 2, 3, 4, loc)
		for _, w := range Windows() {
			start, end, err := w.Range(now)
			require.NoError(t, err, w)
			assert.True(t, start.Before(end), "window %s", w)
			assert.Equal(t, 0, start.Hour()+start.Minute()+start.Second()+start.Nanosecond(), "window %s", w)
			assert.Equal(t, 23, end.Hour())
			assert.Equal(t, 59, end.Minute())
			assert.Equal(t, 59, end.Second())
			assert.Equal(t, int(999*time.Millisecond), end.Nanosecond())
			assert.Equal(t, now.Day(), end.Day())
		}
	}
}

func TestWindowRange_Starts(t *testing.T) {
	cases := map[MostLikedWindow]string{
		WindowAllTime:     "2000-01-01",
		WindowOneYear:     "2023-05-15",
		WindowSixMonths:   "2023-11-15",
		WindowThreeMonths: "2024-02-15",
		WindowOneMonth:    "2024-04-15",
		WindowOneWeek:     "2024-05-08",
	}
	for w, want := range cases {
		start, _, err := w.Range(fixedNow)
		require.NoError(t, err)
		assert.Equal(t, want, start.Format("2006-01-02"), "window %s", w)
	}
}

func TestWindowRange_Invalid(t *testing.T) {
	_, _, err := MostLikedWindow("2weeks").Range(fixedNow)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
