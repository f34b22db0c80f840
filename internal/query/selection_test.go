package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection_PreservesOrderAndUnknownValues(t *testing.T) {
	blob := `{"tag":[{"name":"cute"}],"date":["2020-01-01","2020-02-01"],"sort":{"value":"liked"},"extra":42}`
	sel, err := ParseSelection([]byte(blob))
	require.NoError(t, err)

	assert.Equal(t, []string{"tag", "date", "sort", "extra"}, sel.Keys())

	out, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.Equal(t, blob, string(out))
}

func TestParseSelection_Empty(t *testing.T) {
	sel, err := ParseSelection(nil)
	require.NoError(t, err)
	assert.True(t, sel.IsEmpty())
}

func TestParseSelection_Rejects(t *testing.T) {
	for _, blob := range []string{`[]`, `{"a":`, `{"a":1} {}`, `null`} {
		_, err := ParseSelection([]byte(blob))
		assert.Error(t, err, blob)
	}
}

func TestSelection_Edits(t *testing.T) {
	sel := &Selection{}

	require.NoError(t, sel.Add(CategoryTag, FilterValue{Name: "cute"}))
	require.NoError(t, sel.Add(CategoryTag, FilterValue{Name: "cute"}))
	require.NoError(t, sel.Add(CategoryTag, FilterValue{Name: "stage"}))
	require.NoError(t, sel.Add(CategoryIdol, FilterValue{Name: "A"}))
	require.NoError(t, sel.SetSort("liked"))
	require.NoError(t, sel.SetDateRange("2024-01-01", "2024-01-31"))

	assert.Len(t, sel.Values(CategoryTag), 2)
	assert.Equal(t, "liked", sel.SortValue())
	from, to, ok := sel.DateRange()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", from)
	assert.Equal(t, "2024-01-31", to)

	require.NoError(t, sel.Remove(CategoryTag, "cute"))
	values := sel.Values(CategoryTag)
	require.Len(t, values, 1)
	assert.Equal(t, "stage", values[0].Name)

	require.NoError(t, sel.Remove(CategoryGroup, "missing"))
	assert.NotContains(t, sel.Keys(), CategoryGroup)

	sel.Clear(CategoryIdol)
	assert.Equal(t, []string{CategoryTag, CategorySort, CategoryDate}, sel.Keys())

	sel.Clear("")
	assert.True(t, sel.IsEmpty())
}

func TestSelection_SortValueFromArray(t *testing.T) {
	sel, err := ParseSelection([]byte(`{"sort":[{"name":"Liked","value":"liked"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "liked", sel.SortValue())
}

func TestFilterValue_Label(t *testing.T) {
	assert.Equal(t, "n", FilterValue{Name: "n", Code: "c"}.Label())
	assert.Equal(t, "c", FilterValue{Code: "c"}.Label())
	assert.Equal(t, "3", FilterValue{Option: true, Value: float64(3)}.Label())
}
