package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_MemoryMode(t *testing.T) {
	s, err := NewLocalStore("", "")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.GetPref("filters")
	assert.False(t, ok)

	require.NoError(t, s.SetPref("filters", `{"tag":[]}`))
	v, ok := s.GetPref("filters")
	require.True(t, ok)
	assert.Equal(t, `{"tag":[]}`, v)

	assert.Equal(t, map[string]string{"filters": `{"tag":[]}`}, s.Prefs())

	require.NoError(t, s.DeletePref("filters"))
	_, ok = s.GetPref("filters")
	assert.False(t, ok)
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewLocalStore(dir, "https://gallery.example.com/")
	require.NoError(t, err)
	require.NoError(t, s.SetPref("searchValue", "idol1"))
	require.NoError(t, s.SaveSession([]byte(`{"token":"abc"}`)))
	require.NoError(t, s.Close())

	// Trailing slash and case do not change the store location
	s, err = NewLocalStore(dir, "HTTPS://gallery.example.com")
	require.NoError(t, err)
	defer s.Close()

	v, ok := s.GetPref("searchValue")
	require.True(t, ok)
	assert.Equal(t, "idol1", v)

	session, ok := s.LoadSession()
	require.True(t, ok)
	assert.JSONEq(t, `{"token":"abc"}`, string(session))

	require.NoError(t, s.ClearSession())
	_, ok = s.LoadSession()
	assert.False(t, ok)
}

func TestLocalStore_SeparatesServers(t *testing.T) {
	dir := t.TempDir()

	a, err := NewLocalStore(dir, "https://a.example.com")
	require.NoError(t, err)
	require.NoError(t, a.SetPref("mostLikedMode", "1week"))
	require.NoError(t, a.Close())

	b, err := NewLocalStore(dir, "https://b.example.com")
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.GetPref("mostLikedMode")
	assert.False(t, ok)
}
