package domain

// Preference keys read by the filter builder
const (
	PrefFilters       = "filters"
	PrefSearchValue   = "searchValue"
	PrefMostLikedMode = "mostLikedMode"
)

// Preferences is the client-local key-value store. Values are opaque strings;
// last write wins.
type Preferences interface {
	GetPref(key string) (string, bool)
	SetPref(key, value string) error
	DeletePref(key string) error
}

// SessionStore persists the serialized auth session between runs
type SessionStore interface {
	LoadSession() ([]byte, bool)
	SaveSession(data []byte) error
	ClearSession() error
}
