package domain

import (
	"context"
	"encoding/json"
)

// Collection names on the backend
const (
	CollectionUsers       = "users"
	CollectionUploaders   = "uploaders"
	CollectionContents    = "contents"
	CollectionSets        = "contents_sets"
	CollectionCollections = "contents_collections"
	CollectionLikes       = "users_likes"
	CollectionIdols       = "idols"
	CollectionGroups      = "groups"
	CollectionTags        = "tags"
)

// ListOptions are the query parameters of a list read
type ListOptions struct {
	Sort   string // "-field" sorts descending
	Filter string // filter expression in the backend's query grammar
	Expand string // comma-separated relation names
}

// ListResult is one page of a list read
type ListResult struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
	Items      []json.RawMessage `json:"items"`
}

// RecordRepository provides CRUD access to backend collections.
// Records are returned undecoded; callers pick the entity type.
type RecordRepository interface {
	// List returns one page of records
	List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error)

	// GetOne returns a single record by id
	GetOne(ctx context.Context, collection, id string, opts ListOptions) (json.RawMessage, error)

	// Create inserts a record and returns it
	Create(ctx context.Context, collection string, body any) (json.RawMessage, error)

	// Update patches a record. Keys suffixed with "+" or "-" add to or
	// remove from a relation field instead of replacing it.
	Update(ctx context.Context, collection, id string, body any) (json.RawMessage, error)

	// Delete removes a record
	Delete(ctx context.Context, collection, id string) error
}

// AuthState is a snapshot of the backend session
type AuthState struct {
	Token string
	User  *User
	Valid bool
}

// Authenticator manages the backend auth session
type Authenticator interface {
	// AuthWithPassword signs in with an identity (email or username) and password
	AuthWithPassword(ctx context.Context, identity, password string) error

	// AuthWithOAuth2 signs in through an external provider such as "google"
	AuthWithOAuth2(ctx context.Context, provider string) error

	// ClearAuth drops the session locally
	ClearAuth()

	// AuthState returns the current session
	AuthState() AuthState
}

// Backend combines record access and authentication
type Backend interface {
	RecordRepository
	Authenticator
}
