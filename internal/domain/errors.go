package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrServerOffline indicates the backend is unreachable
	ErrServerOffline = errors.New("backend is unreachable")

	// ErrAuthFailed indicates the backend rejected the credentials or token
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotAuthenticated indicates an action needs a signed-in user
	ErrNotAuthenticated = errors.New("user is not authenticated")

	// ErrNoUploader indicates the signed-in user has no uploader profile
	ErrNoUploader = errors.New("user has no uploader profile")

	// ErrUnknownVariation indicates a fetch variation outside the fixed set
	ErrUnknownVariation = errors.New("unknown fetch variation")

	// ErrMissingParent indicates a variation needs a parent set or collection id
	ErrMissingParent = errors.New("parent id is required")

	// ErrUnknownProvider indicates the OAuth2 provider is not enabled on the backend
	ErrUnknownProvider = errors.New("oauth2 provider not available")
)
