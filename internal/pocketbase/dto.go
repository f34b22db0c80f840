package pocketbase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mmcdole/galleria/internal/domain"
)

// APIError is the error body PocketBase returns for non-2xx responses
type APIError struct {
	Status  int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pocketbase: status %d", e.Status)
	}
	return fmt.Sprintf("pocketbase: status %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto domain sentinels
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthFailed
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return nil
	}
}

// IsAPIError reports whether err carries a backend status equal to status
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// authResponse is returned by every auth-with-* endpoint
type authResponse struct {
	Token  string       `json:"token"`
	Record *domain.User `json:"record"`
}

// persistedAuth is what the session store keeps between runs
type persistedAuth struct {
	Token string       `json:"token"`
	Model *domain.User `json:"model"`
}

// AuthProvider is an OAuth2 provider enabled on the auth collection
type AuthProvider struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	State        string `json:"state"`
	CodeVerifier string `json:"codeVerifier"`
	AuthURL      string `json:"authURL"`
	LegacyURL    string `json:"authUrl"`
}

// URL returns the authorization URL, which expects the redirect URL appended
func (p AuthProvider) URL() string {
	if p.AuthURL != "" {
		return p.AuthURL
	}
	return p.LegacyURL
}

// authMethodsResponse covers both the current and the pre-0.23 shape
type authMethodsResponse struct {
	OAuth2 struct {
		Enabled   bool           `json:"enabled"`
		Providers []AuthProvider `json:"providers"`
	} `json:"oauth2"`
	AuthProviders []AuthProvider `json:"authProviders"`
}

func (r authMethodsResponse) providers() []AuthProvider {
	if len(r.OAuth2.Providers) > 0 {
		return r.OAuth2.Providers
	}
	return r.AuthProviders
}
