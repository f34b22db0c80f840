package pocketbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/galleria/internal/domain"
)

// AuthStore holds the current token and user model. Changes are written
// through to the session store so a later run starts signed in.
type AuthStore struct {
	mu       sync.RWMutex
	token    string
	user     *domain.User
	sessions domain.SessionStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthStore creates an auth store seeded from sessions, which may be nil
func NewAuthStore(sessions domain.SessionStore, logger *slog.Logger) *AuthStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthStore{
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}
	s.load()
	return s
}

func (s *AuthStore) load() {
	if s.sessions == nil {
		return
	}
	data, ok := s.sessions.LoadSession()
	if !ok {
		return
	}
	var saved persistedAuth
	if err := json.Unmarshal(data, &saved); err != nil {
		s.logger.Warn("discarding unreadable session", "error", err)
		return
	}
	s.token = saved.Token
	s.user = saved.Model
}

// Save replaces the session
func (s *AuthStore) Save(token string, user *domain.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	if s.sessions == nil {
		return
	}
	data, err := json.Marshal(persistedAuth{Token: token, Model: user})
	if err != nil {
		s.logger.Error("failed to encode session", "error", err)
		return
	}
	if err := s.sessions.SaveSession(data); err != nil {
		s.logger.Error("failed to persist session", "error", err)
	}
}

// Clear drops the session
func (s *AuthStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if s.sessions == nil {
		return
	}
	if err := s.sessions.ClearSession(); err != nil {
		s.logger.Error("failed to clear persisted session", "error", err)
	}
}

// Token returns the raw auth token
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user model
func (s *AuthStore) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsValid reports whether the token is present and not expired
func (s *AuthStore) IsValid() bool {
	return tokenValid(s.Token(), s.now())
}

// tokenValid checks the exp claim without verifying the signature; the
// server is the one that verifies it.
func tokenValid(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if len(claims) == 0 {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.After(now)
}

// AuthWithPassword signs in with an identity and password
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) error {
	body := map[string]string{
		"identity": identity,
		"password": password,
	}
	resp, err := c.doRequest(ctx, http.MethodPost, c.authPath("auth-with-password"), nil, body)
	if err != nil {
		if IsAPIError(err, http.StatusBadRequest) {
			return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
		}
		return err
	}
	return c.saveAuth(resp)
}

// ClearAuth drops the local session; PocketBase tokens are stateless so
// there is nothing to revoke remotely.
func (c *Client) ClearAuth() {
	c.auth.Clear()
	c.logger.Info("signed out")
}

// AuthState returns the current session
func (c *Client) AuthState() domain.AuthState {
	return domain.AuthState{
		Token: c.auth.Token(),
		User:  c.auth.User(),
		Valid: c.auth.IsValid(),
	}
}

func (c *Client) authPath(action string) string {
	return "/api/collections/" + c.authCollection + "/" + action
}

func (c *Client) saveAuth(body []byte) error {
	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return fmt.Errorf("failed to parse auth response: %w", err)
	}
	if auth.Token == "" {
		return errors.New("auth response carried no token")
	}
	c.auth.Save(auth.Token, auth.Record)
	if auth.Record != nil {
		c.logger.Info("signed in", "user_id", auth.Record.ID)
	}
	return nil
}
