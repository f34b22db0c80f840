package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/galleria/internal/domain"
)

// SessionState is a copy of the session at one point in time
type SessionState struct {
	Valid    bool
	User     *domain.User
	Uploader *domain.Uploader
}

// Session mirrors the backend auth session and the uploader profile of the
// signed-in user. Only Update, Login, LoginWithOAuth2 and Logout write it.
type Session struct {
	auth    domain.Authenticator
	records domain.RecordRepository
	logger  *slog.Logger

	mu        sync.RWMutex
	valid     bool
	user      *domain.User
	uploader  *domain.Uploader
	gen       uint64
	observers []func(SessionState)

	pending sync.WaitGroup
}

// NewSession seeds the session from auth. When the seeded session is valid
// the uploader lookup starts in the background; Settle waits for it.
func NewSession(auth domain.Authenticator, records domain.RecordRepository, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		auth:    auth,
		records: records,
		logger:  logger,
	}
	s.Update()
	return s
}

// Update copies validity and identity from the backend session and starts
// or clears the uploader lookup accordingly.
func (s *Session) Update() {
	if gen, userID, ok := s.sync(); ok {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.fetchUploader(context.Background(), gen, userID)
		}()
	}
}

// Settle blocks until background uploader lookups finish
func (s *Session) Settle() {
	s.pending.Wait()
}

// Login signs in with a password and waits for the uploader lookup
func (s *Session) Login(ctx context.Context, identity, password string) error {
	if err := s.auth.AuthWithPassword(ctx, identity, password); err != nil {
		s.logger.Error("login failed", "error", err)
		return err
	}
	s.refresh(ctx)
	return nil
}

// LoginWithOAuth2 signs in through provider and waits for the uploader lookup
func (s *Session) LoginWithOAuth2(ctx context.Context, provider string) error {
	if err := s.auth.AuthWithOAuth2(ctx, provider); err != nil {
		s.logger.Error("oauth2 login failed", "error", err, "provider", provider)
		return err
	}
	s.refresh(ctx)
	return nil
}

// Logout clears the backend session and resets local state
func (s *Session) Logout() {
	s.auth.ClearAuth()
	s.Update()
}

func (s *Session) refresh(ctx context.Context) {
	if gen, userID, ok := s.sync(); ok {
		s.fetchUploader(ctx, gen, userID)
	}
}

// sync copies the backend session into local state. It reports whether an
// uploader lookup is due, with the generation that lookup belongs to.
func (s *Session) sync() (uint64, string, bool) {
	state := s.auth.AuthState()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	prevUserID := ""
	if s.user != nil {
		prevUserID = s.user.ID
	}

	s.valid = state.Valid
	s.user = state.User
	if !state.Valid || state.User == nil || state.User.ID != prevUserID {
		s.uploader = nil
	}
	snap, observers := s.stateLocked(), s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}

	if !state.Valid || state.User == nil {
		return 0, "", false
	}
	return gen, state.User.ID, true
}

func (s *Session) fetchUploader(ctx context.Context, gen uint64, userID string) {
	res, err := s.records.List(ctx, domain.CollectionUploaders, 1, 1, domain.ListOptions{
		Filter: fmt.Sprintf(`user=%q`, userID),
	})
	if err != nil {
		s.logger.Error("error fetching uploader details", "error", err)
		return
	}
	if len(res.Items) == 0 {
		return
	}

	var uploader domain.Uploader
	if err := json.Unmarshal(res.Items[0], &uploader); err != nil {
		s.logger.Error("error decoding uploader", "error", err)
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.uploader = &uploader
	snap, observers := s.stateLocked(), s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// IsValid reports whether the session is signed in
func (s *Session) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid
}

// User returns the signed-in user, or nil
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Uploader returns the user's uploader profile, or nil
func (s *Session) Uploader() *domain.Uploader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploader
}

// State returns all fields at once
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	return SessionState{Valid: s.valid, User: s.user, Uploader: s.uploader}
}

// OnChange registers fn to run after every state change
func (s *Session) OnChange(fn func(SessionState)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}
