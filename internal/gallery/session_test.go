package gallery

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mmcdole/galleria/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploaderList(userID, uploaderID string) *domain.ListResult {
	return &domain.ListResult{
		TotalItems: 1,
		Items: []json.RawMessage{rawJSON(map[string]any{
			"id":   uploaderID,
			"user": userID,
			"name": "studio",
		})},
	}
}

func TestSession_SeedsFromPersistedSession(t *testing.T) {
	backend := newFakeBackend()
	user := fakeUser()
	signedIn(backend, user)
	backend.lists[domain.CollectionUploaders] = uploaderList(user.ID, "up1")

	s := NewSession(backend, backend, discardLogger())
	assert.True(t, s.IsValid())
	assert.Equal(t, user.ID, s.User().ID)

	s.Settle()
	require.NotNil(t, s.Uploader())
	assert.Equal(t, "up1", s.Uploader().ID)

	calls := backend.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.CollectionUploaders, calls[0].collection)
	assert.Equal(t, `user="`+user.ID+`"`, calls[0].opts.Filter)
	assert.Equal(t, 1, calls[0].perPage)
}

func TestSession_InvalidSeedSkipsLookup(t *testing.T) {
	backend := newFakeBackend()
	s := NewSession(backend, backend, discardLogger())
	s.Settle()

	assert.False(t, s.IsValid())
	assert.Nil(t, s.User())
	assert.Nil(t, s.Uploader())
	assert.Empty(t, backend.calls())
}

func TestSession_LoginAndLogout(t *testing.T) {
	backend := newFakeBackend()
	backend.lists[domain.CollectionUploaders] = uploaderList("user1", "up7")
	s := NewSession(backend, backend, discardLogger())

	var mu sync.Mutex
	var states []SessionState
	s.OnChange(func(st SessionState) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	require.NoError(t, s.Login(context.Background(), "fan@example.com", "secret"))
	assert.True(t, s.IsValid())
	assert.Equal(t, "user1", s.User().ID)
	require.NotNil(t, s.Uploader())
	assert.Equal(t, "up7", s.Uploader().ID)

	s.Logout()
	s.Settle()
	state := s.State()
	assert.False(t, state.Valid)
	assert.Nil(t, state.User)
	assert.Nil(t, state.Uploader)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.False(t, states[len(states)-1].Valid)
}

func TestSession_OAuth2WaitsForUploader(t *testing.T) {
	backend := newFakeBackend()
	backend.lists[domain.CollectionUploaders] = uploaderList("user1", "up2")
	s := NewSession(backend, backend, discardLogger())

	require.NoError(t, s.LoginWithOAuth2(context.Background(), "google"))
	require.NotNil(t, s.Uploader())
	assert.Equal(t, "up2", s.Uploader().ID)
}

func TestSession_LoginFailureKeepsState(t *testing.T) {
	backend := newFakeBackend()
	backend.loginErr = domain.ErrAuthFailed
	s := NewSession(backend, backend, discardLogger())

	err := s.Login(context.Background(), "fan@example.com", "nope")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.False(t, s.IsValid())
	assert.Empty(t, backend.calls())
}

func TestSession_LookupFailureLeavesUploaderUnset(t *testing.T) {
	backend := newFakeBackend()
	backend.listFn = func(listCall) (*domain.ListResult, error) {
		return nil, errBackend
	}
	s := NewSession(backend, backend, discardLogger())

	require.NoError(t, s.Login(context.Background(), "fan@example.com", "secret"))
	assert.True(t, s.IsValid())
	assert.Nil(t, s.Uploader())
}

func TestSession_NoUploaderProfile(t *testing.T) {
	backend := newFakeBackend()
	s := NewSession(backend, backend, discardLogger())

	require.NoError(t, s.Login(context.Background(), "fan@example.com", "secret"))
	assert.True(t, s.IsValid())
	assert.Nil(t, s.Uploader())
}

func TestSession_LogoutDropsInFlightLookup(t *testing.T) {
	backend := newFakeBackend()
	user := fakeUser()
	signedIn(backend, user)

	started := make(chan struct{})
	release := make(chan struct{})
	backend.listFn = func(call listCall) (*domain.ListResult, error) {
		close(started)
		<-release
		return uploaderList(user.ID, "up1"), nil
	}

	s := NewSession(backend, backend, discardLogger())
	<-started
	s.Logout()
	close(release)
	s.Settle()

	assert.False(t, s.IsValid())
	assert.Nil(t, s.User())
	assert.Nil(t, s.Uploader(), "a lookup started before logout must not land")
}
