package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-faker/faker/v4"
	"github.com/mmcdole/galleria/internal/domain"
)

var errBackend = errors.New("backend exploded")

type listCall struct {
	collection string
	page       int
	perPage    int
	opts       domain.ListOptions
}

type writeCall struct {
	collection string
	id         string
	body       any
}

// fakeBackend records every call and answers from canned data
type fakeBackend struct {
	mu sync.Mutex

	state    domain.AuthState
	loginErr error

	lists  map[string]*domain.ListResult
	listFn func(listCall) (*domain.ListResult, error)
	one    json.RawMessage
	oneErr error

	createErr error
	updateErr error
	deleteErr error
	nextID    int

	listCalls   []listCall
	getCalls    []listCall
	createCalls []writeCall
	updateCalls []writeCall
	deleteCalls []writeCall
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{lists: map[string]*domain.ListResult{}}
}

func (f *fakeBackend) List(_ context.Context, collection string, page, perPage int, opts domain.ListOptions) (*domain.ListResult, error) {
	f.mu.Lock()
	call := listCall{collection: collection, page: page, perPage: perPage, opts: opts}
	f.listCalls = append(f.listCalls, call)
	fn := f.listFn
	res := f.lists[collection]
	f.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	if res == nil {
		return &domain.ListResult{Page: page, PerPage: perPage}, nil
	}
	return res, nil
}

func (f *fakeBackend) GetOne(_ context.Context, collection, id string, opts domain.ListOptions) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, listCall{collection: collection + "/" + id, opts: opts})
	return f.one, f.oneErr
}

func (f *fakeBackend) Create(_ context.Context, collection string, body any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, writeCall{collection: collection, body: body})
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	rec := map[string]any{"id": fmt.Sprintf("like%d", f.nextID)}
	if m, ok := body.(map[string]string); ok {
		for k, v := range m {
			rec[k] = v
		}
	}
	return json.Marshal(rec)
}

func (f *fakeBackend) Update(_ context.Context, collection, id string, body any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, writeCall{collection: collection, id: id, body: body})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}

func (f *fakeBackend) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, writeCall{collection: collection, id: id})
	return f.deleteErr
}

func (f *fakeBackend) AuthWithPassword(_ context.Context, identity, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.state = domain.AuthState{
		Token: "token",
		User:  &domain.User{Record: domain.Record{ID: "user1"}, Email: identity},
		Valid: true,
	}
	return nil
}

func (f *fakeBackend) AuthWithOAuth2(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.state = domain.AuthState{
		Token: "token",
		User:  &domain.User{Record: domain.Record{ID: "user1"}},
		Valid: true,
	}
	return nil
}

func (f *fakeBackend) ClearAuth() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = domain.AuthState{}
}

func (f *fakeBackend) AuthState() domain.AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeBackend) calls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listCall(nil), f.listCalls...)
}

// fakeIdentity is a fixed signed-in user
type fakeIdentity struct {
	user     *domain.User
	uploader *domain.Uploader
}

func (i fakeIdentity) User() *domain.User         { return i.user }
func (i fakeIdentity) Uploader() *domain.Uploader { return i.uploader }

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

// recordingNotifier keeps every notification
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func fakeContent() map[string]any {
	return map[string]any{
		"id":      faker.UUIDDigit(),
		"title":   faker.Sentence(),
		"file":    faker.Word() + ".jpg",
		"created": "2024-05-01 10:00:00.000Z",
		"expand":  map[string]any{},
	}
}

func fakeUser() *domain.User {
	return &domain.User{
		Record: domain.Record{ID: faker.UUIDDigit()},
		Email:  faker.Email(),
		Name:   faker.Name(),
	}
}
