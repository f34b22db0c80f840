package pocketbase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *store.LocalStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	local, err := store.NewLocalStore("", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	return NewClient(srv.URL, local, testLogger()), local
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestList_SendsQueryParameters(t *testing.T) {
	var got url.Values
	var requestID string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/collections/contents/records", r.URL.Path)
		got = r.URL.Query()
		requestID = r.Header.Get("X-Request-Id")
		writeJSON(w, http.StatusOK, map[string]any{
			"page":       2,
			"perPage":    20,
			"totalItems": 41,
			"totalPages": 3,
			"items":      []map[string]any{{"id": "c1"}, {"id": "c2"}},
		})
	})

	res, err := client.List(context.Background(), domain.CollectionContents, 2, 20, domain.ListOptions{
		Sort:   "-created",
		Filter: `title~"x"`,
		Expand: "idol,likes",
	})
	require.NoError(t, err)

	assert.Equal(t, "2", got.Get("page"))
	assert.Equal(t, "20", got.Get("perPage"))
	assert.Equal(t, "-created", got.Get("sort"))
	assert.Equal(t, `title~"x"`, got.Get("filter"))
	assert.Equal(t, "idol,likes", got.Get("expand"))
	assert.NotEmpty(t, requestID)

	assert.Equal(t, 41, res.TotalItems)
	require.Len(t, res.Items, 2)
	assert.JSONEq(t, `{"id":"c1"}`, string(res.Items[0]))
}

func TestList_OmitsEmptyOptions(t *testing.T) {
	var got url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})

	_, err := client.List(context.Background(), domain.CollectionTags, 1, 50, domain.ListOptions{})
	require.NoError(t, err)
	assert.NotContains(t, got, "filter")
	assert.NotContains(t, got, "sort")
	assert.NotContains(t, got, "expand")
}

func TestErrors_MapToSentinels(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrAuthFailed},
		{http.StatusForbidden, domain.ErrAuthFailed},
	}
	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, map[string]any{"code": tc.status, "message": "nope", "data": map[string]any{}})
		})
		_, err := client.GetOne(context.Background(), domain.CollectionContents, "c1", domain.ListOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want)
		assert.True(t, IsAPIError(err, tc.status))
	}
}

func TestErrors_ValidationCarriesData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    400,
			"message": "Failed to create record.",
			"data":    map[string]any{"user": map[string]any{"code": "validation_required"}},
		})
	})

	_, err := client.Create(context.Background(), domain.CollectionLikes, map[string]string{"content": "c1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Failed to create record.", apiErr.Message)
	assert.Contains(t, apiErr.Data, "user")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestErrors_OfflineServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(baseURL, nil, testLogger())
	_, err := client.List(context.Background(), domain.CollectionContents, 1, 1, domain.ListOptions{})
	assert.ErrorIs(t, err, domain.ErrServerOffline)
}

func TestUpdateAndDelete(t *testing.T) {
	var patched map[string]any
	var deleted string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			writeJSON(w, http.StatusOK, map[string]any{"id": "c1"})
		case http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	})

	_, err := client.Update(context.Background(), domain.CollectionContents, "c1", map[string]string{"likes+": "l1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"likes+": "l1"}, patched)

	require.NoError(t, client.Delete(context.Background(), domain.CollectionLikes, "l1"))
	assert.Equal(t, "/api/collections/users_likes/records/l1", deleted)
}

func TestAuthWithPassword_PersistsSession(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour))
	var authHeader string
	client, local := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections/users/auth-with-password":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["identity"] != "fan@example.com" || body["password"] != "secret" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "message": "Failed to authenticate."})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"token":  token,
				"record": map[string]any{"id": "user1", "email": "fan@example.com"},
			})
		default:
			authHeader = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		}
	})

	err := client.AuthWithPassword(context.Background(), "fan@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.False(t, client.AuthState().Valid)

	require.NoError(t, client.AuthWithPassword(context.Background(), "fan@example.com", "secret"))
	state := client.AuthState()
	assert.True(t, state.Valid)
	require.NotNil(t, state.User)
	assert.Equal(t, "user1", state.User.ID)

	_, err = client.List(context.Background(), domain.CollectionContents, 1, 1, domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, token, authHeader)

	restored := NewClient(client.BaseURL(), local, testLogger())
	assert.True(t, restored.AuthState().Valid)
	assert.Equal(t, "user1", restored.AuthState().User.ID)

	client.ClearAuth()
	assert.False(t, client.AuthState().Valid)
	assert.Nil(t, client.AuthState().User)
	_, ok := local.LoadSession()
	assert.False(t, ok)
}

func TestTokenValid(t *testing.T) {
	now := time.Now()
	assert.False(t, tokenValid("", now))
	assert.False(t, tokenValid("not-a-jwt", now))
	assert.False(t, tokenValid(signToken(t, now.Add(-time.Minute)), now))
	assert.True(t, tokenValid(signToken(t, now.Add(time.Minute)), now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.True(t, tokenValid(noExp, now))
}

func TestAuthWithOAuth2(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour))
	var exchanged map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/collections/users/auth-methods":
			writeJSON(w, http.StatusOK, map[string]any{
				"authProviders": []map[string]any{{
					"name":         "google",
					"state":        "st4te",
					"codeVerifier": "verifier",
					"authUrl":      "https://accounts.example.com/o/auth?client_id=x&redirect_uri=",
				}},
			})
		case "/api/collections/users/auth-with-oauth2":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&exchanged))
			writeJSON(w, http.StatusOK, map[string]any{
				"token":  token,
				"record": map[string]any{"id": "user9"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	strayStatus := make(chan int, 1)
	client.SetURLOpener(func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect, err := url.Parse(u.Query().Get("redirect_uri"))
		if err != nil {
			return err
		}
		go func() {
			// a stray request must not take the place of the redirect
			stray := *redirect
			stray.Path = "/favicon.ico"
			stray.RawQuery = "state=wrong&code=zzz"
			if resp, err := http.Get(stray.String()); err == nil {
				strayStatus <- resp.StatusCode
				resp.Body.Close()
			}

			resp, err := http.Get(redirect.String() + "?state=st4te&code=abc")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.AuthWithOAuth2(ctx, "google"))
	assert.Equal(t, "abc", exchanged["code"])
	assert.Equal(t, "verifier", exchanged["codeVerifier"])
	assert.Equal(t, "google", exchanged["provider"])
	assert.Equal(t, "user9", client.AuthState().User.ID)
	assert.Equal(t, http.StatusNotFound, <-strayStatus)
}

func TestAuthWithOAuth2_UnknownProvider(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"oauth2": map[string]any{"enabled": true, "providers": []any{}},
		})
	})
	err := client.AuthWithOAuth2(context.Background(), "github")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestFileURL(t *testing.T) {
	client := NewClient("https://media.example.com/", nil, testLogger())
	assert.Equal(t,
		"https://media.example.com/api/files/contents/c1/clip%20one.mp4",
		client.FileURL(domain.CollectionContents, "c1", "clip one.mp4"))
	assert.Empty(t, client.FileURL(domain.CollectionContents, "c1", ""))
}
