package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/stories"
)

func storyBody(id, title, path string) string {
	return fmt.Sprintf(`{"storyId":%q,"title":%q,"author":"Ann","url":"https://go.dev/%s","username":"ann","createdAt":"2024-03-01T10:00:00.000Z"}`,
		id, title, path)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	cfg := config.TestConfig()

	cfg.API.BaseURL = "ftp://example.org"
	_, err := NewClient(cfg)
	assert.Error(t, err)

	cfg.API.BaseURL = "://broken"
	_, err = NewClient(cfg)
	assert.Error(t, err)

	cfg.API.BaseURL = "https://example.org/api/"
	client, err := NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api/stories/a%2Fb", client.endpoint([]string{"stories", "a/b"}, nil))
}

func TestListStories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/stories", r.URL.Path)
		assert.Equal(t, "linkboard-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"stories":[`+
			storyBody("s2", "Second", "2")+`,`+
			storyBody("s1", "First", "1")+`]}`)
	})

	records, err := client.ListStories(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "s2", records[0].StoryID)
	assert.Equal(t, "s1", records[1].StoryID)
	assert.Equal(t, "https://go.dev/2", records[0].URL)
	assert.True(t, records[0].CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestCreateStory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/stories", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body := decodeBody(t, r)
		assert.Equal(t, "tok", body["token"])
		story := body["story"].(map[string]any)
		assert.Equal(t, "Title", story["title"])
		assert.Equal(t, "Ann", story["author"])
		assert.Equal(t, "https://go.dev/new", story["url"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"story":`+storyBody("new", "Title", "new")+`}`)
	})

	rec, err := client.CreateStory(context.Background(), "tok", stories.NewStory{
		Title: "Title", Author: "Ann", URL: "https://go.dev/new",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", rec.StoryID)
	assert.Equal(t, "ann", rec.Username)
}

func TestDeleteStoryAndFavorites(t *testing.T) {
	tests := []struct {
		name   string
		run    func(c *Client) error
		method string
		path   string
	}{
		{
			name:   "delete story",
			run:    func(c *Client) error { return c.DeleteStory(context.Background(), "tok", "s 1") },
			method: http.MethodDelete,
			path:   "/stories/s 1",
		},
		{
			name:   "add favorite",
			run:    func(c *Client) error { return c.AddFavorite(context.Background(), "tok", "ann", "s1") },
			method: http.MethodPost,
			path:   "/users/ann/favorites/s1",
		},
		{
			name:   "remove favorite",
			run:    func(c *Client) error { return c.RemoveFavorite(context.Background(), "tok", "ann", "s1") },
			method: http.MethodDelete,
			path:   "/users/ann/favorites/s1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "tok", decodeBody(t, r)["token"])
				_, _ = io.WriteString(w, `{"message":"ok"}`)
			})
			require.NoError(t, tt.run(client))
		})
	}
}

func TestLoginAndSignup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		user := body["user"].(map[string]any)
		switch r.URL.Path {
		case "/login":
			_, hasName := user["name"]
			assert.False(t, hasName)
			if user["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":{"status":401,"title":"Unauthorized","message":"Invalid password."}}`)
				return
			}
		case "/signup":
			assert.Equal(t, "Ann", user["name"])
			if user["username"] == "taken" {
				w.WriteHeader(http.StatusConflict)
				_, _ = io.WriteString(w, `{"error":{"status":409,"title":"Conflict","message":"Username already exists."}}`)
				return
			}
		}
		_, _ = io.WriteString(w, `{"token":"tok-ann","user":{"username":"ann","name":"Ann","createdAt":"2024-01-01T00:00:00Z",`+
			`"favorites":[`+storyBody("f1", "Fav", "f1")+`],"stories":[`+storyBody("o1", "Own", "o1")+`]}}`)
	})
	ctx := context.Background()

	rec, token, err := client.Login(ctx, "ann", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-ann", token)
	assert.Equal(t, "ann", rec.Username)
	require.Len(t, rec.Favorites, 1)
	require.Len(t, rec.Stories, 1)
	assert.Equal(t, "o1", rec.Stories[0].StoryID)

	_, _, err = client.Login(ctx, "ann", "wrong")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, "Invalid password.", authErr.Message)
	assert.ErrorIs(t, err, ErrAuth)

	_, token, err = client.Signup(ctx, "ann", "pw", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "tok-ann", token)

	_, _, err = client.Signup(ctx, "taken", "pw", "Ann")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusConflict, authErr.StatusCode)
	assert.Contains(t, err.Error(), "Username already exists.")
}

func TestLoginWithoutTokenIsAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"user":{"username":"ann"}}`)
	})

	_, _, err := client.Login(context.Background(), "ann", "secret")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestGetUserSendsTokenAsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/ann", r.URL.Path)
		if r.URL.Query().Get("token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"user":{"username":"ann","name":"Ann","favorites":[],"stories":[]}}`)
	})

	rec, err := client.GetUser(context.Background(), "tok", "ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", rec.Name)

	_, err = client.GetUser(context.Background(), "expired", "ann")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantIs  error
		wantMsg string
	}{
		{name: "server error with message", status: 500, body: `{"error":{"message":"boom"}}`, wantIs: ErrAPI, wantMsg: "boom"},
		{name: "not found without body", status: 404, body: ``, wantIs: ErrAPI, wantMsg: "Not Found"},
		{name: "bad request title only", status: 400, body: `{"error":{"title":"Bad Request"}}`, wantIs: ErrAPI, wantMsg: "Bad Request"},
		{name: "forbidden", status: 403, body: `{"error":{"message":"not yours"}}`, wantIs: ErrAuth, wantMsg: "not yours"},
		{name: "unauthorized", status: 401, body: `not json`, wantIs: ErrAuth, wantMsg: "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.DeleteStory(context.Background(), "tok", "s1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NotErrorIs(t, err, ErrNetwork)
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL
	server.Close()

	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.ListStories(context.Background())
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "GET /stories", netErr.Op)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCanceledContextIsNetworkError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"stories":[]}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListStories(ctx)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMalformedSuccessBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"stories":`)
	})

	_, err := client.ListStories(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestClientDrivesStoryList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"stories":[`+
			storyBody("a", "A", "a")+`,`+
			storyBody("b", "B", "b")+`]}`)
	})

	list, err := stories.GetStories(context.Background(), client)
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())

	host, err := list.Stories()[0].Hostname()
	require.NoError(t, err)
	assert.Equal(t, "go.dev", host)
}
