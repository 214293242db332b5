// Package apitest runs an in-memory story API behind httptest for tests of
// the packages built on api.Client.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pders01/linkboard/internal/stories"
)

type account struct {
	password  string
	name      string
	createdAt time.Time
	favorites []string
	own       []string
}

// Server mimics the story API's routes and error envelope.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	stories  []stories.Record
	accounts map[string]*account
	tokens   map[string]string
	nextID   int
	failures map[string]int
	requests []string
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)

	r.Get("/stories", s.handleListStories)
	r.Post("/stories", s.handleCreateStory)
	r.Delete("/stories/{storyID}", s.handleDeleteStory)
	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)
	r.Get("/users/{username}", s.handleGetUser)
	r.Post("/users/{username}/favorites/{storyID}", s.handleFavorite(true))
	r.Delete("/users/{username}/favorites/{storyID}", s.handleFavorite(false))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	return r
}

// intercept records every request and serves queued failures.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, key)
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()

		if fail {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request matching "METHOD /path" answer status.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// SeedUser registers an account and returns a valid token for it.
func (s *Server) SeedUser(username, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = &account{password: password, name: name, createdAt: time.Now().UTC()}
	return s.issueToken(username)
}

// SeedStory adds a story at the top of the list.
func (s *Server) SeedStory(title, author, url, username string) stories.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createStory(username, stories.NewStory{Title: title, Author: author, URL: url})
}

// StoryIDs returns the server's stories, newest first.
func (s *Server) StoryIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.stories))
	for i, rec := range s.stories {
		ids[i] = rec.StoryID
	}
	return ids
}

// FavoriteIDs returns the server-side favorites of username.
func (s *Server) FavoriteIDs(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[username]; ok {
		return append([]string(nil), acct.favorites...)
	}
	return nil
}

func (s *Server) issueToken(username string) string {
	s.nextID++
	token := fmt.Sprintf("token-%s-%d", username, s.nextID)
	s.tokens[token] = username
	return token
}

func (s *Server) createStory(username string, draft stories.NewStory) stories.Record {
	s.nextID++
	rec := stories.Record{
		StoryID:   fmt.Sprintf("story-%d", s.nextID),
		Title:     draft.Title,
		Author:    draft.Author,
		URL:       draft.URL,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.stories = append([]stories.Record{rec}, s.stories...)
	if acct, ok := s.accounts[username]; ok {
		acct.own = append(acct.own, rec.StoryID)
	}
	return rec
}

func (s *Server) findStory(id string) (stories.Record, int) {
	for i, rec := range s.stories {
		if rec.StoryID == id {
			return rec, i
		}
	}
	return stories.Record{}, -1
}

func (s *Server) userRecord(username string) stories.UserRecord {
	acct := s.accounts[username]
	rec := stories.UserRecord{
		Username:  username,
		Name:      acct.name,
		CreatedAt: acct.createdAt,
		Favorites: []stories.Record{},
		Stories:   []stories.Record{},
	}
	for _, id := range acct.favorites {
		if st, i := s.findStory(id); i >= 0 {
			rec.Favorites = append(rec.Favorites, st)
		}
	}
	for _, id := range acct.own {
		if st, i := s.findStory(id); i >= 0 {
			rec.Stories = append(rec.Stories, st)
		}
	}
	return rec
}

func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]stories.Record{}, s.stories...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"stories": list})
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string           `json:"token"`
		Story stories.NewStory `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[body.Token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "A valid token must be provided.")
		return
	}
	if body.Story.Title == "" || body.Story.Author == "" || body.Story.URL == "" {
		writeError(w, http.StatusBadRequest, "Stories require title, author and url.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"story": s.createStory(username, body.Story)})
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	id := chi.URLParam(r, "storyID")

	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.tokens[body.Token]
	if !ok {
		writeError(w, http.StatusUnauthorized, "A valid token must be provided.")
		return
	}
	rec, i := s.findStory(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Could not find story with id '%s'.", id))
		return
	}
	if rec.Username != username {
		writeError(w, http.StatusForbidden, "You can only delete your own stories.")
		return
	}

	s.stories = append(s.stories[:i], s.stories[i+1:]...)
	for _, acct := range s.accounts {
		acct.favorites = without(acct.favorites, id)
		acct.own = without(acct.own, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Story deleted.", "story": rec})
}

type credentialsBody struct {
	User struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	} `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	u := body.User
	if u.Username == "" || u.Password == "" || u.Name == "" {
		writeError(w, http.StatusBadRequest, "Signup requires username, password and name.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[u.Username]; exists {
		writeError(w, http.StatusConflict, fmt.Sprintf("There is already a user with username '%s'.", u.Username))
		return
	}
	s.accounts[u.Username] = &account{password: u.Password, name: u.Name, createdAt: time.Now().UTC()}
	token := s.issueToken(u.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": s.userRecord(u.Username)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[body.User.Username]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No such user '%s'.", body.User.Username))
		return
	}
	if acct.password != body.User.Password {
		writeError(w, http.StatusUnauthorized, "Invalid password.")
		return
	}
	token := s.issueToken(body.User.Username)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": s.userRecord(body.User.Username)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens[r.URL.Query().Get("token")] != username {
		writeError(w, http.StatusUnauthorized, "A valid token must be provided.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": s.userRecord(username)})
}

func (s *Server) handleFavorite(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		username := chi.URLParam(r, "username")
		id := chi.URLParam(r, "storyID")

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.tokens[body.Token] != username {
			writeError(w, http.StatusUnauthorized, "A valid token must be provided.")
			return
		}
		if _, i := s.findStory(id); i < 0 {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Could not find story with id '%s'.", id))
			return
		}

		acct := s.accounts[username]
		acct.favorites = without(acct.favorites, id)
		msg := "Favorite removed."
		if add {
			acct.favorites = append(acct.favorites, id)
			msg = "Favorite added."
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": msg, "user": s.userRecord(username)})
	}
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"title":   strings.TrimSpace(http.StatusText(status)),
			"message": msg,
		},
	})
}
