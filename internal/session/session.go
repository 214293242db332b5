// Package session ties the story list, the logged-in user, persisted
// credentials and the search index together for one client.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/debuglog"
	"github.com/pders01/linkboard/internal/feedimport"
	"github.com/pders01/linkboard/internal/search"
	"github.com/pders01/linkboard/internal/storage"
	"github.com/pders01/linkboard/internal/stories"
	"github.com/pders01/linkboard/internal/validation"
)

// ErrUnknownStory is returned for an ID that is neither listed nor held by
// the user.
var ErrUnknownStory = errors.New("story not found")

// CredentialStore persists the token of the logged-in user.
type CredentialStore interface {
	SaveCredentials(username, token string) error
	LoadCredentials() (storage.Credentials, error)
	ClearCredentials() error
}

// Session owns the story list and the logged-in user of one client.
type Session struct {
	cfg       *config.Config
	gateway   stories.Gateway
	store     CredentialStore
	strategy  stories.FavoriteStrategy
	registry  *stories.Registry
	index     *search.Index
	importer  *feedimport.Importer
	validator *validation.StoryURLValidator

	mu   sync.RWMutex
	list *stories.StoryList
	user *stories.User
}

// New builds a session. store may be nil, in which case logins are not
// persisted.
func New(gw stories.Gateway, store CredentialStore, cfg *config.Config) (*Session, error) {
	strategy, err := stories.ParseFavoriteStrategy(cfg.Favorites.Strategy)
	if err != nil {
		return nil, err
	}

	index, err := search.NewIndex(cfg.Search.MinQueryLength)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:       cfg,
		gateway:   gw,
		store:     store,
		strategy:  strategy,
		registry:  stories.NewRegistry(),
		index:     index,
		importer:  feedimport.NewImporter(cfg),
		validator: validation.ForHosts(cfg.Import.AllowPrivateHosts),
	}, nil
}

// Close releases the search index.
func (s *Session) Close() error {
	return s.index.Close()
}

func (s *Session) options() []stories.Option {
	return []stories.Option{
		stories.WithRegistry(s.registry),
		stories.WithFavoriteStrategy(s.strategy),
	}
}

// Stories returns the loaded list, or nil before the first Refresh.
func (s *Session) Stories() *stories.StoryList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// User returns the logged-in user, or nil.
func (s *Session) User() *stories.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setUser(u *stories.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Restore logs in with stored credentials. Credentials the server no longer
// accepts are cleared. A nil user with a nil error means nobody is logged in.
func (s *Session) Restore(ctx context.Context) (*stories.User, error) {
	if s.store == nil {
		return nil, nil
	}

	creds, err := s.store.LoadCredentials()
	if errors.Is(err, storage.ErrNoCredentials) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	user := stories.LoginViaStoredCredentials(ctx, s.gateway, creds.Token, creds.Username, s.options()...)
	if user == nil {
		if clearErr := s.store.ClearCredentials(); clearErr != nil {
			return nil, fmt.Errorf("clearing stale credentials: %w", clearErr)
		}
		return nil, nil
	}

	s.setUser(user)
	return user, nil
}

// Login authenticates and persists the token.
func (s *Session) Login(ctx context.Context, username, password string) (*stories.User, error) {
	user, err := stories.Login(ctx, s.gateway, username, password, s.options()...)
	if err != nil {
		return nil, err
	}
	return user, s.adopt(user)
}

// Signup creates an account, logs it in and persists the token.
func (s *Session) Signup(ctx context.Context, username, password, name string) (*stories.User, error) {
	user, err := stories.Signup(ctx, s.gateway, username, password, name, s.options()...)
	if err != nil {
		return nil, err
	}
	return user, s.adopt(user)
}

func (s *Session) adopt(user *stories.User) error {
	s.setUser(user)
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveCredentials(user.Username(), user.Token()); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

// Logout forgets the user locally and in the credential store.
func (s *Session) Logout() error {
	s.setUser(nil)
	if s.store == nil {
		return nil
	}
	if err := s.store.ClearCredentials(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Refresh reloads the story list and rebuilds the search index.
func (s *Session) Refresh(ctx context.Context) (*stories.StoryList, error) {
	list, err := stories.GetStories(ctx, s.gateway, s.options()...)
	if err != nil {
		return nil, err
	}
	if err := s.index.Reindex(list.Stories()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.list = list
	s.mu.Unlock()

	s.pruneRegistry(list)
	return list, nil
}

// pruneRegistry forgets stories that are neither listed nor held by the
// user, so stories deleted elsewhere stop resolving.
func (s *Session) pruneRegistry(list *stories.StoryList) {
	live := make(map[string]struct{})
	collect := func(items []*stories.Story) {
		for _, st := range items {
			live[st.ID] = struct{}{}
		}
	}
	collect(list.Stories())
	if user := s.User(); user != nil {
		collect(user.Favorites())
		collect(user.OwnStories())
	}

	s.registry.Retain(func(id string) bool {
		_, ok := live[id]
		return ok
	})
}

func (s *Session) ensureList(ctx context.Context) (*stories.StoryList, error) {
	if list := s.Stories(); list != nil {
		return list, nil
	}
	return s.Refresh(ctx)
}

func (s *Session) requireUser() (*stories.User, error) {
	user := s.User()
	if user == nil || user.Token() == "" {
		return nil, stories.ErrNotLoggedIn
	}
	return user, nil
}

// Submit validates draft and posts it as the logged-in user.
func (s *Session) Submit(ctx context.Context, draft stories.NewStory) (*stories.Story, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Author = strings.TrimSpace(draft.Author)
	if draft.Title == "" {
		return nil, errors.New("story title cannot be empty")
	}
	if draft.Author == "" {
		draft.Author = user.Name()
	}
	normalized, err := s.validator.ValidateAndNormalize(draft.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid story URL: %w", err)
	}
	draft.URL = normalized

	list, err := s.ensureList(ctx)
	if err != nil {
		return nil, err
	}

	st, err := list.AddStory(ctx, user, draft)
	if err != nil {
		return nil, err
	}
	s.indexStory(st)
	return st, nil
}

// Delete removes one of the user's stories everywhere.
func (s *Session) Delete(ctx context.Context, storyID string) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	list, err := s.ensureList(ctx)
	if err != nil {
		return err
	}

	if err := list.RemoveStory(ctx, user, storyID); err != nil {
		return err
	}
	if err := s.index.Remove(storyID); err != nil {
		debuglog.Warnf("removing %s from search index: %v", storyID, err)
	}
	return nil
}

// lookup prefers the loaded list and falls back to the user's favorites and
// own stories, which may hold stories the list does not.
func (s *Session) lookup(ctx context.Context, storyID string) (*stories.Story, error) {
	list, err := s.ensureList(ctx)
	if err != nil {
		return nil, err
	}
	if st, ok := list.Find(storyID); ok {
		return st, nil
	}
	if user := s.User(); user != nil {
		for _, items := range [][]*stories.Story{user.Favorites(), user.OwnStories()} {
			for _, st := range items {
				if st.ID == storyID {
					return st, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStory, storyID)
}

// Story resolves storyID against loaded stories, fetching the list first
// when nothing is loaded yet.
func (s *Session) Story(ctx context.Context, storyID string) (*stories.Story, error) {
	return s.lookup(ctx, storyID)
}

// SetFavorite adds or removes storyID from the user's favorites.
func (s *Session) SetFavorite(ctx context.Context, storyID string, favorite bool) error {
	user, err := s.requireUser()
	if err != nil {
		return err
	}
	st, err := s.lookup(ctx, storyID)
	if err != nil {
		return err
	}

	if favorite {
		return user.AddFavorite(ctx, st)
	}
	return user.RemoveFavorite(ctx, st)
}

// ToggleFavorite flips the favorite state of storyID and reports the new
// state.
func (s *Session) ToggleFavorite(ctx context.Context, storyID string) (bool, error) {
	user, err := s.requireUser()
	if err != nil {
		return false, err
	}
	st, err := s.lookup(ctx, storyID)
	if err != nil {
		return false, err
	}

	want := !user.IsFavorite(st)
	return want, s.SetFavorite(ctx, storyID, want)
}

// Search returns loaded stories matching query, best first.
func (s *Session) Search(query string) ([]*stories.Story, error) {
	results, err := s.index.Search(query, s.cfg.Search.MaxResults)
	if err != nil {
		return nil, err
	}

	out := make([]*stories.Story, 0, len(results))
	for _, r := range results {
		if st, ok := s.registry.Get(r.ID); ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// Import submits the entries of an RSS or Atom feed as stories.
func (s *Session) Import(ctx context.Context, feedURL string) (*feedimport.Report, error) {
	user, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	list, err := s.ensureList(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.importer.Import(ctx, list, user, feedURL)
	if err != nil {
		return nil, err
	}
	for _, st := range report.Added() {
		s.indexStory(st)
	}
	return report, nil
}

func (s *Session) indexStory(st *stories.Story) {
	if err := s.index.Add(st); err != nil {
		debuglog.Warnf("indexing story %s: %v", st.ID, err)
	}
}
