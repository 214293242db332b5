package stories

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errRejected = errors.New("rejected by server")

type favoriteCall struct {
	add     bool
	token   string
	user    string
	storyID string
}

// fakeGateway records calls and serves canned responses. Hooks, when set,
// replace the canned behaviour for that endpoint.
type fakeGateway struct {
	mu sync.Mutex

	stories []Record
	users   map[string]UserRecord
	tokens  map[string]string // token -> username
	nextID  int

	listErr   error
	createErr error
	deleteErr error
	favErr    error

	favoriteHook func(call favoriteCall) error

	created   []NewStory
	deleted   []string
	favorites []favoriteCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:  make(map[string]UserRecord),
		tokens: make(map[string]string),
	}
}

func record(id, title, url string) Record {
	return Record{
		StoryID:   id,
		Title:     title,
		Author:    "Author " + id,
		URL:       url,
		Username:  "poster",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (g *fakeGateway) addUser(rec UserRecord, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[rec.Username] = rec
	g.tokens[token] = rec.Username
}

func (g *fakeGateway) ListStories(ctx context.Context) ([]Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]Record, len(g.stories))
	copy(out, g.stories)
	return out, nil
}

func (g *fakeGateway) CreateStory(ctx context.Context, token string, draft NewStory) (Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return Record{}, g.createErr
	}
	g.nextID++
	g.created = append(g.created, draft)
	rec := Record{
		StoryID:   "new-" + string(rune('a'+g.nextID-1)),
		Title:     draft.Title,
		Author:    draft.Author,
		URL:       draft.URL,
		Username:  g.tokens[token],
		CreatedAt: time.Now().UTC(),
	}
	g.stories = append([]Record{rec}, g.stories...)
	return rec, nil
}

func (g *fakeGateway) DeleteStory(ctx context.Context, token, storyID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, storyID)
	return nil
}

func (g *fakeGateway) Signup(ctx context.Context, username, password, name string) (UserRecord, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.users[username]; exists {
		return UserRecord{}, "", errRejected
	}
	rec := UserRecord{Username: username, Name: name, CreatedAt: time.Now().UTC()}
	token := "token-" + username
	g.users[username] = rec
	g.tokens[token] = username
	return rec, token, nil
}

func (g *fakeGateway) Login(ctx context.Context, username, password string) (UserRecord, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.users[username]
	if !ok || password != "secret" {
		return UserRecord{}, "", errRejected
	}
	return rec, "token-" + username, nil
}

func (g *fakeGateway) GetUser(ctx context.Context, token, username string) (UserRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tokens[token] != username {
		return UserRecord{}, errRejected
	}
	return g.users[username], nil
}

func (g *fakeGateway) AddFavorite(ctx context.Context, token, username, storyID string) error {
	return g.favorite(favoriteCall{add: true, token: token, user: username, storyID: storyID})
}

func (g *fakeGateway) RemoveFavorite(ctx context.Context, token, username, storyID string) error {
	return g.favorite(favoriteCall{add: false, token: token, user: username, storyID: storyID})
}

func (g *fakeGateway) favorite(call favoriteCall) error {
	g.mu.Lock()
	g.favorites = append(g.favorites, call)
	hook, err := g.favoriteHook, g.favErr
	g.mu.Unlock()

	if hook != nil {
		return hook(call)
	}
	return err
}

func (g *fakeGateway) favoriteCalls() []favoriteCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]favoriteCall, len(g.favorites))
	copy(out, g.favorites)
	return out
}

func storyIDs(list []*Story) []string {
	ids := make([]string, 0, len(list))
	for _, st := range list {
		ids = append(ids, st.ID)
	}
	return ids
}
