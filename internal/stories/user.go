package stories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pders01/linkboard/internal/debuglog"
)

// User is an authenticated account together with its authored and favorited
// stories.
type User struct {
	username  string
	name      string
	createdAt time.Time
	token     string

	gateway  Gateway
	registry *Registry
	strategy FavoriteStrategy

	mu         sync.RWMutex
	favorites  *Set
	ownStories *Set
	// gen counts local favorite mutations per story. A pending request only
	// touches local state while its generation is still the latest.
	gen map[string]uint64
}

func newUser(gw Gateway, rec UserRecord, token string, o options) *User {
	return &User{
		username:   rec.Username,
		name:       rec.Name,
		createdAt:  rec.CreatedAt,
		token:      token,
		gateway:    gw,
		registry:   o.registry,
		strategy:   o.strategy,
		favorites:  newSet(o.registry.internAll(rec.Favorites)...),
		ownStories: newSet(o.registry.internAll(rec.Stories)...),
		gen:        make(map[string]uint64),
	}
}

// Signup creates an account and returns it logged in.
func Signup(ctx context.Context, gw Gateway, username, password, name string, opts ...Option) (*User, error) {
	rec, token, err := gw.Signup(ctx, username, password, name)
	if err != nil {
		return nil, fmt.Errorf("signing up %s: %w", username, err)
	}
	debuglog.Infof("signed up %s", rec.Username)
	return newUser(gw, rec, token, buildOptions(opts)), nil
}

// Login authenticates with a username and password.
func Login(ctx context.Context, gw Gateway, username, password string, opts ...Option) (*User, error) {
	rec, token, err := gw.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("logging in %s: %w", username, err)
	}
	debuglog.Infof("logged in %s", rec.Username)
	return newUser(gw, rec, token, buildOptions(opts)), nil
}

// LoginViaStoredCredentials rebuilds a user from a previously issued token.
// Any failure yields nil; callers treat that as "not logged in".
func LoginViaStoredCredentials(ctx context.Context, gw Gateway, token, username string, opts ...Option) *User {
	if token == "" || username == "" {
		return nil
	}

	rec, err := gw.GetUser(ctx, token, username)
	if err != nil {
		debuglog.WithFields(map[string]interface{}{"user": username}).
			Debugf("discarding stored credentials: %v", err)
		return nil
	}
	return newUser(gw, rec, token, buildOptions(opts))
}

// Username is the immutable account name.
func (u *User) Username() string { return u.username }

// Name is the display name given at signup.
func (u *User) Name() string { return u.name }

// CreatedAt reports when the account was created.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// Token is the credential sent with every mutating request.
func (u *User) Token() string { return u.token }

// Strategy returns how favorite changes react to server failures.
func (u *User) Strategy() FavoriteStrategy { return u.strategy }

// Favorites returns a snapshot of the user's favorite stories.
func (u *User) Favorites() []*Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.Items()
}

// OwnStories returns a snapshot of the stories the user posted.
func (u *User) OwnStories() []*Story {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ownStories.Items()
}

// IsFavorite reports whether a story with the same ID is among the favorites.
func (u *User) IsFavorite(st *Story) bool {
	if st == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.favorites.Contains(st.ID)
}

// AddFavorite marks st as a favorite locally and on the server.
func (u *User) AddFavorite(ctx context.Context, st *Story) error {
	if err := u.checkMutation(st); err != nil {
		return err
	}
	st = u.registry.Intern(st)

	u.mu.Lock()
	gen := u.bump(st.ID)
	added := false
	if u.strategy != StrategyPessimistic {
		added = u.favorites.Append(st)
	}
	u.mu.Unlock()

	if err := u.gateway.AddFavorite(ctx, u.token, u.username, st.ID); err != nil {
		if added && u.strategy == StrategyRollback {
			u.ifCurrent(st.ID, gen, func() { u.favorites.Remove(st.ID) })
		}
		return fmt.Errorf("adding favorite %s: %w", st.ID, err)
	}

	if u.strategy == StrategyPessimistic {
		u.ifCurrent(st.ID, gen, func() { u.favorites.Append(st) })
	}
	return nil
}

// RemoveFavorite unmarks st locally and on the server. Removing a story that
// is not a favorite is a local no-op; the request is still sent.
func (u *User) RemoveFavorite(ctx context.Context, st *Story) error {
	if err := u.checkMutation(st); err != nil {
		return err
	}

	u.mu.Lock()
	gen := u.bump(st.ID)
	pos := -1
	var removed *Story
	if u.strategy != StrategyPessimistic {
		removed, _ = u.favorites.Get(st.ID)
		pos = u.favorites.Remove(st.ID)
	}
	u.mu.Unlock()

	if err := u.gateway.RemoveFavorite(ctx, u.token, u.username, st.ID); err != nil {
		// The registry is left alone: a story deleted meanwhile stays deleted.
		if pos >= 0 && u.strategy == StrategyRollback {
			u.ifCurrent(st.ID, gen, func() { u.favorites.InsertAt(pos, removed) })
		}
		return fmt.Errorf("removing favorite %s: %w", st.ID, err)
	}

	if u.strategy == StrategyPessimistic {
		u.ifCurrent(st.ID, gen, func() { u.favorites.Remove(st.ID) })
	}
	return nil
}

func (u *User) checkMutation(st *Story) error {
	if u.token == "" {
		return ErrNotLoggedIn
	}
	if st == nil || st.ID == "" {
		return errors.New("story has no id")
	}
	return nil
}

// bump must be called with u.mu held.
func (u *User) bump(id string) uint64 {
	u.gen[id]++
	return u.gen[id]
}

func (u *User) ifCurrent(id string, gen uint64, apply func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.gen[id] != gen {
		debuglog.Debugf("favorite %s superseded by a newer change", id)
		return
	}
	apply()
}

func (u *User) addOwnStory(st *Story) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ownStories.Prepend(st)
}

func (u *User) purgeStory(id string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.favorites.Remove(id)
	u.ownStories.Remove(id)
	u.bump(id)
}
