package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotLoggedIn is returned by mutating operations on a user without a token.
// No request is sent in that case.
var ErrNotLoggedIn = errors.New("user is not logged in")

// UserRecord is the wire form of a user profile. The API names the user's own
// stories "stories".
type UserRecord struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Favorites []Record  `json:"favorites"`
	Stories   []Record  `json:"stories"`
}

// Gateway is the remote API as seen by the model layer.
type Gateway interface {
	ListStories(ctx context.Context) ([]Record, error)
	CreateStory(ctx context.Context, token string, draft NewStory) (Record, error)
	DeleteStory(ctx context.Context, token, storyID string) error

	Signup(ctx context.Context, username, password, name string) (UserRecord, string, error)
	Login(ctx context.Context, username, password string) (UserRecord, string, error)
	GetUser(ctx context.Context, token, username string) (UserRecord, error)

	AddFavorite(ctx context.Context, token, username, storyID string) error
	RemoveFavorite(ctx context.Context, token, username, storyID string) error
}

// FavoriteStrategy selects how favorite toggles reconcile local state with the
// server.
type FavoriteStrategy int

const (
	// StrategyRollback mutates locally first and reverts on failure unless a
	// newer local mutation of the same story happened in the meantime.
	StrategyRollback FavoriteStrategy = iota
	// StrategyOptimistic mutates locally first and keeps the change on failure.
	StrategyOptimistic
	// StrategyPessimistic waits for the server before mutating locally.
	StrategyPessimistic
)

func (s FavoriteStrategy) String() string {
	switch s {
	case StrategyRollback:
		return "rollback"
	case StrategyOptimistic:
		return "optimistic"
	case StrategyPessimistic:
		return "pessimistic"
	default:
		return "unknown"
	}
}

// ParseFavoriteStrategy parses a strategy name. Empty input selects rollback.
func ParseFavoriteStrategy(s string) (FavoriteStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rollback":
		return StrategyRollback, nil
	case "optimistic":
		return StrategyOptimistic, nil
	case "pessimistic":
		return StrategyPessimistic, nil
	default:
		return StrategyRollback, fmt.Errorf("unknown favorite strategy %q", s)
	}
}

type options struct {
	registry *Registry
	strategy FavoriteStrategy
}

// Option configures StoryList and User construction.
type Option func(*options)

// WithRegistry shares reg between every collection built with it.
func WithRegistry(reg *Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithFavoriteStrategy sets the favorite reconciliation strategy for a User.
func WithFavoriteStrategy(s FavoriteStrategy) Option {
	return func(o *options) { o.strategy = s }
}

func buildOptions(opts []Option) options {
	o := options{strategy: StrategyRollback}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	return o
}
