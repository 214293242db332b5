package stories

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pders01/linkboard/internal/debuglog"
)

// StoryList is the ordered collection of every known story.
type StoryList struct {
	gateway  Gateway
	registry *Registry

	mu      sync.RWMutex
	stories *Set
}

// GetStories fetches all stories and returns them as a new StoryList in the
// order the server sent them.
func GetStories(ctx context.Context, gw Gateway, opts ...Option) (*StoryList, error) {
	records, err := gw.ListStories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching stories: %w", err)
	}

	o := buildOptions(opts)
	debuglog.Debugf("fetched %d stories", len(records))
	return &StoryList{
		gateway:  gw,
		registry: o.registry,
		stories:  newSet(o.registry.internAll(records)...),
	}, nil
}

// Stories returns a snapshot of the list, most recent first after mutations.
func (l *StoryList) Stories() []*Story {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.Items()
}

// Len returns the number of stories in the list.
func (l *StoryList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stories.Len()
}

// Find returns the story with id if the list holds it.
func (l *StoryList) Find(id string) (*Story, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.stories.Contains(id) {
		return nil, false
	}
	return l.registry.Get(id)
}

// AddStory submits draft on behalf of user. After the server accepts it the
// new story is placed first in the list and first in the user's own stories.
// On failure neither collection changes.
func (l *StoryList) AddStory(ctx context.Context, user *User, draft NewStory) (*Story, error) {
	if user == nil || user.Token() == "" {
		return nil, ErrNotLoggedIn
	}

	rec, err := l.gateway.CreateStory(ctx, user.Token(), draft)
	if err != nil {
		return nil, fmt.Errorf("creating story: %w", err)
	}
	if rec.StoryID == "" {
		return nil, errors.New("creating story: response has no story id")
	}

	st := l.registry.Intern(NewStoryFromRecord(rec))

	l.mu.Lock()
	l.stories.Prepend(st)
	l.mu.Unlock()

	user.addOwnStory(st)

	debuglog.WithFields(map[string]interface{}{
		"story_id": st.ID,
		"user":     user.Username(),
	}).Infof("story created")
	return st, nil
}

// RemoveStory deletes storyID on the server, then purges it from the list and
// from both of the user's collections. A failed request leaves everything as
// it was.
func (l *StoryList) RemoveStory(ctx context.Context, user *User, storyID string) error {
	if user == nil || user.Token() == "" {
		return ErrNotLoggedIn
	}

	if err := l.gateway.DeleteStory(ctx, user.Token(), storyID); err != nil {
		return fmt.Errorf("deleting story %s: %w", storyID, err)
	}

	l.mu.Lock()
	l.stories.Remove(storyID)
	l.mu.Unlock()

	user.purgeStory(storyID)
	l.registry.Forget(storyID)

	debuglog.WithFields(map[string]interface{}{
		"story_id": storyID,
		"user":     user.Username(),
	}).Infof("story deleted")
	return nil
}
