package stories

import "sync"

// Registry is the canonical store of stories keyed by ID. StoryList and User
// collections hold references returned by Intern, so one story value backs
// every collection that mentions it.
type Registry struct {
	mu      sync.Mutex
	stories map[string]*Story
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stories: make(map[string]*Story)}
}

// Intern returns the canonical story for st.ID, storing st if none exists.
// Stories are immutable, so the first value seen for an ID wins.
func (r *Registry) Intern(st *Story) *Story {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.stories[st.ID]; ok {
		return existing
	}
	r.stories[st.ID] = st
	return st
}

// Get returns the canonical story for id.
func (r *Registry) Get(id string) (*Story, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stories[id]
	return st, ok
}

// Forget drops id from the registry.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stories, id)
}

// Retain drops every story whose ID keep rejects.
func (r *Registry) Retain(keep func(id string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.stories {
		if !keep(id) {
			delete(r.stories, id)
		}
	}
}

// Len returns the number of interned stories.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.stories)
}

func (r *Registry) internAll(records []Record) []*Story {
	out := make([]*Story, 0, len(records))
	for _, rec := range records {
		out = append(out, r.Intern(NewStoryFromRecord(rec)))
	}
	return out
}
