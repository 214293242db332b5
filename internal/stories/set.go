package stories

// Set is an ordered collection of stories with unique IDs.
// It is not safe for concurrent use; owners guard it with their own lock.
type Set struct {
	items []*Story
	index map[string]struct{}
}

func newSet(items ...*Story) *Set {
	s := &Set{index: make(map[string]struct{}, len(items))}
	for _, st := range items {
		s.Append(st)
	}
	return s
}

// Len returns the number of stories in the set.
func (s *Set) Len() int { return len(s.items) }

// Contains reports whether a story with id is present.
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Prepend inserts st at the front. An existing entry with the same ID is moved.
func (s *Set) Prepend(st *Story) {
	s.Remove(st.ID)
	s.items = append([]*Story{st}, s.items...)
	s.index[st.ID] = struct{}{}
}

// Append adds st at the back. It reports false when the ID is already present.
func (s *Set) Append(st *Story) bool {
	if s.Contains(st.ID) {
		return false
	}
	s.items = append(s.items, st)
	s.index[st.ID] = struct{}{}
	return true
}

// InsertAt places st at position i, clamped to the set bounds.
func (s *Set) InsertAt(i int, st *Story) {
	if s.Contains(st.ID) {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(s.items) {
		i = len(s.items)
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = st
	s.index[st.ID] = struct{}{}
}

// Get returns the stored story with id.
func (s *Set) Get(id string) (*Story, bool) {
	if !s.Contains(id) {
		return nil, false
	}
	for _, st := range s.items {
		if st.ID == id {
			return st, true
		}
	}
	return nil, false
}

// Remove drops the story with id and returns its former position, or -1.
func (s *Set) Remove(id string) int {
	if !s.Contains(id) {
		return -1
	}
	for i, st := range s.items {
		if st.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			delete(s.index, id)
			return i
		}
	}
	return -1
}

// Items returns a copy of the ordered stories.
func (s *Set) Items() []*Story {
	out := make([]*Story, len(s.items))
	copy(out, s.items)
	return out
}
