package stories

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrMalformedURL is matched by every *MalformedURLError.
var ErrMalformedURL = errors.New("malformed story URL")

// MalformedURLError reports a story URL that is not a valid absolute URL.
type MalformedURLError struct {
	URL string
	Err error
}

func (e *MalformedURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed story URL %q: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("malformed story URL %q", e.URL)
}

func (e *MalformedURLError) Unwrap() error { return e.Err }

func (e *MalformedURLError) Is(target error) bool { return target == ErrMalformedURL }

// Record is the wire form of a story as returned by the API.
type Record struct {
	StoryID   string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStory is the user-supplied part of a story submission.
type NewStory struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// Story is a single posted link. Fields are never modified after construction.
type Story struct {
	ID        string
	Title     string
	Author    string
	URL       string
	Username  string
	CreatedAt time.Time
}

// NewStoryFromRecord copies every record field verbatim.
func NewStoryFromRecord(rec Record) *Story {
	return &Story{
		ID:        rec.StoryID,
		Title:     rec.Title,
		Author:    rec.Author,
		URL:       rec.URL,
		Username:  rec.Username,
		CreatedAt: rec.CreatedAt,
	}
}

// Record returns the wire form of the story.
func (s *Story) Record() Record {
	return Record{
		StoryID:   s.ID,
		Title:     s.Title,
		Author:    s.Author,
		URL:       s.URL,
		Username:  s.Username,
		CreatedAt: s.CreatedAt,
	}
}

// Hostname returns the host component of the story URL.
func (s *Story) Hostname() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", &MalformedURLError{URL: s.URL, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &MalformedURLError{URL: s.URL}
	}
	return u.Host, nil
}
