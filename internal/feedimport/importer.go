package feedimport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pders01/linkboard/internal/config"
	"github.com/pders01/linkboard/internal/debuglog"
	"github.com/pders01/linkboard/internal/stories"
	"github.com/pders01/linkboard/internal/validation"
)

var (
	ErrMissingTitle = errors.New("feed item has no title")
	ErrDuplicate    = errors.New("story with this URL is already listed")
)

// Result is the outcome for one feed item. Story is set when it was submitted.
type Result struct {
	Draft stories.NewStory
	Story *stories.Story
	Err   error
}

// Report describes one import run, item by item in feed order.
type Report struct {
	FeedURL   string
	FeedTitle string
	Results   []Result
}

// Added returns the submitted stories in feed order.
func (r *Report) Added() []*stories.Story {
	var out []*stories.Story
	for _, res := range r.Results {
		if res.Story != nil {
			out = append(out, res.Story)
		}
	}
	return out
}

// Failed counts the entries that were not submitted.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Importer submits the entries of a feed as stories.
type Importer struct {
	fetcher   *Fetcher
	parser    *Parser
	validator *validation.StoryURLValidator
	maxItems  int
}

// NewImporter creates an importer using the import and API settings of cfg.
func NewImporter(cfg *config.Config) *Importer {
	return &Importer{
		fetcher:   NewFetcher(cfg),
		parser:    NewParser(),
		validator: validation.ForHosts(cfg.Import.AllowPrivateHosts),
		maxItems:  cfg.Import.MaxItems,
	}
}

// Import fetches feedURL and submits up to maxItems entries through list on
// behalf of user. Entries are submitted oldest first so the list ends up in
// feed order. A failing entry is recorded in the report and does not stop
// the rest.
func (im *Importer) Import(ctx context.Context, list *stories.StoryList, user *stories.User, feedURL string) (*Report, error) {
	if user == nil || user.Token() == "" {
		return nil, stories.ErrNotLoggedIn
	}

	normalized, err := im.validator.ValidateAndNormalize(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	resp, err := im.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := im.parser.Parse(io.LimitReader(resp.Body, maxFeedSize), user.Username())
	if err != nil {
		return nil, err
	}

	drafts := feed.Drafts
	if im.maxItems > 0 && len(drafts) > im.maxItems {
		drafts = drafts[:im.maxItems]
	}

	report := &Report{
		FeedURL:   normalized,
		FeedTitle: feed.Title,
		Results:   make([]Result, len(drafts)),
	}

	log := debuglog.WithFields(map[string]interface{}{
		"feed":  normalized,
		"items": len(drafts),
	})
	log.Infof("importing feed %q", feed.Title)

	seen := make(map[string]bool)
	for _, st := range list.Stories() {
		seen[st.URL] = true
	}

	for i := len(drafts) - 1; i >= 0; i-- {
		draft := drafts[i]
		report.Results[i].Draft = draft

		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Results[i].Err = ctxErr
			continue
		}
		report.Results[i].Story, report.Results[i].Err = im.submit(ctx, list, user, draft, seen)
		if report.Results[i].Err != nil {
			log.Debugf("skipping %q: %v", draft.Title, report.Results[i].Err)
		}
	}

	log.Infof("imported %d of %d items", len(report.Added()), len(drafts))
	return report, nil
}

func (im *Importer) submit(ctx context.Context, list *stories.StoryList, user *stories.User, draft stories.NewStory, seen map[string]bool) (*stories.Story, error) {
	if draft.Title == "" {
		return nil, ErrMissingTitle
	}

	normalized, err := im.validator.ValidateAndNormalize(draft.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid story URL: %w", err)
	}
	if seen[normalized] || seen[draft.URL] {
		return nil, ErrDuplicate
	}
	draft.URL = normalized

	st, err := list.AddStory(ctx, user, draft)
	if err != nil {
		return nil, err
	}
	seen[normalized] = true
	return st, nil
}
