package feedimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/linkboard/internal/stories"
)

// Feed is a parsed feed reduced to story drafts.
type Feed struct {
	Title  string
	Drafts []stories.NewStory
}

type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse reads an RSS, Atom or JSON feed. Items without an author are
// credited to the feed title, then to fallbackAuthor.
func (p *Parser) Parse(reader io.Reader, fallbackAuthor string) (*Feed, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	out := &Feed{
		Title:  strings.TrimSpace(feed.Title),
		Drafts: make([]stories.NewStory, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		out.Drafts = append(out.Drafts, stories.NewStory{
			Title:  strings.TrimSpace(item.Title),
			Author: itemAuthor(item, feed, fallbackAuthor),
			URL:    strings.TrimSpace(item.Link),
		})
	}
	return out, nil
}

func itemAuthor(item *gofeed.Item, feed *gofeed.Feed, fallback string) string {
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	if t := strings.TrimSpace(feed.Title); t != "" {
		return t
	}
	return fallback
}
