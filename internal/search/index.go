package search

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/linkboard/internal/debuglog"
	"github.com/pders01/linkboard/internal/stories"
)

const defaultLimit = 20

// Result is one matching story.
type Result struct {
	ID    string
	Score float64
}

// Index is an in-memory full-text index over the loaded stories.
type Index struct {
	minQueryLength int

	mu  sync.RWMutex
	idx bleve.Index
}

// NewIndex creates an empty index. Queries shorter than minQueryLength
// return no results.
func NewIndex(minQueryLength int) (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	return &Index{minQueryLength: minQueryLength, idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.IncludeTermVectors = true

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name

	username := bleve.NewTextFieldMapping()
	username.Analyzer = keyword.Name

	hostname := bleve.NewTextFieldMapping()
	hostname.Analyzer = standard.Name

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name
	url.Store = false

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("username", username)
	dm.AddFieldMappingsAt("hostname", hostname)
	dm.AddFieldMappingsAt("url", url)

	im.DefaultMapping = dm
	return im
}

func document(s *stories.Story) map[string]any {
	host, _ := s.Hostname()
	return map[string]any{
		"title":    s.Title,
		"author":   s.Author,
		"username": strings.ToLower(s.Username),
		"hostname": host,
		"url":      s.URL,
	}
}

// Reindex replaces the index contents with list.
func (i *Index) Reindex(list []*stories.Story) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, s := range list {
		if err := batch.Index(s.ID, document(s)); err != nil {
			fresh.Close()
			return fmt.Errorf("indexing story %s: %w", s.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return fmt.Errorf("indexing stories: %w", err)
	}

	i.mu.Lock()
	old := i.idx
	i.idx = fresh
	i.mu.Unlock()

	debuglog.Debugf("search index rebuilt with %d stories", len(list))
	return old.Close()
}

// Add indexes or re-indexes one story.
func (i *Index) Add(s *stories.Story) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.Index(s.ID, document(s))
}

// Remove drops a story from the index. Unknown IDs are ignored.
func (i *Index) Remove(id string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.Delete(id)
}

// DocCount reports the number of indexed stories.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.idx.DocCount()
}

func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Close()
}

// Search returns matching story IDs, best first.
func (i *Index) Search(query string, limit int) ([]Result, error) {
	if len([]rune(strings.TrimSpace(query))) < i.minQueryLength {
		return []Result{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	// OR of per-term matches across fields with boosts
	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs,
			fieldMatch("title", tok, 4.0),
			fieldPrefix("title", tok, 3.5),
			fieldMatch("author", tok, 2.0),
			fieldPrefix("author", tok, 1.8),
			fieldPrefix("username", tok, 1.5),
			fieldMatch("hostname", tok, 1.0),
			fieldPrefix("hostname", tok, 0.8),
			fieldMatch("url", tok, 0.5),
		)
	}
	if len(qs) == 0 {
		return []Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)

	i.mu.RLock()
	res, err := i.idx.Search(req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, Result{ID: h.ID, Score: h.Score})
	}
	return out, nil
}

func fieldMatch(field, term string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(field, term string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// tokenize lower-cases text and splits it on anything that is not a letter
// or digit. Single characters are dropped.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len([]rune(term)) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if len([]rune(current.String())) > 1 {
		terms = append(terms, current.String())
	}

	return terms
}
