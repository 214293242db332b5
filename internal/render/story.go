package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/linkboard/internal/stories"
)

const (
	FavoriteMarker = "★"
	titleWidth     = 80
	urlWidth       = 60
)

// Canonical short messages used by the CLI.
const (
	MsgNoStories   = "No stories yet"
	MsgNoResults   = "No results"
	MsgLoggedOut   = "Logged out"
	MsgNotLoggedIn = "Not logged in"
)

// MsgResultsCount pluralizes the search result count.
func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgImportSummary(title string, added, failed int) string {
	base := fmt.Sprintf("Imported %d stories from '%s'", added, strings.TrimSpace(title))
	if failed > 0 {
		base += fmt.Sprintf(" • %d skipped", failed)
	}
	return base
}

// StoryLine renders one story as two lines:
//
//	★ Title (hostname)
//	  by author • posted by username • 3h ago • id
func StoryLine(st *stories.Story, favorite bool, now time.Time) string {
	marker := " "
	if favorite {
		marker = FavoriteStyle.Render(FavoriteMarker)
	}

	host, err := st.Hostname()
	if err != nil {
		host = truncateMiddle(st.URL, urlWidth)
	}

	first := fmt.Sprintf("%s %s %s",
		marker,
		StoryTitleStyle.Render(truncateEnd(st.Title, titleWidth)),
		HostStyle.Render("("+host+")"),
	)

	meta := []string{"by " + st.Author}
	if st.Username != "" {
		meta = append(meta, "posted by "+st.Username)
	}
	if !st.CreatedAt.IsZero() {
		meta = append(meta, relativeTime(st.CreatedAt, now))
	}
	meta = append(meta, st.ID)

	return first + "\n  " + MetaStyle.Render(strings.Join(meta, " • "))
}

// StoryList renders list with a blank line between entries. isFavorite may be
// nil when nobody is logged in.
func StoryList(list []*stories.Story, isFavorite func(*stories.Story) bool, now time.Time) string {
	if len(list) == 0 {
		return HelpStyle.Render(MsgNoStories)
	}

	blocks := make([]string, len(list))
	for i, st := range list {
		fav := isFavorite != nil && isFavorite(st)
		blocks[i] = StoryLine(st, fav, now)
	}
	return strings.Join(blocks, "\n\n")
}

// Error renders err in the error style.
func Error(err error) string {
	return ErrorMessageStyle.Render("Error: " + err.Error())
}

func Success(msg string) string {
	return SuccessMessageStyle.Render(msg)
}
