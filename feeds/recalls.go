package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"fyndkarta/fetch"
)

// DefaultRecallBaseURL is the Livsmedelsverket site root.
const DefaultRecallBaseURL = "https://www.livsmedelsverket.se"

var (
	ortRegex   = regexp.MustCompile(`(?i)Ort:\s*([^<\n]+)`)
	placeRegex = regexp.MustCompile(`\b(?:i|från)\s+([A-ZÅÄÖa-zåäö\- ]+)`)
)

type recallRSS struct {
	Items []recallRSSItem `xml:"channel>item"`
}

type recallRSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// RecallFeed adapts the Livsmedelsverket food-recall RSS feed.
type RecallFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewRecallFeed creates the recall adapter.
func NewRecallFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *RecallFeed {
	return &RecallFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Items fetches and normalizes current recalls.
func (f *RecallFeed) Items(ctx context.Context) ([]Item, error) {
	body, err := f.fetcher.Get(ctx, f.baseURL+"/rss?type=recall", nil)
	if err != nil {
		return nil, fmt.Errorf("recall feed: %w", err)
	}

	var rss recallRSS
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("recall feed: parse rss: %w", err)
	}

	items := make([]Item, 0, len(rss.Items))
	for _, raw := range rss.Items {
		summary := htmlText(raw.Description)
		items = append(items, Item{
			Source:    "Livsmedelsverket",
			Title:     strings.TrimSpace(raw.Title),
			Summary:   summary,
			URL:       strings.TrimSpace(raw.Link),
			Category:  "Återkallelse",
			Region:    guessRegion(raw.Title, summary),
			Time:      raw.PubDate,
			Severity:  2,
			LevelText: "Återkallelse",
		})
	}
	return items, nil
}

// guessRegion extracts a place name from a recall notice. Many notices
// carry an "Ort: <city>" line; otherwise fall back to "i/från <place>"
// in the title. Often empty: recalls are usually nationwide.
func guessRegion(title, summary string) string {
	if m := ortRegex.FindStringSubmatch(summary); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := placeRegex.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
