// Package feeds contains the peripheral source adapters: each one
// fetches a single external feed (RSS, Atom, GeoJSON, or plain JSON) and
// maps it to the normalized item envelope.
package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item is the normalized envelope shared by the alert-style feeds.
type Item struct {
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	Region    string    `json:"region"`
	Time      string    `json:"time"`
	Severity  int       `json:"severity"`
	LevelText string    `json:"levelText"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	Bounds    []float64 `json:"bounds,omitempty"` // [south, west, north, east]
}

// Observation is a single station measurement (temperature, wind).
type Observation struct {
	Source  string  `json:"source"`
	Station string  `json:"station"`
	Time    string  `json:"time"`
	Value   float64 `json:"value"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// htmlText strips markup from an HTML fragment, returning trimmed text.
// Feed summaries and descriptions routinely embed HTML.
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
