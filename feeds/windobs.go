package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"fyndkarta/fetch"
)

const maxWindEntries = 200

var windSpeedRegex = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m/s`)

type windFeedXML struct {
	Entries []windEntry `xml:"entry"`
}

type windEntry struct {
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
	Summary string `xml:"summary"`
	Point   string `xml:"http://www.georss.org/georss point"` // "lat lon"
}

// WindFeed adapts the SMHI wind-observation Atom feed. Wind speed is
// scraped from the entry text; the feed has no structured value field.
type WindFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewWindFeed creates the wind-observation adapter.
func NewWindFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *WindFeed {
	return &WindFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Items returns station wind readings. Entries lacking coordinates or a
// recognizable "N m/s" value are dropped.
func (f *WindFeed) Items(ctx context.Context) ([]Observation, error) {
	body, err := f.fetcher.Get(ctx, f.baseURL+"/api/inspire/metobs-4.atom", nil)
	if err != nil {
		return nil, fmt.Errorf("wind feed: %w", err)
	}

	var feed windFeedXML
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("wind feed: parse atom: %w", err)
	}

	entries := feed.Entries
	if len(entries) > maxWindEntries {
		entries = entries[:maxWindEntries]
	}

	var items []Observation
	for _, e := range entries {
		lat, lng, ok := parseGeoRSSPoint(e.Point)
		if !ok {
			continue
		}

		title := htmlText(e.Title)
		summary := htmlText(e.Summary)
		value, ok := parseWindSpeed(summary)
		if !ok {
			value, ok = parseWindSpeed(title)
		}
		if !ok {
			continue
		}

		items = append(items, Observation{
			Source:  "SMHI Vind (obs)",
			Station: title,
			Time:    e.Updated,
			Value:   value,
			Lat:     lat,
			Lng:     lng,
		})
	}
	return items, nil
}

func parseGeoRSSPoint(point string) (lat, lng float64, ok bool) {
	fields := strings.Fields(point)
	if len(fields) < 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(fields[0], 64)
	lng, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// parseWindSpeed finds the first "N m/s" value in text. Swedish decimal
// commas are accepted.
func parseWindSpeed(text string) (float64, bool) {
	m := windSpeedRegex.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
