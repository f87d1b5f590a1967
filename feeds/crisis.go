package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyndkarta/fetch"
)

// DefaultCrisisBaseURL is the Krisinformation API root.
const DefaultCrisisBaseURL = "https://api.krisinformation.se"

type krisArea struct {
	Description string `json:"Description"`
	Geometry    *struct {
		Point *struct {
			Coordinates []float64 `json:"Coordinates"` // [lon, lat]
		} `json:"Point"`
	} `json:"Geometry"`
}

type krisUpdate struct {
	Headline  string     `json:"Headline"`
	Preamble  string     `json:"Preamble"`
	BodyText  string     `json:"BodyText"`
	Web       string     `json:"Web"`
	ImageURL  string     `json:"ImageUrl"`
	Event     string     `json:"Event"`
	Updated   string     `json:"Updated"`
	Published string     `json:"Published"`
	Area      []krisArea `json:"Area"`
}

// CrisisFeed adapts the Krisinformation national crisis-update feed.
type CrisisFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewCrisisFeed creates the crisis adapter.
func NewCrisisFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *CrisisFeed {
	return &CrisisFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Items fetches and normalizes current crisis updates. Severity is a
// fixed middle level: the upstream feed carries no severity taxonomy.
func (f *CrisisFeed) Items(ctx context.Context) ([]Item, error) {
	var updates []krisUpdate
	if err := f.fetcher.JSON(ctx, f.baseURL+"/v3/updates?format=json", nil, &updates); err != nil {
		return nil, fmt.Errorf("crisis feed: %w", err)
	}

	items := make([]Item, 0, len(updates))
	for _, u := range updates {
		item := Item{
			Source:    "Krisinformation",
			Title:     firstNonEmpty(u.Headline, "Meddelande"),
			Summary:   firstNonEmpty(u.Preamble, u.BodyText),
			URL:       firstNonEmpty(u.Web, u.ImageURL, "https://www.krisinformation.se"),
			Category:  u.Event,
			Time:      firstNonEmpty(u.Updated, u.Published),
			Severity:  2,
			LevelText: firstNonEmpty(u.Event, "Info"),
		}

		if len(u.Area) > 0 {
			var regions []string
			for _, a := range u.Area {
				if a.Description != "" {
					regions = append(regions, a.Description)
				}
			}
			item.Region = strings.Join(regions, ", ")

			a0 := u.Area[0]
			if a0.Geometry != nil && a0.Geometry.Point != nil && len(a0.Geometry.Point.Coordinates) >= 2 {
				lng := a0.Geometry.Point.Coordinates[0]
				lat := a0.Geometry.Point.Coordinates[1]
				item.Lat, item.Lng = &lat, &lng
			}
		}

		items = append(items, item)
	}
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
