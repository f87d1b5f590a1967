package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"fyndkarta/fetch"
)

// DefaultWarningsBaseURL is the SMHI open-data root for CAP alerts.
const DefaultWarningsBaseURL = "https://opendata.smhi.se"

type warningProperties struct {
	Headline           string `json:"headline"`
	Event              string `json:"event"`
	Description        string `json:"description"`
	Web                string `json:"web"`
	Instruction        string `json:"instruction"`
	Area               string `json:"area"`
	Urgency            string `json:"urgency"`
	Sent               string `json:"sent"`
	Onset              string `json:"onset"`
	Severity           string `json:"severity"`
	EventAwarenessName string `json:"eventAwarenessName"`
}

type warningFeature struct {
	Properties warningProperties `json:"properties"`
	Geometry   struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

type warningsDoc struct {
	Features []warningFeature `json:"features"`
}

// WarningFeed adapts SMHI regional weather warnings (GeoJSON CAP).
type WarningFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewWarningFeed creates the weather-warning adapter.
func NewWarningFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *WarningFeed {
	return &WarningFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Items fetches and normalizes active warnings. Polygon geometries yield
// a bounding box and its centroid; other geometry types leave
// coordinates unset.
func (f *WarningFeed) Items(ctx context.Context) ([]Item, error) {
	var doc warningsDoc
	if err := f.fetcher.JSON(ctx, f.baseURL+"/warning/alerts/geojson.json", nil, &doc); err != nil {
		return nil, fmt.Errorf("warnings feed: %w", err)
	}

	items := make([]Item, 0, len(doc.Features))
	for _, feat := range doc.Features {
		p := feat.Properties
		levelText := firstNonEmpty(p.Severity, p.EventAwarenessName, p.Event)

		item := Item{
			Source:    "SMHI",
			Title:     firstNonEmpty(p.Headline, p.Event, "SMHI varning"),
			Summary:   p.Description,
			URL:       firstNonEmpty(p.Web, p.Instruction, "https://www.smhi.se/vadret/vadvarningar"),
			Category:  p.Event,
			Region:    firstNonEmpty(p.Area, p.Urgency),
			Time:      firstNonEmpty(p.Sent, p.Onset),
			Severity:  severityLevel(levelText),
			LevelText: levelText,
		}

		if feat.Geometry.Type == "Polygon" {
			if bounds, ok := polygonBounds(feat.Geometry.Coordinates); ok {
				south, west, north, east := bounds[0], bounds[1], bounds[2], bounds[3]
				lat := (south + north) / 2
				lng := (west + east) / 2
				item.Lat, item.Lng = &lat, &lng
				item.Bounds = bounds
			}
		}

		items = append(items, item)
	}
	return items, nil
}

// severityLevel maps the warning color word to a numeric level. This is
// a best-effort heuristic: upstream publishes no authoritative table.
// gul (yellow) = 1, orange = 2, röd (red) = 3; unknown words default low.
func severityLevel(levelText string) int {
	t := strings.ToLower(levelText)
	switch {
	case strings.Contains(t, "röd"):
		return 3
	case strings.Contains(t, "orange"):
		return 2
	case strings.Contains(t, "gul"):
		return 1
	default:
		return 1
	}
}

// polygonBounds computes [south, west, north, east] of a GeoJSON
// Polygon's outer ring.
func polygonBounds(raw json.RawMessage) ([]float64, bool) {
	var rings [][][]float64
	if err := json.Unmarshal(raw, &rings); err != nil {
		return nil, false
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, false
	}

	outer := rings[0]
	if len(outer[0]) < 2 {
		return nil, false
	}
	west, east := outer[0][0], outer[0][0]
	south, north := outer[0][1], outer[0][1]
	for _, c := range outer {
		if len(c) < 2 {
			return nil, false
		}
		if c[0] < west {
			west = c[0]
		}
		if c[0] > east {
			east = c[0]
		}
		if c[1] < south {
			south = c[1]
		}
		if c[1] > north {
			north = c[1]
		}
	}
	return []float64{south, west, north, east}, true
}
