package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fyndkarta/fetch"
)

// DefaultObsBaseURL is the SMHI observation open-data root, shared by the
// temperature and wind adapters.
const DefaultObsBaseURL = "https://opendata-download-metobs.smhi.se"

type tempStation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Value     []struct {
		Date  int64  `json:"date"` // epoch milliseconds
		Value string `json:"value"`
	} `json:"value"`
}

type tempDoc struct {
	Station []tempStation `json:"station"`
}

// TempFeed adapts SMHI air-temperature station observations (parameter 1).
type TempFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewTempFeed creates the temperature-observation adapter.
func NewTempFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *TempFeed {
	return &TempFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Items returns the latest observation per station. Stations without a
// parseable reading are skipped.
func (f *TempFeed) Items(ctx context.Context) ([]Observation, error) {
	u := f.baseURL + "/api/version/latest/parameter/1.json"

	var doc tempDoc
	if err := f.fetcher.JSON(ctx, u, nil, &doc); err != nil {
		return nil, fmt.Errorf("temperature feed: %w", err)
	}

	items := make([]Observation, 0, len(doc.Station))
	for _, s := range doc.Station {
		if len(s.Value) == 0 {
			continue
		}
		latest := s.Value[len(s.Value)-1]

		value, err := strconv.ParseFloat(latest.Value, 64)
		if err != nil {
			continue
		}

		items = append(items, Observation{
			Source:  "SMHI Temp (obs)",
			Station: s.Name,
			Time:    time.UnixMilli(latest.Date).UTC().Format(time.RFC3339),
			Value:   value,
			Lat:     s.Latitude,
			Lng:     s.Longitude,
		})
	}
	return items, nil
}
