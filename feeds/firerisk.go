package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyndkarta/fetch"
)

// DefaultFireRiskBaseURL is the SMHI forecast open-data root.
const DefaultFireRiskBaseURL = "https://opendata-download-metfcst.smhi.se"

// GridValue is one fire-risk index value at a grid point or time step.
type GridValue struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Value float64 `json:"value"`
	Time  string  `json:"time"`
}

// FireRiskMeta carries forecast reference times.
type FireRiskMeta struct {
	Time         string `json:"time,omitempty"`
	ApprovedTime string `json:"approvedTime,omitempty"`
}

// FireRiskResult is the {meta, items} response shape of both fire-risk
// endpoints.
type FireRiskResult struct {
	Meta  FireRiskMeta `json:"meta"`
	Items []GridValue  `json:"items"`
}

type fwiForecast struct {
	ApprovedTime string `json:"approvedTime"`
	Geometry     []struct {
		Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	TimeSeries []struct {
		ValidTime  string `json:"validTime"`
		Parameters []struct {
			Name   string     `json:"name"`
			Values []*float64 `json:"values"`
		} `json:"parameters"`
	} `json:"timeSeries"`
}

// FireRiskFeed adapts the SMHI fire weather index (FWI) forecasts.
type FireRiskFeed struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewFireRiskFeed creates the fire-risk adapter.
func NewFireRiskFeed(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *FireRiskFeed {
	return &FireRiskFeed{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Hourly returns the nationwide FWI grid for the nearest forecast step.
func (f *FireRiskFeed) Hourly(ctx context.Context) (*FireRiskResult, error) {
	u := f.baseURL + "/api/category/fwif1g/version/1/hourly/approvedtime.json"

	var fc fwiForecast
	if err := f.fetcher.JSON(ctx, u, nil, &fc); err != nil {
		return nil, fmt.Errorf("fire risk hourly: %w", err)
	}

	var points [][]float64
	if len(fc.Geometry) > 0 {
		points = fc.Geometry[0].Coordinates
	}

	// Nearest time step only; values are index-aligned with the grid.
	var values []*float64
	when := fc.ApprovedTime
	if len(fc.TimeSeries) > 0 {
		ts := fc.TimeSeries[0]
		if ts.ValidTime != "" {
			when = ts.ValidTime
		}
		for _, par := range ts.Parameters {
			if isFWI(par.Name) {
				values = par.Values
				break
			}
		}
	}

	items := make([]GridValue, 0, len(points))
	for i, pt := range points {
		if len(pt) < 2 || i >= len(values) || values[i] == nil {
			continue
		}
		items = append(items, GridValue{
			Lon:   pt[0],
			Lat:   pt[1],
			Value: *values[i],
			Time:  when,
		})
	}

	return &FireRiskResult{Meta: FireRiskMeta{Time: when}, Items: items}, nil
}

// Point returns the FWI forecast series for a single coordinate.
func (f *FireRiskFeed) Point(ctx context.Context, lat, lon float64) (*FireRiskResult, error) {
	u := fmt.Sprintf("%s/api/category/fwif1g/version/1/hourly/geotype/point/lon/%v/lat/%v/data.json",
		f.baseURL, lon, lat)

	var fc fwiForecast
	if err := f.fetcher.JSON(ctx, u, nil, &fc); err != nil {
		return nil, fmt.Errorf("fire risk point: %w", err)
	}

	var items []GridValue
	for _, ts := range fc.TimeSeries {
		for _, par := range ts.Parameters {
			if !isFWI(par.Name) {
				continue
			}
			if len(par.Values) > 0 && par.Values[0] != nil {
				items = append(items, GridValue{
					Lon:   lon,
					Lat:   lat,
					Value: *par.Values[0],
					Time:  ts.ValidTime,
				})
			}
			break
		}
	}

	return &FireRiskResult{Meta: FireRiskMeta{ApprovedTime: fc.ApprovedTime}, Items: items}, nil
}

func isFWI(name string) bool {
	return strings.Contains(strings.ToUpper(name), "FWI")
}
