package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fyndkarta/feeds"
	"fyndkarta/listings"
	"fyndkarta/pricesearch"
)

type searchResponse struct {
	Q        string             `json:"q"`
	City     string             `json:"city"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
	Items    []pricesearch.Item `json:"items"`
}

type degradedResponse struct {
	Items []struct{} `json:"items"`
	Error string     `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	query := pricesearch.Query{
		Term:   strings.TrimSpace(r.URL.Query().Get("q")),
		City:   strings.TrimSpace(r.URL.Query().Get("city")),
		Lat:    floatParam(r, "lat"),
		Lng:    floatParam(r, "lng"),
		Stores: splitParam(r.URL.Query().Get("stores")),
		Sort:   r.URL.Query().Get("sort"),
		Page:   intParam(r, "page", 1),
	}
	query.PageSize = intParam(r, "pageSize", 20)

	res, err := s.price.Search(r.Context(), query)
	if err != nil {
		if errors.Is(err, pricesearch.ErrMissingTerm) {
			s.badRequest(w, "Param q (sökterm) krävs")
			return
		}
		// Availability over correctness: upstream failures degrade to
		// an empty 200 so callers can always parse a body.
		s.logger.Warn("Price search failed", "q", query.Term, "error", err)
		s.writeJSON(w, http.StatusOK, degradedResponse{Items: []struct{}{}, Error: err.Error()})
		return
	}

	items := res.Items
	if items == nil {
		items = []pricesearch.Item{}
	}

	setCache(w, 300, 600)
	s.writeJSON(w, http.StatusOK, searchResponse{
		Q:        query.Term,
		City:     query.City,
		Total:    res.Total,
		Page:     res.Page,
		PageSize: res.PageSize,
		Items:    items,
	})
}

func (s *Server) handleFynd(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	tags := splitParam(r.URL.Query().Get("tags"))

	items, err := s.listings.Fetch(r.Context(), tags)
	if err != nil {
		s.logger.Warn("Listings fan-out failed", "tags", tags, "error", err)
		s.writeJSON(w, http.StatusOK, degradedResponse{Items: []struct{}{}, Error: err.Error()})
		return
	}
	if items == nil {
		items = []listings.Item{}
	}

	// Shorter freshness: community listings churn fast.
	w.Header().Set("Cache-Control", "max-age=120")
	s.writeJSON(w, http.StatusOK, map[string][]listings.Item{"items": items})
}

func (s *Server) handleRecalls(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	items, err := s.recalls.Items(r.Context())
	if err != nil {
		s.logger.Warn("Recall feed failed", "error", err)
		items = nil
	}
	setCache(w, 600, 1200)
	s.writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleCrisis(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	items, err := s.crisis.Items(r.Context())
	if err != nil {
		s.logger.Warn("Crisis feed failed", "error", err)
		items = nil
	}
	setCache(w, 180, 300)
	s.writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	items, err := s.warnings.Items(r.Context())
	if err != nil {
		s.logger.Warn("Warning feed failed", "error", err)
		items = nil
	}
	setCache(w, 300, 600)
	s.writeJSON(w, http.StatusOK, nonNil(items))
}

func (s *Server) handleFireRiskHourly(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	res, err := s.firerisk.Hourly(r.Context())
	if err != nil {
		s.logger.Warn("Fire risk hourly failed", "error", err)
		res = &feeds.FireRiskResult{}
	}
	if res.Items == nil {
		res.Items = []feeds.GridValue{}
	}
	setCache(w, 600, 600)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFireRiskPoint(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	lat := floatParam(r, "lat")
	lon := floatParam(r, "lon")
	if lat == nil || lon == nil {
		s.badRequest(w, "lat/lon krävs")
		return
	}

	res, err := s.firerisk.Point(r.Context(), *lat, *lon)
	if err != nil {
		s.logger.Warn("Fire risk point failed", "lat", *lat, "lon", *lon, "error", err)
		res = &feeds.FireRiskResult{}
	}
	if res.Items == nil {
		res.Items = []feeds.GridValue{}
	}
	setCache(w, 600, 600)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTemp(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	items, err := s.temp.Items(r.Context())
	if err != nil {
		s.logger.Warn("Temperature feed failed", "error", err)
		items = nil
	}
	setCache(w, 600, 900)
	s.writeJSON(w, http.StatusOK, nonNilObs(items))
}

func (s *Server) handleWind(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	items, err := s.wind.Items(r.Context())
	if err != nil {
		s.logger.Warn("Wind feed failed", "error", err)
		items = nil
	}
	setCache(w, 600, 600)
	s.writeJSON(w, http.StatusOK, nonNilObs(items))
}

// floatParam returns the parsed query parameter, or nil when absent or
// not a number.
func floatParam(r *http.Request, name string) *float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// splitParam splits a comma-separated parameter, dropping empty tokens.
func splitParam(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonNil(items []feeds.Item) []feeds.Item {
	if items == nil {
		return []feeds.Item{}
	}
	return items
}

func nonNilObs(items []feeds.Observation) []feeds.Observation {
	if items == nil {
		return []feeds.Observation{}
	}
	return items
}
