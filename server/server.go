// Package server handles HTTP endpoints and request routing.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"fyndkarta/feeds"
	"fyndkarta/listings"
	"fyndkarta/pricesearch"
)

// Server handles HTTP requests.
type Server struct {
	price    *pricesearch.Aggregator
	listings *listings.Aggregator
	recalls  *feeds.RecallFeed
	crisis   *feeds.CrisisFeed
	warnings *feeds.WarningFeed
	firerisk *feeds.FireRiskFeed
	temp     *feeds.TempFeed
	wind     *feeds.WindFeed
	logger   *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Price    *pricesearch.Aggregator
	Listings *listings.Aggregator
	Recalls  *feeds.RecallFeed
	Crisis   *feeds.CrisisFeed
	Warnings *feeds.WarningFeed
	FireRisk *feeds.FireRiskFeed
	Temp     *feeds.TempFeed
	Wind     *feeds.WindFeed
	Logger   *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		price:    cfg.Price,
		listings: cfg.Listings,
		recalls:  cfg.Recalls,
		crisis:   cfg.Crisis,
		warnings: cfg.Warnings,
		firerisk: cfg.FireRisk,
		temp:     cfg.Temp,
		wind:     cfg.Wind,
		logger:   cfg.Logger,
	}
}

// Handler builds the route table. The two warning routes share one
// adapter: the upstream variants were consolidated to the richer shape.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/fynd", s.handleFynd)
	mux.HandleFunc("/api/livsmedel", s.handleRecalls)
	mux.HandleFunc("/api/kris", s.handleCrisis)
	mux.HandleFunc("/api/smhi-warnings", s.handleWarnings)
	mux.HandleFunc("/api/smhi/warnings", s.handleWarnings)
	mux.HandleFunc("/api/smhi/brandrisk-hourly", s.handleFireRiskHourly)
	mux.HandleFunc("/api/smhi/brandrisk-point", s.handleFireRiskPoint)
	mux.HandleFunc("/api/smhi/temp", s.handleTemp)
	mux.HandleFunc("/api/smhi/wind", s.handleWind)
	return mux
}

// ListenAndServe starts the server with timeouts to prevent resource
// exhaustion.
func (s *Server) ListenAndServe(port string) error {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// setCache emits the CDN caching hint: a freshness window plus a
// stale-while-revalidate window, tuned per endpoint volatility.
func setCache(w http.ResponseWriter, maxAge, staleWhileRevalidate int) {
	w.Header().Set("Cache-Control",
		fmt.Sprintf("s-maxage=%d, stale-while-revalidate=%d", maxAge, staleWhileRevalidate))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
