package pricesearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fyndkarta/fetch"
)

// DefaultMPKBaseURL is the production Matpriskollen API endpoint.
const DefaultMPKBaseURL = "https://api.matpriskollen.se"

// record is a loosely-typed price row as returned by the upstream API,
// before normalization. Lives only for the duration of one request.
type record struct {
	source      string
	store       string
	product     string
	price       *float64
	priceText   string
	city        string
	lastUpdated string
	image       string
	ean         string
	lat         *float64
	lng         *float64
	url         string
}

type mpkProduct struct {
	Name        string   `json:"name"`
	StoreName   string   `json:"storeName"`
	Store       string   `json:"store"`
	Price       *float64 `json:"price"`
	StoreCity   string   `json:"storeCity"`
	City        string   `json:"city"`
	LastUpdated string   `json:"lastUpdated"`
	UpdatedAt   string   `json:"updatedAt"`
	ImageURL    string   `json:"imageUrl"`
	EAN         string   `json:"ean"`
	Barcode     string   `json:"barcode"`
	StoreLat    *float64 `json:"storeLat"`
	StoreLng    *float64 `json:"storeLng"`
	URL         string   `json:"url"`
}

type mpkResponse struct {
	Products []mpkProduct `json:"products"`
}

// MPKClient queries the Matpriskollen product-price API. Without an API
// key it serves a small fixture set so the service stays demoable.
type MPKClient struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
	apiKey  string
	now     func() time.Time
}

// NewMPKClient creates a price API client. An empty apiKey enables the
// fixture fallback.
func NewMPKClient(fetcher *fetch.Client, baseURL, apiKey string, logger *slog.Logger) *MPKClient {
	return &MPKClient{
		fetcher: fetcher,
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		now:     time.Now,
	}
}

// Search returns raw price records matching q, optionally scoped to a city.
func (c *MPKClient) Search(ctx context.Context, q, city string) ([]record, error) {
	if c.apiKey == "" {
		c.logger.Info("No MPK API key configured, serving fixture data", "q", q)
		return fixtureRecords(q, city, c.now()), nil
	}

	u := c.baseURL + "/products/search?query=" + url.QueryEscape(q)
	if city != "" {
		u += "&city=" + url.QueryEscape(city)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	header.Set("User-Agent", "matpris-client/1.0")

	var resp mpkResponse
	if err := c.fetcher.JSON(ctx, u, header, &resp); err != nil {
		return nil, fmt.Errorf("mpk search: %w", err)
	}

	records := make([]record, 0, len(resp.Products))
	for _, p := range resp.Products {
		store := p.StoreName
		if store == "" {
			store = p.Store
		}
		city := p.StoreCity
		if city == "" {
			city = p.City
		}
		updated := p.LastUpdated
		if updated == "" {
			updated = p.UpdatedAt
		}
		ean := p.EAN
		if ean == "" {
			ean = p.Barcode
		}

		var priceText string
		if p.Price != nil {
			priceText = fmt.Sprintf("%.2f kr", *p.Price)
		}

		records = append(records, record{
			source:      "MPK",
			store:       store,
			product:     p.Name,
			price:       p.Price,
			priceText:   priceText,
			city:        city,
			lastUpdated: updated,
			image:       p.ImageURL,
			ean:         ean,
			lat:         p.StoreLat,
			lng:         p.StoreLng,
			url:         p.URL,
		})
	}

	return records, nil
}

// fixtureRecords is the embedded dataset served when no API key is
// configured, filtered by case-insensitive substring match on product name.
func fixtureRecords(q, city string, now time.Time) []record {
	if city == "" {
		city = "Stockholm"
	}
	date := now.Format("2006-01-02")

	f := func(v float64) *float64 { return &v }
	base := []record{
		{source: "MOCK", store: "ICA Maxi", product: "Kaffe 500g Mörkrost", price: f(19.9), priceText: "19.90 kr", city: city, lastUpdated: date, lat: f(59.334), lng: f(18.063)},
		{source: "MOCK", store: "Willys", product: "Kaffe 500g Mörkrost", price: f(17.9), priceText: "17.90 kr", city: city, lastUpdated: date, lat: f(59.306), lng: f(18.000)},
		{source: "MOCK", store: "Coop", product: "Kaffe 500g Mörkrost", price: f(21.9), priceText: "21.90 kr", city: city, lastUpdated: date, lat: f(59.360), lng: f(18.050)},
	}

	needle := strings.ToLower(q)
	var out []record
	for _, r := range base {
		if strings.Contains(strings.ToLower(r.product), needle) {
			out = append(out, r)
		}
	}
	return out
}
