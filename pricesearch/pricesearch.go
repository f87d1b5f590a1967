// Package pricesearch aggregates grocery price data: it queries the
// primary pricing source, enriches missing product images from the Open
// Food Facts catalog, scores distance to the user, then filters, sorts,
// and paginates.
package pricesearch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"fyndkarta/geo"
)

const (
	// Image lookups per request are capped so one large result set
	// cannot flood the catalog API.
	maxImageLookups = 25

	// Items without a computed distance sort after everything else.
	missingDistance = 1e9

	minPageSize = 10
	maxPageSize = 50
)

// ErrMissingTerm is returned when the search term is empty. It is the
// only client-input error on this path and maps to HTTP 400.
var ErrMissingTerm = errors.New("search term required")

// Sort modes.
const (
	SortPrice    = "price"
	SortDistance = "distance"
	SortName     = "name"
)

// Query describes one price search.
type Query struct {
	Term     string
	Lat      *float64
	Lng      *float64
	City     string
	Stores   []string // allow-list tokens, case-insensitive substring match
	Sort     string
	Page     int
	PageSize int
}

// Item is a normalized price listing. Identity is the derived
// store|product|price key, not a source-provided id.
type Item struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Store    string   `json:"store"`
	Product  string   `json:"product"`
	Price    string   `json:"price"`
	PriceNum float64  `json:"priceNum"`
	City     string   `json:"city"`
	Date     string   `json:"date"`
	Image    *string  `json:"image"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Km       *float64 `json:"km"`
	URL      *string  `json:"url"`
}

// Result is one page of normalized items plus the pre-pagination total.
type Result struct {
	Total    int
	Page     int
	PageSize int
	Items    []Item
}

// Aggregator runs the full search pipeline.
type Aggregator struct {
	mpk    *MPKClient
	off    *OFFClient
	logger *slog.Logger
}

// New creates a price-search aggregator.
func New(mpk *MPKClient, off *OFFClient, logger *slog.Logger) *Aggregator {
	return &Aggregator{mpk: mpk, off: off, logger: logger}
}

// Search executes a query. Upstream failures surface as an error; input
// validation failures surface as ErrMissingTerm. Page numbers below 1 and
// page sizes outside [10,50] are clamped.
func (a *Aggregator) Search(ctx context.Context, q Query) (*Result, error) {
	q = q.normalized()
	if q.Term == "" {
		return nil, ErrMissingTerm
	}

	records, err := a.mpk.Search(ctx, q.Term, q.City)
	if err != nil {
		return nil, err
	}

	// Records without a price never reach the client.
	withPrice := records[:0:0]
	for _, r := range records {
		if r.price != nil {
			withPrice = append(withPrice, r)
		}
	}

	images := a.lookupImages(ctx, withPrice)

	items := make([]Item, 0, len(withPrice))
	for i, r := range withPrice {
		item := normalize(r, q.Lat, q.Lng)
		if item.Image == nil && images[i] != "" {
			img := images[i]
			item.Image = &img
		}
		items = append(items, item)
	}

	items = filterStores(items, q.Stores)
	sortItems(items, q)

	total := len(items)
	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	a.logger.Info("Price search completed",
		"q", q.Term,
		"total", total,
		"page", q.Page,
		"returned", end-start)

	return &Result{
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Items:    items[start:end],
	}, nil
}

func (q Query) normalized() Query {
	q.Term = strings.TrimSpace(q.Term)
	q.Sort = strings.ToLower(q.Sort)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < minPageSize {
		q.PageSize = minPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

// lookupImages resolves catalog images for records lacking one, up to
// maxImageLookups concurrent lookups. Failures leave the slot empty; an
// item is never dropped because enrichment failed. The returned slice is
// indexed like the input.
func (a *Aggregator) lookupImages(ctx context.Context, records []record) []string {
	images := make([]string, len(records))

	var g errgroup.Group
	started := 0
	for i, r := range records {
		if r.image != "" || started >= maxImageLookups {
			continue
		}
		started++

		g.Go(func() error {
			img := a.imageFor(ctx, r)
			images[i] = img
			return nil
		})
	}
	// Goroutines never return errors; Wait is just the join point.
	_ = g.Wait()

	return images
}

func (a *Aggregator) imageFor(ctx context.Context, r record) string {
	if r.ean != "" {
		img, err := a.off.ImageByBarcode(ctx, r.ean)
		if err != nil {
			a.logger.Warn("Image barcode lookup failed", "ean", r.ean, "error", err)
		} else if img != "" {
			return img
		}
	}
	if r.product != "" {
		img, err := a.off.ImageByName(ctx, r.product)
		if err != nil {
			a.logger.Warn("Image name lookup failed", "product", r.product, "error", err)
		} else if img != "" {
			return img
		}
	}
	return ""
}

// itemID derives the composite identity key: two records with the same
// store, product, and price are the same entity regardless of origin.
func itemID(store, product string, price float64) string {
	return strings.ToLower(store) + "|" + strings.ToLower(product) + "|" +
		strconv.FormatFloat(price, 'f', -1, 64)
}

func normalize(r record, userLat, userLng *float64) Item {
	price := *r.price

	priceText := r.priceText
	if priceText == "" {
		priceText = strconv.FormatFloat(price, 'f', 2, 64) + " kr"
	}

	var km *float64
	if userLat != nil && userLng != nil && r.lat != nil && r.lng != nil {
		d := geo.Haversine(*userLat, *userLng, *r.lat, *r.lng)
		km = &d
	}

	var image *string
	if r.image != "" {
		img := r.image
		image = &img
	}
	var itemURL *string
	if r.url != "" {
		u := r.url
		itemURL = &u
	}

	return Item{
		ID:       itemID(r.store, r.product, price),
		Source:   r.source,
		Store:    r.store,
		Product:  r.product,
		Price:    priceText,
		PriceNum: price,
		City:     r.city,
		Date:     r.lastUpdated,
		Image:    image,
		Lat:      r.lat,
		Lng:      r.lng,
		Km:       km,
		URL:      itemURL,
	}
}

// filterStores keeps items whose store name contains at least one of the
// allow-list tokens, case-insensitively. An empty list keeps everything.
func filterStores(items []Item, stores []string) []Item {
	if len(stores) == 0 {
		return items
	}

	out := items[:0]
	for _, item := range items {
		store := strings.ToLower(item.Store)
		for _, s := range stores {
			if strings.Contains(store, strings.ToLower(s)) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func sortItems(items []Item, q Query) {
	switch {
	case q.Sort == SortDistance && q.Lat != nil && q.Lng != nil:
		sort.SliceStable(items, func(i, j int) bool {
			return kmOrMissing(items[i]) < kmOrMissing(items[j])
		})
	case q.Sort == SortName:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Product < items[j].Product
		})
	default:
		// Price ascending, also the fallback when distance sort is
		// requested without user coordinates.
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].PriceNum < items[j].PriceNum
		})
	}
}

func kmOrMissing(item Item) float64 {
	if item.Km == nil {
		return missingDistance
	}
	return *item.Km
}
