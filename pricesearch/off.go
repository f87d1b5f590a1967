package pricesearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"fyndkarta/fetch"
)

// DefaultOFFBaseURL is the public Open Food Facts catalog endpoint.
const DefaultOFFBaseURL = "https://world.openfoodfacts.org"

type offProduct struct {
	ImageFrontURL string `json:"image_front_url"`
	ImageURL      string `json:"image_url"`
}

// OFFClient looks up product images in the Open Food Facts catalog.
type OFFClient struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewOFFClient creates an Open Food Facts client.
func NewOFFClient(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *OFFClient {
	return &OFFClient{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// ImageByBarcode returns the front image URL for an EAN barcode, or empty
// when the catalog has none.
func (c *OFFClient) ImageByBarcode(ctx context.Context, ean string) (string, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(ean))

	var resp struct {
		Product offProduct `json:"product"`
	}
	if err := c.fetcher.JSON(ctx, u, nil, &resp); err != nil {
		return "", fmt.Errorf("off barcode lookup: %w", err)
	}
	return bestImage(resp.Product), nil
}

// ImageByName returns the front image URL of the top text-search hit for a
// product name, or empty when nothing matches.
func (c *OFFClient) ImageByName(ctx context.Context, name string) (string, error) {
	u := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=1",
		c.baseURL, url.QueryEscape(name))

	var resp struct {
		Products []offProduct `json:"products"`
	}
	if err := c.fetcher.JSON(ctx, u, nil, &resp); err != nil {
		return "", fmt.Errorf("off name lookup: %w", err)
	}
	if len(resp.Products) == 0 {
		return "", nil
	}
	return bestImage(resp.Products[0]), nil
}

func bestImage(p offProduct) string {
	if p.ImageFrontURL != "" {
		return p.ImageFrontURL
	}
	return p.ImageURL
}
