package listings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"fyndkarta/fetch"
)

// DefaultRedditBaseURL is the public Reddit JSON endpoint.
const DefaultRedditBaseURL = "https://www.reddit.com"

const (
	recentLimit = 50
	searchLimit = 25
)

type redditImage struct {
	Source struct {
		URL string `json:"url"`
	} `json:"source"`
	Resolutions []struct {
		URL string `json:"url"`
	} `json:"resolutions"`
}

type redditPost struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Permalink string `json:"permalink"`
	Preview   struct {
		Images []redditImage `json:"images"`
	} `json:"preview"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditClient fetches posts from community subforums.
type RedditClient struct {
	fetcher *fetch.Client
	logger  *slog.Logger
	baseURL string
}

// NewRedditClient creates a subforum client.
func NewRedditClient(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *RedditClient {
	return &RedditClient{fetcher: fetcher, logger: logger, baseURL: baseURL}
}

// Recent returns the newest posts of a subforum.
func (c *RedditClient) Recent(ctx context.Context, sub string) ([]redditPost, error) {
	u := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.baseURL, url.PathEscape(sub), recentLimit)
	return c.listing(ctx, u)
}

// Search returns posts of a subforum matching a keyword, newest first,
// restricted to the last month.
func (c *RedditClient) Search(ctx context.Context, sub, q string) ([]redditPost, error) {
	u := fmt.Sprintf("%s/r/%s/search.json?q=%s&restrict_sr=1&sort=new&t=month&limit=%d",
		c.baseURL, url.PathEscape(sub), url.QueryEscape(q), searchLimit)
	return c.listing(ctx, u)
}

func (c *RedditClient) listing(ctx context.Context, u string) ([]redditPost, error) {
	header := http.Header{}
	header.Set("User-Agent", "gratis-fynd/1.0")

	var resp redditListing
	if err := c.fetcher.JSON(ctx, u, header, &resp); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// previewImage picks the best available preview image URL of a post.
// Reddit HTML-escapes ampersands inside preview URLs.
func previewImage(p redditPost) string {
	if len(p.Preview.Images) == 0 {
		return ""
	}
	img := p.Preview.Images[0]

	u := img.Source.URL
	if u == "" && len(img.Resolutions) > 0 {
		u = img.Resolutions[len(img.Resolutions)-1].URL
	}
	return strings.ReplaceAll(u, "&amp;", "&")
}
