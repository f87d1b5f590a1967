// Package listings aggregates free/giveaway posts from community
// subforums: it fans out recent-post and keyword-search fetches across
// every configured source, deduplicates by canonical URL, classifies
// tags, and filters by the tags the caller asked for.
package listings

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"fyndkarta/config"
	"fyndkarta/geo"
)

const (
	// Response cap after dedupe and filtering.
	maxItems = 100

	descriptionLimit = 160
)

// Item is a normalized listing. Identity is the canonical post URL.
type Item struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Title  string   `json:"title"`
	Desc   string   `json:"desc"`
	URL    string   `json:"url"`
	Photo  *string  `json:"photo"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Tags   []string `json:"tags"`
}

// Tagger classifies listing text against configured keyword-to-tag rules.
type Tagger struct {
	rules []config.TagRule
}

// NewTagger builds a tagger from configured rules.
func NewTagger(rules []config.TagRule) *Tagger {
	return &Tagger{rules: rules}
}

// Tags returns every tag whose trigger words occur in text,
// case-insensitively. The result may be empty.
func (t *Tagger) Tags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, rule := range t.rules {
		for _, w := range rule.Words {
			if strings.Contains(lower, strings.ToLower(w)) {
				tags = append(tags, rule.Tag)
				break
			}
		}
	}
	return tags
}

// Aggregator runs the fan-out pipeline.
type Aggregator struct {
	reddit     *RedditClient
	gazetteer  *geo.Gazetteer
	tagger     *Tagger
	subreddits []string
	keywords   []string
	logger     *slog.Logger
}

// New creates a listings aggregator over the configured subforums and
// keyword list.
func New(reddit *RedditClient, gazetteer *geo.Gazetteer, tagger *Tagger, subreddits, keywords []string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		reddit:     reddit,
		gazetteer:  gazetteer,
		tagger:     tagger,
		subreddits: subreddits,
		keywords:   keywords,
		logger:     logger,
	}
}

// Fetch returns up to 100 deduplicated items. When wantTags is non-empty,
// an item is kept if its tag set intersects wantTags (OR semantics);
// untagged items are dropped. Every fan-out task that fails contributes
// zero items instead of aborting the batch, so Fetch only errs on its
// own bookkeeping, never on upstream failures.
func (a *Aggregator) Fetch(ctx context.Context, wantTags []string) ([]Item, error) {
	tasks := a.buildTasks()
	results := make([][]Item, len(tasks))

	// Settle-all: every task runs to completion; failures are logged
	// and leave an empty slot.
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			items, err := task.run(ctx)
			if err != nil {
				a.logger.Warn("Fan-out task failed",
					"subreddit", task.sub,
					"keyword", task.keyword,
					"error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	// Flatten in task order so the dedupe winner is deterministic.
	seen := make(map[string]struct{})
	var items []Item
	for _, r := range results {
		for _, item := range r {
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			items = append(items, item)
		}
	}

	if len(wantTags) > 0 {
		items = filterTags(items, wantTags)
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}

	a.logger.Info("Listings fan-out completed",
		"tasks", len(tasks),
		"items", len(items),
		"tags", wantTags)

	return items, nil
}

type task struct {
	run     func(ctx context.Context) ([]Item, error)
	sub     string
	keyword string // empty for recent-post tasks
}

// buildTasks produces one recent-posts task plus one search task per
// keyword for every configured subforum.
func (a *Aggregator) buildTasks() []task {
	var tasks []task
	for _, sub := range a.subreddits {
		tasks = append(tasks, task{
			sub: sub,
			run: func(ctx context.Context) ([]Item, error) { return a.fetchRecent(ctx, sub) },
		})
		for _, kw := range a.keywords {
			tasks = append(tasks, task{
				sub:     sub,
				keyword: kw,
				run:     func(ctx context.Context) ([]Item, error) { return a.fetchSearch(ctx, sub, kw) },
			})
		}
	}
	return tasks
}

// fetchRecent pulls the newest posts of a subforum and keeps those whose
// title or body contains any configured keyword.
func (a *Aggregator) fetchRecent(ctx context.Context, sub string) ([]Item, error) {
	posts, err := a.reddit.Recent(ctx, sub)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, p := range posts {
		text := strings.ToLower(p.Title + " " + p.Selftext)
		for _, kw := range a.keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				items = append(items, a.toItem(p, sub))
				break
			}
		}
	}
	return items, nil
}

func (a *Aggregator) fetchSearch(ctx context.Context, sub, keyword string) ([]Item, error) {
	posts, err := a.reddit.Search(ctx, sub, keyword)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, a.toItem(p, sub))
	}
	return items, nil
}

func (a *Aggregator) toItem(p redditPost, sub string) Item {
	text := p.Title + " " + p.Selftext

	var photo *string
	if img := previewImage(p); img != "" {
		photo = &img
	}

	var lat, lng *float64
	if city, ok := a.gazetteer.Find(text); ok {
		lat, lng = &city.Lat, &city.Lng
	}

	return Item{
		ID:     p.ID,
		Source: "r/" + sub,
		Title:  p.Title,
		Desc:   truncate(p.Selftext, descriptionLimit),
		URL:    DefaultRedditBaseURL + p.Permalink,
		Photo:  photo,
		Lat:    lat,
		Lng:    lng,
		Tags:   a.tagger.Tags(text),
	}
}

// filterTags keeps items whose tag set intersects want. Untagged items
// are dropped whenever a filter is requested.
func filterTags(items []Item, want []string) []Item {
	out := items[:0]
	for _, item := range items {
		if len(item.Tags) == 0 {
			continue
		}
		for _, w := range want {
			if contains(item.Tags, w) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
