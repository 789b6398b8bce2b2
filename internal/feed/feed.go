// Package feed fetches configured RSS and Atom sources and normalizes their
// entries into items.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/gwakdaeyun7-hub/ailon/internal/classify"
	"github.com/gwakdaeyun7-hub/ailon/internal/config"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/signal"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const userAgent = "ailon/1 (+https://github.com/gwakdaeyun7-hub/ailon)"

// Options tunes a fetch run. Zero values fall back to the defaults below.
type Options struct {
	Concurrency      int
	RatePerSecond    float64
	Timeout          time.Duration
	MaxAge           time.Duration
	DescriptionLimit int
	Weights          signal.SourceWeights

	Client *http.Client
	Logger *log.Logger
	Now    func() time.Time
}

const (
	defaultConcurrency      = 6
	defaultTimeout          = 20 * time.Second
	defaultMaxAge           = 7 * 24 * time.Hour
	defaultDescriptionLimit = 300
)

// OptionsFrom maps the fetch section of cfg onto Options.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Concurrency:      cfg.Fetch.Concurrency,
		RatePerSecond:    cfg.Fetch.RatePerSecond,
		Timeout:          cfg.FetchTimeout(),
		MaxAge:           cfg.MaxAge(),
		DescriptionLimit: cfg.Fetch.DescriptionLimit,
		Weights:          cfg.SourceWeights(),
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxAge <= 0 {
		o.MaxAge = defaultMaxAge
	}
	if o.DescriptionLimit <= 0 {
		o.DescriptionLimit = defaultDescriptionLimit
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]content.Item, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
	opts   Options
}

func NewRSSFetcher(opts Options) *RSSFetcher {
	opts = opts.withDefaults()
	p := gofeed.NewParser()
	p.Client = opts.Client
	p.UserAgent = userAgent
	return &RSSFetcher{parser: p, opts: opts}
}

// Fetch downloads one source. Entries without a link, repeated links and
// entries older than the max age are skipped. Undated entries are kept.
func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) ([]content.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}
	return f.Normalize(feed, source), nil
}

// Normalize converts a parsed feed into items for source.
func (f *RSSFetcher) Normalize(feed *gofeed.Feed, source config.Source) []content.Item {
	now := f.opts.Now()
	oldest := now.Add(-f.opts.MaxAge)

	seen := make(map[string]bool, len(feed.Items))
	items := make([]content.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		link := strings.TrimSpace(entry.Link)
		if link == "" || seen[link] {
			continue
		}

		pub := published(entry)
		if !pub.IsZero() && pub.Before(oldest) {
			continue
		}

		desc := entry.Description
		if desc == "" {
			desc = entry.Content
		}
		desc = truncate(stripHTML(desc), f.opts.DescriptionLimit)
		title := stripHTML(entry.Title)

		it := content.Item{
			Link:        link,
			Title:       title,
			Description: desc,
			Source:      source.Name,
			SourceKey:   source.Key,
			Lang:        source.Lang,
			Published:   pub,
			FetchedAt:   now,
			Category:    string(classify.Classify(title, desc)),
			Tags:        content.NormalizeTags(entry.Categories),
			AIFiltered:  source.AIFilter && !classify.IsAIRelated(title, desc),
		}
		it.Score = signal.Score(it, f.opts.Weights, now)

		seen[link] = true
		items = append(items, it)
		if source.MaxItems > 0 && len(items) >= source.MaxItems {
			break
		}
	}
	return items
}

// published prefers the parsed publish date, then the update date, then a
// lenient parse of the raw strings.
func published(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		return entry.UpdatedParsed.UTC()
	}
	if t := content.ParsePublished(entry.Published); !t.IsZero() {
		return t
	}
	return content.ParsePublished(entry.Updated)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// stripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Entities are decoded.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// SourceError records a source that failed to fetch.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

type FetchResult struct {
	Items  []content.Item
	Errors []error
	// PerSource counts the items each source contributed.
	PerSource map[string]int
}

// FetchAll fetches sources concurrently. Request starts are paced by the
// configured rate and a failing source does not stop the others. Items are
// returned in source order; a link seen from an earlier source wins.
func FetchAll(ctx context.Context, sources []config.Source, opts Options) FetchResult {
	opts = opts.withDefaults()
	return fetchAll(ctx, NewRSSFetcher(opts), sources, opts)
}

func fetchAll(ctx context.Context, fetcher Fetcher, sources []config.Source, opts Options) FetchResult {
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	perSource := make([][]content.Item, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					errs[i] = &SourceError{Source: src.Key, Err: err}
					return nil
				}
			}
			start := time.Now()
			items, err := fetcher.Fetch(ctx, src)
			if err != nil {
				opts.Logger.Warn("fetch failed", "source", src.Key, "err", err)
				errs[i] = &SourceError{Source: src.Key, Err: err}
				return nil
			}
			opts.Logger.Debug("fetched", "source", src.Key, "items", len(items), "took", time.Since(start).Round(time.Millisecond))
			perSource[i] = items
			return nil
		})
	}
	_ = g.Wait()

	result := FetchResult{PerSource: make(map[string]int, len(sources))}
	seen := make(map[string]bool)
	for i, items := range perSource {
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			continue
		}
		for _, it := range items {
			if seen[it.Link] {
				continue
			}
			seen[it.Link] = true
			result.Items = append(result.Items, it)
			result.PerSource[sources[i].Key]++
		}
	}
	return result
}
