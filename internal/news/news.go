// Package news fetches financial headlines from configured RSS feeds and
// filters them per symbol. Individual feed failures are tolerated; a fetch
// fails only when every feed fails.
package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/stockadvisor/internal/cache"
)

// Article is one news headline with its source attribution.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}

// Feed is one configured RSS source.
type Feed struct {
	Name string
	URL  string
}

// ClientConfig configures the news client.
type ClientConfig struct {
	Feeds             map[string]string // source name -> RSS URL
	Timeout           time.Duration
	RequestsPerSecond int
	DefaultLimit      int
	CacheTTL          time.Duration
}

// Client fetches and aggregates headlines from all configured feeds.
type Client struct {
	feeds        []Feed
	limiter      *rate.Limiter
	timeout      time.Duration
	defaultLimit int
	cache        cache.Cache
	ttl          time.Duration
}

// NewClient creates a news client. Feeds are ordered by source name so that
// aggregation order is stable across runs.
func NewClient(cfg ClientConfig, c cache.Cache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	feeds := make([]Feed, 0, len(cfg.Feeds))
	for name, url := range cfg.Feeds {
		feeds = append(feeds, Feed{Name: name, URL: url})
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Name < feeds[j].Name })

	return &Client{
		feeds:        feeds,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		timeout:      cfg.Timeout,
		defaultLimit: cfg.DefaultLimit,
		cache:        c,
		ttl:          cfg.CacheTTL,
	}
}

// MarketNews returns recent headlines across all feeds, newest first. A
// limit of 0 uses the configured default; a negative limit means no limit.
func (c *Client) MarketNews(ctx context.Context, limit int) ([]Article, error) {
	if limit == 0 {
		limit = c.defaultLimit
	}

	articles, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return truncate(articles, limit), nil
}

// StockNews returns headlines mentioning symbol, newest first.
func (c *Client) StockNews(ctx context.Context, symbol string, limit int) ([]Article, error) {
	if limit == 0 {
		limit = c.defaultLimit
	}

	articles, err := c.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	keywords := symbolKeywords(symbol)
	filtered := make([]Article, 0)
	for _, a := range articles {
		if matchesAny(a.Title+" "+a.Summary, keywords) {
			filtered = append(filtered, a)
		}
	}
	return truncate(filtered, limit), nil
}

// fetchAll fetches every feed concurrently and merges the results. Failed
// feeds are logged and skipped; the fetch errors only when no feed produced
// anything.
func (c *Client) fetchAll(ctx context.Context) ([]Article, error) {
	const cacheKey = "news:all"

	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, cacheKey); ok {
			var articles []Article
			if err := json.Unmarshal(data, &articles); err == nil {
				return articles, nil
			}
			c.cache.Delete(ctx, cacheKey)
		}
	}

	if len(c.feeds) == 0 {
		return nil, errors.New("no news feeds configured")
	}

	var (
		mu       sync.Mutex
		articles []Article
		okFeeds  int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range c.feeds {
		feed := feed
		g.Go(func() error {
			fetched, err := c.fetchFeed(gctx, feed)
			if err != nil {
				// Non-fatal: one broken feed must not take down the rest.
				log.Warn().Err(err).Str("feed", feed.Name).Msg("News feed fetch failed")
				return nil
			}
			mu.Lock()
			articles = append(articles, fetched...)
			okFeeds++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if okFeeds == 0 {
		return nil, errors.New("all news feeds failed")
	}

	// Newest first, with a stable tie-break so output order is
	// deterministic regardless of which feed answered first.
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		if articles[i].Source != articles[j].Source {
			return articles[i].Source < articles[j].Source
		}
		return articles[i].Title < articles[j].Title
	})

	if c.cache != nil {
		if data, err := json.Marshal(articles); err == nil {
			c.cache.Set(ctx, cacheKey, data, c.ttl)
		}
	}
	return articles, nil
}

func (c *Client) fetchFeed(ctx context.Context, feed Feed) ([]Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parsed, err := parser.ParseURLWithContext(feed.URL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := Article{
			Title:   item.Title,
			URL:     item.Link,
			Source:  feed.Name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// cleanHTML strips markup from feed descriptions.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// companyNames maps tickers to common names used in headlines, which rarely
// spell out the ticker itself.
var companyNames = map[string][]string{
	"aapl":  {"apple"},
	"msft":  {"microsoft"},
	"googl": {"google", "alphabet"},
	"goog":  {"google", "alphabet"},
	"amzn":  {"amazon"},
	"meta":  {"meta platforms", "facebook"},
	"nvda":  {"nvidia"},
	"tsla":  {"tesla"},
	"nflx":  {"netflix"},
	"amd":   {"advanced micro devices"},
	"intc":  {"intel"},
	"jpm":   {"jpmorgan", "jp morgan"},
	"bac":   {"bank of america"},
	"wmt":   {"walmart"},
	"dis":   {"disney"},
	"ko":    {"coca-cola", "coca cola"},
	"pfe":   {"pfizer"},
	"xom":   {"exxon"},
	"brk-b": {"berkshire"},
}

func symbolKeywords(symbol string) []string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	keywords := []string{s}
	if extra, ok := companyNames[s]; ok {
		keywords = append(keywords, extra...)
	}
	return keywords
}

// matchesAny reports whether text contains any keyword as a whole word.
// Substring matches would make "META" match "metal".
func matchesAny(text string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(strings.ToLower(text), kw) {
				return true
			}
			continue
		}
		if _, ok := wordSet[kw]; ok {
			return true
		}
	}
	return false
}

func truncate(articles []Article, limit int) []Article {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}
