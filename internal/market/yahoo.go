package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	sourceName = "yahoo-finance"
	userAgent  = "stockadvisor/1.0"

	// Upstream responses beyond this size are truncated rather than read
	// into memory whole.
	maxResponseBytes = 4 << 20
)

// Circuit breaker settings for the market data source.
const (
	breakerMinRequests     = 5
	breakerFailureRatio    = 0.6
	breakerOpenTimeout     = 30 * time.Second
	breakerHalfOpenMaxReqs = 3
	breakerCountInterval   = 10 * time.Second
)

// validRanges maps each accepted history range to the bar interval used
// when fetching it.
var validRanges = map[string]string{
	"1d":  "5m",
	"5d":  "30m",
	"1mo": "1d",
	"3mo": "1d",
	"6mo": "1d",
	"1y":  "1d",
	"2y":  "1wk",
	"5y":  "1wk",
}

// DefaultRange is used when a caller does not name a history range.
const DefaultRange = "6mo"

// ClientConfig configures the Yahoo Finance client.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond int
	Retry             RetryConfig
}

// Client fetches quotes and price history from the Yahoo Finance JSON API.
// All requests pass through a rate limiter and a shared circuit breaker;
// transient failures are retried with backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	retry      RetryConfig
}

// NewClient creates a Yahoo Finance client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        sourceName,
		MaxRequests: breakerHalfOpenMaxReqs,
		Interval:    breakerCountInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && failureRatio >= breakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Market data circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		breaker:    breaker,
		retry:      cfg.Retry,
	}
}

// ValidRange reports whether rng is an accepted history range.
func ValidRange(rng string) bool {
	_, ok := validRanges[rng]
	return ok
}

// CurrentQuote returns the latest price point for symbol.
func (c *Client) CurrentQuote(ctx context.Context, symbol string) (*PricePoint, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=price",
		c.baseURL, url.PathEscape(symbol))

	var point *PricePoint
	err := WithRetry(ctx, c.retry, func() error {
		body, err := c.fetch(ctx, endpoint, symbol)
		if err != nil {
			return err
		}
		point, err = parseQuoteSummary(body, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", symbol).
		Float64("price", point.Close).
		Msg("Fetched current quote")
	return point, nil
}

// HistoricalSeries returns the price history for symbol over rng, ordered by
// strictly increasing timestamp.
func (c *Client) HistoricalSeries(ctx context.Context, symbol string, rng string) ([]PricePoint, error) {
	if rng == "" {
		rng = DefaultRange
	}
	interval, ok := validRanges[rng]
	if !ok {
		return nil, fmt.Errorf("invalid history range %q", rng)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		c.baseURL, url.PathEscape(symbol), rng, interval)

	var series []PricePoint
	err := WithRetry(ctx, c.retry, func() error {
		body, err := c.fetch(ctx, endpoint, symbol)
		if err != nil {
			return err
		}
		series, err = parseChart(body, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", symbol).
		Str("range", rng).
		Int("points", len(series)).
		Msg("Fetched historical series")
	return series, nil
}

// fetchResult carries statuses that map to typed errors outside the breaker
// so that a missing symbol does not count as an upstream failure.
type fetchResult struct {
	status int
	body   []byte
}

func (c *Client) fetch(ctx context.Context, endpoint string, symbol string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &SourceUnavailableError{Source: sourceName, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &SourceUnavailableError{Source: sourceName, Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusOK,
			resp.StatusCode == http.StatusNotFound,
			resp.StatusCode == http.StatusTooManyRequests:
			return fetchResult{status: resp.StatusCode, body: body}, nil
		default:
			return nil, &SourceUnavailableError{
				Source: sourceName,
				Err:    fmt.Errorf("upstream status %d", resp.StatusCode),
			}
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &SourceUnavailableError{Source: sourceName, Err: err}
		}
		return nil, err
	}

	res := out.(fetchResult)
	switch res.status {
	case http.StatusNotFound:
		return nil, &NotFoundError{Symbol: symbol}
	case http.StatusTooManyRequests:
		return nil, &RateLimitedError{Source: sourceName}
	}
	return res.body, nil
}

// rawValue is Yahoo's {"raw": 185.5, "fmt": "185.50"} number wrapper.
type rawValue struct {
	Raw float64 `json:"raw"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				Symbol               string   `json:"symbol"`
				Currency             string   `json:"currency"`
				RegularMarketPrice   rawValue `json:"regularMarketPrice"`
				RegularMarketOpen    rawValue `json:"regularMarketOpen"`
				RegularMarketDayHigh rawValue `json:"regularMarketDayHigh"`
				RegularMarketDayLow  rawValue `json:"regularMarketDayLow"`
				RegularMarketVolume  rawValue `json:"regularMarketVolume"`
				RegularMarketTime    int64    `json:"regularMarketTime"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

func parseQuoteSummary(body []byte, symbol string) (*PricePoint, error) {
	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SourceUnavailableError{Source: sourceName, Err: fmt.Errorf("malformed quote response: %w", err)}
	}
	if resp.QuoteSummary.Error != nil || len(resp.QuoteSummary.Result) == 0 {
		return nil, &NotFoundError{Symbol: symbol}
	}

	price := resp.QuoteSummary.Result[0].Price
	if price.RegularMarketPrice.Raw == 0 && price.RegularMarketTime == 0 {
		return nil, &NotFoundError{Symbol: symbol}
	}

	ts := time.Unix(price.RegularMarketTime, 0).UTC()
	return &PricePoint{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      price.RegularMarketOpen.Raw,
		High:      price.RegularMarketDayHigh.Raw,
		Low:       price.RegularMarketDayLow.Raw,
		Close:     price.RegularMarketPrice.Raw,
		Volume:    int64(price.RegularMarketVolume.Raw),
		Currency:  price.Currency,
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// parseChart converts a chart response into an ordered, deduplicated series.
// Bars with a null close (halts, partial sessions) are skipped.
func parseChart(body []byte, symbol string) ([]PricePoint, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SourceUnavailableError{Source: sourceName, Err: fmt.Errorf("malformed chart response: %w", err)}
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, &NotFoundError{Symbol: symbol}
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &NotFoundError{Symbol: symbol}
	}
	quote := result.Indicators.Quote[0]

	deref := func(vals []*float64, i int) float64 {
		if i < len(vals) && vals[i] != nil {
			return *vals[i]
		}
		return 0
	}

	series := make([]PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		series = append(series, PricePoint{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      deref(quote.Open, i),
			High:      deref(quote.High, i),
			Low:       deref(quote.Low, i),
			Close:     *quote.Close[i],
			Volume:    volume,
			Currency:  result.Meta.Currency,
		})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	// Drop duplicate timestamps, keeping the first occurrence.
	deduped := series[:0]
	for i, p := range series {
		if i > 0 && p.Timestamp.Equal(series[i-1].Timestamp) {
			continue
		}
		deduped = append(deduped, p)
	}

	if len(deduped) == 0 {
		return nil, &NotFoundError{Symbol: symbol}
	}
	return deduped, nil
}
