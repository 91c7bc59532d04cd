package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noRetry keeps tests fast: every failure surfaces immediately.
var noRetry = RetryConfig{
	MaxRetries:     0,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     time.Millisecond,
	BackoffFactor:  1.0,
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:           srv.URL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 100,
		Retry:             noRetry,
	})
}

const quoteSummaryFixture = `{
  "quoteSummary": {
    "result": [{
      "price": {
        "symbol": "AAPL",
        "currency": "USD",
        "regularMarketPrice": {"raw": 185.5, "fmt": "185.50"},
        "regularMarketOpen": {"raw": 183.0},
        "regularMarketDayHigh": {"raw": 186.2},
        "regularMarketDayLow": {"raw": 182.4},
        "regularMarketVolume": {"raw": 51234567},
        "regularMarketTime": 1719849600
      }
    }],
    "error": null
  }
}`

func TestCurrentQuote(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v10/finance/quoteSummary/AAPL")
		assert.Equal(t, "price", r.URL.Query().Get("modules"))
		fmt.Fprint(w, quoteSummaryFixture)
	}))

	point, err := client.CurrentQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", point.Symbol)
	assert.Equal(t, 185.5, point.Close)
	assert.Equal(t, 183.0, point.Open)
	assert.Equal(t, int64(51234567), point.Volume)
	assert.Equal(t, "USD", point.Currency)
	assert.Equal(t, int64(1719849600), point.Timestamp.Unix())
}

func TestCurrentQuoteNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found"}}}`)
	}))

	_, err := client.CurrentQuote(context.Background(), "NOSUCH")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "NOSUCH", notFound.Symbol)
}

func TestCurrentQuoteRateLimited(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.CurrentQuote(context.Background(), "AAPL")
	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
}

func TestCurrentQuoteServerError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.CurrentQuote(context.Background(), "AAPL")
	var unavailable *SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"currency": "USD", "symbol": "AAPL"},
      "timestamp": [1719763200, 1719849600, 1719936000, 1720022400],
      "indicators": {
        "quote": [{
          "open":   [182.0, 183.0, null, 185.0],
          "high":   [184.0, 186.2, null, 187.5],
          "low":    [181.0, 182.4, null, 184.2],
          "close":  [183.5, 185.5, null, 186.9],
          "volume": [48000000, 51234567, null, 47500000]
        }]
      }
    }],
    "error": null
  }
}`

func TestHistoricalSeries(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		assert.Equal(t, "6mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartFixture)
	}))

	series, err := client.HistoricalSeries(context.Background(), "AAPL", "6mo")
	require.NoError(t, err)

	// The null bar is skipped; the rest stay ordered.
	require.Len(t, series, 3)
	assert.Equal(t, 183.5, series[0].Close)
	assert.Equal(t, 185.5, series[1].Close)
	assert.Equal(t, 186.9, series[2].Close)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i].Timestamp.After(series[i-1].Timestamp),
			"timestamps must be strictly increasing")
	}
}

func TestHistoricalSeriesDefaultRange(t *testing.T) {
	var gotRange string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("range")
		fmt.Fprint(w, chartFixture)
	}))

	_, err := client.HistoricalSeries(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRange, gotRange)
}

func TestHistoricalSeriesInvalidRange(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid range")
	}))

	_, err := client.HistoricalSeries(context.Background(), "AAPL", "42mo")
	assert.Error(t, err)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, quoteSummaryFixture)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:           srv.URL,
		Timeout:           2 * time.Second,
		RequestsPerSecond: 100,
		Retry: RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  2.0,
		},
	})

	point, err := client.CurrentQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 185.5, point.Close)
	assert.Equal(t, 2, attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", &NotFoundError{Symbol: "X"}, false},
		{"rate limited", &RateLimitedError{Source: sourceName}, true},
		{"unavailable", &SourceUnavailableError{Source: sourceName, Err: errors.New("boom")}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
