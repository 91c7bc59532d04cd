package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/stockadvisor/internal/analysis"
	"github.com/ajitpratap0/stockadvisor/internal/market"
	"github.com/ajitpratap0/stockadvisor/internal/news"
	"github.com/ajitpratap0/stockadvisor/internal/report"
	"github.com/ajitpratap0/stockadvisor/internal/sentiment"
)

// Limits on comparison batch size.
const (
	MinCompareSymbols = 2
	MaxCompareSymbols = 5
)

// newsArticleLimit bounds how many articles feed the sentiment score.
const newsArticleLimit = 10

// NewsProvider is the slice of the news client the service needs.
type NewsProvider interface {
	MarketNews(ctx context.Context, limit int) ([]news.Article, error)
	StockNews(ctx context.Context, symbol string, limit int) ([]news.Article, error)
}

// Service implements the domain operations behind the tools: full stock
// analysis, comparison, quotes, and news.
type Service struct {
	market      market.Gateway
	news        NewsProvider
	analysisCfg analysis.Config
	synthesizer *report.Synthesizer
	now         func() time.Time
}

// NewService wires the domain dependencies together.
func NewService(gateway market.Gateway, newsProvider NewsProvider, analysisCfg analysis.Config, synthesizer *report.Synthesizer) *Service {
	return &Service{
		market:      gateway,
		news:        newsProvider,
		analysisCfg: analysisCfg,
		synthesizer: synthesizer,
		now:         time.Now,
	}
}

// StockAnalysis is the result of analyzing one symbol: the deterministic
// report plus the articles behind its sentiment and any data gaps hit along
// the way.
type StockAnalysis struct {
	Report   *report.Report `json:"report"`
	Articles []news.Article `json:"articles,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// AnalyzeStock fetches quote, history, and news for a symbol concurrently
// and synthesizes a report. Partial data degrades the report with warnings;
// the analysis fails only when the symbol is unknown or no price data at
// all could be fetched.
func (s *Service) AnalyzeStock(ctx context.Context, symbol string, rng string) (*StockAnalysis, error) {
	var (
		quote    *market.PricePoint
		series   []market.PricePoint
		articles []news.Article
		quoteErr error
		newsErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quote, err = s.market.CurrentQuote(gctx, symbol)
		var notFound *market.NotFoundError
		if errors.As(err, &notFound) {
			return err
		}
		quoteErr = err
		return nil
	})
	g.Go(func() error {
		var err error
		series, err = s.market.HistoricalSeries(gctx, symbol, rng)
		var notFound *market.NotFoundError
		if errors.As(err, &notFound) {
			return err
		}
		if err != nil {
			// Degraded below: the quote alone still yields a report.
			log.Warn().Err(err).Str("symbol", symbol).Msg("Historical series unavailable")
			series = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		articles, err = s.news.StockNews(gctx, symbol, newsArticleLimit)
		newsErr = err
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings []string

	if quoteErr != nil {
		warnings = append(warnings, fmt.Sprintf("current quote unavailable: %v", quoteErr))
		quote = nil
	}
	if quote == nil && len(series) == 0 {
		return nil, fmt.Errorf("no price data available for %s", symbol)
	}

	var indicators *analysis.IndicatorSet
	if len(series) > 0 {
		var err error
		indicators, err = analysis.Compute(market.Closes(series), s.analysisCfg)
		if err != nil {
			return nil, fmt.Errorf("compute indicators for %s: %w", symbol, err)
		}
	} else {
		warnings = append(warnings, "historical data unavailable, technical indicators skipped")
	}

	sent := sentiment.Aggregate(scoreArticles(articles))
	if newsErr != nil {
		warnings = append(warnings, fmt.Sprintf("news unavailable: %v", newsErr))
	}

	currentPrice, currency := latestPrice(quote, series)

	rep := s.synthesizer.Synthesize(report.Input{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
		Currency:     currency,
		Indicators:   indicators,
		Sentiment:    sent,
		GeneratedAt:  s.now().UTC(),
	})

	return &StockAnalysis{
		Report:   rep,
		Articles: articles,
		Warnings: warnings,
	}, nil
}

// ComparisonResult pairs the ranked comparison with the symbols that could
// not be analyzed.
type ComparisonResult struct {
	Comparison *report.ComparisonReport `json:"comparison"`
	Failed     map[string]string        `json:"failed,omitempty"` // symbol -> reason
}

// CompareStocks analyzes each symbol and ranks the results. Symbols that
// fail to analyze are reported, not fatal, as long as at least one succeeds.
func (s *Service) CompareStocks(ctx context.Context, symbols []string, rng string) (*ComparisonResult, error) {
	if len(symbols) < MinCompareSymbols || len(symbols) > MaxCompareSymbols {
		return nil, &InvalidParamsError{
			Tool: ToolCompareStocks,
			Reason: fmt.Sprintf("comparison requires between %d and %d symbols, got %d",
				MinCompareSymbols, MaxCompareSymbols, len(symbols)),
		}
	}

	reports := make([]*report.Report, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			res, err := s.AnalyzeStock(gctx, symbol, rng)
			if err != nil {
				errs[i] = err
				return nil
			}
			reports[i] = res.Report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	succeeded := make([]*report.Report, 0, len(symbols))
	failed := make(map[string]string)
	for i, rep := range reports {
		if rep != nil {
			succeeded = append(succeeded, rep)
			continue
		}
		failed[symbols[i]] = errs[i].Error()
	}

	if len(succeeded) == 0 {
		return nil, fmt.Errorf("none of the %d symbols could be analyzed", len(symbols))
	}
	if len(failed) == 0 {
		failed = nil
	}

	return &ComparisonResult{
		Comparison: s.synthesizer.Compare(succeeded, s.now().UTC()),
		Failed:     failed,
	}, nil
}

// Quote returns the current price point for a symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (*market.PricePoint, error) {
	return s.market.CurrentQuote(ctx, symbol)
}

// MarketNews returns recent market-wide headlines.
func (s *Service) MarketNews(ctx context.Context, limit int) ([]news.Article, error) {
	return s.news.MarketNews(ctx, limit)
}

// StockNews returns recent headlines mentioning a symbol, with their
// aggregate sentiment.
func (s *Service) StockNews(ctx context.Context, symbol string, limit int) ([]news.Article, sentiment.Result, error) {
	articles, err := s.news.StockNews(ctx, symbol, limit)
	if err != nil {
		return nil, sentiment.Result{}, err
	}
	return articles, sentiment.Aggregate(scoreArticles(articles)), nil
}

func scoreArticles(articles []news.Article) []sentiment.Result {
	results := make([]sentiment.Result, 0, len(articles))
	for _, a := range articles {
		results = append(results, sentiment.ScoreText(a.Title+" "+a.Summary))
	}
	return results
}

// latestPrice picks the freshest price available: the live quote, falling
// back to the last historical close.
func latestPrice(quote *market.PricePoint, series []market.PricePoint) (float64, string) {
	if quote != nil {
		return quote.Close, quote.Currency
	}
	last := series[len(series)-1]
	return last.Close, last.Currency
}
