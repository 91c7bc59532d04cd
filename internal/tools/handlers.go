package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ajitpratap0/stockadvisor/internal/market"
)

// Tool names. The model and API clients address tools by these.
const (
	ToolAnalyzeStock  = "analyze_stock"
	ToolCompareStocks = "compare_stocks"
	ToolGetQuote      = "get_quote"
	ToolMarketNews    = "get_market_news"
	ToolStockNews     = "get_stock_news"
)

// RegisterAll registers every domain tool on the registry.
func RegisterAll(r *Registry, svc *Service) error {
	defs := []Definition{
		{
			Tool: &mcp.Tool{
				Name:        ToolAnalyzeStock,
				Description: "Full analysis of one stock: current price, technical indicators (moving averages, RSI, MACD, trend), news sentiment, and a BUY/SELL/HOLD recommendation.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"symbol": map[string]interface{}{
							"type":        "string",
							"description": "Stock ticker symbol (e.g., AAPL)",
						},
						"range": map[string]interface{}{
							"type":        "string",
							"description": "History range for indicators: 1mo, 3mo, 6mo, 1y (default 6mo)",
						},
					},
					"required": []string{"symbol"},
				},
			},
			Validate: requireSymbol,
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				symbol := symbolParam(params, "symbol")
				rng, err := rangeParam(params)
				if err != nil {
					return nil, err
				}
				return svc.AnalyzeStock(ctx, symbol, rng)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        ToolCompareStocks,
				Description: "Analyze several stocks and rank them by recommendation strength.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"symbols": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Two to five ticker symbols to compare",
						},
						"range": map[string]interface{}{
							"type":        "string",
							"description": "History range for indicators (default 6mo)",
						},
					},
					"required": []string{"symbols"},
				},
			},
			Validate: func(params map[string]any) error {
				symbols, err := symbolsParam(params)
				if err != nil {
					return err
				}
				if len(symbols) < MinCompareSymbols || len(symbols) > MaxCompareSymbols {
					return fmt.Errorf("symbols must list between %d and %d tickers", MinCompareSymbols, MaxCompareSymbols)
				}
				return nil
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				symbols, err := symbolsParam(params)
				if err != nil {
					return nil, err
				}
				rng, err := rangeParam(params)
				if err != nil {
					return nil, err
				}
				return svc.CompareStocks(ctx, symbols, rng)
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        ToolGetQuote,
				Description: "Current price, day range, and volume for one stock.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"symbol": map[string]interface{}{
							"type":        "string",
							"description": "Stock ticker symbol",
						},
					},
					"required": []string{"symbol"},
				},
			},
			Validate: requireSymbol,
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return svc.Quote(ctx, symbolParam(params, "symbol"))
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        ToolMarketNews,
				Description: "Recent market-wide financial headlines.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum headlines to return (default 20)",
						},
					},
				},
			},
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				return svc.MarketNews(ctx, intParam(params, "limit", 0))
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        ToolStockNews,
				Description: "Recent headlines mentioning one stock, with aggregate sentiment.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"symbol": map[string]interface{}{
							"type":        "string",
							"description": "Stock ticker symbol",
						},
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum headlines to return (default 20)",
						},
					},
					"required": []string{"symbol"},
				},
			},
			Validate: requireSymbol,
			Handler: func(ctx context.Context, params map[string]any) (any, error) {
				articles, sent, err := svc.StockNews(ctx, symbolParam(params, "symbol"), intParam(params, "limit", 0))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"articles":  articles,
					"sentiment": sent,
				}, nil
			},
		},
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// --- Parameter parsing ---

func requireSymbol(params map[string]any) error {
	if symbolParam(params, "symbol") == "" {
		return fmt.Errorf("symbol is required")
	}
	return nil
}

// symbolParam reads a ticker parameter, normalized to upper case.
func symbolParam(params map[string]any, key string) string {
	raw, _ := params[key].(string)
	return strings.ToUpper(strings.TrimSpace(raw))
}

func symbolsParam(params map[string]any) ([]string, error) {
	raw, ok := params["symbols"]
	if !ok {
		return nil, fmt.Errorf("symbols is required")
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("symbols must be an array of strings")
	}

	seen := make(map[string]struct{}, len(items))
	symbols := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("symbols must be an array of strings")
		}
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}
	return symbols, nil
}

// intParam reads an integer parameter. JSON decoding yields float64, so
// both forms are accepted.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func rangeParam(params map[string]any) (string, error) {
	raw, _ := params["range"].(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return market.DefaultRange, nil
	}
	if !market.ValidRange(raw) {
		return "", fmt.Errorf("invalid range %q", raw)
	}
	return raw, nil
}
