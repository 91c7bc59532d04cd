package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/analysis"
	"github.com/ajitpratap0/stockadvisor/internal/cache"
	"github.com/ajitpratap0/stockadvisor/internal/config"
	"github.com/ajitpratap0/stockadvisor/internal/market"
	"github.com/ajitpratap0/stockadvisor/internal/news"
	"github.com/ajitpratap0/stockadvisor/internal/report"
	"github.com/ajitpratap0/stockadvisor/internal/tools"
)

const (
	serverName    = "stockadvisor"
	serverVersion = "0.1.0"
)

func main() {
	// Logging goes to stderr; stdout is reserved for the MCP protocol.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dataCache := cache.NewMemory(cfg.Cache.MaxEntries)

	gateway := market.NewCachedGateway(
		market.NewClient(market.ClientConfig{
			BaseURL:           cfg.Market.BaseURL,
			Timeout:           cfg.Market.GetTimeout(),
			RequestsPerSecond: cfg.Market.RequestsPerSecond,
		}),
		dataCache,
		cfg.Cache.GetTTL(),
	)
	newsClient := news.NewClient(news.ClientConfig{
		Feeds:             cfg.News.Feeds,
		Timeout:           cfg.News.GetTimeout(),
		RequestsPerSecond: cfg.News.RequestsPerSecond,
		DefaultLimit:      cfg.News.DefaultLimit,
		CacheTTL:          cfg.Cache.GetTTL(),
	}, dataCache)

	svc := tools.NewService(gateway, newsClient, analysis.DefaultConfig(),
		report.NewSynthesizer(report.DefaultConfig()))

	registry := tools.NewRegistry(cfg.Agent.GetToolTimeout())
	if err := tools.RegisterAll(registry, svc); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tools")
	}

	server := &mcpServer{registry: registry}

	log.Info().Str("server", serverName).Msg("MCP server ready, listening on stdio")
	if err := server.run(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// mcpServer serves the tool registry over stdio using JSON-RPC framing.
type mcpServer struct {
	registry *tools.Registry
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *mcpServer) run(ctx context.Context, in io.Reader, out io.Writer) error {
	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	for {
		var req rpcRequest
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("Client disconnected")
				return nil
			}
			log.Error().Err(err).Msg("Failed to decode request")
			continue
		}

		log.Debug().
			Str("method", req.Method).
			Str("tool", req.Params.Name).
			Msg("Received request")

		resp := s.handleRequest(ctx, &req)
		if resp == nil {
			continue // notification, nothing to send back
		}
		if err := encoder.Encode(resp); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
			return err
		}
	}
}

func (s *mcpServer) handleRequest(ctx context.Context, req *rpcRequest) *rpcResponse {
	if req.ID == nil {
		return nil
	}
	resp := &rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    serverName,
				"version": serverVersion,
			},
		}

	case "tools/list":
		resp.Result = &mcp.ListToolsResult{Tools: s.registry.Tools()}

	case "tools/call":
		resp.Result = s.callTool(ctx, req.Params.Name, req.Params.Arguments)

	case "ping":
		resp.Result = map[string]any{}

	default:
		resp.Error = &rpcError{
			Code:    -32601,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}
	return resp
}

// callTool dispatches through the registry and wraps the outcome as tool
// content. Tool failures become IsError results, not protocol errors, so
// the client model can read and acknowledge them.
func (s *mcpServer) callTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	result, err := s.registry.Dispatch(ctx, name, args)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("failed to marshal result: %v", err)}},
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
