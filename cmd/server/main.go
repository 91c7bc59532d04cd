package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/stockadvisor/internal/agent"
	"github.com/ajitpratap0/stockadvisor/internal/analysis"
	"github.com/ajitpratap0/stockadvisor/internal/api"
	"github.com/ajitpratap0/stockadvisor/internal/cache"
	"github.com/ajitpratap0/stockadvisor/internal/config"
	"github.com/ajitpratap0/stockadvisor/internal/conversation"
	"github.com/ajitpratap0/stockadvisor/internal/llm"
	"github.com/ajitpratap0/stockadvisor/internal/market"
	"github.com/ajitpratap0/stockadvisor/internal/metrics"
	"github.com/ajitpratap0/stockadvisor/internal/news"
	"github.com/ajitpratap0/stockadvisor/internal/report"
	"github.com/ajitpratap0/stockadvisor/internal/tools"
)

const metricsPort = 9090

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting StockAdvisor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Cache backend for fetched market and news data
	var dataCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory cache")
			dataCache = cache.NewMemory(cfg.Cache.MaxEntries)
		} else {
			dataCache = cache.NewRedis(client)
		}
	default:
		dataCache = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	// Data gateways
	retryCfg := market.DefaultRetryConfig()
	if cfg.Market.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.Market.MaxRetries
	}
	gateway := market.NewCachedGateway(
		market.NewClient(market.ClientConfig{
			BaseURL:           cfg.Market.BaseURL,
			Timeout:           cfg.Market.GetTimeout(),
			RequestsPerSecond: cfg.Market.RequestsPerSecond,
			Retry:             retryCfg,
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

	// Model client
	model := llm.NewClient(llm.ClientConfig{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.GetTimeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
	})

	// Analysis and tool layer
	analysisCfg := analysis.DefaultConfig()
	analysisCfg.ShortWindow = cfg.Analysis.TrendShortWindow
	analysisCfg.LongWindow = cfg.Analysis.TrendLongWindow
	analysisCfg.FlatBandPercent = cfg.Analysis.FlatBandPercent

	svc := tools.NewService(
		gateway,
		newsClient,
		analysisCfg,
		report.NewSynthesizer(report.Config{
			TechnicalWeight: cfg.Analysis.TechnicalWeight,
			SentimentWeight: cfg.Analysis.SentimentWeight,
			BuyThreshold:    cfg.Analysis.BuyThreshold,
			SellThreshold:   cfg.Analysis.SellThreshold,
		}),
	)

	registry := tools.NewRegistry(cfg.Agent.GetToolTimeout())
	if err := tools.RegisterAll(registry, svc); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tools")
	}

	// Conversation state with idle eviction
	store := conversation.NewStore(conversation.StoreConfig{
		MaxHistory:    cfg.Agent.MaxHistory,
		HistoryWindow: cfg.Agent.HistoryWindow,
		IdleTTL:       cfg.Agent.GetContextIdleTTL(),
		SweepInterval: cfg.Agent.GetSweepInterval(),
	})
	store.StartJanitor(ctx)

	orchestrator := agent.New(model, registry, store, agent.Config{
		MaxParallelTools: cfg.Agent.MaxParallelTools,
	})

	server := api.NewServer(api.Config{
		Host:     cfg.API.Host,
		Port:     cfg.API.Port,
		Version:  cfg.App.Version,
		Chat:     orchestrator,
		Service:  svc,
		Registry: registry,
		Store:    store,
		Model:    model,
	})

	var metricsServer *metrics.Server
	if cfg.Monitoring.EnableMetrics {
		metricsServer = metrics.NewServer(metricsPort, config.NewLogger("metrics"))
		if err := metricsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		log.Error().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop server gracefully")
		os.Exit(1)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server gracefully")
		}
	}

	log.Info().Msg("Server stopped")
}
