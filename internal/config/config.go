package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Market     MarketConfig     `mapstructure:"market"`
	News       NewsConfig       `mapstructure:"news"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Agent      AgentConfig      `mapstructure:"agent"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// LLMConfig contains settings for the chat-completion endpoint.
// The endpoint is OpenAI-compatible; an Ollama /v1 endpoint works unchanged.
type LLMConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutMS   int     `mapstructure:"timeout"`     // decision/synthesis call timeout (ms)
	MaxRetries  int     `mapstructure:"max_retries"` // transient-failure retries per call
}

// MarketConfig contains data-source gateway settings
type MarketConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	TimeoutMS         int    `mapstructure:"timeout"`
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	MaxRetries        int    `mapstructure:"max_retries"`
}

// NewsConfig contains RSS news gateway settings
type NewsConfig struct {
	Feeds             map[string]string `mapstructure:"feeds"` // source name -> RSS URL
	TimeoutMS         int               `mapstructure:"timeout"`
	RequestsPerSecond int               `mapstructure:"requests_per_second"`
	DefaultLimit      int               `mapstructure:"default_limit"`
}

// CacheConfig contains settings for the fetched-data cache
type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // "memory" or "redis"
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	MaxEntries int    `mapstructure:"max_entries"` // memory backend only
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db"`
}

// AnalysisConfig contains indicator and recommendation tuning
type AnalysisConfig struct {
	TrendShortWindow int     `mapstructure:"trend_short_window"`
	TrendLongWindow  int     `mapstructure:"trend_long_window"`
	FlatBandPercent  float64 `mapstructure:"flat_band_percent"`
	TechnicalWeight  float64 `mapstructure:"technical_weight"`
	SentimentWeight  float64 `mapstructure:"sentiment_weight"`
	BuyThreshold     float64 `mapstructure:"buy_threshold"`
	SellThreshold    float64 `mapstructure:"sell_threshold"`
}

// AgentConfig contains orchestrator settings
type AgentConfig struct {
	HistoryWindow      int `mapstructure:"history_window"`       // messages included in prompts
	MaxHistory         int `mapstructure:"max_history"`          // messages retained per context
	MaxParallelTools   int `mapstructure:"max_parallel_tools"`   // dispatch fan-out cap
	ToolTimeoutMS      int `mapstructure:"tool_timeout"`         // per tool call (ms)
	ContextIdleMinutes int `mapstructure:"context_idle_minutes"` // idle eviction TTL
	SweepMinutes       int `mapstructure:"sweep_minutes"`        // eviction sweep interval
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("STOCKADVISOR")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "StockAdvisor")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// LLM defaults (Ollama's OpenAI-compatible endpoint)
	v.SetDefault("llm.endpoint", "http://localhost:11434/v1/chat/completions")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 30000)
	v.SetDefault("llm.max_retries", 2)

	// Market data defaults
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.timeout", 10000)
	v.SetDefault("market.requests_per_second", 2)
	v.SetDefault("market.max_retries", 3)

	// News defaults
	v.SetDefault("news.feeds", map[string]string{
		"cnbc":        "https://feeds.cnbc.com/cnbc/financialnews",
		"marketwatch": "https://feeds.marketwatch.com/marketwatch/topstories/",
		"reuters":     "https://feeds.reuters.com/reuters/businessNews",
	})
	v.SetDefault("news.timeout", 10000)
	v.SetDefault("news.requests_per_second", 2)
	v.SetDefault("news.default_limit", 20)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_seconds", 60)
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	// Analysis defaults
	v.SetDefault("analysis.trend_short_window", 20)
	v.SetDefault("analysis.trend_long_window", 50)
	v.SetDefault("analysis.flat_band_percent", 0.5)
	v.SetDefault("analysis.technical_weight", 0.6)
	v.SetDefault("analysis.sentiment_weight", 0.4)
	v.SetDefault("analysis.buy_threshold", 0.2)
	v.SetDefault("analysis.sell_threshold", -0.2)

	// Agent defaults
	v.SetDefault("agent.history_window", 10)
	v.SetDefault("agent.max_history", 50)
	v.SetDefault("agent.max_parallel_tools", 4)
	v.SetDefault("agent.tool_timeout", 15000)
	v.SetDefault("agent.context_idle_minutes", 60)
	v.SetDefault("agent.sweep_minutes", 10)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
}

// Validate checks configuration invariants that would otherwise surface as
// runtime misbehavior (zero fan-out, inverted thresholds, bad weights).
func (c *Config) Validate() error {
	if c.Analysis.TrendShortWindow <= 0 || c.Analysis.TrendLongWindow <= 0 {
		return fmt.Errorf("analysis trend windows must be positive, got short=%d long=%d",
			c.Analysis.TrendShortWindow, c.Analysis.TrendLongWindow)
	}
	if c.Analysis.TrendShortWindow >= c.Analysis.TrendLongWindow {
		return fmt.Errorf("analysis trend short window (%d) must be less than long window (%d)",
			c.Analysis.TrendShortWindow, c.Analysis.TrendLongWindow)
	}
	if c.Analysis.TechnicalWeight < 0 || c.Analysis.SentimentWeight < 0 {
		return fmt.Errorf("analysis weights must be non-negative")
	}
	if c.Analysis.TechnicalWeight+c.Analysis.SentimentWeight == 0 {
		return fmt.Errorf("analysis weights must not both be zero")
	}
	if c.Analysis.BuyThreshold <= c.Analysis.SellThreshold {
		return fmt.Errorf("buy threshold (%f) must be greater than sell threshold (%f)",
			c.Analysis.BuyThreshold, c.Analysis.SellThreshold)
	}
	if c.Agent.MaxParallelTools < 1 {
		return fmt.Errorf("agent.max_parallel_tools must be at least 1, got %d", c.Agent.MaxParallelTools)
	}
	if c.Agent.HistoryWindow < 1 || c.Agent.MaxHistory < c.Agent.HistoryWindow {
		return fmt.Errorf("agent history window (%d) must be positive and no larger than max history (%d)",
			c.Agent.HistoryWindow, c.Agent.MaxHistory)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be \"memory\" or \"redis\", got %q", c.Cache.Backend)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// GetTimeout returns the LLM call timeout as time.Duration
func (c *LLMConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the market fetch timeout as time.Duration
func (c *MarketConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTimeout returns the news fetch timeout as time.Duration
func (c *NewsConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetTTL returns the cache TTL as time.Duration
func (c *CacheConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GetToolTimeout returns the per-tool-call timeout as time.Duration
func (c *AgentConfig) GetToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutMS) * time.Millisecond
}

// GetContextIdleTTL returns the context idle eviction TTL
func (c *AgentConfig) GetContextIdleTTL() time.Duration {
	return time.Duration(c.ContextIdleMinutes) * time.Minute
}

// GetSweepInterval returns the context eviction sweep interval
func (c *AgentConfig) GetSweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}
