package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"sentiment-trader/internal/types"
)

const DefaultMaxRetries = 3

type Config struct {
	Mode         string `yaml:"mode"`
	LoggingLevel string `yaml:"logging_level"`

	Redis struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		DB      int    `yaml:"db"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`

	Exchange struct {
		BaseURL        string `yaml:"base_url"`
		RecvWindowMs   int64  `yaml:"recv_window_ms"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		OrdersPerMin   int    `yaml:"orders_per_minute"`
		FilterCacheTTL string `yaml:"filter_cache_ttl"`
	} `yaml:"exchange"`

	TradingStrategy struct {
		Name               string `yaml:"name"`
		Symbol             string `yaml:"symbol"`
		BaseAsset          string `yaml:"base_asset"`
		OrderQuantity      string `yaml:"order_quantity"`
		TotalQuantityLimit string `yaml:"total_quantity_limit"`
	} `yaml:"trading_strategy"`

	Holding struct {
		Backend   string `yaml:"backend"`
		KeyPrefix string `yaml:"key_prefix"`
		Guard     string `yaml:"guard"`
	} `yaml:"holding"`

	InputOption    string `yaml:"input_option"`
	SentimentsFile string `yaml:"sentiments_file"`

	Policy struct {
		OnVenueError  string `yaml:"on_venue_error"`
		MaxRetries    int    `yaml:"max_retries"`
		BackoffBaseMs int    `yaml:"backoff_base_ms"`
	} `yaml:"policy"`

	Generator struct {
		Asset         string `yaml:"asset"`
		HeadlinesFile string `yaml:"headlines_file"`
		OutputOption  string `yaml:"output_option"`
		OutputDir     string `yaml:"output_dir"`
		ReqsMin       int    `yaml:"reqs_min"`
	} `yaml:"generator"`

	LLM struct {
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"llm"`

	Collector struct {
		HeadlinesFile   string         `yaml:"headlines_file"`
		IntervalSeconds int            `yaml:"interval_seconds"`
		Sources         []SourceConfig `yaml:"sources"`
	} `yaml:"collector"`

	FollowPollMs int `yaml:"follow_poll_ms"`
}

// SourceConfig describes one news page scraped by the headline collector.
type SourceConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	Selector     string `yaml:"selector"`
	TimeSelector string `yaml:"time_selector"`
	TimeAttr     string `yaml:"time_attr"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.InputOption != "file" && c.InputOption != "redis" {
		return fmt.Errorf("invalid input_option '%s': must be 'file' or 'redis'", c.InputOption)
	}
	if c.Holding.Backend != "redis" && c.Holding.Backend != "memory" {
		return fmt.Errorf("invalid holding.backend '%s': must be 'redis' or 'memory'", c.Holding.Backend)
	}
	if c.Holding.Guard != "none" && c.Holding.Guard != "optimistic" {
		return fmt.Errorf("invalid holding.guard '%s': must be 'none' or 'optimistic'", c.Holding.Guard)
	}
	switch c.Policy.OnVenueError {
	case "halt", "skip", "retry":
	default:
		return fmt.Errorf("invalid policy.on_venue_error '%s': must be 'halt', 'skip' or 'retry'", c.Policy.OnVenueError)
	}
	if c.Policy.MaxRetries < 0 {
		return fmt.Errorf("policy.max_retries must be >= 0, got %d", c.Policy.MaxRetries)
	}
	if c.Generator.OutputOption != "file" && c.Generator.OutputOption != "redis" {
		return fmt.Errorf("invalid generator.output_option '%s': must be 'file' or 'redis'", c.Generator.OutputOption)
	}
	if c.Generator.ReqsMin <= 0 {
		return fmt.Errorf("generator.reqs_min must be > 0, got %d", c.Generator.ReqsMin)
	}
	if c.Exchange.FilterCacheTTL != "" {
		if _, err := time.ParseDuration(c.Exchange.FilterCacheTTL); err != nil {
			return fmt.Errorf("exchange.filter_cache_ttl: %w", err)
		}
	}
	return nil
}

// ValidateTrading checks the sections only the trading bot needs.
func (c *Config) ValidateTrading() error {
	if c.TradingStrategy.Symbol == "" {
		return errors.New("trading_strategy.symbol cannot be empty")
	}
	if c.TradingStrategy.BaseAsset == "" {
		return errors.New("trading_strategy.base_asset cannot be empty")
	}
	if c.InputOption == "file" && c.SentimentsFile == "" {
		return errors.New("sentiments_file is required when input_option is 'file'")
	}
	_, err := c.TradingSpec()
	return err
}

func (c *Config) ValidateGenerator() error {
	if c.Generator.Asset == "" {
		return errors.New("generator.asset cannot be empty")
	}
	if c.Generator.HeadlinesFile == "" {
		return errors.New("generator.headlines_file cannot be empty")
	}
	return nil
}

func (c *Config) ValidateCollector() error {
	if c.Collector.HeadlinesFile == "" {
		return errors.New("collector.headlines_file cannot be empty")
	}
	if len(c.Collector.Sources) == 0 {
		return errors.New("collector.sources cannot be empty")
	}
	for i, s := range c.Collector.Sources {
		if s.URL == "" || s.Selector == "" {
			return fmt.Errorf("collector.sources[%d]: url and selector are required", i)
		}
	}
	return nil
}

// TradingSpec converts the trading_strategy section into exact decimals.
func (c *Config) TradingSpec() (types.TradingSpec, error) {
	ts := c.TradingStrategy
	qty, err := decimal.NewFromString(ts.OrderQuantity)
	if err != nil {
		return types.TradingSpec{}, fmt.Errorf("trading_strategy.order_quantity %q: %w", ts.OrderQuantity, err)
	}
	if !qty.IsPositive() {
		return types.TradingSpec{}, fmt.Errorf("trading_strategy.order_quantity must be > 0, got %s", qty)
	}
	limit, err := decimal.NewFromString(ts.TotalQuantityLimit)
	if err != nil {
		return types.TradingSpec{}, fmt.Errorf("trading_strategy.total_quantity_limit %q: %w", ts.TotalQuantityLimit, err)
	}
	if limit.IsNegative() {
		return types.TradingSpec{}, fmt.Errorf("trading_strategy.total_quantity_limit must be >= 0, got %s", limit)
	}
	return types.TradingSpec{
		Strategy:           ts.Name,
		Symbol:             strings.ToUpper(ts.Symbol),
		BaseAsset:          strings.ToUpper(ts.BaseAsset),
		OrderQuantity:      qty,
		TotalQuantityLimit: limit,
	}, nil
}

// FilterTTL is zero when filters are cached for the process lifetime.
func (c *Config) FilterTTL() time.Duration {
	d, _ := time.ParseDuration(c.Exchange.FilterCacheTTL)
	return d
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Fields where zero is a valid setting get their default before decoding,
	// so only an absent key keeps it.
	var c Config
	c.Policy.MaxRetries = DefaultMaxRetries
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "headlines_sentiment"
	}
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://testnet.binance.vision"
	}
	if c.Exchange.RecvWindowMs == 0 {
		c.Exchange.RecvWindowMs = 5000
	}
	if c.Exchange.TimeoutSeconds == 0 {
		c.Exchange.TimeoutSeconds = 10
	}
	if c.Exchange.OrdersPerMin == 0 {
		c.Exchange.OrdersPerMin = 60
	}
	if c.TradingStrategy.Name == "" {
		c.TradingStrategy.Name = "successive"
	}
	if c.Holding.Backend == "" {
		c.Holding.Backend = "redis"
	}
	if c.Holding.KeyPrefix == "" {
		c.Holding.KeyPrefix = "aitp"
	}
	if c.Holding.Guard == "" {
		c.Holding.Guard = "none"
	}
	if c.InputOption == "" {
		c.InputOption = "redis"
	}
	if c.Policy.OnVenueError == "" {
		c.Policy.OnVenueError = "halt"
	}
	if c.Policy.BackoffBaseMs == 0 {
		c.Policy.BackoffBaseMs = 1000
	}
	if c.Generator.OutputOption == "" {
		c.Generator.OutputOption = "file"
	}
	if c.Generator.OutputDir == "" {
		c.Generator.OutputDir = "./output/"
	}
	if c.Generator.ReqsMin == 0 {
		c.Generator.ReqsMin = 3
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "OPENAI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-3.5-turbo"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 30
	}
	if c.Collector.HeadlinesFile == "" {
		c.Collector.HeadlinesFile = c.Generator.HeadlinesFile
	}
	if c.Collector.IntervalSeconds == 0 {
		c.Collector.IntervalSeconds = 300
	}
	if c.FollowPollMs == 0 {
		c.FollowPollMs = 1000
	}
}
