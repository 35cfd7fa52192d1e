package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CryptoDigest/internal/model"
)

// Market query strategies for the snapshot call.
const (
	MarketQueryBatch   = "batch"
	MarketQueryPerCoin = "per_coin"
)

// DefaultCoins is the basket processed when the config names none.
var DefaultCoins = []model.Coin{
	{Symbol: "BTC", ProviderID: "bitcoin"},
	{Symbol: "ETH", ProviderID: "ethereum"},
	{Symbol: "SOL", ProviderID: "solana"},
	{Symbol: "BNB", ProviderID: "binancecoin"},
	{Symbol: "XRP", ProviderID: "ripple"},
}

// Provider configures access to the market data API.
type Provider struct {
	BaseURL         string          `yaml:"base_url"`
	APIKey          string          `yaml:"api_key"`
	VsCurrency      string          `yaml:"vs_currency"`
	HistoryDays     int             `yaml:"history_days"`
	MarketQuery     string          `yaml:"market_query"`
	Timeout         time.Duration   `yaml:"timeout"`
	MaxRetries      int             `yaml:"max_retries"`
	RetryWaits      []time.Duration `yaml:"retry_waits"`
	RequestInterval *time.Duration  `yaml:"request_interval"`
}

// Interval returns the minimum spacing between provider requests.
func (p Provider) Interval() time.Duration {
	if p.RequestInterval == nil {
		return 0
	}
	return *p.RequestInterval
}

// Config holds all application configuration.
type Config struct {
	Provider Provider     `yaml:"provider"`
	Coins    []model.Coin `yaml:"coins"`
	Output   struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if present, then config from a YAML file, then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("MARKET_QUERY"); v != "" {
		c.Provider.MarketQuery = v
	}
	if v := os.Getenv("REQUEST_INTERVAL"); v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_INTERVAL: %w", err)
		}
		c.Provider.RequestInterval = &d
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// parseSecondsOrDuration accepts "12" (seconds) as well as "12s".
func parseSecondsOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) applyDefaults() {
	p := &c.Provider
	if p.BaseURL == "" {
		p.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if p.VsCurrency == "" {
		p.VsCurrency = "usd"
	}
	if p.HistoryDays == 0 {
		p.HistoryDays = 30
	}
	if p.MarketQuery == "" {
		p.MarketQuery = MarketQueryBatch
	}
	if p.Timeout == 0 {
		p.Timeout = 15 * time.Second
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	if len(p.RetryWaits) == 0 {
		p.RetryWaits = []time.Duration{30 * time.Second, 45 * time.Second, 60 * time.Second}
	}
	if p.RequestInterval == nil {
		d := 12 * time.Second
		p.RequestInterval = &d
	}
	if len(c.Coins) == 0 {
		c.Coins = append([]model.Coin(nil), DefaultCoins...)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "docs/data"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 0 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	p := c.Provider
	if p.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if p.HistoryDays <= 0 {
		return fmt.Errorf("provider.history_days must be positive")
	}
	if p.MarketQuery != MarketQueryBatch && p.MarketQuery != MarketQueryPerCoin {
		return fmt.Errorf("provider.market_query must be %q or %q, got %q", MarketQueryBatch, MarketQueryPerCoin, p.MarketQuery)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if p.MaxRetries <= 0 {
		return fmt.Errorf("provider.max_retries must be positive")
	}
	for _, w := range p.RetryWaits {
		if w < 0 {
			return fmt.Errorf("provider.retry_waits must not be negative")
		}
	}
	if p.Interval() < 0 {
		return fmt.Errorf("provider.request_interval must not be negative")
	}
	if len(c.Coins) == 0 {
		return fmt.Errorf("at least one coin is required")
	}
	symbols := make(map[string]bool, len(c.Coins))
	ids := make(map[string]bool, len(c.Coins))
	for i, coin := range c.Coins {
		if coin.Symbol == "" || coin.ProviderID == "" {
			return fmt.Errorf("coins[%d]: symbol and id are required", i)
		}
		if symbols[coin.Symbol] {
			return fmt.Errorf("coins[%d]: duplicate symbol %s", i, coin.Symbol)
		}
		if ids[coin.ProviderID] {
			return fmt.Errorf("coins[%d]: duplicate id %s", i, coin.ProviderID)
		}
		symbols[coin.Symbol] = true
		ids[coin.ProviderID] = true
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// ProviderIDs returns the provider ids of the basket in declaration order.
func (c *Config) ProviderIDs() []string {
	ids := make([]string, len(c.Coins))
	for i, coin := range c.Coins {
		ids[i] = coin.ProviderID
	}
	return ids
}
