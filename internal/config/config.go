// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pricefeed/webcrawler/internal/crawler"
)

// Config captures all configuration knobs loaded via Viper. Values come from
// the config file, CRAWLER_* environment variables, or CLI flags.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Extract ExtractConfig `mapstructure:"extract"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Ops     OpsConfig     `mapstructure:"ops"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs traversal behavior.
type CrawlerConfig struct {
	Seed              string `mapstructure:"seed"`
	RootDomain        string `mapstructure:"root_domain"`
	IncludeSubdomains bool   `mapstructure:"include_subdomains"`
	MaxDepth          int    `mapstructure:"max_depth"`
	MaxPages          int    `mapstructure:"max_pages"`
	Concurrency       int    `mapstructure:"concurrency"`
	UserAgent         string `mapstructure:"user_agent"`
	RatePerDomain     int    `mapstructure:"rate_per_domain"`
	QueryPolicy       string `mapstructure:"query_policy"`
	DepthPolicy       string `mapstructure:"depth_policy"`
}

// HTTPConfig configures fetch timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
	DrainGraceSec    int `mapstructure:"drain_grace_seconds"`
}

// ExtractConfig overrides the product selectors for the target site layout.
type ExtractConfig struct {
	ProductSelector string `mapstructure:"product_selector"`
	NameSelector    string `mapstructure:"name_selector"`
	PriceSelector   string `mapstructure:"price_selector"`
}

// SinkConfig selects and configures the product sink.
type SinkConfig struct {
	Kind          string `mapstructure:"kind"`
	OutputPath    string `mapstructure:"output_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// OpsConfig configures the optional operational HTTP endpoint.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Sink kinds.
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.max_depth", 0)
	v.SetDefault("crawler.max_pages", 20)
	v.SetDefault("crawler.user_agent", "pricefeed-bot/0.1")
	v.SetDefault("crawler.rate_per_domain", 4)
	v.SetDefault("crawler.include_subdomains", false)
	v.SetDefault("crawler.query_policy", string(crawler.QuerySort))
	v.SetDefault("crawler.depth_policy", string(crawler.DepthBoundsDiscovery))
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("http.drain_grace_seconds", 5)
	v.SetDefault("sink.kind", SinkCSV)
	v.SetDefault("sink.output_path", "products.csv")
	v.SetDefault("sink.postgres_table", "products")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. The seed itself is
// validated when the crawl settings are built, since it may arrive via flag.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	switch c.Sink.Kind {
	case SinkCSV:
		if c.Sink.OutputPath == "" {
			return fmt.Errorf("sink.output_path must be set for the csv sink")
		}
	case SinkPostgres:
		if c.Sink.PostgresDSN == "" {
			return fmt.Errorf("sink.postgres_dsn must be set for the postgres sink")
		}
	default:
		return fmt.Errorf("sink.kind must be %q or %q", SinkCSV, SinkPostgres)
	}
	return nil
}

// CrawlSettings converts the loaded configuration into the engine's Config.
// The root domain defaults to the seed URL's host when not set explicitly.
func (c Config) CrawlSettings() (crawler.Config, error) {
	if c.Crawler.Seed == "" {
		return crawler.Config{}, fmt.Errorf("crawler.seed must be set")
	}
	seedURL, err := url.Parse(c.Crawler.Seed)
	if err != nil {
		return crawler.Config{}, fmt.Errorf("invalid seed URL %q: %w", c.Crawler.Seed, err)
	}
	rootDomain := c.Crawler.RootDomain
	if rootDomain == "" {
		rootDomain = strings.ToLower(seedURL.Host)
	}

	cfg := crawler.Config{
		Seed:              c.Crawler.Seed,
		RootDomain:        rootDomain,
		IncludeSubdomains: c.Crawler.IncludeSubdomains,
		MaxDepth:          c.Crawler.MaxDepth,
		MaxPages:          c.Crawler.MaxPages,
		Concurrency:       c.Crawler.Concurrency,
		UserAgent:         c.Crawler.UserAgent,
		RequestTimeout:    time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries:        c.HTTP.MaxRetries,
		BackoffBase:       time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:        time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond,
		RatePerDomain:     c.Crawler.RatePerDomain,
		QueryPolicy:       crawler.QueryPolicy(c.Crawler.QueryPolicy),
		DepthPolicy:       crawler.DepthPolicy(c.Crawler.DepthPolicy),
		DrainGrace:        time.Duration(c.HTTP.DrainGraceSec) * time.Second,
	}
	return cfg, cfg.Validate()
}
