// Package config loads and validates jersey crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. JERSEYS_CRAWLER_TOTAL_PAGES.
const EnvPrefix = "JERSEYS"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs which pages are walked and how fast.
type CrawlerConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	ListingPath   string        `mapstructure:"listing_path"`
	TotalPages    int           `mapstructure:"total_pages"`
	ItemDelay     time.Duration `mapstructure:"item_delay"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	PhotoHost     string        `mapstructure:"photo_host"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// HTTPConfig configures the fetch layer's identity, timeouts and retries.
type HTTPConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	PageTimeout        time.Duration `mapstructure:"page_timeout"`
	HeadTimeout        time.Duration `mapstructure:"head_timeout"`
	MaxStatusRetries   int           `mapstructure:"max_status_retries"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// StoreConfig locates the dataset file and its optional GCS mirror.
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// ServerConfig controls the gallery HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ProxyImages     bool          `mapstructure:"proxy_images"`
	DebugErrors     bool          `mapstructure:"debug_errors"`
	Referer         string        `mapstructure:"referer"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	UpstreamRPS     float64       `mapstructure:"upstream_rps"`
	UpstreamBurst   int           `mapstructure:"upstream_burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
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
	v.SetDefault("crawler.base_url", "https://huahetian.x.yupoo.com")
	v.SetDefault("crawler.listing_path", "/categories")
	v.SetDefault("crawler.total_pages", 59)
	v.SetDefault("crawler.item_delay", time.Second)
	v.SetDefault("crawler.page_delay", 5*time.Second)
	v.SetDefault("crawler.photo_host", "photo.yupoo.com")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.page_timeout", 10*time.Second)
	v.SetDefault("http.head_timeout", 5*time.Second)
	v.SetDefault("http.max_status_retries", 5)
	v.SetDefault("http.backoff_base", time.Second)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.retry_delay", 2*time.Second)
	v.SetDefault("http.insecure_skip_verify", true)
	v.SetDefault("store.path", "jerseys.json")
	v.SetDefault("store.gcs_bucket", "")
	v.SetDefault("store.gcs_object", "jerseys.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.proxy_images", true)
	v.SetDefault("server.debug_errors", false)
	v.SetDefault("server.referer", "https://huahetian.x.yupoo.com/")
	v.SetDefault("server.upstream_timeout", 30*time.Second)
	v.SetDefault("server.upstream_rps", 10.0)
	v.SetDefault("server.upstream_burst", 20)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.CrawlerEngine().Validate(); err != nil {
		return err
	}
	if u, err := url.Parse(c.Crawler.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("crawler.base_url must be an absolute URL")
	}
	if c.HTTP.PageTimeout <= 0 {
		return fmt.Errorf("http.page_timeout must be > 0")
	}
	if c.HTTP.HeadTimeout <= 0 {
		return fmt.Errorf("http.head_timeout must be > 0")
	}
	if c.HTTP.MaxStatusRetries < 0 {
		return fmt.Errorf("http.max_status_retries must be >= 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffBase < 0 || c.HTTP.RetryDelay < 0 {
		return fmt.Errorf("http.backoff_base and http.retry_delay must be >= 0")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path must be set")
	}
	if c.Store.GCSBucket != "" && strings.TrimSpace(c.Store.GCSObject) == "" {
		return fmt.Errorf("store.gcs_object must be set when store.gcs_bucket is set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.UpstreamTimeout <= 0 {
		return fmt.Errorf("server.upstream_timeout must be > 0")
	}
	if c.Server.UpstreamRPS < 0 || c.Server.UpstreamBurst < 0 {
		return fmt.Errorf("server.upstream_rps and server.upstream_burst must be >= 0")
	}
	return nil
}

// CrawlerEngine converts the crawler section into engine settings.
func (c Config) CrawlerEngine() crawler.Config {
	return crawler.Config{
		BaseURL:     c.Crawler.BaseURL,
		ListingPath: c.Crawler.ListingPath,
		TotalPages:  c.Crawler.TotalPages,
		ItemDelay:   c.Crawler.ItemDelay,
		PageDelay:   c.Crawler.PageDelay,
	}
}

// RetryPolicy converts the http section into fetch retry settings.
func (c Config) RetryPolicy() crawler.RetryPolicy {
	return crawler.RetryPolicy{
		MaxStatusRetries:  c.HTTP.MaxStatusRetries,
		StatusBackoffBase: c.HTTP.BackoffBase,
		MaxAttempts:       c.HTTP.MaxAttempts,
		AttemptDelay:      c.HTTP.RetryDelay,
	}
}

// Addr returns the listen address of the gallery server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
