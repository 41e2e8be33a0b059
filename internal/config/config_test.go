package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://huahetian.x.yupoo.com", cfg.Crawler.BaseURL)
	assert.Equal(t, "/categories", cfg.Crawler.ListingPath)
	assert.Equal(t, 59, cfg.Crawler.TotalPages)
	assert.Equal(t, time.Second, cfg.Crawler.ItemDelay)
	assert.Equal(t, 5*time.Second, cfg.Crawler.PageDelay)
	assert.Equal(t, "photo.yupoo.com", cfg.Crawler.PhotoHost)
	assert.Equal(t, 10*time.Second, cfg.HTTP.PageTimeout)
	assert.Equal(t, 5*time.Second, cfg.HTTP.HeadTimeout)
	assert.True(t, cfg.HTTP.InsecureSkipVerify)
	assert.Equal(t, "jerseys.json", cfg.Store.Path)
	assert.Empty(t, cfg.Store.GCSBucket)
	assert.True(t, cfg.Server.ProxyImages)
	assert.False(t, cfg.Server.DebugErrors)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.InDelta(t, 10.0, cfg.Server.UpstreamRPS, 0.001)
	assert.Equal(t, 20, cfg.Server.UpstreamBurst)
	assert.Equal(t, crawler.NewRetryPolicy(), cfg.RetryPolicy())
	assert.Equal(t, "https://huahetian.x.yupoo.com/categories?page=3", cfg.CrawlerEngine().PageURL(3))
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  base_url: http://127.0.0.1:9000
  listing_path: albums
  total_pages: 3
  item_delay: 250ms
  page_delay: 2s
  respect_robots: true
http:
  user_agent: jersey-test
  page_timeout: 20s
  max_status_retries: 1
  max_attempts: 2
  retry_delay: 500ms
  insecure_skip_verify: false
store:
  path: out/data.json
  gcs_bucket: jersey-bucket
server:
  port: 5000
  proxy_images: false
  debug_errors: true
logging:
  development: false
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000/albums?page=2", cfg.CrawlerEngine().PageURL(2))
	assert.Equal(t, 250*time.Millisecond, cfg.Crawler.ItemDelay)
	assert.Equal(t, 2*time.Second, cfg.Crawler.PageDelay)
	assert.True(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, "jersey-test", cfg.HTTP.UserAgent)
	assert.Equal(t, 20*time.Second, cfg.HTTP.PageTimeout)
	assert.False(t, cfg.HTTP.InsecureSkipVerify)
	assert.Equal(t, crawler.RetryPolicy{
		MaxStatusRetries:  1,
		StatusBackoffBase: time.Second,
		MaxAttempts:       2,
		AttemptDelay:      500 * time.Millisecond,
	}, cfg.RetryPolicy())
	assert.Equal(t, "out/data.json", cfg.Store.Path)
	assert.Equal(t, "jersey-bucket", cfg.Store.GCSBucket)
	assert.Equal(t, "jerseys.json", cfg.Store.GCSObject)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.False(t, cfg.Server.ProxyImages)
	assert.True(t, cfg.Server.DebugErrors)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JERSEYS_CRAWLER_TOTAL_PAGES", "7")
	t.Setenv("JERSEYS_STORE_PATH", "/tmp/jerseys-env.json")
	t.Setenv("JERSEYS_HTTP_HEAD_TIMEOUT", "1500ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawler.TotalPages)
	assert.Equal(t, "/tmp/jerseys-env.json", cfg.Store.Path)
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTP.HeadTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.Crawler.BaseURL = "huahetian.x.yupoo.com" }, "crawler.base_url"},
		{"empty base url", func(c *Config) { c.Crawler.BaseURL = " " }, "crawler.base_url"},
		{"no pages", func(c *Config) { c.Crawler.TotalPages = 0 }, "crawler.total_pages"},
		{"negative item delay", func(c *Config) { c.Crawler.ItemDelay = -time.Second }, "crawler.item_delay"},
		{"no page timeout", func(c *Config) { c.HTTP.PageTimeout = 0 }, "http.page_timeout"},
		{"no head timeout", func(c *Config) { c.HTTP.HeadTimeout = 0 }, "http.head_timeout"},
		{"negative status retries", func(c *Config) { c.HTTP.MaxStatusRetries = -1 }, "http.max_status_retries"},
		{"no attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }, "http.max_attempts"},
		{"negative backoff", func(c *Config) { c.HTTP.BackoffBase = -1 }, "http.backoff_base"},
		{"no store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"bucket without object", func(c *Config) {
			c.Store.GCSBucket = "b"
			c.Store.GCSObject = ""
		}, "store.gcs_object"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"no upstream timeout", func(c *Config) { c.Server.UpstreamTimeout = 0 }, "server.upstream_timeout"},
		{"negative upstream rps", func(c *Config) { c.Server.UpstreamRPS = -1 }, "server.upstream_rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
