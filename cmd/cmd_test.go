package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/config"
	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/store"
)

func writeTestDataset(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "jerseys.json")
	fs, err := store.NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), crawler.CrawlState{
		Jerseys: []crawler.Jersey{
			crawler.NewJersey("Home Kit", "https://shop.example/albums/1", []string{"a", "b"}, "", 1),
			crawler.NewJersey("Away Kit", "https://shop.example/albums/2", []string{"c"}, "", 2),
		},
		LastCompletedPage: 1,
		TotalPages:        59,
	}))
	return path
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	path := writeTestDataset(t, t.TempDir())
	var out bytes.Buffer

	require.NoError(t, renderStatus(&out, path, 10))

	text := out.String()
	assert.Contains(t, text, "Jerseys")
	assert.Contains(t, text, "1 / 59")
	assert.Contains(t, text, "Home Kit (page 1)")
	assert.Contains(t, text, "Away Kit (page 2)")
	assert.Contains(t, text, "false")
}

func TestRenderStatusMissingDataset(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "none.json")

	require.NoError(t, renderStatus(&out, path, 10))
	assert.Contains(t, out.String(), "no dataset at")
}

func TestRenderStatusCorruptDataset(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	err := renderStatus(&bytes.Buffer{}, path, 10)
	require.Error(t, err)
	var decodeErr *store.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestRootCmdStatus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataset := writeTestDataset(t, dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: "+dataset+"\nlogging:\n  development: false\n"), 0o600))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "status"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "1 / 59")
	assert.Contains(t, out.String(), "Home Kit (page 1)")
	assert.Contains(t, out.String(), "Away Kit (page 2)")
}

func TestRootCmdRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("crawler:\n  total_pages: 0\n"), 0o600))

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "status"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_pages")
}

func TestResolveAppMissing(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.Error(t, err)
}

func TestAPIOptions(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Crawler: config.CrawlerConfig{PhotoHost: "photo.yupoo.com"},
		HTTP:    config.HTTPConfig{UserAgent: "ua", InsecureSkipVerify: true},
		Store:   config.StoreConfig{Path: "data.json"},
		Server: config.ServerConfig{
			ProxyImages:     true,
			DebugErrors:     true,
			Referer:         "https://shop.example/",
			UpstreamTimeout: 3 * time.Second,
		},
	}

	opts := apiOptions(cfg)

	assert.Equal(t, "data.json", opts.DatasetPath)
	assert.True(t, opts.ProxyImages)
	assert.True(t, opts.DebugErrors)
	assert.Equal(t, "https://shop.example/", opts.Referer)
	assert.Equal(t, "ua", opts.UserAgent)
	assert.Equal(t, 3*time.Second, opts.UpstreamTimeout)
	assert.True(t, opts.InsecureSkipVerify)
	assert.Equal(t, "photo.yupoo.com", opts.PhotoHost)
}

func TestBuildCrawlerEngine(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Crawler: config.CrawlerConfig{BaseURL: "https://shop.example", ListingPath: "/categories", TotalPages: 1},
		Store:   config.StoreConfig{Path: filepath.Join(t.TempDir(), "jerseys.json")},
	}

	engine, cleanup, err := buildCrawlerEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, engine)
	cleanup()
}
