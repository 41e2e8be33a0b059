package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config captures every knob that influences a crawl run.
type Config struct {
	BaseURL     string
	ListingPath string
	TotalPages  int
	ItemDelay   time.Duration
	PageDelay   time.Duration
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("crawler.base_url is invalid: %w", err)
	}
	if c.TotalPages <= 0 {
		return fmt.Errorf("crawler.total_pages must be > 0")
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("crawler.item_delay must be >= 0")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("crawler.page_delay must be >= 0")
	}
	return nil
}

// PageURL returns the listing URL of page.
func (c Config) PageURL(page int) string {
	base := strings.TrimRight(c.BaseURL, "/")
	listing := "/" + strings.TrimLeft(c.ListingPath, "/")
	return fmt.Sprintf("%s%s?page=%d", base, listing, page)
}
