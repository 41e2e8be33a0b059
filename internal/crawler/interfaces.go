package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}

// HeadChecker issues a lightweight HEAD request and reports the status code.
type HeadChecker interface {
	Head(ctx context.Context, rawURL string) (int, error)
}

// Parser turns listing and album pages into crawl inputs.
type Parser interface {
	ParseListing(body []byte, baseURL string) ([]AlbumRef, error)
	ParseItem(body []byte, provisionalTitle string) (ItemPage, error)
}

// ImageResolver discovers and upgrades the image URLs of an album page.
type ImageResolver interface {
	Resolve(ctx context.Context, doc *goquery.Document, baseURL string) []string
}

// StateStore loads and checkpoints crawl progress.
type StateStore interface {
	Load(ctx context.Context) CrawlState
	Save(ctx context.Context, state CrawlState) error
}
