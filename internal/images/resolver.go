// Package images discovers album photos and upgrades them to the best
// available resolution.
package images

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/metrics"
)

// DefaultPhotoHost is the CDN host that serves gallery photos.
const DefaultPhotoHost = "photo.yupoo.com"

// Tier maps a size marker in a photo URL to the larger markers worth probing,
// best first.
type Tier struct {
	From string
	To   []string
}

// DefaultTiers upgrade medium photos to big or original, and small to medium.
var DefaultTiers = []Tier{
	{From: "/medium.", To: []string{"/big.", "/original."}},
	{From: "/small.", To: []string{"/medium."}},
}

// Config tunes discovery and upgrading.
type Config struct {
	PhotoHost string
	Tiers     []Tier
}

// Resolver implements crawler.ImageResolver.
type Resolver struct {
	cfg     Config
	checker crawler.HeadChecker
	logger  *zap.Logger
}

// NewResolver builds a Resolver that checks upgrade candidates with checker.
func NewResolver(checker crawler.HeadChecker, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.PhotoHost == "" {
		cfg.PhotoHost = DefaultPhotoHost
	}
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultTiers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, checker: checker, logger: logger}
}

// Resolve returns the deduplicated photo URLs of doc in document order, each
// replaced by its best reachable upgrade.
func (r *Resolver) Resolve(ctx context.Context, doc *goquery.Document, baseURL string) []string {
	if doc == nil {
		return nil
	}
	resolved := make(map[string]string)
	var out []string
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !strings.Contains(src, r.cfg.PhotoHost) {
			return
		}
		abs, err := Normalize(src, baseURL)
		if err != nil {
			r.logger.Debug("skipping unparsable image src", zap.String("src", src), zap.Error(err))
			return
		}
		best, ok := resolved[abs]
		if !ok {
			best = r.upgrade(ctx, abs)
			resolved[abs] = best
		}
		out = append(out, best)
	})
	return crawler.DedupeURLs(out)
}

// upgrade applies the first tier whose marker appears in src.
func (r *Resolver) upgrade(ctx context.Context, src string) string {
	for _, tier := range r.cfg.Tiers {
		if !strings.Contains(src, tier.From) {
			continue
		}
		for _, to := range tier.To {
			candidate := strings.ReplaceAll(src, tier.From, to)
			if r.reachable(ctx, candidate) {
				return candidate
			}
		}
		return src
	}
	return src
}

func (r *Resolver) reachable(ctx context.Context, candidate string) bool {
	if ctx.Err() != nil || r.checker == nil {
		return false
	}
	status, err := r.checker.Head(ctx, candidate)
	ok := err == nil && status == http.StatusOK
	metrics.ObserveImageCheck(ok)
	if err != nil {
		r.logger.Debug("image check failed", zap.String("url", candidate), zap.Error(err))
	}
	return ok
}

// Normalize makes src absolute: protocol-relative URLs get https, anything
// else without a scheme is resolved against baseURL.
func Normalize(src, baseURL string) (string, error) {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return src, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
