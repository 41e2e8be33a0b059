// Package collyfetcher implements crawler.Fetcher and crawler.HeadChecker using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/metrics"
)

// DefaultUserAgent is a desktop Chrome user agent; the gallery host serves
// reduced markup to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	defaultPageTimeout = 10 * time.Second
	defaultHeadTimeout = 5 * time.Second
)

// browserHeaders are attached to every request. Only gzip is advertised
// because colly decodes nothing else.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip",
	"Connection":                "keep-alive",
	"Cache-Control":             "max-age=0",
	"Upgrade-Insecure-Requests": "1",
}

// Config controls collector behavior.
type Config struct {
	UserAgent          string
	PageTimeout        time.Duration
	HeadTimeout        time.Duration
	InsecureSkipVerify bool
	RespectRobots      bool
	Retry              crawler.RetryPolicy
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Fetcher implements crawler.Fetcher and crawler.HeadChecker using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	pause         crawler.PauseFunc
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. All requests share one pooled transport.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaultPageTimeout
	}
	if cfg.HeadTimeout <= 0 {
		cfg.HeadTimeout = defaultHeadTimeout
	}
	if cfg.Retry == (crawler.RetryPolicy{}) {
		cfg.Retry = crawler.NewRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)

	var transport http.RoundTripper = newHTTPTransport(cfg.InsecureSkipVerify)
	if cfg.RespectRobots {
		transport = &robotsAwareTransport{base: transport, logger: logger}
	}
	c.WithTransport(transport)
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.UserAgent = cfg.UserAgent

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		pause:         crawler.Pause,
		logger:        logger,
	}
}

// Fetch GETs rawURL. Server errors are retried with exponential backoff,
// transport failures with linear backoff. Other non-2xx statuses return a
// *StatusError immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		resp, err := f.fetchWithStatusRetry(ctx, rawURL)
		if err == nil {
			metrics.ObserveFetch(rawURL, len(resp.Body))
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return crawler.FetchResponse{}, fmt.Errorf("fetch %s canceled: %w", rawURL, ctxErr)
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) || errors.Is(err, colly.ErrRobotsTxtBlocked) {
			return resp, err
		}
		lastErr = err
		if !f.cfg.Retry.RetryError(err, attempt) {
			break
		}
		delay := f.cfg.Retry.AttemptBackoff(attempt)
		metrics.ObserveFetchRetry("transport")
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := f.pause(ctx, delay); err != nil {
			return crawler.FetchResponse{}, err
		}
	}
	return crawler.FetchResponse{}, fmt.Errorf("%w: fetch %s: %w", crawler.ErrNetwork, rawURL, lastErr)
}

// Head issues a single HEAD request and reports the status code.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, error) {
	resp, err := f.visit(ctx, http.MethodHead, rawURL, f.cfg.HeadTimeout)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (f *Fetcher) fetchWithStatusRetry(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	for retry := 0; ; retry++ {
		resp, err := f.visit(ctx, http.MethodGet, rawURL, f.cfg.PageTimeout)
		if err != nil {
			return crawler.FetchResponse{}, err
		}
		switch {
		case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
			return resp, nil
		case f.cfg.Retry.RetryStatus(resp.StatusCode, retry):
			delay := f.cfg.Retry.StatusBackoff(retry)
			metrics.ObserveFetchRetry("status")
			f.logger.Debug("server error, backing off",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("retry", retry+1),
				zap.Duration("backoff", delay))
			if err := f.pause(ctx, delay); err != nil {
				return crawler.FetchResponse{}, err
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			return resp, fmt.Errorf("%w: %w", crawler.ErrNetwork, &StatusError{URL: rawURL, StatusCode: resp.StatusCode})
		default:
			return resp, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}
	}
}

// visit performs exactly one request bounded by timeout.
func (f *Fetcher) visit(
	ctx context.Context,
	method, rawURL string,
	timeout time.Duration,
) (crawler.FetchResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	collector := f.buildCollector(attemptCtx)
	f.configureCollectorHooks(collector, time.Now(), &result, &fetchErr)

	var err error
	if method == http.MethodHead {
		err = collector.Head(rawURL)
	} else {
		err = collector.Visit(rawURL)
	}
	if err != nil {
		return crawler.FetchResponse{}, fmt.Errorf("colly %s %s: %w", method, rawURL, err)
	}
	if fetchErr != nil {
		return crawler.FetchResponse{}, fmt.Errorf("colly response %s: %w", rawURL, fetchErr)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(ctx context.Context) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.WithTransport(f.transport)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		setBrowserHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func setBrowserHeaders(r *colly.Request) {
	if r.Headers == nil {
		r.Headers = &http.Header{}
	}
	for key, value := range browserHeaders {
		r.Headers.Set(key, value)
	}
}

func newHTTPTransport(insecureSkipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			// The gallery host serves an incomplete certificate chain.
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec
		},
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
