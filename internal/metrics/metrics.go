// Package metrics exposes Prometheus collectors for the jersey crawler and
// gallery server.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page statuses reported by ObservePage.
const (
	PageOK     = "ok"
	PageFailed = "failed"
)

var (
	crawlerPagesTotal          *prometheus.CounterVec
	crawlerBytesTotal          *prometheus.CounterVec
	crawlerJerseysAddedTotal   prometheus.Counter
	crawlerItemsSkippedTotal   *prometheus.CounterVec
	crawlerFetchRetriesTotal   *prometheus.CounterVec
	crawlerImageChecksTotal    *prometheus.CounterVec
	storeSavesTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	proxyRateLimitDelay        *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_pages_total",
				Help: "Listing pages processed, labeled by status.",
			},
			[]string{"status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerJerseysAddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_jerseys_added_total",
				Help: "Jerseys appended to the dataset.",
			},
		)

		crawlerItemsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_items_skipped_total",
				Help: "Album references skipped, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerFetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_fetch_retries_total",
				Help: "Fetch retries, labeled by kind (status or transport).",
			},
			[]string{"kind"},
		)

		crawlerImageChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_crawler_image_checks_total",
				Help: "Image upgrade HEAD checks, labeled by result.",
			},
			[]string{"result"},
		)

		storeSavesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jerseys_store_saves_total",
				Help: "Dataset checkpoint writes, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		proxyRateLimitDelay = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jerseys_proxy_ratelimit_delay_seconds",
				Help:    "Time image proxy requests waited for an upstream token, labeled by host.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch records the bytes fetched from a site.
func ObserveFetch(site string, bytesFetched int) {
	Init()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObservePage increments the listing page counter for the given status.
func ObservePage(status string) {
	Init()
	crawlerPagesTotal.WithLabelValues(status).Inc()
}

// ObserveJerseyAdded increments the appended jersey counter.
func ObserveJerseyAdded() {
	Init()
	crawlerJerseysAddedTotal.Inc()
}

// ObserveItemSkipped increments the skipped item counter.
func ObserveItemSkipped(reason string) {
	Init()
	crawlerItemsSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveFetchRetry increments the retry counter for kind.
func ObserveFetchRetry(kind string) {
	Init()
	crawlerFetchRetriesTotal.WithLabelValues(kind).Inc()
}

// ObserveImageCheck records whether an upgrade candidate was accepted.
func ObserveImageCheck(accepted bool) {
	Init()
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	crawlerImageChecksTotal.WithLabelValues(result).Inc()
}

// ObserveStoreSave records the result of a checkpoint write.
func ObserveStoreSave(err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeSavesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records how long a request waited for a host token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	proxyRateLimitDelay.WithLabelValues(SanitizeSite(host)).Observe(delay.Seconds())
}
