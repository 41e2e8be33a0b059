package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://Photo.Yupoo.com/a/b/big.jpg", "photo.yupoo.com"},
		{"no scheme", "huahetian.x.yupoo.com/categories", "huahetian.x.yupoo.com"},
		{"host with port", "127.0.0.1:8080", "127.0.0.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := crawlerPagesTotal
	Init()
	require.NotNil(t, first)
	assert.Same(t, first, crawlerPagesTotal)
}

func TestObserveCrawlCounters(t *testing.T) {
	Init()

	pagesBefore := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues(PageFailed))
	ObservePage(PageFailed)
	assert.Equal(t, pagesBefore+1, testutil.ToFloat64(crawlerPagesTotal.WithLabelValues(PageFailed)))

	addedBefore := testutil.ToFloat64(crawlerJerseysAddedTotal)
	ObserveJerseyAdded()
	assert.Equal(t, addedBefore+1, testutil.ToFloat64(crawlerJerseysAddedTotal))

	skippedBefore := testutil.ToFloat64(crawlerItemsSkippedTotal.WithLabelValues("no_images"))
	ObserveItemSkipped("no_images")
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(crawlerItemsSkippedTotal.WithLabelValues("no_images")))

	checksBefore := testutil.ToFloat64(crawlerImageChecksTotal.WithLabelValues("rejected"))
	ObserveImageCheck(false)
	assert.Equal(t, checksBefore+1, testutil.ToFloat64(crawlerImageChecksTotal.WithLabelValues("rejected")))

	saveBefore := testutil.ToFloat64(storeSavesTotal.WithLabelValues("error"))
	ObserveStoreSave(errors.New("disk full"))
	assert.Equal(t, saveBefore+1, testutil.ToFloat64(storeSavesTotal.WithLabelValues("error")))

	bytesBefore := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("photo.yupoo.com"))
	ObserveFetch("https://photo.yupoo.com/x", 0)
	ObserveFetch("https://photo.yupoo.com/x", 42)
	assert.Equal(t, bytesBefore+42, testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("photo.yupoo.com")))
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://photo.yupoo.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}

func TestObserveRateLimitDelay(t *testing.T) {
	t.Parallel()

	ObserveRateLimitDelay("https://photo.yupoo.com/a/big.jpg", 30*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(proxyRateLimitDelay), 1)
}
