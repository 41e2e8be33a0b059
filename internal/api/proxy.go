package api

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/images"
	"github.com/JakeFAU/jersey-gallery/internal/ratelimit"
)

const (
	imageCacheControl   = "public, max-age=31536000"
	defaultImageType    = "image/jpeg"
	defaultProxyTimeout = 30 * time.Second
	defaultProxyAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Messages returned to the browser verbatim.
var (
	errNoImageURL      = errors.New("No image URL provided") //nolint:staticcheck
	errInvalidImageURL = errors.New("Invalid image URL")     //nolint:staticcheck
)

// ProxyOptions configures the upstream image client.
type ProxyOptions struct {
	Referer            string
	UserAgent          string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// PhotoHost is the only upstream host (with its subdomains) the proxy
	// fetches from. Defaults to images.DefaultPhotoHost.
	PhotoHost string
	// RPS caps upstream requests per host; zero means unlimited.
	RPS   float64
	Burst int
}

// ImageProxy streams photos from the gallery CDN, which rejects requests
// without a browser identity and a shop referer.
type ImageProxy struct {
	photoHost string
	client    *resty.Client
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
}

// NewImageProxy builds a proxy with its own resty client.
func NewImageProxy(opts ProxyOptions, logger *zap.Logger) *ImageProxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultProxyAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProxyTimeout
	}
	if opts.PhotoHost == "" {
		opts.PhotoHost = images.DefaultPhotoHost
	}
	headers := map[string]string{
		"User-Agent":      opts.UserAgent,
		"Accept":          "image/webp,image/apng,image/*,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if opts.Referer != "" {
		headers["Referer"] = opts.Referer
	}
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeaders(headers).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify}) //nolint:gosec
	return &ImageProxy{
		photoHost: strings.ToLower(opts.PhotoHost),
		client:    client,
		limiter:   ratelimit.New(ratelimit.Config{DefaultRPS: opts.RPS, DefaultBurst: opts.Burst}),
		logger:    logger,
	}
}

func (p *ImageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := imageTarget(r, p.photoHost)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger := p.logger.With(
		zap.String("request_id", RequestID(r.Context())),
		zap.String("url", target))

	if err := p.limiter.Wait(r.Context(), target); err != nil {
		logger.Info("image request abandoned while throttled", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Image proxy busy, retry later")
		return
	}

	resp, err := p.client.R().
		SetContext(r.Context()).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		logger.Warn("image fetch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error proxying image: %v", err))
		return
	}
	body := resp.RawBody()
	defer func() {
		if cerr := body.Close(); cerr != nil {
			logger.Debug("close upstream body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode() != http.StatusOK {
		logger.Info("upstream rejected image", zap.Int("status", resp.StatusCode()))
		writeError(w, resp.StatusCode(), fmt.Sprintf("Failed to fetch image: %d", resp.StatusCode()))
		return
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageType
	}
	w.Header().Set("Cache-Control", imageCacheControl)

	if strings.EqualFold(r.URL.Query().Get("encoding"), "base64") {
		data, err := io.ReadAll(body)
		if err != nil {
			logger.Warn("read upstream image", zap.Error(err))
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error proxying image: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Image-Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, base64.StdEncoding.EncodeToString(data)); err != nil {
			logger.Debug("write base64 image", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logger.Debug("stream image", zap.Error(err))
	}
}

// imageTarget extracts the upstream URL from ?url= or the path suffix and
// rejects hosts outside photoHost.
func imageTarget(r *http.Request, photoHost string) (string, error) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		raw = chi.URLParam(r, "*")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errNoImageURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !hostAllowed(u.Hostname(), photoHost) {
		return "", errInvalidImageURL
	}
	return u.String(), nil
}

// hostAllowed reports whether host is photoHost or one of its subdomains.
func hostAllowed(host, photoHost string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	return host == photoHost || strings.HasSuffix(host, "."+photoHost)
}
