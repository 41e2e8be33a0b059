package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/store"
)

// ProxyPath is the same-origin route that image URLs are rewritten to.
const ProxyPath = "/proxy/image"

// GalleryHandler serves the dataset file reshaped for the front end.
type GalleryHandler struct {
	path        string
	proxyImages bool
	debug       bool
	logger      *zap.Logger
}

// NewGalleryHandler reads the dataset at path on every request so a running
// crawl is visible without a restart.
func NewGalleryHandler(path string, proxyImages, debug bool, logger *zap.Logger) *GalleryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GalleryHandler{path: path, proxyImages: proxyImages, debug: debug, logger: logger}
}

type galleryCategory struct {
	Name string `json:"name"`
}

type galleryJersey struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Images      []string `json:"images"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
}

type galleryResponse struct {
	Categories []galleryCategory `json:"categories"`
	Jerseys    []galleryJersey   `json:"jerseys"`
}

func (h *GalleryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ds, err := store.ReadDataset(h.path)
	if err != nil {
		h.writeLoadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.reshape(ds.Jerseys))
}

func (h *GalleryHandler) writeLoadError(w http.ResponseWriter, r *http.Request, err error) {
	var decodeErr *store.DecodeError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "No jerseys data found.")
	case errors.As(err, &decodeErr):
		h.logger.Error("dataset is not valid JSON",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", h.path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":    fmt.Sprintf("Invalid JSON format: %v", decodeErr.Err),
			"location": fmt.Sprintf("Error at line %d, column %d", decodeErr.Line, decodeErr.Column),
		})
	default:
		h.logger.Error("load dataset failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", h.path),
			zap.Error(err))
		body := map[string]string{"error": "Error loading gallery"}
		if h.debug {
			body["details"] = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func (h *GalleryHandler) reshape(jerseys []crawler.Jersey) galleryResponse {
	resp := galleryResponse{
		Categories: []galleryCategory{},
		Jerseys:    make([]galleryJersey, 0, len(jerseys)),
	}
	seen := make(map[string]struct{})
	for _, j := range jerseys {
		for _, c := range categoriesFor(j.Title) {
			seen[c] = struct{}{}
		}
		images := j.Images
		if images == nil {
			images = []string{}
		}
		entry := galleryJersey{
			Name:        j.Title,
			URL:         j.URL,
			Images:      images,
			Thumbnail:   j.Thumbnail,
			Description: j.Description,
			Category:    primaryCategory(j.Title),
		}
		if h.proxyImages {
			entry.Images = make([]string, len(images))
			for i, img := range images {
				entry.Images[i] = proxiedURL(img)
			}
			entry.Thumbnail = proxiedURL(j.Thumbnail)
		}
		resp.Jerseys = append(resp.Jerseys, entry)
	}
	for name := range seen {
		resp.Categories = append(resp.Categories, galleryCategory{Name: name})
	}
	sort.Slice(resp.Categories, func(a, b int) bool {
		return resp.Categories[a].Name < resp.Categories[b].Name
	})
	return resp
}

func proxiedURL(raw string) string {
	if raw == "" {
		return ""
	}
	return ProxyPath + "?url=" + url.QueryEscape(raw)
}
