package crawler

import (
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Jersey is one extracted album, the unit persisted in the dataset file.
type Jersey struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Images      []string `json:"images"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Page        int      `json:"page"`
}

// NewJersey builds a Jersey whose image list is deduplicated and whose
// thumbnail is the first image (or empty).
func NewJersey(title, url string, images []string, description string, page int) Jersey {
	imgs := DedupeURLs(images)
	thumbnail := ""
	if len(imgs) > 0 {
		thumbnail = imgs[0]
	}
	return Jersey{
		Title:       title,
		URL:         url,
		Images:      imgs,
		Thumbnail:   thumbnail,
		Description: description,
		Page:        page,
	}
}

// CrawlState is the checkpoint the crawl resumes from.
type CrawlState struct {
	Jerseys           []Jersey
	LastCompletedPage int
	TotalPages        int
}

// LastJersey returns the most recently appended jersey.
func (s CrawlState) LastJersey() (Jersey, bool) {
	if len(s.Jerseys) == 0 {
		return Jersey{}, false
	}
	return s.Jerseys[len(s.Jerseys)-1], true
}

// LastURL returns the URL of the most recently appended jersey, or "".
func (s CrawlState) LastURL() string {
	last, ok := s.LastJersey()
	if !ok {
		return ""
	}
	return last.URL
}

// AlbumRef points at an album detail page found on a listing page.
type AlbumRef struct {
	URL              string
	ProvisionalTitle string
}

// ItemPage is the parsed content of an album detail page.
type ItemPage struct {
	Title       string
	Description string
	Document    *goquery.Document
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// DedupeURLs drops exact repeats, keeping first-seen order.
func DedupeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
