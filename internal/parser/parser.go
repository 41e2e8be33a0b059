// Package parser turns yupoo listing and album pages into crawl inputs.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
)

// UntitledTitle is used when neither the album page nor the listing carried a
// usable title.
const UntitledTitle = "Untitled Jersey"

const (
	primaryAlbumSelector  = `a.album_main[href*="/albums/"]`
	fallbackAlbumSelector = `a[href*="/albums/"]`
	albumTitleSelector    = `div.text_overflow_album_title`
	descriptionSelector   = `.album__desc`
)

// The gallery renders "1" and "2" as titles for albums with no name.
var placeholderTitles = map[string]struct{}{"": {}, "1": {}, "2": {}}

// Parser implements crawler.Parser with goquery.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// ParseListing implements crawler.Parser.
func (*Parser) ParseListing(body []byte, baseURL string) ([]crawler.AlbumRef, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}
	return ParseListing(doc, baseURL)
}

// ParseItem implements crawler.Parser.
func (*Parser) ParseItem(body []byte, provisionalTitle string) (crawler.ItemPage, error) {
	doc, err := newDocument(body)
	if err != nil {
		return crawler.ItemPage{}, err
	}
	return crawler.ItemPage{
		Title:       ExtractTitle(doc, provisionalTitle),
		Description: ExtractDescription(doc),
		Document:    doc,
	}, nil
}

// ParseListing returns the album references on a listing page in document
// order. Links with the album_main class win; any album link is accepted when
// none carry it. Duplicates are kept.
func ParseListing(doc *goquery.Document, baseURL string) ([]crawler.AlbumRef, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url %q: %w", crawler.ErrParse, baseURL, err)
	}

	links := doc.Find(primaryAlbumSelector)
	if links.Length() == 0 {
		links = doc.Find(fallbackAlbumSelector)
	}

	refs := make([]crawler.AlbumRef, 0, links.Length())
	links.Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !strings.Contains(abs, "/albums/") {
			return
		}
		title, _ := link.Attr("title")
		refs = append(refs, crawler.AlbumRef{URL: abs, ProvisionalTitle: title})
	})
	return refs, nil
}

// ExtractTitle picks the album title: the album_main title attribute, then
// the album title block, then the provisional listing title, then
// UntitledTitle.
func ExtractTitle(doc *goquery.Document, provisionalTitle string) string {
	if title, ok := doc.Find("a.album_main").First().Attr("title"); ok && !isPlaceholder(title) {
		return title
	}
	if block := doc.Find(albumTitleSelector).First(); block.Length() > 0 {
		if title := StrippedText(block); !isPlaceholder(title) {
			return title
		}
	}
	if provisionalTitle != "" {
		return provisionalTitle
	}
	return UntitledTitle
}

// ExtractDescription returns the stripped text of the album description, or "".
func ExtractDescription(doc *goquery.Document) string {
	return StrippedText(doc.Find(descriptionSelector).First())
}

func isPlaceholder(title string) bool {
	_, ok := placeholderTitles[title]
	return ok
}

func newDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrParse, err)
	}
	return doc, nil
}
