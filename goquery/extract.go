// Package goquery reads HTML with goquery: image tags for asset manifests
// and CSRF tokens from editor pages.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/crosspost"
)

var (
	_ crosspost.ImageTagScanner = (*ImageScanner)(nil)
	_ crosspost.TokenExtractor  = (*TokenExtractor)(nil)
)

// ImageScanner finds <img> elements in HTML or in HTML embedded in Markdown.
type ImageScanner struct{}

// NewImageScanner creates an ImageScanner.
func NewImageScanner() *ImageScanner {
	return &ImageScanner{}
}

// ScanImages returns the <img> tags with a non-empty src in document order.
// Lazy-loading pages often keep the real URL in data-src; it is preferred
// when src is empty or an inline placeholder.
func (s *ImageScanner) ScanImages(html string) ([]crosspost.ImageTag, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crosspost.Errorf(crosspost.EINVALID, "failed to parse HTML: %v", err)
	}

	var tags []crosspost.ImageTag
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if lazy := strings.TrimSpace(sel.AttrOr("data-src", "")); lazy != "" && (src == "" || isPlaceholder(src)) {
			src = lazy
		}
		if src == "" {
			return
		}
		tags = append(tags, crosspost.ImageTag{
			Src:   src,
			Alt:   sel.AttrOr("alt", ""),
			Title: sel.AttrOr("title", ""),
		})
	})
	return tags, nil
}

// isPlaceholder reports whether src is a tiny inline stand-in used by
// lazy loaders rather than real image content.
func isPlaceholder(src string) bool {
	return strings.HasPrefix(src, "data:image/gif") || strings.HasPrefix(src, "data:image/svg+xml")
}

// TokenExtractor reads CSRF tokens from <meta> tags.
type TokenExtractor struct{}

// NewTokenExtractor creates a TokenExtractor.
func NewTokenExtractor() *TokenExtractor {
	return &TokenExtractor{}
}

// ExtractToken returns the content of the first <meta> whose name matches
// one of names, trying names in order. Hidden form inputs with the same
// name are accepted when no meta tag matches.
func (e *TokenExtractor) ExtractToken(html string, names ...string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	for _, name := range names {
		if v := attrOfFirst(doc, "meta", "name", name, "content"); v != "" {
			return v, true
		}
	}
	for _, name := range names {
		if v := attrOfFirst(doc, "input", "name", name, "value"); v != "" {
			return v, true
		}
	}
	return "", false
}

func attrOfFirst(doc *goquery.Document, tag, key, name, attr string) string {
	var value string
	doc.Find(tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.AttrOr(key, "") != name {
			return true
		}
		value = strings.TrimSpace(sel.AttrOr(attr, ""))
		return value == ""
	})
	return value
}
