// Package manifest extracts image references from article content into an
// ordered, de-duplicated asset manifest and rewrites image URLs afterwards.
package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/crosspost"
)

// Input is everything the builder scans for images.
type Input struct {
	JobID  string
	Body   string
	Tree   *crosspost.Root
	Assets []crosspost.AssetInput
}

// Builder builds asset manifests. Scanner is optional; without it inline
// HTML <img> tags are not picked up.
type Builder struct {
	Scanner crosspost.ImageTagScanner
}

// NewBuilder creates a Builder using scanner for inline HTML images.
func NewBuilder(scanner crosspost.ImageTagScanner) *Builder {
	return &Builder{Scanner: scanner}
}

// Build returns the manifest for in. Explicit assets come first, followed by
// Markdown image references, inline HTML images and finally images found in
// the tree. The first occurrence of each normalized URL wins.
func (b *Builder) Build(in Input) *crosspost.AssetManifest {
	s := &state{
		manifest: &crosspost.AssetManifest{JobID: in.JobID, Assets: []*crosspost.ImageAsset{}},
		seenURL:  make(map[string]bool),
		seenID:   make(map[string]bool),
	}

	for _, a := range in.Assets {
		s.add(candidate{id: a.ID, url: a.URL, alt: a.Alt, data: a.Data})
	}

	for _, ref := range ExtractImages(in.Body) {
		s.add(candidate{url: ref.URL, alt: ref.Alt, title: ref.Title})
	}

	if b.Scanner != nil && strings.Contains(in.Body, "<") {
		// Scanner errors only mean no inline HTML images are found.
		if tags, err := b.Scanner.ScanImages(in.Body); err == nil {
			for _, tag := range tags {
				s.add(candidate{url: tag.Src, alt: tag.Alt, title: tag.Title})
			}
		}
	}

	crosspost.Walk(in.Tree, func(n crosspost.Node) bool {
		switch n := n.(type) {
		case *crosspost.ImageBlock:
			s.add(candidate{id: n.AssetID, url: n.OriginalURL, alt: n.Alt, title: n.Title})
		case *crosspost.Image:
			s.add(candidate{id: n.AssetID, url: n.OriginalURL, alt: n.Alt, title: n.Title})
		}
		return true
	})

	return s.manifest
}

type candidate struct {
	id    string
	url   string
	alt   string
	title string
	data  []byte
}

type state struct {
	manifest *crosspost.AssetManifest
	seenURL  map[string]bool
	seenID   map[string]bool
}

func (s *state) add(c candidate) {
	u := crosspost.NormalizeURL(c.url)
	if u == "" || s.seenURL[u] {
		return
	}
	s.seenURL[u] = true

	asset := &crosspost.ImageAsset{
		ID:          s.uniqueID(c.id, u),
		OriginalURL: u,
		NeedsFetch:  crosspost.IsRemoteURL(u) && len(c.data) == 0,
		Status:      crosspost.AssetPending,
		Metadata: crosspost.ImageMetadata{
			Format: crosspost.GuessFormat(u),
			Alt:    c.alt,
			Title:  c.title,
		},
	}
	switch {
	case len(c.data) > 0:
		asset.Metadata.DataURL = crosspost.EncodeDataURL(crosspost.MIMEType(asset.Metadata.Format), c.data)
		asset.Metadata.Size = int64(len(c.data))
	case strings.HasPrefix(u, "data:"):
		asset.Metadata.DataURL = u
	}
	s.manifest.Assets = append(s.manifest.Assets, asset)
}

func (s *state) uniqueID(explicit, normalizedURL string) string {
	base := explicit
	if base == "" {
		base = AssetID(normalizedURL)
	}
	id := base
	for n := 2; s.seenID[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	s.seenID[id] = true
	return id
}

// AssetID returns the generated ID for a normalized image URL.
func AssetID(normalizedURL string) string {
	return fmt.Sprintf("img-%016x", xxhash.Sum64String(normalizedURL))
}

// ImageRef is a Markdown image reference.
type ImageRef struct {
	Alt   string
	URL   string
	Title string
}

// ExtractImages returns the Markdown image references in markdown in order.
// URLs are normalized; references with an empty destination are skipped.
func ExtractImages(markdown string) []ImageRef {
	var refs []ImageRef
	for _, img := range findImages(markdown) {
		dest := parseDestination(img.dest)
		u := crosspost.NormalizeURL(dest.url)
		if u == "" {
			continue
		}
		refs = append(refs, ImageRef{Alt: unescape(img.alt), URL: u, Title: dest.title})
	}
	return refs
}

// destination is a parsed link destination. rest is the raw text after the
// URL, including any title, kept verbatim for rewriting.
type destination struct {
	lead   string
	url    string
	angled bool
	rest   string
	title  string
}

func parseDestination(raw string) destination {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	d := destination{lead: raw[:len(raw)-len(trimmed)]}

	if strings.HasPrefix(trimmed, "<") {
		if end := strings.IndexByte(trimmed, '>'); end > 0 {
			d.url = trimmed[1:end]
			d.angled = true
			d.rest = trimmed[end+1:]
			d.title = parseTitle(d.rest)
			return d
		}
	}

	urlPart := trimmed
	if q := firstUnescapedQuote(trimmed); q >= 0 {
		urlPart = trimmed[:q]
	}
	// Whitespace separating the URL from the title stays in rest.
	d.url = strings.TrimRight(urlPart, " \t\r\n")
	d.rest = trimmed[len(d.url):]
	d.title = parseTitle(d.rest)
	return d
}

func firstUnescapedQuote(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"', '\'':
			return i
		}
	}
	return -1
}

func parseTitle(rest string) string {
	t := strings.TrimSpace(rest)
	if len(t) < 2 {
		return ""
	}
	q := t[0]
	if (q != '"' && q != '\'') || t[len(t)-1] != q {
		return ""
	}
	return unescape(t[1 : len(t)-1])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
