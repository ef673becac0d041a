// Package serialize renders a document tree as Markdown or HTML for a
// target. Rendering never fails: anything a target cannot express degrades
// to best-effort output and is reported as a Warning.
package serialize

import (
	"strings"
	"sync"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/manifest"
)

// WarningType categorizes serializer warnings.
type WarningType string

const (
	// WarningSerializationGap means a requested option has no distinct
	// rendering and the default output was used instead.
	WarningSerializationGap WarningType = "serialization_gap"
	WarningUnknownNode      WarningType = "unknown_node"
	WarningDroppedFeature   WarningType = "dropped_feature"
)

// Warning represents a non-fatal issue encountered while rendering.
type Warning struct {
	Type     WarningType        `json:"type"`
	NodeType crosspost.NodeType `json:"nodeType,omitempty"`
	Message  string             `json:"message"`
}

// Result holds the output of a render.
type Result struct {
	Content  string    `json:"content"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// ConverterFunc builds a raw HTML converter that writes list items and
// emphasis with the given markers.
type ConverterFunc func(bullet, emphasis string) crosspost.Converter

// Serializer renders document trees. The zero value is ready to use.
// A converter is only needed for crosspost.RawHTMLConvert: NewConverter is
// preferred so converted HTML uses the target's markers, one converter per
// marker pair; Converter is used as is otherwise.
type Serializer struct {
	Converter    crosspost.Converter
	NewConverter ConverterFunc

	mu         sync.Mutex
	converters map[[2]string]crosspost.Converter
}

// NewSerializer creates a Serializer that converts raw HTML with conv.
func NewSerializer(conv crosspost.Converter) *Serializer {
	return &Serializer{Converter: conv}
}

// NewSerializerFunc creates a Serializer that builds its raw HTML
// converters with fn.
func NewSerializerFunc(fn ConverterFunc) *Serializer {
	return &Serializer{NewConverter: fn}
}

// Render renders root according to opts.
func (s *Serializer) Render(root *crosspost.Root, opts crosspost.SerializeOptions) *Result {
	if root == nil {
		return &Result{}
	}
	r := &renderer{opts: opts, seen: make(map[Warning]bool)}
	if opts.RawHTMLHandling() == crosspost.RawHTMLConvert {
		r.conv = s.converter(opts.Bullet(), opts.Emphasis())
	}

	var content string
	switch opts.OutputFormat() {
	case crosspost.FormatHTML:
		content = r.htmlBlocks(root.Children)
	default:
		content = r.markdownBlocks(root.Children)
	}
	return &Result{Content: content, Warnings: r.warnings}
}

func (s *Serializer) converter(bullet, emphasis string) crosspost.Converter {
	if s.NewConverter == nil {
		return s.Converter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{bullet, emphasis}
	if conv, ok := s.converters[key]; ok {
		return conv
	}
	if s.converters == nil {
		s.converters = make(map[[2]string]crosspost.Converter)
	}
	conv := s.NewConverter(bullet, emphasis)
	s.converters[key] = conv
	return conv
}

// Serialize renders root according to opts and returns only the content.
func Serialize(root *crosspost.Root, opts crosspost.SerializeOptions) string {
	return (&Serializer{}).Render(root, opts).Content
}

// ResolveImageURL returns the URL an image should be published with.
// Precedence: the explicit URL map, the asset's uploaded URL for the
// platform, the asset's proxy URL, the asset's original URL, the node's own
// URL, and finally "".
func ResolveImageURL(assetID, originalURL string, opts crosspost.SerializeOptions) string {
	asset := opts.Assets.Find(assetID)
	if asset == nil && originalURL != "" {
		asset = opts.Assets.FindByURL(originalURL)
	}

	if u := lookupMap(opts.ImageURLMap, originalURL); u != "" {
		return u
	}
	if asset != nil {
		if u := lookupMap(opts.ImageURLMap, asset.OriginalURL); u != "" {
			return u
		}
		if u := asset.UploadedURL(opts.Platform); u != "" {
			return u
		}
		if asset.ProxyURL != "" {
			return asset.ProxyURL
		}
		if asset.OriginalURL != "" {
			return asset.OriginalURL
		}
	}
	return originalURL
}

func lookupMap(m map[string]string, key string) string {
	if len(m) == 0 || key == "" {
		return ""
	}
	if u := m[key]; u != "" {
		return u
	}
	return m[crosspost.NormalizeURL(key)]
}

// renderer carries per-call state. A renderer is used by one goroutine.
type renderer struct {
	opts     crosspost.SerializeOptions
	conv     crosspost.Converter
	warnings []Warning
	seen     map[Warning]bool
}

func (r *renderer) warn(typ WarningType, nodeType crosspost.NodeType, msg string) {
	w := Warning{Type: typ, NodeType: nodeType, Message: msg}
	if r.seen[w] {
		return
	}
	r.seen[w] = true
	r.warnings = append(r.warnings, w)
}

// mathGap records that a non-latex math mode fell back to LaTeX delimiters.
func (r *renderer) mathGap(nodeType crosspost.NodeType) {
	if mode := r.opts.Math(); mode != crosspost.MathLaTeX {
		r.warn(WarningSerializationGap, nodeType, "math mode "+string(mode)+" rendered as latex")
	}
}

func (r *renderer) imageURL(assetID, originalURL string) string {
	return ResolveImageURL(assetID, originalURL, r.opts)
}

// rawImages resolves the <img> sources inside a raw HTML fragment like
// image nodes.
func (r *renderer) rawImages(raw string) string {
	return manifest.RewriteImageSources(raw, func(src string) string {
		return r.imageURL("", src)
	})
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// hasSpans reports whether any cell of t spans rows or columns.
func hasSpans(t *crosspost.Table) bool {
	if t.HasRowspan || t.HasColspan {
		return true
	}
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			if c.Rowspan > 1 || c.Colspan > 1 {
				return true
			}
		}
	}
	return false
}
