// Package htmltomarkdown converts raw HTML fragments found in articles to
// Markdown for targets that reject inline HTML.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/strikethrough"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/crosspost"
)

// Ensure Converter implements crosspost.Converter at compile time.
var _ crosspost.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown to convert HTML to Markdown.
type Converter struct {
	conv *converter.Converter
}

// Option configures a Converter.
type Option func(*options)

type options struct {
	bullet   string
	emphasis string
}

// WithBulletMarker sets the bullet list marker ("-", "*" or "+").
func WithBulletMarker(m string) Option {
	return func(o *options) {
		o.bullet = m
	}
}

// WithEmphasisMarker sets the emphasis delimiter ("*" or "_"). Strong
// emphasis doubles it.
func WithEmphasisMarker(m string) Option {
	return func(o *options) {
		o.emphasis = m
	}
}

// NewConverter creates a new Converter. The default markers match the
// serializer's defaults so converted fragments blend with the rest of the
// article.
func NewConverter(opts ...Option) *Converter {
	o := options{bullet: "-", emphasis: "*"}
	for _, opt := range opts {
		opt(&o)
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithBulletListMarker(o.bullet),
				commonmark.WithEmDelimiter(o.emphasis),
				commonmark.WithStrongDelimiter(o.emphasis+o.emphasis),
			),
			strikethrough.NewStrikethroughPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// ConverterFor returns a Converter that writes list items with bullet and
// emphasis with emphasis. It fits serialize.ConverterFunc.
func ConverterFor(bullet, emphasis string) crosspost.Converter {
	return NewConverter(WithBulletMarker(bullet), WithEmphasisMarker(emphasis))
}

// Convert transforms an HTML fragment into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", crosspost.Errorf(crosspost.EINVALID, "empty HTML input")
	}

	result, err := c.conv.ConvertString(html)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(result), nil
}
