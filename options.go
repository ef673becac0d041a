package crosspost

// Format is the output format of a serializer run.
type Format string

// Output formats.
const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// MathMode is how a target wants math rendered.
type MathMode string

// Math modes. Only MathLaTeX is rendered natively; the others degrade to
// LaTeX delimiters with a warning.
const (
	MathLaTeX MathMode = "latex"
	MathImage MathMode = "image"
	MathHTML  MathMode = "html"
)

// ComplexTableMode is how tables with spanning cells are rendered in Markdown.
type ComplexTableMode string

// Complex table modes.
const (
	ComplexTableHTML     ComplexTableMode = "html"
	ComplexTableMarkdown ComplexTableMode = "markdown"
)

// RawHTMLMode is how raw HTML nodes are rendered in Markdown output.
type RawHTMLMode string

// Raw HTML modes.
const (
	RawHTMLKeep    RawHTMLMode = "keep"
	RawHTMLConvert RawHTMLMode = "convert"
	RawHTMLDrop    RawHTMLMode = "drop"
)

// SerializeOptions controls a single serializer run. Zero values select the
// defaults documented on each accessor.
type SerializeOptions struct {
	Format   Format `json:"format,omitempty" yaml:"format,omitempty"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`

	// ImageURLMap maps an original image URL to its final URL.
	ImageURLMap map[string]string `json:"-" yaml:"-"`

	// Assets supplies per-platform uploaded URLs and proxy URLs for images
	// missing from ImageURLMap.
	Assets *AssetManifest `json:"-" yaml:"-"`

	MathMode         MathMode         `json:"mathMode,omitempty" yaml:"mathMode,omitempty"`
	ComplexTableMode ComplexTableMode `json:"complexTableMode,omitempty" yaml:"complexTableMode,omitempty"`
	BulletMarker     string           `json:"bulletMarker,omitempty" yaml:"bulletMarker,omitempty"`
	EmphasisMarker   string           `json:"emphasisMarker,omitempty" yaml:"emphasisMarker,omitempty"`
	RawHTML          RawHTMLMode      `json:"rawHtml,omitempty" yaml:"rawHtml,omitempty"`
}

// OutputFormat returns Format or FormatMarkdown.
func (o SerializeOptions) OutputFormat() Format {
	if o.Format == "" {
		return FormatMarkdown
	}
	return o.Format
}

// Math returns MathMode or MathLaTeX.
func (o SerializeOptions) Math() MathMode {
	if o.MathMode == "" {
		return MathLaTeX
	}
	return o.MathMode
}

// ComplexTables returns ComplexTableMode or ComplexTableHTML.
func (o SerializeOptions) ComplexTables() ComplexTableMode {
	if o.ComplexTableMode == "" {
		return ComplexTableHTML
	}
	return o.ComplexTableMode
}

// Bullet returns BulletMarker when it is one of "-", "*" or "+", else "-".
func (o SerializeOptions) Bullet() string {
	switch o.BulletMarker {
	case "*", "+":
		return o.BulletMarker
	default:
		return "-"
	}
}

// Emphasis returns EmphasisMarker when it is "_", else "*".
func (o SerializeOptions) Emphasis() string {
	if o.EmphasisMarker == "_" {
		return "_"
	}
	return "*"
}

// RawHTMLHandling returns RawHTML or RawHTMLKeep.
func (o SerializeOptions) RawHTMLHandling() RawHTMLMode {
	if o.RawHTML == "" {
		return RawHTMLKeep
	}
	return o.RawHTML
}

// Validate returns EINVALID for unknown enum values.
func (o SerializeOptions) Validate() error {
	switch o.OutputFormat() {
	case FormatMarkdown, FormatHTML:
	default:
		return Errorf(EINVALID, "unsupported output format %q", o.Format)
	}
	switch o.Math() {
	case MathLaTeX, MathImage, MathHTML:
	default:
		return Errorf(EINVALID, "unsupported math mode %q", o.MathMode)
	}
	switch o.ComplexTables() {
	case ComplexTableHTML, ComplexTableMarkdown:
	default:
		return Errorf(EINVALID, "unsupported complex table mode %q", o.ComplexTableMode)
	}
	switch o.RawHTMLHandling() {
	case RawHTMLKeep, RawHTMLConvert, RawHTMLDrop:
	default:
		return Errorf(EINVALID, "unsupported raw HTML mode %q", o.RawHTML)
	}
	return nil
}
