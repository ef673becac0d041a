package crosspost

// ImageTag is an <img> element found in raw HTML.
type ImageTag struct {
	Src   string
	Alt   string
	Title string
}

// ImageTagScanner finds <img> elements in an HTML fragment or in HTML
// embedded in Markdown.
type ImageTagScanner interface {
	// ScanImages returns the image tags in document order. Tags without a
	// src attribute are skipped.
	ScanImages(html string) ([]ImageTag, error)
}

// TokenExtractor reads a CSRF token from an HTML page.
type TokenExtractor interface {
	// ExtractToken returns the content of the first <meta> tag whose name
	// is in names, trying names in order.
	ExtractToken(html string, names ...string) (string, bool)
}
