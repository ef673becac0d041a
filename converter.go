package crosspost

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms an HTML fragment into Markdown.
	Convert(html string) (string, error)
}

// Parser parses Markdown into a document tree.
type Parser interface {
	Parse(markdown string) (*Root, error)
}
