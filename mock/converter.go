package mock

import "github.com/fwojciec/crosspost"

var _ crosspost.Converter = (*Converter)(nil)

// Converter is a mock implementation of crosspost.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ crosspost.Parser = (*Parser)(nil)

// Parser is a mock implementation of crosspost.Parser.
type Parser struct {
	ParseFn func(markdown string) (*crosspost.Root, error)
}

func (p *Parser) Parse(markdown string) (*crosspost.Root, error) {
	return p.ParseFn(markdown)
}
