package mock

import "github.com/fwojciec/crosspost"

var _ crosspost.ImageTagScanner = (*ImageTagScanner)(nil)

// ImageTagScanner is a mock implementation of crosspost.ImageTagScanner.
type ImageTagScanner struct {
	ScanImagesFn func(html string) ([]crosspost.ImageTag, error)
}

func (s *ImageTagScanner) ScanImages(html string) ([]crosspost.ImageTag, error) {
	return s.ScanImagesFn(html)
}

var _ crosspost.TokenExtractor = (*TokenExtractor)(nil)

// TokenExtractor is a mock implementation of crosspost.TokenExtractor.
type TokenExtractor struct {
	ExtractTokenFn func(html string, names ...string) (string, bool)
}

func (e *TokenExtractor) ExtractToken(html string, names ...string) (string, bool) {
	return e.ExtractTokenFn(html, names...)
}
