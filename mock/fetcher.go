package mock

import (
	"context"

	"github.com/fwojciec/crosspost"
)

var _ crosspost.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of crosspost.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ crosspost.ImageFetcher = (*ImageFetcher)(nil)

// ImageFetcher is a mock implementation of crosspost.ImageFetcher.
type ImageFetcher struct {
	FetchImageFn func(ctx context.Context, url string) (*crosspost.ImageData, error)
}

func (f *ImageFetcher) FetchImage(ctx context.Context, url string) (*crosspost.ImageData, error) {
	return f.FetchImageFn(ctx, url)
}
