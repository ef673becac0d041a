// Package slog decorates crosspost services with structured logging.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/crosspost"
)

// Ensure LoggingFetcher implements crosspost.Fetcher.
var _ crosspost.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   crosspost.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next crosspost.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

// Ensure LoggingImageFetcher implements crosspost.ImageFetcher.
var _ crosspost.ImageFetcher = (*LoggingImageFetcher)(nil)

// LoggingImageFetcher wraps an ImageFetcher with debug logging.
type LoggingImageFetcher struct {
	next   crosspost.ImageFetcher
	logger *slog.Logger
}

// NewLoggingImageFetcher creates a new LoggingImageFetcher.
func NewLoggingImageFetcher(next crosspost.ImageFetcher, logger *slog.Logger) *LoggingImageFetcher {
	return &LoggingImageFetcher{next: next, logger: logger}
}

// FetchImage logs the download and delegates to the wrapped fetcher.
func (f *LoggingImageFetcher) FetchImage(ctx context.Context, url string) (img *crosspost.ImageData, err error) {
	defer func(begin time.Time) {
		var size int
		var mimeType string
		if img != nil {
			size, mimeType = len(img.Data), img.MIMEType
		}
		f.logger.Info("fetch image",
			"url", url,
			"bytes", size,
			"mime", mimeType,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchImage(ctx, url)
}
