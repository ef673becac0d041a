package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/crosspost"
)

var _ crosspost.ImageUploader = (*LoggingImageUploader)(nil)

// LoggingImageUploader wraps an ImageUploader with debug logging.
type LoggingImageUploader struct {
	next   crosspost.ImageUploader
	logger *slog.Logger
}

// NewLoggingImageUploader creates a new LoggingImageUploader.
func NewLoggingImageUploader(next crosspost.ImageUploader, logger *slog.Logger) *LoggingImageUploader {
	return &LoggingImageUploader{next: next, logger: logger}
}

// UploadImage logs the upload and delegates to the wrapped uploader.
func (u *LoggingImageUploader) UploadImage(ctx context.Context, img *crosspost.ImageData, s *crosspost.DirectUpload) (hosted string, err error) {
	defer func(begin time.Time) {
		var src, endpoint string
		var size int
		if img != nil {
			src, size = img.URL, len(img.Data)
		}
		if s != nil {
			endpoint = s.Endpoint
		}
		u.logger.Info("upload image",
			"src", src,
			"bytes", size,
			"endpoint", endpoint,
			"hosted", hosted,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return u.next.UploadImage(ctx, img, s)
}

var _ crosspost.PasteTarget = (*LoggingPasteTarget)(nil)

// LoggingPasteTarget wraps a PasteTarget with debug logging.
type LoggingPasteTarget struct {
	next   crosspost.PasteTarget
	logger *slog.Logger
}

// NewLoggingPasteTarget creates a new LoggingPasteTarget.
func NewLoggingPasteTarget(next crosspost.PasteTarget, logger *slog.Logger) *LoggingPasteTarget {
	return &LoggingPasteTarget{next: next, logger: logger}
}

// PasteImage logs the paste and delegates to the wrapped target.
func (p *LoggingPasteTarget) PasteImage(ctx context.Context, data []byte, mimeType string, cfg crosspost.DOMPasteConfig) (hosted string, err error) {
	defer func(begin time.Time) {
		p.logger.Info("paste image",
			"page", cfg.PageURL,
			"bytes", len(data),
			"mime", mimeType,
			"hosted", hosted,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.PasteImage(ctx, data, mimeType, cfg)
}

var _ crosspost.AssetUploader = (*LoggingAssetUploader)(nil)

// LoggingAssetUploader wraps an AssetUploader with debug logging. Each
// asset's outcome is logged at debug level and the run summary at info.
type LoggingAssetUploader struct {
	next   crosspost.AssetUploader
	logger *slog.Logger
}

// NewLoggingAssetUploader creates a new LoggingAssetUploader.
func NewLoggingAssetUploader(next crosspost.AssetUploader, logger *slog.Logger) *LoggingAssetUploader {
	return &LoggingAssetUploader{next: next, logger: logger}
}

// Upload logs per-asset progress and the run totals, then returns the
// wrapped uploader's result. progress is still called.
func (u *LoggingAssetUploader) Upload(ctx context.Context, manifest *crosspost.AssetManifest, strategy crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (result *crosspost.UploadResult, err error) {
	mode := crosspost.ModeExternalURLOnly
	if strategy != nil {
		mode = strategy.Mode()
	}

	logged := func(p crosspost.UploadProgress) {
		if p.Error != nil {
			u.logger.Warn("upload asset failed",
				"platform", platform,
				"url", p.URL,
				"completed", p.Completed,
				"total", p.Total,
				"err", p.Error,
			)
		} else {
			u.logger.Debug("upload asset",
				"platform", platform,
				"url", p.URL,
				"completed", p.Completed,
				"total", p.Total,
			)
		}
		if progress != nil {
			progress(p)
		}
	}

	defer func(begin time.Time) {
		var stats crosspost.UploadStats
		if result != nil {
			stats = result.Stats
		}
		u.logger.Info("upload assets",
			"platform", platform,
			"mode", mode,
			"total", stats.Total,
			"success", stats.Success,
			"failed", stats.Failed,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return u.next.Upload(ctx, manifest, strategy, platform, logged)
}
