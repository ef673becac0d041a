package mock

import (
	"context"

	"github.com/fwojciec/crosspost"
)

var _ crosspost.ImageUploader = (*ImageUploader)(nil)

// ImageUploader is a mock implementation of crosspost.ImageUploader.
type ImageUploader struct {
	UploadImageFn func(ctx context.Context, img *crosspost.ImageData, strategy *crosspost.DirectUpload) (string, error)
}

func (u *ImageUploader) UploadImage(ctx context.Context, img *crosspost.ImageData, strategy *crosspost.DirectUpload) (string, error) {
	return u.UploadImageFn(ctx, img, strategy)
}

var _ crosspost.PasteTarget = (*PasteTarget)(nil)

// PasteTarget is a mock implementation of crosspost.PasteTarget.
type PasteTarget struct {
	PasteImageFn func(ctx context.Context, data []byte, mimeType string, cfg crosspost.DOMPasteConfig) (string, error)
}

func (p *PasteTarget) PasteImage(ctx context.Context, data []byte, mimeType string, cfg crosspost.DOMPasteConfig) (string, error) {
	return p.PasteImageFn(ctx, data, mimeType, cfg)
}

var _ crosspost.AssetUploader = (*AssetUploader)(nil)

// AssetUploader is a mock implementation of crosspost.AssetUploader.
type AssetUploader struct {
	UploadFn func(ctx context.Context, manifest *crosspost.AssetManifest, strategy crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (*crosspost.UploadResult, error)
}

func (u *AssetUploader) Upload(ctx context.Context, manifest *crosspost.AssetManifest, strategy crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (*crosspost.UploadResult, error) {
	return u.UploadFn(ctx, manifest, strategy, platform, progress)
}

var _ crosspost.RateLimiter = (*RateLimiter)(nil)

// RateLimiter is a mock implementation of crosspost.RateLimiter.
type RateLimiter struct {
	WaitFn func(ctx context.Context, key string) error
}

func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	return r.WaitFn(ctx, key)
}
