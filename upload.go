package crosspost

import "context"

// ImageData is an image's bytes plus what is known about them.
type ImageData struct {
	URL      string
	Data     []byte
	MIMEType string
	Format   string
	Width    int
	Height   int
	Checksum string
}

// UploadStats counts per-asset outcomes of one upload run.
// Success + Failed never exceeds Total.
type UploadStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// UploadResult maps original image URLs to their hosted URLs. Failed assets
// are absent from URLMapping.
type UploadResult struct {
	URLMapping map[string]string `json:"urlMapping"`
	Stats      UploadStats       `json:"stats"`
}

// UploadProgress reports progress for one asset.
type UploadProgress struct {
	URL       string
	Completed int
	Total     int
	Error     error
}

// UploadProgressFunc is called as assets are processed.
type UploadProgressFunc func(UploadProgress)

// ImageFetcher downloads image bytes.
// Implementations return EFETCH when the image cannot be retrieved.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) (*ImageData, error)
}

// ImageUploader re-hosts an image on a target through a direct upload.
// It returns the hosted URL or EUPLOAD.
type ImageUploader interface {
	UploadImage(ctx context.Context, img *ImageData, strategy *DirectUpload) (string, error)
}

// PasteTarget uploads an image by pasting it into a live editor page and
// reading back the URL the page assigns.
type PasteTarget interface {
	PasteImage(ctx context.Context, data []byte, mimeType string, cfg DOMPasteConfig) (string, error)
}

// AssetUploader uploads every asset of a manifest according to a strategy.
// Per-asset failures are counted, never returned; the error return is
// reserved for an invalid strategy or the caller's own context ending.
type AssetUploader interface {
	Upload(ctx context.Context, manifest *AssetManifest, strategy UploadStrategy, platform string, progress UploadProgressFunc) (*UploadResult, error)
}

// RateLimiter throttles requests per key.
type RateLimiter interface {
	// Wait blocks until the rate limit allows a request for key.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, key string) error
}
