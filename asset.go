package crosspost

import (
	"encoding/base64"
	"net/url"
	"path"
	"strings"
	"unicode"
)

// AssetStatus tracks an image asset through the upload pipeline.
type AssetStatus string

// Asset statuses.
const (
	AssetPending  AssetStatus = "pending"
	AssetUploaded AssetStatus = "uploaded"
	AssetFailed   AssetStatus = "failed"
	AssetSkipped  AssetStatus = "skipped"
)

// DefaultImageFormat is assumed when an image format cannot be determined.
const DefaultImageFormat = "jpeg"

// ImageMetadata describes an image asset.
// Size, Width and Height stay zero until the bytes are known.
type ImageMetadata struct {
	Format  string `json:"format"`
	Size    int64  `json:"size,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Title   string `json:"title,omitempty"`
	DataURL string `json:"dataUrl,omitempty"`
}

// ImageAsset is one entry of an AssetManifest.
type ImageAsset struct {
	ID          string        `json:"id"`
	OriginalURL string        `json:"originalUrl"`
	ProxyURL    string        `json:"proxyUrl,omitempty"`
	NeedsFetch  bool          `json:"needsFetch"`
	Metadata    ImageMetadata `json:"metadata"`
	Status      AssetStatus   `json:"status"`

	// UploadedURLs maps a platform to the URL the image was re-hosted at.
	UploadedURLs map[string]string `json:"uploadedUrls,omitempty"`
}

// UploadedURL returns the recorded URL for platform, if any.
func (a *ImageAsset) UploadedURL(platform string) string {
	if a == nil || platform == "" {
		return ""
	}
	return a.UploadedURLs[platform]
}

// SetUploadedURL records the hosted URL for platform and marks the asset uploaded.
func (a *ImageAsset) SetUploadedURL(platform, hosted string) {
	if a.UploadedURLs == nil {
		a.UploadedURLs = make(map[string]string)
	}
	a.UploadedURLs[platform] = hosted
	a.Status = AssetUploaded
}

// AssetManifest is the de-duplicated, ordered list of images referenced by
// a job. IDs are unique and each normalized original URL appears once.
type AssetManifest struct {
	JobID  string        `json:"jobId"`
	Assets []*ImageAsset `json:"assets"`
}

// Len returns the number of assets in the manifest.
func (m *AssetManifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Assets)
}

// Find returns the asset with the given ID or nil.
func (m *AssetManifest) Find(id string) *ImageAsset {
	if m == nil || id == "" {
		return nil
	}
	for _, a := range m.Assets {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// FindByURL returns the asset whose normalized original URL matches rawURL or nil.
func (m *AssetManifest) FindByURL(rawURL string) *ImageAsset {
	if m == nil {
		return nil
	}
	u := NormalizeURL(rawURL)
	if u == "" {
		return nil
	}
	for _, a := range m.Assets {
		if a.OriginalURL == u {
			return a
		}
	}
	return nil
}

// URLs returns the original URLs of all assets in manifest order.
func (m *AssetManifest) URLs() []string {
	if m == nil {
		return nil
	}
	urls := make([]string, 0, len(m.Assets))
	for _, a := range m.Assets {
		urls = append(urls, a.OriginalURL)
	}
	return urls
}

// AssetInput is an asset the caller already knows about, optionally with
// its bytes inline. URL is the join key used by every later stage.
type AssetInput struct {
	ID   string `json:"id,omitempty"`
	URL  string `json:"url"`
	Alt  string `json:"alt,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// IsLocalURL reports whether s points at content only the local host can
// resolve (blob: object URLs and inline data: images).
func IsLocalURL(s string) bool {
	return strings.HasPrefix(s, "blob:") || strings.HasPrefix(s, "data:image")
}

// IsRemoteURL reports whether s is an absolute http(s) URL.
func IsRemoteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// NormalizeURL strips angle brackets and every whitespace character from an
// image destination. Upstream sources sometimes inject line breaks inside
// link destinations ("https://x.com/a. jpg").
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

var formatByExt = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
	".svg":  "svg",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".avif": "avif",
	".ico":  "ico",
}

// GuessFormat guesses an image format from a URL's file extension or a
// data URL's MIME type. It falls back to DefaultImageFormat.
func GuessFormat(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		mime, _, _ := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ";")
		mime, _, _ = strings.Cut(mime, ",")
		if sub, ok := strings.CutPrefix(mime, "image/"); ok && sub != "" {
			sub = strings.TrimSuffix(sub, "+xml")
			if sub == "jpg" {
				sub = "jpeg"
			}
			return sub
		}
		return DefaultImageFormat
	}

	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if f, ok := formatByExt[strings.ToLower(path.Ext(p))]; ok {
		return f
	}
	return DefaultImageFormat
}

// MIMEType returns the MIME type for an image format name.
func MIMEType(format string) string {
	switch format {
	case "", DefaultImageFormat, "jpg":
		return "image/jpeg"
	case "svg":
		return "image/svg+xml"
	case "ico":
		return "image/x-icon"
	default:
		return "image/" + format
	}
}

// EncodeDataURL returns data as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL decodes a data URL into its bytes and MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", Errorf(EINVALID, "not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", Errorf(EINVALID, "data URL has no payload")
	}

	mime := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(header, ";") {
		if i == 0 && part != "" {
			mime = part
			continue
		}
		if part == "base64" {
			isBase64 = true
		}
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", Errorf(EINVALID, "invalid data URL payload: %v", err)
		}
		return []byte(decoded), mime, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", Errorf(EINVALID, "invalid base64 in data URL: %v", err)
		}
	}
	return data, mime, nil
}
