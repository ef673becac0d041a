package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/crosspost"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DescribeImage returns img's bytes annotated with format, dimensions and
// checksum. Formats the image package cannot decode (svg, avif) keep zero
// dimensions and take their format from the MIME type or the URL.
func DescribeImage(rawURL string, data []byte, mimeType string) *crosspost.ImageData {
	img := &crosspost.ImageData{
		URL:      rawURL,
		Data:     data,
		Checksum: fmt.Sprintf("%016x", xxhash.Sum64(data)),
	}

	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Format = format
		img.Width = cfg.Width
		img.Height = cfg.Height
		img.MIMEType = crosspost.MIMEType(format)
		return img
	}

	mimeType, _, _ = strings.Cut(mimeType, ";")
	mimeType = strings.TrimSpace(mimeType)
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	if strings.HasPrefix(mimeType, "image/") {
		img.MIMEType = mimeType
		img.Format = crosspost.GuessFormat("data:" + mimeType + ",")
		return img
	}

	img.Format = crosspost.GuessFormat(rawURL)
	img.MIMEType = crosspost.MIMEType(img.Format)
	return img
}
