// Package upload re-hosts the images of an asset manifest on a target and
// reports the original-to-hosted URL mapping.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fwojciec/crosspost"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel uploads for one manifest.
const DefaultConcurrency = 3

var _ crosspost.AssetUploader = (*Pipeline)(nil)

// Pipeline uploads manifest assets according to a target's strategy.
// Cache is required for assets that need a download. Uploader serves
// direct uploads and Paster serves delegated pastes. Limiter is optional.
type Pipeline struct {
	Cache       *JobCache
	Uploader    crosspost.ImageUploader
	Paster      crosspost.PasteTarget
	Limiter     crosspost.RateLimiter
	Concurrency int
}

// Upload uploads every asset of manifest and returns the URL mapping.
//
// Per-asset failures are counted in the stats and left out of the mapping.
// An error is returned only for an unusable strategy or when ctx ends.
func (p *Pipeline) Upload(ctx context.Context, manifest *crosspost.AssetManifest, strategy crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (*crosspost.UploadResult, error) {
	result := &crosspost.UploadResult{
		URLMapping: make(map[string]string),
		Stats:      crosspost.UploadStats{Total: manifest.Len()},
	}

	switch s := strategy.(type) {
	case nil, crosspost.ExternalURLOnly, *crosspost.ExternalURLOnly:
		return result, nil
	case *crosspost.DirectUpload:
		if p.Uploader == nil {
			return nil, crosspost.Errorf(crosspost.EINVALID, "no uploader configured for %s", s.Mode())
		}
	case *crosspost.DelegatedPaste:
		if p.Paster == nil {
			return nil, crosspost.Errorf(crosspost.EINVALID, "no paste target configured")
		}
	default:
		return nil, crosspost.Errorf(crosspost.EINVALID, "unsupported upload strategy %T", strategy)
	}
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if manifest.Len() == 0 {
		return result, nil
	}

	var mu sync.Mutex
	completed := 0
	record := func(asset *crosspost.ImageAsset, hosted string, err error) {
		mu.Lock()
		defer mu.Unlock()
		completed++
		if err != nil {
			result.Stats.Failed++
		} else {
			result.Stats.Success++
			result.URLMapping[asset.OriginalURL] = hosted
		}
		if progress != nil {
			progress(crosspost.UploadProgress{
				URL:       asset.OriginalURL,
				Completed: completed,
				Total:     result.Stats.Total,
				Error:     err,
			})
		}
	}

	var pending []*crosspost.ImageAsset
	var fetchURLs []string
	for _, asset := range manifest.Assets {
		if hosted := asset.UploadedURL(platform); hosted != "" {
			record(asset, hosted, nil)
			continue
		}
		pending = append(pending, asset)
		if asset.NeedsFetch && asset.Metadata.DataURL == "" {
			fetchURLs = append(fetchURLs, asset.OriginalURL)
		}
	}

	images := map[string]*crosspost.ImageData{}
	fetchErrs := map[string]error{}
	if len(fetchURLs) > 0 {
		if p.Cache == nil {
			return nil, crosspost.Errorf(crosspost.EINVALID, "no image cache configured")
		}
		var err error
		images, fetchErrs, err = p.Cache.Load(ctx, manifest.JobID, fetchURLs)
		if err != nil {
			return nil, err
		}
	}

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, asset := range pending {
		g.Go(func() error {
			hosted, err := p.uploadAsset(gctx, asset, images, fetchErrs, strategy, platform)
			record(asset, hosted, err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) uploadAsset(ctx context.Context, asset *crosspost.ImageAsset, images map[string]*crosspost.ImageData, fetchErrs map[string]error, strategy crosspost.UploadStrategy, platform string) (string, error) {
	img, err := imageFor(asset, images, fetchErrs)
	if err != nil {
		return "", err
	}

	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx, platform); err != nil {
			return "", err
		}
	}

	var hosted string
	switch s := strategy.(type) {
	case *crosspost.DirectUpload:
		hosted, err = p.Uploader.UploadImage(ctx, img, s)
	case *crosspost.DelegatedPaste:
		hosted, err = p.paste(ctx, img, s)
	}
	if err != nil {
		return "", err
	}
	if hosted == "" {
		return "", crosspost.Errorf(crosspost.EUPLOAD, "no hosted URL for %s", asset.OriginalURL)
	}
	return hosted, nil
}

// paste hands the image to the paste target, bounded by the strategy timeout.
func (p *Pipeline) paste(ctx context.Context, img *crosspost.ImageData, s *crosspost.DelegatedPaste) (string, error) {
	pasteCtx, cancel := context.WithTimeout(ctx, s.PasteTimeout())
	defer cancel()

	hosted, err := p.Paster.PasteImage(pasteCtx, img.Data, img.MIMEType, s.Config)
	if err != nil && ctx.Err() == nil && errors.Is(pasteCtx.Err(), context.DeadlineExceeded) {
		return "", crosspost.Errorf(crosspost.ETIMEOUT, "paste timed out after %s", s.PasteTimeout())
	}
	return hosted, err
}

// imageFor returns the bytes of asset from its inline data URL or the
// downloaded images.
func imageFor(asset *crosspost.ImageAsset, images map[string]*crosspost.ImageData, fetchErrs map[string]error) (*crosspost.ImageData, error) {
	if dataURL := asset.Metadata.DataURL; dataURL != "" {
		data, mimeType, err := crosspost.DecodeDataURL(dataURL)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", asset.ID, err)
		}
		return DescribeImage(asset.OriginalURL, data, mimeType), nil
	}
	if img, ok := images[asset.OriginalURL]; ok {
		return img, nil
	}
	if err, ok := fetchErrs[asset.OriginalURL]; ok {
		return nil, err
	}
	if strings.HasPrefix(asset.OriginalURL, "blob:") {
		return nil, crosspost.Errorf(crosspost.EFETCH, "blob URL %s is only readable by its page", asset.OriginalURL)
	}
	return nil, crosspost.Errorf(crosspost.EFETCH, "image %s cannot be read", asset.OriginalURL)
}
