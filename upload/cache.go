package upload

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/crosspost"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long fetched images stay cached per job.
const DefaultCacheTTL = 10 * time.Minute

// DefaultFetchConcurrency bounds parallel image downloads in one batch.
const DefaultFetchConcurrency = 3

// JobCache downloads images once per job and shares them between concurrent
// uploads of that job to different platforms.
//
// Concurrent Load calls for the same job attach to the batch already in
// flight instead of starting another. A batch runs to completion even when
// every waiter has given up. A batch in which nothing succeeds drops the
// job's entry so the next Load starts fresh. Entries expire after the TTL,
// checked when the job is next touched.
type JobCache struct {
	fetcher     crosspost.ImageFetcher
	ttl         time.Duration
	now         func() time.Time
	concurrency int

	mu      sync.Mutex
	entries map[string]*cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	createdAt time.Time
	images    map[string]*crosspost.ImageData
}

// batch is the outcome of one shared download.
type batch struct {
	attempted []string
	images    map[string]*crosspost.ImageData
	errs      map[string]error
}

// CacheOption configures a JobCache.
type CacheOption func(*JobCache)

// WithTTL sets how long a job's images stay cached.
func WithTTL(d time.Duration) CacheOption {
	return func(c *JobCache) {
		c.ttl = d
	}
}

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *JobCache) {
		c.now = now
	}
}

// WithFetchConcurrency sets how many images a batch downloads in parallel.
func WithFetchConcurrency(n int) CacheOption {
	return func(c *JobCache) {
		c.concurrency = n
	}
}

// NewJobCache creates a JobCache that downloads with fetcher.
func NewJobCache(fetcher crosspost.ImageFetcher, opts ...CacheOption) *JobCache {
	c := &JobCache{
		fetcher:     fetcher,
		ttl:         DefaultCacheTTL,
		now:         time.Now,
		concurrency: DefaultFetchConcurrency,
		entries:     make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the images for urls. Images that could not be fetched are
// absent from the returned map and have an entry in errs. The error return
// is only set when ctx ends while waiting.
func (c *JobCache) Load(ctx context.Context, jobID string, urls []string) (images map[string]*crosspost.ImageData, errs map[string]error, err error) {
	images = make(map[string]*crosspost.ImageData, len(urls))
	errs = make(map[string]error)
	attempted := make(map[string]bool)
	requested := make(map[string]bool, len(urls))
	for _, u := range urls {
		requested[u] = true
	}

	for {
		entry, missing := c.lookup(jobID, urls, images, attempted)
		if len(missing) == 0 {
			return images, errs, nil
		}

		ch := c.group.DoChan(jobID, func() (any, error) {
			return c.fetch(context.WithoutCancel(ctx), jobID, entry, missing), nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case res = <-ch:
		}

		b := res.Val.(*batch)
		for _, u := range b.attempted {
			if !requested[u] {
				continue
			}
			attempted[u] = true
			if img, ok := b.images[u]; ok {
				images[u] = img
			} else if e, ok := b.errs[u]; ok {
				errs[u] = e
			}
		}
		// A batch started by another caller may not cover our URLs; those
		// stay missing and the next round fetches them.
	}
}

// lookup copies cached images into images and returns the job's entry with
// the URLs that still need a download.
func (c *JobCache) lookup(jobID string, urls []string, images map[string]*crosspost.ImageData, attempted map[string]bool) (*cacheEntry, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[jobID]
	if ok && c.now().Sub(entry.createdAt) >= c.ttl {
		delete(c.entries, jobID)
		ok = false
	}
	if !ok {
		entry = &cacheEntry{createdAt: c.now(), images: make(map[string]*crosspost.ImageData)}
		c.entries[jobID] = entry
	}

	var missing []string
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		if attempted[u] {
			continue
		}
		if img, ok := entry.images[u]; ok {
			images[u] = img
			continue
		}
		missing = append(missing, u)
	}
	return entry, missing
}

// fetch downloads the urls entry does not hold yet. A batch that finished
// after the caller's lookup may already have cached some of them. It
// invalidates the job's entry when nothing is available afterwards.
func (c *JobCache) fetch(ctx context.Context, jobID string, entry *cacheEntry, urls []string) *batch {
	b := &batch{
		attempted: urls,
		images:    make(map[string]*crosspost.ImageData, len(urls)),
		errs:      make(map[string]error),
	}

	var pending []string
	c.mu.Lock()
	for _, u := range urls {
		if img, ok := entry.images[u]; ok {
			b.images[u] = img
			continue
		}
		pending = append(pending, u)
	}
	c.mu.Unlock()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(c.concurrency, 1))
	for _, u := range pending {
		g.Go(func() error {
			img, err := c.fetcher.FetchImage(ctx, u)
			if err == nil && (img == nil || len(img.Data) == 0) {
				err = crosspost.Errorf(crosspost.EFETCH, "empty image body for %s", u)
			}
			if err != nil {
				mu.Lock()
				b.errs[u] = err
				mu.Unlock()
				return nil
			}

			described := DescribeImage(u, img.Data, img.MIMEType)
			mu.Lock()
			b.images[u] = described
			mu.Unlock()
			c.store(entry, u, described)
			return nil
		})
	}
	_ = g.Wait()

	if len(b.images) == 0 {
		c.invalidate(jobID, entry)
	}
	return b
}

func (c *JobCache) store(entry *cacheEntry, u string, img *crosspost.ImageData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.images[u] = img
}

// Forget drops everything cached for a job.
func (c *JobCache) Forget(jobID string) {
	c.invalidate(jobID, nil)
}

// invalidate drops the job's entry if it is still entry, or unconditionally
// when entry is nil.
func (c *JobCache) invalidate(jobID string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[jobID]; ok && (entry == nil || cur == entry) {
		delete(c.entries, jobID)
	}
}

// Len returns the number of jobs with a cache entry.
func (c *JobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
