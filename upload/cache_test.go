package upload_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/mock"
	"github.com/fwojciec/crosspost/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher returns a PNG for every URL and counts calls per URL.
func countingFetcher(t *testing.T, calls *sync.Map, gate <-chan struct{}) *mock.ImageFetcher {
	t.Helper()
	data := pngBytes(t, 1, 1)
	return &mock.ImageFetcher{
		FetchImageFn: func(ctx context.Context, url string) (*crosspost.ImageData, error) {
			n, _ := calls.LoadOrStore(url, new(atomic.Int32))
			n.(*atomic.Int32).Add(1)
			if gate != nil {
				<-gate
			}
			return &crosspost.ImageData{URL: url, Data: data, MIMEType: "image/png"}, nil
		},
	}
}

func callCount(calls *sync.Map, url string) int32 {
	n, ok := calls.Load(url)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func TestJobCache_Load(t *testing.T) {
	t.Parallel()

	t.Run("concurrent loads for one job fetch each image once", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		gate := make(chan struct{})
		cache := upload.NewJobCache(countingFetcher(t, &calls, gate))
		urls := []string{"https://x.com/a.png", "https://x.com/b.png"}

		var wg sync.WaitGroup
		results := make([]map[string]*crosspost.ImageData, 4)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				images, errs, err := cache.Load(context.Background(), "job-1", urls)
				assert.NoError(t, err)
				assert.Empty(t, errs)
				results[i] = images
			}()
		}

		// Give every caller time to attach to the flight before it completes.
		time.Sleep(50 * time.Millisecond)
		close(gate)
		wg.Wait()

		for _, u := range urls {
			assert.Equal(t, int32(1), callCount(&calls, u), u)
		}
		for _, images := range results {
			require.Len(t, images, 2)
			assert.Equal(t, "png", images["https://x.com/a.png"].Format)
		}
	})

	t.Run("loads racing a finished batch do not download again", func(t *testing.T) {
		t.Parallel()

		for round := 0; round < 50; round++ {
			var calls sync.Map
			cache := upload.NewJobCache(countingFetcher(t, &calls, nil))
			start := make(chan struct{})

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					images, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
					assert.NoError(t, err)
					assert.Len(t, images, 1)
				}()
			}
			close(start)
			wg.Wait()

			require.Equal(t, int32(1), callCount(&calls, "https://x.com/a.png"), "round %d", round)
		}
	})

	t.Run("later loads are served from cache", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		cache := upload.NewJobCache(countingFetcher(t, &calls, nil))

		_, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		images, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png", "https://x.com/c.png"})
		require.NoError(t, err)

		assert.Len(t, images, 2)
		assert.Equal(t, int32(1), callCount(&calls, "https://x.com/a.png"))
		assert.Equal(t, int32(1), callCount(&calls, "https://x.com/c.png"))
	})

	t.Run("jobs do not share entries", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		cache := upload.NewJobCache(countingFetcher(t, &calls, nil))

		_, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		_, _, err = cache.Load(context.Background(), "job-2", []string{"https://x.com/a.png"})
		require.NoError(t, err)

		assert.Equal(t, int32(2), callCount(&calls, "https://x.com/a.png"))
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("entries expire after the ttl", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		var mu sync.Mutex
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		cache := upload.NewJobCache(countingFetcher(t, &calls, nil),
			upload.WithTTL(time.Minute),
			upload.WithClock(clock),
		)

		_, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)

		mu.Lock()
		now = now.Add(30 * time.Second)
		mu.Unlock()
		_, _, err = cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Equal(t, int32(1), callCount(&calls, "https://x.com/a.png"))

		mu.Lock()
		now = now.Add(time.Minute)
		mu.Unlock()
		_, _, err = cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), callCount(&calls, "https://x.com/a.png"))
	})

	t.Run("reports per-url failures without failing the load", func(t *testing.T) {
		t.Parallel()

		data := pngBytes(t, 1, 1)
		cache := upload.NewJobCache(&mock.ImageFetcher{
			FetchImageFn: func(ctx context.Context, url string) (*crosspost.ImageData, error) {
				if url == "https://x.com/bad.png" {
					return nil, crosspost.Errorf(crosspost.EFETCH, "status 404")
				}
				return &crosspost.ImageData{Data: data}, nil
			},
		})

		images, errs, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/ok.png", "https://x.com/bad.png"})

		require.NoError(t, err)
		assert.Len(t, images, 1)
		require.Contains(t, errs, "https://x.com/bad.png")
		assert.Equal(t, crosspost.EFETCH, crosspost.ErrorCode(errs["https://x.com/bad.png"]))
	})

	t.Run("empty body is a fetch failure", func(t *testing.T) {
		t.Parallel()

		cache := upload.NewJobCache(&mock.ImageFetcher{
			FetchImageFn: func(ctx context.Context, url string) (*crosspost.ImageData, error) {
				return &crosspost.ImageData{}, nil
			},
		})

		images, errs, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})

		require.NoError(t, err)
		assert.Empty(t, images)
		assert.Equal(t, crosspost.EFETCH, crosspost.ErrorCode(errs["https://x.com/a.png"]))
	})

	t.Run("batch with no success drops the entry", func(t *testing.T) {
		t.Parallel()

		var fail atomic.Bool
		fail.Store(true)
		var calls atomic.Int32
		data := pngBytes(t, 1, 1)
		cache := upload.NewJobCache(&mock.ImageFetcher{
			FetchImageFn: func(ctx context.Context, url string) (*crosspost.ImageData, error) {
				calls.Add(1)
				if fail.Load() {
					return nil, errors.New("connection reset")
				}
				return &crosspost.ImageData{Data: data}, nil
			},
		})

		_, errs, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Len(t, errs, 1)
		assert.Equal(t, 0, cache.Len())

		fail.Store(false)
		images, errs, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Empty(t, errs)
		assert.Len(t, images, 1)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("forget drops cached images", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		cache := upload.NewJobCache(countingFetcher(t, &calls, nil))

		_, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		cache.Forget("job-1")
		assert.Equal(t, 0, cache.Len())

		_, _, err = cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Equal(t, int32(2), callCount(&calls, "https://x.com/a.png"))
	})

	t.Run("canceled waiter returns while the batch completes", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		gate := make(chan struct{})
		cache := upload.NewJobCache(countingFetcher(t, &calls, gate))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, _, err := cache.Load(ctx, "job-1", []string{"https://x.com/a.png"})
			done <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		close(gate)
		images, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png"})
		require.NoError(t, err)
		assert.Len(t, images, 1)
		assert.Equal(t, int32(1), callCount(&calls, "https://x.com/a.png"))
	})

	t.Run("duplicate urls are fetched once", func(t *testing.T) {
		t.Parallel()

		var calls sync.Map
		cache := upload.NewJobCache(countingFetcher(t, &calls, nil))

		images, _, err := cache.Load(context.Background(), "job-1", []string{"https://x.com/a.png", "https://x.com/a.png"})

		require.NoError(t, err)
		assert.Len(t, images, 1)
		assert.Equal(t, int32(1), callCount(&calls, "https://x.com/a.png"))
	})
}
