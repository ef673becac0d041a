package main_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/crosspost"
	main "github.com/fwojciec/crosspost/cmd/crosspost"
	"github.com/fwojciec/crosspost/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("creates job from front matter", func(t *testing.T) {
		t.Parallel()

		var created *crosspost.Job
		jobs := &mock.JobService{
			CreateJobFn: func(_ context.Context, job *crosspost.Job) error {
				job.ID = "job-123"
				created = job
				return nil
			},
		}
		deps, stdout, stderr := newDeps(jobs)
		path := writeArticle(t, "---\ntitle: Front\ntags: [go]\n---\nBody.\n")

		err := (&main.AddCmd{File: path}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, "Added job \"Front\" (job-123)\n", stdout.String())
		assert.Empty(t, stderr.String())
		require.NotNil(t, created)
		assert.Equal(t, "Body.", created.Body)
		assert.Equal(t, []string{"go"}, created.Tags)
	})

	t.Run("flags override front matter", func(t *testing.T) {
		t.Parallel()

		var created *crosspost.Job
		jobs := &mock.JobService{
			CreateJobFn: func(_ context.Context, job *crosspost.Job) error {
				created = job
				return nil
			},
		}
		deps, _, _ := newDeps(jobs)
		path := writeArticle(t, "---\ntitle: Front\ntags: [go]\n---\nBody.\n")

		cmd := &main.AddCmd{
			File:       path,
			ID:         "custom",
			Title:      "Flag Title",
			Tags:       []string{"a", "b"},
			Categories: []string{"c"},
			Summary:    "S",
			Cover:      "https://x.com/c.png",
		}
		require.NoError(t, cmd.Run(deps))

		assert.Equal(t, "custom", created.ID)
		assert.Equal(t, "Flag Title", created.Title)
		assert.Equal(t, []string{"a", "b"}, created.Tags)
		assert.Equal(t, []string{"c"}, created.Categories)
		assert.Equal(t, "S", created.Summary)
		assert.Equal(t, "https://x.com/c.png", created.Cover)
	})

	t.Run("title falls back to the file name", func(t *testing.T) {
		t.Parallel()

		var created *crosspost.Job
		jobs := &mock.JobService{
			CreateJobFn: func(_ context.Context, job *crosspost.Job) error {
				created = job
				return nil
			},
		}
		deps, _, _ := newDeps(jobs)

		require.NoError(t, (&main.AddCmd{File: writeArticle(t, "Just text.\n")}).Run(deps))

		assert.Equal(t, "article", created.Title)
	})

	t.Run("reports create errors", func(t *testing.T) {
		t.Parallel()

		jobs := &mock.JobService{
			CreateJobFn: func(_ context.Context, job *crosspost.Job) error {
				return crosspost.Errorf(crosspost.ECONFLICT, "job %q already exists", "x")
			},
		}
		deps, _, stderr := newDeps(jobs)

		err := (&main.AddCmd{File: writeArticle(t, "# T\n\nb\n")}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, crosspost.ECONFLICT, crosspost.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error: job \"x\" already exists")
	})

	t.Run("reports missing file", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps(&mock.JobService{})

		err := (&main.AddCmd{File: filepath.Join(t.TempDir(), "missing.md")}).Run(deps)

		assert.Equal(t, crosspost.ENOTFOUND, crosspost.ErrorCode(err))
		assert.Contains(t, stderr.String(), "not found")
	})
}
