package publish_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/manifest"
	"github.com/fwojciec/crosspost/mock"
	"github.com/fwojciec/crosspost/publish"
	"github.com/fwojciec/crosspost/serialize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const imgURL = "https://x.com/a.png"

func articleTree() *crosspost.Root {
	return &crosspost.Root{Children: []crosspost.Block{
		&crosspost.Paragraph{Children: []crosspost.Inline{&crosspost.Text{Value: "Hello"}}},
		&crosspost.ImageBlock{OriginalURL: imgURL, Alt: "pic"},
	}}
}

func testJob() *crosspost.Job {
	return &crosspost.Job{
		ID:    "job-1",
		Title: "Post",
		Body:  "Hello\n\n![pic](" + imgURL + ")",
		Tree:  articleTree(),
		Tags:  []string{"go"},
	}
}

func uploadingPipeline(hosted map[string]string) *mock.AssetUploader {
	return &mock.AssetUploader{
		UploadFn: func(ctx context.Context, m *crosspost.AssetManifest, s crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (*crosspost.UploadResult, error) {
			res := &crosspost.UploadResult{URLMapping: map[string]string{}, Stats: crosspost.UploadStats{Total: m.Len()}}
			for _, a := range m.Assets {
				if u := a.UploadedURL(platform); u != "" {
					res.URLMapping[a.OriginalURL] = u
					res.Stats.Success++
					continue
				}
				if u, ok := hosted[a.OriginalURL]; ok {
					res.URLMapping[a.OriginalURL] = u
					res.Stats.Success++
					continue
				}
				res.Stats.Failed++
			}
			return res, nil
		},
	}
}

func newPublisher(uploader crosspost.AssetUploader) *publish.Publisher {
	return &publish.Publisher{
		Builder:    manifest.NewBuilder(nil),
		Uploader:   uploader,
		Serializer: serialize.NewSerializer(nil),
	}
}

func directTarget(md, html bool) *crosspost.Target {
	return &crosspost.Target{
		Name:         "zhihu",
		Capabilities: crosspost.Capabilities{Markdown: md, HTML: html},
		Strategy: &crosspost.DirectUpload{
			Kind:     crosspost.ModeFormUpload,
			Endpoint: "https://upload.example.com/image",
		},
	}
}

func TestPublisher_Prepare(t *testing.T) {
	t.Parallel()

	t.Run("renders markdown with hosted image urls", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(map[string]string{imgURL: "https://cdn.example.com/a.png"}))

		artifact, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Equal(t, "Post", artifact.Title)
		assert.Equal(t, "Hello\n\n![pic](https://cdn.example.com/a.png)", artifact.ContentMarkdown)
		assert.Empty(t, artifact.ContentHTML)
		assert.Equal(t, []string{"go"}, artifact.Tags)
		assert.Equal(t, crosspost.ArtifactMeta{Platform: "zhihu", Images: 1, Uploaded: 1}, artifact.Meta)
	})

	t.Run("fills both formats when the target accepts both", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(map[string]string{imgURL: "https://cdn.example.com/a.png"}))

		artifact, err := p.Prepare(context.Background(), testJob(), directTarget(true, true), nil)

		require.NoError(t, err)
		assert.NotEmpty(t, artifact.ContentMarkdown)
		assert.Contains(t, artifact.ContentHTML, `src="https://cdn.example.com/a.png"`)
	})

	t.Run("uploaded images inside raw html reach both formats", func(t *testing.T) {
		t.Parallel()

		const htmlImg = "https://x.com/raw.png"
		job := testJob()
		job.Body += "\n\n<img src=\"" + htmlImg + "\" width=\"300\">"
		job.Tree.Children = append(job.Tree.Children, &crosspost.HTMLBlock{Raw: `<img src="` + htmlImg + `" width="300">`})

		p := newPublisher(uploadingPipeline(map[string]string{
			imgURL:  "https://cdn.example.com/a.png",
			htmlImg: "https://cdn.example.com/raw.png",
		}))
		p.Builder = manifest.NewBuilder(&mock.ImageTagScanner{
			ScanImagesFn: func(html string) ([]crosspost.ImageTag, error) {
				return []crosspost.ImageTag{{Src: htmlImg}}, nil
			},
		})

		artifact, err := p.Prepare(context.Background(), job, directTarget(true, true), nil)

		require.NoError(t, err)
		assert.Equal(t, 2, artifact.Meta.Uploaded)
		assert.Contains(t, artifact.ContentMarkdown, `<img src="https://cdn.example.com/raw.png" width="300">`)
		assert.Contains(t, artifact.ContentHTML, `<img src="https://cdn.example.com/raw.png" width="300">`)
		assert.NotContains(t, artifact.ContentHTML, htmlImg)
	})

	t.Run("failed uploads keep the original url and warn", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))

		artifact, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Contains(t, artifact.ContentMarkdown, "![pic]("+imgURL+")")
		assert.Equal(t, 1, artifact.Meta.Failed)
		require.Len(t, artifact.Meta.Warnings, 1)
		assert.Contains(t, artifact.Meta.Warnings[0], "uploaded 0 of 1 images")
	})

	t.Run("external url only targets do not warn", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		target := &crosspost.Target{Name: "blog", Capabilities: crosspost.Capabilities{Markdown: true}}

		artifact, err := p.Prepare(context.Background(), testJob(), target, nil)

		require.NoError(t, err)
		assert.Empty(t, artifact.Meta.Warnings)
	})

	t.Run("parses the body when the job has no tree", func(t *testing.T) {
		t.Parallel()

		var parsed string
		p := newPublisher(uploadingPipeline(nil))
		p.Parser = &mock.Parser{
			ParseFn: func(markdown string) (*crosspost.Root, error) {
				parsed = markdown
				return articleTree(), nil
			},
		}
		job := testJob()
		job.Tree = nil

		_, err := p.Prepare(context.Background(), job, directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Equal(t, job.Body, parsed)
	})

	t.Run("job without tree needs a parser", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		job := testJob()
		job.Tree = nil

		_, err := p.Prepare(context.Background(), job, directTarget(true, false), nil)

		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))
	})

	t.Run("rejects invalid job and target", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))

		_, err := p.Prepare(context.Background(), &crosspost.Job{Body: "x"}, directTarget(true, false), nil)
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))

		_, err = p.Prepare(context.Background(), testJob(), &crosspost.Target{Name: "x"}, nil)
		assert.Equal(t, crosspost.EINVALID, crosspost.ErrorCode(err))
	})

	t.Run("recorded uploads are reused and new ones recorded", func(t *testing.T) {
		t.Parallel()

		var recorded map[string]string
		p := newPublisher(uploadingPipeline(map[string]string{"https://x.com/b.png": "https://cdn.example.com/b.png"}))
		p.Recorder = &mock.UploadRecorder{
			FindUploadsFn: func(ctx context.Context, jobID, platform string) (map[string]string, error) {
				assert.Equal(t, "job-1", jobID)
				assert.Equal(t, "zhihu", platform)
				return map[string]string{imgURL: "https://cdn.example.com/old.png"}, nil
			},
			RecordUploadsFn: func(ctx context.Context, jobID, platform string, mapping map[string]string) error {
				recorded = mapping
				return nil
			},
		}
		job := testJob()
		job.Body += "\n\n![b](https://x.com/b.png)"

		artifact, err := p.Prepare(context.Background(), job, directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Contains(t, artifact.ContentMarkdown, "https://cdn.example.com/old.png")
		assert.Equal(t, map[string]string{"https://x.com/b.png": "https://cdn.example.com/b.png"}, recorded)
	})

	t.Run("recorder failure is an error", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		p.Recorder = &mock.UploadRecorder{
			FindUploadsFn: func(ctx context.Context, jobID, platform string) (map[string]string, error) {
				return nil, errors.New("disk full")
			},
		}

		_, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("cover is uploaded and rewritten", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(map[string]string{
			imgURL:                    "https://cdn.example.com/a.png",
			"https://x.com/cover.png": "https://cdn.example.com/cover.png",
		}))
		job := testJob()
		job.Cover = "https://x.com/cover.png"

		artifact, err := p.Prepare(context.Background(), job, directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/cover.png", artifact.Cover)
		assert.Equal(t, 2, artifact.Meta.Images)
	})

	t.Run("summarizer fills a missing summary", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		p.Summarizer = &mock.Summarizer{
			SummarizeFn: func(ctx context.Context, title, markdown string) (string, error) {
				assert.Equal(t, "Post", title)
				assert.Contains(t, markdown, "Hello")
				return "A greeting.", nil
			},
		}

		artifact, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Equal(t, "A greeting.", artifact.Summary)
	})

	t.Run("job summary wins over summarizer", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		p.Summarizer = &mock.Summarizer{
			SummarizeFn: func(ctx context.Context, title, markdown string) (string, error) {
				t.Fatal("summarizer should not be called")
				return "", nil
			},
		}
		job := testJob()
		job.Summary = "Given."

		artifact, err := p.Prepare(context.Background(), job, directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Equal(t, "Given.", artifact.Summary)
	})

	t.Run("summarizer failure is a warning", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(map[string]string{imgURL: "https://cdn.example.com/a.png"}))
		p.Summarizer = &mock.Summarizer{
			SummarizeFn: func(ctx context.Context, title, markdown string) (string, error) {
				return "", crosspost.Errorf(crosspost.EINTERNAL, "quota exceeded")
			},
		}

		artifact, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		require.NoError(t, err)
		assert.Empty(t, artifact.Summary)
		assert.Equal(t, []string{"summary: quota exceeded"}, artifact.Meta.Warnings)
	})

	t.Run("serialization gaps become warnings", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(uploadingPipeline(nil))
		target := &crosspost.Target{
			Name:         "blog",
			Capabilities: crosspost.Capabilities{Markdown: true},
			Options:      crosspost.SerializeOptions{MathMode: crosspost.MathImage},
		}
		job := testJob()
		job.Tree = &crosspost.Root{Children: []crosspost.Block{&crosspost.MathBlock{TeX: "x^2"}}}

		artifact, err := p.Prepare(context.Background(), job, target, nil)

		require.NoError(t, err)
		assert.Equal(t, "$$\nx^2\n$$", artifact.ContentMarkdown)
		require.Len(t, artifact.Meta.Warnings, 1)
		assert.Contains(t, artifact.Meta.Warnings[0], string(serialize.WarningSerializationGap))
	})

	t.Run("upload error is returned", func(t *testing.T) {
		t.Parallel()

		p := newPublisher(&mock.AssetUploader{
			UploadFn: func(ctx context.Context, m *crosspost.AssetManifest, s crosspost.UploadStrategy, platform string, progress crosspost.UploadProgressFunc) (*crosspost.UploadResult, error) {
				return nil, context.Canceled
			},
		})

		_, err := p.Prepare(context.Background(), testJob(), directTarget(true, false), nil)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
