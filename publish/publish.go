// Package publish prepares a job for one target. It composes the manifest
// builder, the asset upload pipeline and the serializer into a single
// artifact with content in the formats the target accepts.
package publish

import (
	"context"
	"fmt"
	"maps"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/manifest"
	"github.com/fwojciec/crosspost/serialize"
)

// Publisher turns jobs into target artifacts.
// Parser is needed only for jobs without a tree. Recorder and Summarizer
// are optional.
type Publisher struct {
	Parser     crosspost.Parser
	Builder    *manifest.Builder
	Uploader   crosspost.AssetUploader
	Serializer *serialize.Serializer
	Recorder   crosspost.UploadRecorder
	Summarizer crosspost.Summarizer
}

// Prepare builds the artifact for job on target. Image failures and
// serialization gaps are reported in the artifact's warnings; an error is
// returned only for invalid input, storage failures or a canceled ctx.
func (p *Publisher) Prepare(ctx context.Context, job *crosspost.Job, target *crosspost.Target, progress crosspost.UploadProgressFunc) (*crosspost.Artifact, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	tree, err := p.tree(job)
	if err != nil {
		return nil, err
	}

	inputs := job.Assets
	if crosspost.IsRemoteURL(job.Cover) {
		inputs = append(append([]crosspost.AssetInput(nil), inputs...), crosspost.AssetInput{URL: job.Cover})
	}
	m := p.Builder.Build(manifest.Input{
		JobID:  job.ID,
		Body:   job.Body,
		Tree:   tree,
		Assets: inputs,
	})

	recorded, err := p.applyRecorded(ctx, job.ID, target.Name, m)
	if err != nil {
		return nil, err
	}

	strategy := target.UploadStrategy()
	result, err := p.Uploader.Upload(ctx, m, strategy, target.Name, progress)
	if err != nil {
		return nil, fmt.Errorf("upload images for %s: %w", target.Name, err)
	}

	if err := p.recordNew(ctx, job.ID, target.Name, result.URLMapping, recorded); err != nil {
		return nil, err
	}

	opts := target.Options
	opts.Platform = target.Name
	opts.Assets = m
	opts.ImageURLMap = make(map[string]string, len(target.Options.ImageURLMap)+len(result.URLMapping))
	maps.Copy(opts.ImageURLMap, target.Options.ImageURLMap)
	maps.Copy(opts.ImageURLMap, result.URLMapping)

	artifact := &crosspost.Artifact{
		Title:      job.Title,
		Tags:       job.Tags,
		Categories: job.Categories,
		Cover:      rewriteCover(job.Cover, opts.ImageURLMap),
		Meta: crosspost.ArtifactMeta{
			Platform: target.Name,
			Images:   m.Len(),
			Uploaded: result.Stats.Success,
			Failed:   result.Stats.Failed,
		},
	}
	w := &warnings{seen: make(map[string]bool)}

	var markdown string
	if target.Capabilities.Markdown {
		opts.Format = crosspost.FormatMarkdown
		res := p.Serializer.Render(tree, opts)
		markdown = res.Content
		artifact.ContentMarkdown = res.Content
		w.addSerialize(res.Warnings)
	}
	if target.Capabilities.HTML {
		opts.Format = crosspost.FormatHTML
		res := p.Serializer.Render(tree, opts)
		artifact.ContentHTML = res.Content
		w.addSerialize(res.Warnings)
	}

	if strategy.Mode() != crosspost.ModeExternalURLOnly && len(result.URLMapping) < m.Len() {
		w.add(fmt.Sprintf("uploaded %d of %d images; %d keep their original URL", len(result.URLMapping), m.Len(), m.Len()-len(result.URLMapping)))
	}

	artifact.Summary = job.Summary
	if artifact.Summary == "" && p.Summarizer != nil {
		if markdown == "" {
			markdown = job.Body
		}
		summary, err := p.Summarizer.Summarize(ctx, job.Title, markdown)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.add(fmt.Sprintf("summary: %s", crosspost.ErrorMessage(err)))
		}
		artifact.Summary = summary
	}

	artifact.Meta.Warnings = w.list
	return artifact, nil
}

func (p *Publisher) tree(job *crosspost.Job) (*crosspost.Root, error) {
	if job.Tree != nil {
		return job.Tree, nil
	}
	if p.Parser == nil {
		return nil, crosspost.Errorf(crosspost.EINVALID, "job %q has no tree and no parser is configured", job.ID)
	}
	tree, err := p.Parser.Parse(job.Body)
	if err != nil {
		return nil, fmt.Errorf("parse job %q: %w", job.ID, err)
	}
	return tree, nil
}

// applyRecorded marks assets already hosted on platform by an earlier run.
func (p *Publisher) applyRecorded(ctx context.Context, jobID, platform string, m *crosspost.AssetManifest) (map[string]string, error) {
	if p.Recorder == nil || jobID == "" {
		return nil, nil
	}
	recorded, err := p.Recorder.FindUploads(ctx, jobID, platform)
	if err != nil {
		return nil, fmt.Errorf("find uploads: %w", err)
	}
	for orig, hosted := range recorded {
		if a := m.FindByURL(orig); a != nil {
			a.SetUploadedURL(platform, hosted)
		}
	}
	return recorded, nil
}

func (p *Publisher) recordNew(ctx context.Context, jobID, platform string, mapping, recorded map[string]string) error {
	if p.Recorder == nil || jobID == "" {
		return nil
	}
	fresh := make(map[string]string)
	for orig, hosted := range mapping {
		if recorded[orig] != hosted {
			fresh[orig] = hosted
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := p.Recorder.RecordUploads(ctx, jobID, platform, fresh); err != nil {
		return fmt.Errorf("record uploads: %w", err)
	}
	return nil
}

func rewriteCover(cover string, mapping map[string]string) string {
	if cover == "" {
		return ""
	}
	if hosted, ok := mapping[cover]; ok {
		return hosted
	}
	if hosted, ok := mapping[crosspost.NormalizeURL(cover)]; ok {
		return hosted
	}
	return cover
}

type warnings struct {
	list []string
	seen map[string]bool
}

func (w *warnings) add(msg string) {
	if w.seen[msg] {
		return
	}
	w.seen[msg] = true
	w.list = append(w.list, msg)
}

func (w *warnings) addSerialize(ws []serialize.Warning) {
	for _, sw := range ws {
		if sw.NodeType != "" {
			w.add(fmt.Sprintf("%s: %s: %s", sw.Type, sw.NodeType, sw.Message))
			continue
		}
		w.add(fmt.Sprintf("%s: %s", sw.Type, sw.Message))
	}
}
