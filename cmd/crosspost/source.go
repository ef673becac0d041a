package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/manifest"
	"github.com/fwojciec/crosspost/yaml"
)

// readJobFile reads a Markdown file into an unsaved job. The title falls
// back to the file name when the article declares none.
func readJobFile(path string) (*crosspost.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, crosspost.Errorf(crosspost.ENOTFOUND, "file %q not found", path)
		}
		return nil, err
	}
	job, err := yaml.ParseJob(data)
	if err != nil {
		return nil, err
	}
	if job.Title == "" {
		job.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return job, nil
}

// loadJob resolves source as a Markdown file when one exists at that path
// and as a stored job ID otherwise. A file job is identified by its
// absolute path so upload records survive between runs.
func loadJob(deps *Dependencies, source string) (*crosspost.Job, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		job, err := readJobFile(source)
		if err != nil {
			return nil, err
		}
		if job.ID == "" {
			if abs, err := filepath.Abs(source); err == nil {
				job.ID = abs
			} else {
				job.ID = source
			}
		}
		return job, nil
	}

	if deps.Jobs == nil {
		return nil, crosspost.Errorf(crosspost.ENOTFOUND, "no file or job %q", source)
	}
	job, err := deps.Jobs.FindJobByID(deps.Ctx, source)
	if err != nil {
		if crosspost.ErrorCode(err) == crosspost.ENOTFOUND {
			return nil, crosspost.Errorf(crosspost.ENOTFOUND, "no file or job %q. Use 'crosspost list' to see stored jobs", source)
		}
		return nil, err
	}
	return job, nil
}

// parseJob returns the job's tree, parsing the body when it has none.
func parseJob(deps *Dependencies, job *crosspost.Job) (*crosspost.Root, error) {
	if job.Tree != nil {
		return job.Tree, nil
	}
	return deps.Parser.Parse(job.Body)
}

// buildManifest collects the images of job, counting a remote cover as an
// explicit asset.
func buildManifest(deps *Dependencies, job *crosspost.Job, tree *crosspost.Root) *crosspost.AssetManifest {
	inputs := job.Assets
	if crosspost.IsRemoteURL(job.Cover) {
		inputs = append(append([]crosspost.AssetInput(nil), inputs...), crosspost.AssetInput{URL: job.Cover})
	}
	return deps.Builder.Build(manifest.Input{
		JobID:  job.ID,
		Body:   job.Body,
		Tree:   tree,
		Assets: inputs,
	})
}
