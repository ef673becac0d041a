package main

import (
	"fmt"

	"github.com/fwojciec/crosspost"
)

// selectTargets returns the named targets, or all of them when none are named.
func (c *PublishCmd) selectTargets(all []*crosspost.Target) ([]*crosspost.Target, error) {
	if len(c.Targets) == 0 {
		if len(all) == 0 {
			return nil, crosspost.Errorf(crosspost.EINVALID, "no targets configured")
		}
		return all, nil
	}
	out := make([]*crosspost.Target, 0, len(c.Targets))
	for _, name := range c.Targets {
		t, err := crosspost.FindTarget(all, name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Run executes the publish command. Artifacts for every target are written
// together: a failure on any target leaves the output directory untouched.
func (c *PublishCmd) Run(deps *Dependencies) error {
	targets, err := c.selectTargets(deps.Targets)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s. Use 'crosspost targets' to list targets.\n", crosspost.ErrorMessage(err))
		return err
	}

	job, err := loadJob(deps, c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	store := deps.NewStore(c.Out)

	for _, t := range targets {
		progress := func(p crosspost.UploadProgress) {
			if p.Error != nil {
				fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", p.URL, crosspost.ErrorMessage(p.Error))
			}
		}

		artifact, err := deps.Publisher.Prepare(deps.Ctx, job, t, progress)
		if err != nil {
			_ = store.Abort()
			fmt.Fprintf(deps.Stderr, "error: %s: %s\n", t.Name, crosspost.ErrorMessage(err))
			return err
		}
		if err := store.Save(deps.Ctx, artifact); err != nil {
			_ = store.Abort()
			fmt.Fprintf(deps.Stderr, "error: %s: %s\n", t.Name, crosspost.ErrorMessage(err))
			return err
		}

		fmt.Fprintf(deps.Stdout, "%s: %d images, %d uploaded, %d failed\n",
			t.Name, artifact.Meta.Images, artifact.Meta.Uploaded, artifact.Meta.Failed)
		for _, w := range artifact.Meta.Warnings {
			fmt.Fprintf(deps.Stdout, "  warning: %s\n", w)
		}
	}

	if err := store.Commit(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Wrote %d artifacts to %s\n", len(targets), c.Out)
	return nil
}
