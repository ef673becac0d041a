package main

import (
	"fmt"

	"github.com/fwojciec/crosspost"
)

// Run executes the add command.
func (c *AddCmd) Run(deps *Dependencies) error {
	job, err := readJobFile(c.File)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	// Flags override front matter.
	if c.ID != "" {
		job.ID = c.ID
	}
	if c.Title != "" {
		job.Title = c.Title
	}
	if len(c.Tags) > 0 {
		job.Tags = c.Tags
	}
	if len(c.Categories) > 0 {
		job.Categories = c.Categories
	}
	if c.Summary != "" {
		job.Summary = c.Summary
	}
	if c.Cover != "" {
		job.Cover = c.Cover
	}

	if err := deps.Jobs.CreateJob(deps.Ctx, job); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added job %q (%s)\n", job.Title, job.ID)
	return nil
}
