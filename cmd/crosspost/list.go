package main

import (
	"fmt"

	"github.com/fwojciec/crosspost"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	jobs, err := deps.Jobs.FindJobs(deps.Ctx, crosspost.JobFilter{Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No jobs found. Use 'crosspost add' to store one.")
		return nil
	}

	for _, j := range jobs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", j.ID, j.CreatedAt.Format("2006-01-02"), j.Title)
	}

	return nil
}
