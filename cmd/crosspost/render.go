package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/crosspost"
)

// Run executes the render command.
func (c *RenderCmd) Run(deps *Dependencies) error {
	target, err := crosspost.FindTarget(deps.Targets, c.Target)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s. Use 'crosspost targets' to list targets.\n", crosspost.ErrorMessage(err))
		return err
	}

	job, err := loadJob(deps, c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}
	tree, err := parseJob(deps, job)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return err
	}

	opts := target.Options
	opts.Platform = target.Name
	opts.Assets = buildManifest(deps, job, tree)
	if c.Format != "" {
		opts.Format = crosspost.Format(c.Format)
	}
	if opts.Format == "" && !target.Capabilities.Markdown && target.Capabilities.HTML {
		opts.Format = crosspost.FormatHTML
	}

	res := deps.Serializer.Render(tree, opts)
	for _, w := range res.Warnings {
		fmt.Fprintf(deps.Stderr, "warning: %s\n", w.Message)
	}

	fmt.Fprint(deps.Stdout, res.Content)
	if !strings.HasSuffix(res.Content, "\n") {
		fmt.Fprintln(deps.Stdout)
	}
	return nil
}
