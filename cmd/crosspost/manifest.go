package main

import (
	"encoding/json"
	"fmt"

	"github.com/fwojciec/crosspost"
)

// Run executes the manifest command.
func (c *ManifestCmd) Run(deps *Dependencies) error {
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

	m := buildManifest(deps, job, tree)

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	if m.Len() == 0 {
		fmt.Fprintln(deps.Stdout, "No images found.")
		return nil
	}
	for _, a := range m.Assets {
		fetch := "inline"
		if a.NeedsFetch {
			fetch = "fetch"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s\n", a.ID, fetch, a.Metadata.Format, a.OriginalURL)
	}
	fmt.Fprintf(deps.Stdout, "%d images\n", m.Len())
	return nil
}
