package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/yaml"
)

// Run executes the targets command.
func (c *TargetsCmd) Run(deps *Dependencies) error {
	if c.YAML {
		data, err := yaml.MarshalTargets(deps.Targets)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
			return err
		}
		_, err = deps.Stdout.Write(data)
		return err
	}

	if len(deps.Targets) == 0 {
		fmt.Fprintln(deps.Stdout, "No targets configured.")
		return nil
	}

	for _, t := range deps.Targets {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", t.Name, strings.Join(formats(t.Capabilities), ","), t.UploadStrategy().Mode())
	}
	return nil
}

func formats(c crosspost.Capabilities) []string {
	var out []string
	if c.Markdown {
		out = append(out, string(crosspost.FormatMarkdown))
	}
	if c.HTML {
		out = append(out, string(crosspost.FormatHTML))
	}
	return out
}
