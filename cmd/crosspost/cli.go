package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/manifest"
	"github.com/fwojciec/crosspost/publish"
	"github.com/fwojciec/crosspost/serialize"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
	Targets    []*crosspost.Target
	Jobs       crosspost.JobService
	Parser     crosspost.Parser
	Builder    *manifest.Builder
	Serializer *serialize.Serializer
	Publisher  *publish.Publisher

	// NewStore opens an artifact store rooted at dir.
	NewStore func(dir string) crosspost.ArtifactStore
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `type:"existingfile" help:"Targets file (defaults to built-in targets)"`
	Verbose bool   `short:"v" help:"Log pipeline activity to stderr"`

	Add      AddCmd      `cmd:"" help:"Store a Markdown article as a job"`
	List     ListCmd     `cmd:"" help:"List stored jobs"`
	Delete   DeleteCmd   `cmd:"" help:"Delete a job and its upload records"`
	Targets  TargetsCmd  `cmd:"" help:"List publishing targets"`
	Manifest ManifestCmd `cmd:"" help:"Show the images an article references"`
	Render   RenderCmd   `cmd:"" help:"Render an article for one target without uploading"`
	Publish  PublishCmd  `cmd:"" help:"Upload images and write per-target artifacts"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	File       string   `arg:"" type:"existingfile" help:"Markdown file"`
	ID         string   `help:"Job ID (generated when empty)"`
	Title      string   `short:"t" help:"Title (defaults to front matter or first heading)"`
	Tags       []string `name:"tag" help:"Tag (repeatable)"`
	Categories []string `name:"category" help:"Category (repeatable)"`
	Summary    string   `help:"Summary"`
	Cover      string   `help:"Cover image URL"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Limit int `short:"n" help:"Maximum number of jobs to show"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID    string `arg:"" help:"Job ID"`
	Force bool   `help:"Confirm deletion"`
}

// TargetsCmd is the "targets" subcommand.
type TargetsCmd struct {
	YAML bool `name:"yaml" help:"Print targets as YAML"`
}

// ManifestCmd is the "manifest" subcommand.
type ManifestCmd struct {
	Source string `arg:"" help:"Markdown file or job ID"`
	JSON   bool   `name:"json" help:"Print the manifest as JSON"`
}

// RenderCmd is the "render" subcommand.
type RenderCmd struct {
	Source string `arg:"" help:"Markdown file or job ID"`
	Target string `short:"T" required:"" help:"Target name"`
	Format string `short:"f" enum:",markdown,html" default:"" help:"Output format (markdown or html)"`
}

// PublishCmd is the "publish" subcommand.
type PublishCmd struct {
	Source      string            `arg:"" help:"Markdown file or job ID"`
	Targets     []string          `name:"target" short:"T" help:"Target name (repeatable, defaults to all)"`
	Out         string            `short:"o" default:"crosspost-out" help:"Output directory"`
	Concurrency int               `short:"c" default:"4" help:"Concurrent image uploads"`
	Summarize   bool              `help:"Generate missing summaries with Gemini (needs GEMINI_API_KEY)"`
	Headed      bool              `help:"Show the browser window for editor paste targets"`
	Profile     string            `type:"path" help:"Browser profile directory holding editor logins"`
	Cookies     map[string]string `name:"cookie" mapsep:"none" placeholder:"URL=COOKIES" help:"Session cookies for an upload site (repeatable)"`
}
