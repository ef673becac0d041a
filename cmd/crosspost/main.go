package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/crosspost"
	"github.com/fwojciec/crosspost/fs"
	"github.com/fwojciec/crosspost/gemini"
	"github.com/fwojciec/crosspost/goldmark"
	"github.com/fwojciec/crosspost/goquery"
	"github.com/fwojciec/crosspost/htmltomarkdown"
	cphttp "github.com/fwojciec/crosspost/http"
	"github.com/fwojciec/crosspost/manifest"
	"github.com/fwojciec/crosspost/publish"
	"github.com/fwojciec/crosspost/rod"
	"github.com/fwojciec/crosspost/serialize"
	cpslog "github.com/fwojciec/crosspost/slog"
	"github.com/fwojciec/crosspost/sqlite"
	"github.com/fwojciec/crosspost/upload"
	"github.com/fwojciec/crosspost/yaml"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	JobService     crosspost.JobService
	UploadRecorder crosspost.UploadRecorder
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("crosspost"),
		kong.Description("Prepare one article for many publishing targets."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'crosspost --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Command()

	deps.Logger = newLogger(stderr, cli.Verbose)

	if cli.Config != "" {
		deps.Targets, err = yaml.LoadTargets(cli.Config)
		if err != nil {
			fmt.Fprintf(stderr, "error: %s\n", crosspost.ErrorMessage(err))
			return err
		}
	} else {
		deps.Targets = yaml.DefaultTargets()
	}

	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set CROSSPOST_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	m.JobService = sqlite.NewJobService(m.DB)
	m.UploadRecorder = sqlite.NewUploadRecorder(m.DB)
	deps.Jobs = m.JobService

	deps.Parser = goldmark.NewParser()
	deps.Builder = manifest.NewBuilder(goquery.NewImageScanner())
	deps.Serializer = serialize.NewSerializerFunc(htmltomarkdown.ConverterFor)

	if cmd == "publish <source>" {
		closeFn, err := m.wirePublisher(ctx, deps, &cli.Publish)
		if err != nil {
			return err
		}
		defer closeFn()
	}

	return kongCtx.Run(deps)
}

// wirePublisher builds the publish pipeline. The browser is started only when
// a selected target pastes images into an editor page.
func (m *Main) wirePublisher(ctx context.Context, deps *Dependencies, cmd *PublishCmd) (func(), error) {
	logger := deps.Logger
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	targets, err := cmd.selectTargets(deps.Targets)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
		return nil, err
	}

	jar := cphttp.NewCookieJar()
	pages := cpslog.NewLoggingFetcher(cphttp.NewFetcher(cphttp.WithJar(jar)), logger)
	closers = append(closers, func() { _ = pages.Close() })

	uploader := cphttp.NewUploader(
		cphttp.WithUploadJar(jar),
		cphttp.WithTokenSource(pages, goquery.NewTokenExtractor()),
	)
	for rawURL, header := range cmd.Cookies {
		if err := uploader.SetCookies(rawURL, header); err != nil {
			closeAll()
			fmt.Fprintf(deps.Stderr, "error: %s\n", crosspost.ErrorMessage(err))
			return nil, err
		}
	}

	limiter := upload.NewPlatformLimiter(0)
	for _, t := range targets {
		limiter.SetTarget(t)
	}

	pipeline := &upload.Pipeline{
		Cache:       upload.NewJobCache(cpslog.NewLoggingImageFetcher(cphttp.NewImageFetcher(), logger)),
		Uploader:    cpslog.NewLoggingImageUploader(uploader, logger),
		Limiter:     limiter,
		Concurrency: cmd.Concurrency,
	}

	if needsBrowser(targets) {
		opts := []rod.ManagerOption{rod.WithHeadless(!cmd.Headed)}
		if cmd.Profile != "" {
			opts = append(opts, rod.WithUserDataDir(cmd.Profile))
		}
		manager, err := rod.NewBrowserManager(opts...)
		if err != nil {
			closeAll()
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed for editor paste targets")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		closers = append(closers, func() { _ = manager.Close() })
		pipeline.Paster = cpslog.NewLoggingPasteTarget(rod.NewPaster(manager), logger)
	}

	publisher := &publish.Publisher{
		Parser:     deps.Parser,
		Builder:    deps.Builder,
		Uploader:   cpslog.NewLoggingAssetUploader(pipeline, logger),
		Serializer: deps.Serializer,
		Recorder:   m.UploadRecorder,
	}

	if cmd.Summarize {
		summarizer, err := newSummarizer(ctx, deps.Stderr, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		publisher.Summarizer = summarizer
	}

	deps.Publisher = publisher
	deps.NewStore = func(dir string) crosspost.ArtifactStore {
		return fs.NewArtifactStore(filepath.Dir(dir), filepath.Base(dir))
	}
	return closeAll, nil
}

func newSummarizer(ctx context.Context, stderr io.Writer, logger *slog.Logger) (*gemini.Summarizer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return nil, fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}

	var opts []gemini.SummarizerOption
	if counter, err := gemini.NewTokenCounter(""); err != nil {
		logger.Warn("token counter unavailable; articles are sent untrimmed", "err", err)
	} else {
		opts = append(opts, gemini.WithTokenBudget(counter, gemini.DefaultMaxPromptTokens))
	}
	return gemini.NewSummarizer(client, opts...), nil
}

func needsBrowser(targets []*crosspost.Target) bool {
	for _, t := range targets {
		if t.UploadStrategy().Mode() == crosspost.ModeDOMPasteUpload {
			return true
		}
	}
	return false
}

// newLogger logs to stderr when verbose and discards otherwise.
func newLogger(stderr io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func defaultDBPath() string {
	if path := os.Getenv("CROSSPOST_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "crosspost.db"
	}
	dir := filepath.Join(home, ".crosspost")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "crosspost.db")
}
