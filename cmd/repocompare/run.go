package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/repocompare/internal/config"
	"github.com/jonathan/repocompare/internal/db"
	"github.com/jonathan/repocompare/internal/feedback"
	"github.com/jonathan/repocompare/internal/llm"
	"github.com/jonathan/repocompare/internal/observability"
	"github.com/jonathan/repocompare/internal/pipeline"
	"github.com/jonathan/repocompare/internal/statestore"
	"github.com/jonathan/repocompare/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run or resume a comparison session",
	Long: `Runs every stage the session has not finished: inputs -> chunk analysis -> candidates and reviews -> feedback -> complete.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.
Pass the same --session again to resume an interrupted run.`,
	RunE: runPipelineCmd,
}

// runOptions holds the raw flag values of the run command.
type runOptions struct {
	ConfigPath    string
	Source        string
	Target        string
	Extensions    []string
	Focus         []string
	Session       string
	StateDir      string
	ChunkSize     int
	SplitMode     string
	MaxIterations int
	RefineCap     int
	MaxCandidates int
	Reviewers     []string
	APIKey        string
	DatabaseURL   string
	Verbose       bool
}

var runOpts runOptions

func init() {
	bindRunFlags(runCommand.Flags(), &runOpts)
	rootCmd.AddCommand(runCommand)
}

func bindRunFlags(fs *pflag.FlagSet, o *runOptions) {
	// Config file flag (processed first)
	fs.StringVar(&o.ConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")

	fs.StringVarP(&o.Source, "source", "s", "", "Source repository or file to learn from")
	fs.StringVarP(&o.Target, "target", "t", "", "Target repository or file to improve")
	fs.StringSliceVar(&o.Extensions, "ext", nil, "File extensions to include when reading directories (e.g. .go,.md)")
	fs.StringSliceVar(&o.Focus, "focus", nil, "Focus areas that steer the analysis (comma separated)")
	fs.StringVar(&o.Session, "session", "", "Session id to create or resume (generated when empty)")
	fs.StringVar(&o.StateDir, "state-dir", "", "Directory holding session state (default "+config.DefaultStateDir+")")
	fs.IntVar(&o.ChunkSize, "chunk-size", 0, "Maximum characters per chunk")
	fs.StringVar(&o.SplitMode, "split-mode", "", "Chunk split mode: auto, lines or files")
	fs.IntVar(&o.MaxIterations, "max-iterations", 0, "Maximum feedback iterations")
	fs.IntVar(&o.RefineCap, "refine-cap", 0, "Consecutive refine requests allowed before refine is blocked")
	fs.IntVar(&o.MaxCandidates, "max-candidates", 0, "Maximum number of improvement candidates")
	fs.StringSliceVar(&o.Reviewers, "reviewers", nil, "Reviewers to run: feasibility, impact, risk")
	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	fs.StringVar(&o.APIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for the optional run mirror
	fs.StringVar(&o.DatabaseURL, "db-url", "", "PostgreSQL connection URL for mirroring runs (optional, defaults to DATABASE_URL env var)")
}

// resolveRunConfig merges the config file, explicitly set flags, defaults and the environment.
func resolveRunConfig(fs *pflag.FlagSet, o runOptions) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if o.ConfigPath != "" {
		loaded, err := config.LoadConfig(o.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides. Only override if the flag was explicitly set
	if fs.Changed("source") {
		cfg.Source = o.Source
	}
	if fs.Changed("target") {
		cfg.Target = o.Target
	}
	if fs.Changed("ext") {
		cfg.Extensions = o.Extensions
	}
	if fs.Changed("focus") {
		cfg.FocusAreas = o.Focus
	}
	if fs.Changed("session") {
		cfg.SessionID = o.Session
	}
	if fs.Changed("state-dir") {
		cfg.StateDir = o.StateDir
	}
	if fs.Changed("chunk-size") {
		cfg.ChunkSize = o.ChunkSize
	}
	if fs.Changed("split-mode") {
		cfg.SplitMode = o.SplitMode
	}
	if fs.Changed("max-iterations") {
		cfg.MaxIterations = o.MaxIterations
	}
	if fs.Changed("refine-cap") {
		cfg.RefineCap = o.RefineCap
	}
	if fs.Changed("max-candidates") {
		cfg.MaxCandidates = o.MaxCandidates
	}
	if fs.Changed("reviewers") {
		cfg.Reviewers = o.Reviewers
	}
	if fs.Changed("api-key") {
		cfg.APIKey = o.APIKey
	}
	if fs.Changed("db-url") {
		cfg.DatabaseURL = o.DatabaseURL
	}
	if fs.Changed("verbose") {
		cfg.Verbose = o.Verbose
	}

	// Step 3: Apply defaults for unset values, then the environment
	cfg = cfg.MergeWithDefaults(config.Defaults())
	cfg.ApplyEnv()

	// Step 4: Validate
	// A resumed session already knows its inputs
	if cfg.SessionID == "" && (cfg.Source == "" || cfg.Target == "") {
		return cfg, errors.New("both --source and --target must be provided (via flag or config) unless resuming with --session")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if cfg.APIKey == "" {
		return cfg, errors.New("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	return cfg, nil
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveRunConfig(cmd.Flags(), runOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	logger := newLogger(cfg.Verbose)
	printer := observability.NewPrinter(out)

	store, err := statestore.NewFileStore(cfg.StateDir, logger)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	pc := &pipeline.PipelineContext{
		Config:   cfg,
		Store:    store,
		Files:    store,
		Client:   client,
		Prompter: feedback.NewTerminalPrompter(cmd.InOrStdin(), out),
		Printer:  printer,
		Logger:   logger,
	}

	// The mirror is best effort: a database that cannot be reached only costs the copy
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			printer.Warn("run mirror disabled: %v", err)
		} else {
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				printer.Warn("run mirror disabled: %v", err)
			} else {
				pc.Sink = db.NewMirror(database)
			}
		}
	}

	orchestrator, err := pipeline.New(pc)
	if err != nil {
		return err
	}
	printer.Info("Session %s (state in %s)", orchestrator.SessionID(), store.SessionDir(orchestrator.SessionID()))

	result, err := orchestrator.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			printer.Warn("interrupted; resume with: repocompare run --session %s", orchestrator.SessionID())
		}
		return err
	}
	reportResult(printer, result)
	return nil
}

// reportResult tells the operator how to continue a session that did not complete.
// Completion is reported by the pipeline itself.
func reportResult(printer *observability.Printer, result *pipeline.Result) {
	switch {
	case result.Completed:
		return
	case result.Outcome == types.OutcomeInterrupted:
		printer.Warn("stopped at %s; resume with: repocompare run --session %s", result.Stage, result.SessionID)
	default:
		printer.Info("Session %s stopped at stage %s; run again to continue", result.SessionID, result.Stage)
	}
}

func newLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}
