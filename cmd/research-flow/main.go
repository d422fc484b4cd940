package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikeboe/research-flow/pkg/clients"
	"github.com/mikeboe/research-flow/pkg/config"
	"github.com/mikeboe/research-flow/pkg/research"
	"github.com/mikeboe/research-flow/pkg/research/tools"
)

// Exit codes
const (
	exitOK            = 0
	exitUsage         = 1
	exitWorkflowError = 2
)

type options struct {
	queries            int
	results            int
	followUps          int
	concurrency        int
	completionProvider string
	searchProvider     string
	progress           bool
	jsonOutput         bool
	verbose            bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	code := exitOK
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "research-flow <question>",
		Short: "Answer a research question from live web search results",
		Long: `research-flow turns a question into focused search queries, runs them
against a search provider, synthesises a cited summary and proposes
follow-up questions.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// Everything that can be misconfigured fails here, before a run exists.
			cfg := config.Load()
			applyOverrides(cmd, cfg, opts)

			completion, err := clients.FromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			search, err := tools.FromConfig(cfg)
			if err != nil {
				return err
			}
			engine, err := research.NewEngine(cfg.Research, completion, search,
				research.WithLogger(logger),
				research.WithReporter(&research.WriterReporter{W: stderr}),
			)
			if err != nil {
				return err
			}

			result := execute(ctx, engine, question, opts, stderr)
			if err := render(stdout, result, opts.jsonOutput); err != nil {
				return err
			}
			if result.Failed() {
				code = exitWorkflowError
			}
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&opts.queries, "queries", "n", research.DefaultQueryCount, "Number of search queries to generate")
	flags.IntVarP(&opts.results, "results", "k", research.DefaultResultsPerQuery, "Search results requested per query")
	flags.IntVarP(&opts.followUps, "follow-ups", "m", research.DefaultFollowUpCount, "Number of follow-up questions")
	flags.IntVar(&opts.concurrency, "concurrency", 1, "Searches run in parallel (1 runs them in order)")
	flags.StringVar(&opts.completionProvider, "completion-provider", "", "Completion provider: openai, googleai, anthropic or genai")
	flags.StringVar(&opts.searchProvider, "search-provider", "", "Search provider: serper, tavily or arxiv")
	flags.BoolVarP(&opts.progress, "progress", "p", false, "Print each stage as it completes")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable info logging")

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	return code
}

// applyOverrides lets explicit flags win over the environment.
func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *options) {
	flags := cmd.Flags()
	if flags.Changed("queries") {
		cfg.Research.QueryCount = opts.queries
	}
	if flags.Changed("results") {
		cfg.Research.ResultsPerQuery = opts.results
	}
	if flags.Changed("follow-ups") {
		cfg.Research.FollowUpCount = opts.followUps
	}
	if flags.Changed("concurrency") {
		cfg.Research.SearchConcurrency = opts.concurrency
	}
	if opts.completionProvider != "" {
		cfg.CompletionProvider = opts.completionProvider
	}
	if opts.searchProvider != "" {
		cfg.SearchProvider = opts.searchProvider
	}
}

func execute(ctx context.Context, engine *research.Engine, question string, opts *options, stderr io.Writer) research.Result {
	run := engine.NewRun(question)
	if opts.progress {
		for snap := range run.Progress(ctx) {
			status := "ok"
			if snap.State.CurrentStep == research.StepErrorHandler {
				status = "failed"
			}
			fmt.Fprintf(stderr, "[%s] %s\n", snap.Stage, status)
		}
	}
	return research.ResultOf(run.Wait(ctx))
}

func render(w io.Writer, result research.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := io.WriteString(w, result.Report())
	return err
}
