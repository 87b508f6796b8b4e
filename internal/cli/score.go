package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/puzzle"
	"github.com/gridwire/gridwire/internal/scorer"
	"github.com/gridwire/gridwire/internal/store"
)

// ScoreOptions holds flags for the score command.
type ScoreOptions struct {
	*RootOptions
	Database string
	Workers  int
}

// ScoreSummary holds batch statistics for JSON output.
type ScoreSummary struct {
	Scored       int `json:"scored"`
	Passed       int `json:"passed"`
	Mismatched   int `json:"mismatched"`
	Faulted      int `json:"faulted"`
	Disqualified int `json:"disqualified"`
}

// NewScoreCommand creates the score command.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "score <puzzles-dir>",
		Short: "Score all pending submissions",
		Long: `Score every pending submission in the database against the puzzle
definitions in the given directory.

Each submission is evaluated in isolation on a worker pool. Verdicts are
written back to the database; already-scored submissions keep their
original verdict.

Example:
  gridwire score --db ./gridwire.db ./puzzles
  gridwire score --db ./gridwire.db ./puzzles --workers 4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "worker pool size (default: GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScore(opts *ScoreOptions, puzzlesDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	puzzles, err := puzzle.LoadDir(puzzlesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load puzzles", err)
	}
	formatter.VerboseLog("Loaded %d puzzle(s) from %s", len(puzzles), puzzlesDir)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	sc := scorer.New(st, chips.Default(), puzzles, scorer.WithWorkers(opts.Workers))
	stats, err := sc.ScoreAll(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "scoring failed", err)
	}

	summary := ScoreSummary{
		Scored:       stats.Scored,
		Passed:       stats.Passed,
		Mismatched:   stats.Mismatched,
		Faulted:      stats.Faulted,
		Disqualified: stats.Disqualified,
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	// message.Printer handles digit grouping for large batches.
	p := message.NewPrinter(language.English)
	p.Fprintf(formatter.Writer, "Scored %d submission(s): %d passed, %d mismatched, %d faulted, %d disqualified\n",
		summary.Scored, summary.Passed, summary.Mismatched, summary.Faulted, summary.Disqualified)
	return nil
}
