package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gridwire/gridwire/internal/store"
)

// IDGenerator produces submission IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-ordered UUIDs. UUIDv7 IDs sort by
// creation time, which keeps the submission queue's (submitted_at, id)
// ordering stable even for same-timestamp submissions.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 string.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Database string

	// IDs allows overriding the submission ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs IDGenerator
}

// SubmitResult holds the submission receipt for JSON output.
type SubmitResult struct {
	ID     string `json:"id"`
	Puzzle string `json:"puzzle"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <puzzle-name> <layout>",
		Short: "Queue a circuit layout for scoring",
		Long: `Queue a circuit layout as a submission against the named puzzle.

The layout file is stored verbatim; structural validation happens at
scoring time, so a broken layout submits fine and scores as
disqualified.

Example:
  gridwire submit --db ./gridwire.db xor layouts/xor.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSubmit(opts *SubmitOptions, puzzleName, layoutPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	layoutData, err := os.ReadFile(layoutPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read layout", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	sub := store.Submission{
		ID:          ids.NewID(),
		Puzzle:      puzzleName,
		Layout:      string(layoutData),
		SubmittedAt: time.Now(),
	}
	if err := st.AddSubmission(cmd.Context(), sub); err != nil {
		return WrapExitError(ExitCommandError, "failed to queue submission", err)
	}

	if opts.Format == "json" {
		return formatter.Success(SubmitResult{ID: sub.ID, Puzzle: sub.Puzzle})
	}
	return formatter.Success(fmt.Sprintf("Queued %s for puzzle %q", sub.ID, sub.Puzzle))
}
