// Package scorer runs queued submissions against their puzzles and records
// verdicts.
//
// Scoring fans out across a worker pool: each worker builds its own graph
// and evaluator per submission, so no simulation state is shared. Verdict
// writes all happen on the calling goroutine - a single writer, so the
// store sees results in a deterministic order given a deterministic queue.
package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/puzzle"
	"github.com/gridwire/gridwire/internal/signal"
	"github.com/gridwire/gridwire/internal/store"
	"github.com/gridwire/gridwire/internal/verifier"
)

// Scorer scores pending submissions against a fixed set of puzzles.
type Scorer struct {
	store   *store.Store
	catalog circuit.Catalog
	puzzles map[string]*puzzle.Puzzle
	workers int
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWorkers sets the worker pool size. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock overrides the time source. Used for testing.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a Scorer over the given store, chip catalog, and puzzles.
func New(st *store.Store, cat circuit.Catalog, puzzles []*puzzle.Puzzle, opts ...Option) *Scorer {
	s := &Scorer{
		store:   st,
		catalog: cat,
		puzzles: make(map[string]*puzzle.Puzzle, len(puzzles)),
		workers: runtime.GOMAXPROCS(0),
		now:     time.Now,
	}
	for _, p := range puzzles {
		s.puzzles[p.Name] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchStats summarises one scoring batch.
type BatchStats struct {
	Scored       int
	Passed       int
	Mismatched   int
	Faulted      int
	Disqualified int
}

// ScoreAll scores every pending submission and writes one result each.
// Returns early on context cancellation or a store write failure; already
// written results stand.
func (s *Scorer) ScoreAll(ctx context.Context) (BatchStats, error) {
	var stats BatchStats

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return stats, err
	}
	if len(pending) == 0 {
		return stats, nil
	}

	slog.Info("scoring batch starting",
		"pending", len(pending),
		"workers", s.workers,
	)

	jobs := make(chan store.Submission)
	results := make(chan store.Result, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				results <- s.score(sub)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sub := range pending {
			select {
			case jobs <- sub:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer: collect worker verdicts here and persist them in
	// arrival order.
	for res := range results {
		if err := s.store.WriteResult(ctx, res); err != nil {
			return stats, fmt.Errorf("submission %s: %w", res.SubmissionID, err)
		}
		stats.Scored++
		switch res.Verdict {
		case store.VerdictPass:
			stats.Passed++
		case store.VerdictMismatch:
			stats.Mismatched++
		case store.VerdictFault:
			stats.Faulted++
		case store.VerdictDisqualified:
			stats.Disqualified++
		}
		slog.Debug("submission scored",
			"id", res.SubmissionID,
			"verdict", res.Verdict,
			"fail_tick", res.FailTick,
		)
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	slog.Info("scoring batch complete",
		"scored", stats.Scored,
		"passed", stats.Passed,
		"disqualified", stats.Disqualified,
	)
	return stats, nil
}

// score produces the verdict for one submission. Never returns an error:
// anything wrong with the submission itself becomes a disqualification,
// so one bad layout cannot stall the batch.
func (s *Scorer) score(sub store.Submission) store.Result {
	res := store.Result{
		SubmissionID: sub.ID,
		FailTick:     -1,
		VerifiedAt:   s.now(),
	}

	p, ok := s.puzzles[sub.Puzzle]
	if !ok {
		res.Verdict = store.VerdictDisqualified
		res.Detail = fmt.Sprintf("unknown puzzle %q", sub.Puzzle)
		return res
	}

	circ, err := layout.Parse([]byte(sub.Layout), s.catalog)
	if err != nil {
		res.Verdict = store.VerdictDisqualified
		res.Detail = fmt.Sprintf("layout: %v", err)
		return res
	}

	graph, err := circ.Build()
	if err != nil {
		res.Verdict = store.VerdictDisqualified
		res.Detail = structuralDetail(err)
		return res
	}

	script, err := p.Bind(circ)
	if err != nil {
		res.Verdict = store.VerdictDisqualified
		res.Detail = fmt.Sprintf("binding puzzle %q: %v", p.Name, err)
		return res
	}

	outcome, err := verifier.Run(graph, script)
	if err != nil {
		res.Verdict = store.VerdictDisqualified
		res.Detail = fmt.Sprintf("verification aborted: %v", err)
		return res
	}

	switch outcome.Verdict {
	case verifier.VerdictPass:
		res.Verdict = store.VerdictPass

	case verifier.VerdictMismatch:
		res.Verdict = store.VerdictMismatch
		res.FailTick = outcome.FailTick
		res.Detail = mismatchDetail(circ, outcome)

	case verifier.VerdictFault:
		res.Verdict = store.VerdictFault
		res.FailTick = outcome.FailTick
		res.FaultChip = int64(outcome.Fault.Chip)
		res.FaultCause = outcome.Fault.Cause
		res.Detail = fmt.Sprintf("chip %s faulted: %s",
			circ.ChipName(outcome.Fault.Chip), outcome.Fault.Cause)
	}

	return res
}

// structuralDetail flattens structural build errors into one line per
// error, preserving their order.
func structuralDetail(err error) string {
	structural := circuit.StructuralErrors(err)
	if len(structural) == 0 {
		return err.Error()
	}
	lines := make([]string, len(structural))
	for i, se := range structural {
		lines[i] = se.Error()
	}
	return strings.Join(lines, "\n")
}

func mismatchDetail(circ *layout.Circuit, outcome *verifier.Result) string {
	lines := make([]string, len(outcome.Mismatches))
	for i, m := range outcome.Mismatches {
		lines[i] = fmt.Sprintf("tick %d: %s: expected %s, got %s",
			outcome.FailTick,
			circ.PortName(m.Port),
			signal.String(m.Expected), signal.String(m.Actual))
	}
	return strings.Join(lines, "\n")
}
