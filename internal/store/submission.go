package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Submission statuses.
const (
	StatusPending = "pending"
	StatusScored  = "scored"
)

// Verdict strings stored in the results table. The first three mirror the
// verifier's verdicts; disqualified means the layout failed structural
// validation and never ran.
const (
	VerdictPass         = "pass"
	VerdictMismatch     = "mismatch"
	VerdictFault        = "fault"
	VerdictDisqualified = "disqualified"
)

// ErrNotFound is returned when a submission or result does not exist.
var ErrNotFound = errors.New("not found")

// Submission is a candidate circuit layout queued for scoring.
type Submission struct {
	ID          string
	Puzzle      string
	Layout      string
	Status      string
	SubmittedAt time.Time
}

// Result is the scoring outcome for one submission.
type Result struct {
	SubmissionID string
	Verdict      string

	// FailTick is the first failing tick, or -1 when not applicable.
	FailTick int64

	// FaultChip and FaultCause are set only when Verdict is "fault".
	FaultChip  int64
	FaultCause string

	// Detail is a human-readable explanation (mismatch listing,
	// structural errors for disqualifications).
	Detail string

	VerifiedAt time.Time
}

// AddSubmission inserts a submission record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored.
func (s *Store) AddSubmission(ctx context.Context, sub Submission) error {
	if sub.Status == "" {
		sub.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, puzzle, layout, status, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sub.ID,
		sub.Puzzle,
		sub.Layout,
		sub.Status,
		sub.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("add submission: %w", err)
	}
	return nil
}

// GetSubmission returns a single submission by ID.
func (s *Store) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, puzzle, layout, status, submitted_at
		FROM submissions
		WHERE id = ?
	`, id)

	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListPending returns all unscored submissions in deterministic order:
// submission time first, then ID as a tiebreak.
func (s *Store) ListPending(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, puzzle, layout, status, submitted_at
		FROM submissions
		WHERE status = ?
		ORDER BY submitted_at ASC, id COLLATE BINARY ASC
	`, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	subs := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("list pending: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return subs, nil
}

// WriteResult records a scoring outcome and marks the submission scored,
// atomically. Writing a second result for the same submission is silently
// ignored - the first verdict stands.
func (s *Store) WriteResult(ctx context.Context, res Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	defer tx.Rollback()

	var faultChip, faultCause any
	if res.Verdict == VerdictFault {
		faultChip = res.FaultChip
		faultCause = res.FaultCause
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results
		(submission_id, verdict, fail_tick, fault_chip, fault_cause, detail, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(submission_id) DO NOTHING
	`,
		res.SubmissionID,
		res.Verdict,
		res.FailTick,
		faultChip,
		faultCause,
		res.Detail,
		res.VerifiedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE submissions SET status = ? WHERE id = ?
	`, StatusScored, res.SubmissionID)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// ReadResult returns the scoring outcome for a submission.
func (s *Store) ReadResult(ctx context.Context, submissionID string) (Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT submission_id, verdict, fail_tick, fault_chip, fault_cause, detail, verified_at
		FROM results
		WHERE submission_id = ?
	`, submissionID)

	var (
		res        Result
		faultChip  sql.NullInt64
		faultCause sql.NullString
		detail     sql.NullString
		verifiedAt string
	)
	err := row.Scan(&res.SubmissionID, &res.Verdict, &res.FailTick,
		&faultChip, &faultCause, &detail, &verifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("result for %s: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return Result{}, fmt.Errorf("read result: %w", err)
	}

	res.FaultChip = faultChip.Int64
	res.FaultCause = faultCause.String
	res.Detail = detail.String
	res.VerifiedAt, err = time.Parse(time.RFC3339Nano, verifiedAt)
	if err != nil {
		return Result{}, fmt.Errorf("read result: parse verified_at: %w", err)
	}
	return res, nil
}

// Summary returns the number of scored submissions per verdict, plus the
// pending count under the key "pending".
func (s *Store) Summary(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT verdict, COUNT(*) FROM results GROUP BY verdict
	`)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		counts[verdict] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	var pending int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submissions WHERE status = ?
	`, StatusPending).Scan(&pending)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	counts["pending"] = pending

	return counts, nil
}

// scannable covers sql.Row and sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanSubmission(row scannable) (Submission, error) {
	var (
		sub         Submission
		submittedAt string
	)
	if err := row.Scan(&sub.ID, &sub.Puzzle, &sub.Layout, &sub.Status, &submittedAt); err != nil {
		return Submission{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, submittedAt)
	if err != nil {
		return Submission{}, fmt.Errorf("parse submitted_at: %w", err)
	}
	sub.SubmittedAt = t
	return sub, nil
}
