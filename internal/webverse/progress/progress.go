// Package progress is the durable per-lab record of what this device
// has done. Two deployment modes share one contract: a purely local
// mode where everything lives on-device, and a remote-authority mode
// where writes are forwarded to the service and reads come back
// through the synchronization cache. Callers never need to know which
// mode is active.
package progress

import "context"

// Record is one lab's progress. Timestamps are RFC3339 strings; empty
// means unset.
type Record struct {
	StartedAt string
	SolvedAt  string
	Attempts  int
	Notes     string
}

// Solved reports whether the lab was ever solved
func (r Record) Solved() bool {
	return r.SolvedAt != ""
}

// Summary aggregates progress across all labs
type Summary struct {
	Started  int
	Solved   int
	Attempts int
}

// Store is the progress contract shared by both deployment modes.
// solved_at is first-write-wins; started_at models the most recent
// successful start and is overwritten on every successful bring-up.
type Store interface {
	MarkStarted(ctx context.Context, labID string) error
	MarkAttempt(ctx context.Context, labID string) error
	MarkSolved(ctx context.Context, labID string) error
	Map(ctx context.Context) (map[string]Record, error)
	Summary(ctx context.Context) (Summary, error)
	Notes(ctx context.Context, labID string) (string, error)
	SetNotes(ctx context.Context, labID, notes string) error
}
