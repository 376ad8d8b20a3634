package progress

import (
	"context"

	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/webverse/store"
	"github.com/webverselabs/webverse/internal/log"
)

// Local keeps all progress durable on-device in the SQLite store.
type Local struct {
	store    *store.Store
	cache    *cache.Cache
	notifier *notify.Notifier
}

// NewLocal creates the local-mode store
func NewLocal(s *store.Store, c *cache.Cache, n *notify.Notifier) *Local {
	return &Local{store: s, cache: c, notifier: n}
}

func (l *Local) invalidate(labID string) {
	l.cache.Invalidate(labID)
	l.notifier.Emit(notify.Event{Kind: notify.KindProgress, LabID: labID})
}

// MarkStarted records a successful bring-up
func (l *Local) MarkStarted(ctx context.Context, labID string) error {
	if err := l.store.MarkStarted(labID); err != nil {
		return err
	}
	l.invalidate(labID)
	return nil
}

// MarkAttempt records one unsuccessful resolution
func (l *Local) MarkAttempt(ctx context.Context, labID string) error {
	if err := l.store.MarkAttempt(labID); err != nil {
		return err
	}
	l.invalidate(labID)
	return nil
}

// MarkSolved records the solve; first write wins
func (l *Local) MarkSolved(ctx context.Context, labID string) error {
	if err := l.store.MarkSolved(labID); err != nil {
		return err
	}
	l.invalidate(labID)
	return nil
}

// Map returns all progress records, served from cache when fresh
func (l *Local) Map(ctx context.Context) (map[string]Record, error) {
	if v, ok := l.cache.Get(cache.KeyProgressMap); ok {
		return v.(map[string]Record), nil
	}

	rows, err := l.store.ProgressMap()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(rows))
	for id, r := range rows {
		out[id] = Record{
			StartedAt: r.StartedAt,
			SolvedAt:  r.SolvedAt,
			Attempts:  r.Attempts,
			Notes:     r.Notes,
		}
	}
	l.cache.Put(cache.KeyProgressMap, out)
	return out, nil
}

// Summary aggregates the map
func (l *Local) Summary(ctx context.Context) (Summary, error) {
	if v, ok := l.cache.Get(cache.KeySummary); ok {
		return v.(Summary), nil
	}

	m, err := l.Map(ctx)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	for _, r := range m {
		if r.StartedAt != "" {
			s.Started++
		}
		if r.Solved() {
			s.Solved++
		}
		s.Attempts += r.Attempts
	}
	l.cache.Put(cache.KeySummary, s)
	return s, nil
}

// Notes returns the lab's notes
func (l *Local) Notes(ctx context.Context, labID string) (string, error) {
	if v, ok := l.cache.Get(cache.NotesKey(labID)); ok {
		return v.(string), nil
	}
	notes, err := l.store.Notes(labID)
	if err != nil {
		return "", err
	}
	l.cache.Put(cache.NotesKey(labID), notes)
	return notes, nil
}

// SetNotes replaces the lab's notes
func (l *Local) SetNotes(ctx context.Context, labID, notes string) error {
	if err := l.store.SetNotes(labID, notes); err != nil {
		return err
	}
	l.invalidate(labID)
	return nil
}

// OnStarted implements the session progress hook
func (l *Local) OnStarted(ctx context.Context, labID string) {
	if err := l.MarkStarted(ctx, labID); err != nil {
		log.Error("Failed to record lab start: %v", err)
	}
}

// OnStopped implements the session progress hook. In local mode a
// stop without a solve counts as one attempt.
func (l *Local) OnStopped(ctx context.Context, labID string) {
	m, err := l.Map(ctx)
	if err != nil {
		log.Error("Failed to read progress on stop: %v", err)
		return
	}
	rec, started := m[labID]
	if !started || rec.StartedAt == "" || rec.Solved() {
		return
	}
	if err := l.MarkAttempt(ctx, labID); err != nil {
		log.Error("Failed to record attempt: %v", err)
	}
}
