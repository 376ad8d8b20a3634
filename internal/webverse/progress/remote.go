package progress

import (
	"context"

	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/webverse/telemetry"
	"github.com/webverselabs/webverse/internal/log"
)

// Remote proxies progress through the remote authority. Writes are
// telemetry events the authority folds into its own view; reads fetch
// the device progress blob through the synchronization cache. Only
// the device identity stays local.
type Remote struct {
	api      *api.Client
	reporter *telemetry.Reporter
	cache    *cache.Cache
	notifier *notify.Notifier
	deviceID string

	// locked suppresses device-backed reads while a linked device is
	// logged out, so personal progress never lingers on screen.
	locked func(ctx context.Context) bool
}

// NewRemote creates the remote-authority store
func NewRemote(client *api.Client, reporter *telemetry.Reporter, c *cache.Cache, n *notify.Notifier, deviceID string, locked func(ctx context.Context) bool) *Remote {
	if locked == nil {
		locked = func(context.Context) bool { return false }
	}
	return &Remote{
		api:      client,
		reporter: reporter,
		cache:    c,
		notifier: n,
		deviceID: deviceID,
		locked:   locked,
	}
}

func (r *Remote) invalidate(labID string) {
	r.cache.Invalidate(labID)
	r.notifier.Emit(notify.Event{Kind: notify.KindProgress, LabID: labID})
}

// MarkStarted emits the start event; the authority derives started_at
func (r *Remote) MarkStarted(ctx context.Context, labID string) error {
	r.invalidate(labID)
	r.reporter.Emit(telemetry.EventLabStarted, map[string]string{"lab_id": labID})
	return nil
}

// MarkAttempt emits the attempt event
func (r *Remote) MarkAttempt(ctx context.Context, labID string) error {
	r.invalidate(labID)
	r.reporter.Emit(telemetry.EventLabAttempt, map[string]string{"lab_id": labID})
	return nil
}

// MarkSolved emits the solve event; first-write-wins is enforced
// server-side.
func (r *Remote) MarkSolved(ctx context.Context, labID string) error {
	r.invalidate(labID)
	r.reporter.Emit(telemetry.EventLabSolved, map[string]string{"lab_id": labID})
	return nil
}

// fetchBlob reads the device progress blob, cached briefly
func (r *Remote) fetchBlob(ctx context.Context, force bool) (*api.ProgressBlob, error) {
	if !force {
		if v, ok := r.cache.Get(cache.KeyProgressMap); ok {
			return v.(*api.ProgressBlob), nil
		}
	}

	if r.locked(ctx) {
		empty := &api.ProgressBlob{Progress: map[string]api.ProgressRow{}}
		r.cache.Put(cache.KeyProgressMap, empty)
		return empty, nil
	}

	blob, err := r.api.DeviceProgress(ctx, r.deviceID)
	if err != nil {
		return nil, err
	}
	r.cache.Put(cache.KeyProgressMap, blob)
	return blob, nil
}

// Map returns the authority's per-lab view
func (r *Remote) Map(ctx context.Context) (map[string]Record, error) {
	return r.mapWith(ctx, false)
}

// MapForce bypasses the cache; used by convergence polling
func (r *Remote) MapForce(ctx context.Context) (map[string]Record, error) {
	return r.mapWith(ctx, true)
}

func (r *Remote) mapWith(ctx context.Context, force bool) (map[string]Record, error) {
	blob, err := r.fetchBlob(ctx, force)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(blob.Progress))
	for id, row := range blob.Progress {
		out[id] = Record{
			StartedAt: row.StartedAt,
			SolvedAt:  row.SolvedAt,
			Attempts:  row.Attempts,
			Notes:     row.Notes,
		}
	}
	return out, nil
}

// Summary returns the authority's aggregate view
func (r *Remote) Summary(ctx context.Context) (Summary, error) {
	return r.summaryWith(ctx, false)
}

// SummaryForce bypasses the cache; used by convergence polling
func (r *Remote) SummaryForce(ctx context.Context) (Summary, error) {
	return r.summaryWith(ctx, true)
}

func (r *Remote) summaryWith(ctx context.Context, force bool) (Summary, error) {
	if !force {
		if v, ok := r.cache.Get(cache.KeySummary); ok {
			return v.(Summary), nil
		}
	}
	blob, err := r.fetchBlob(ctx, force)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Started:  blob.Summary.Started,
		Solved:   blob.Summary.Solved,
		Attempts: blob.Summary.Attempts,
	}
	r.cache.Put(cache.KeySummary, s)
	return s, nil
}

// Recent returns the most recent activity rows, newest first
func (r *Remote) Recent(ctx context.Context, limit int) ([]api.RecentRow, error) {
	blob, err := r.fetchBlob(ctx, false)
	if err != nil {
		return nil, err
	}
	rows := blob.Recent
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Notes reads the lab's notes, preferring the cached progress blob
func (r *Remote) Notes(ctx context.Context, labID string) (string, error) {
	if v, ok := r.cache.Get(cache.NotesKey(labID)); ok {
		return v.(string), nil
	}

	if m, err := r.Map(ctx); err == nil {
		if rec, ok := m[labID]; ok {
			r.cache.Put(cache.NotesKey(labID), rec.Notes)
			return rec.Notes, nil
		}
	}

	notes, err := r.api.Notes(ctx, r.deviceID, labID)
	if err != nil {
		return "", err
	}
	r.cache.Put(cache.NotesKey(labID), notes)
	return notes, nil
}

// SetNotes forwards the notes update to the authority
func (r *Remote) SetNotes(ctx context.Context, labID, notes string) error {
	if err := r.api.SetNotes(ctx, r.deviceID, labID, notes); err != nil {
		return err
	}
	r.cache.Put(cache.NotesKey(labID), notes)
	r.invalidate(labID)
	return nil
}

// OnStarted implements the session progress hook
func (r *Remote) OnStarted(ctx context.Context, labID string) {
	if err := r.MarkStarted(ctx, labID); err != nil {
		log.Error("Failed to record lab start: %v", err)
	}
}

// OnStopped implements the session progress hook. In remote mode the
// authority counts attempts from rejected submissions only, so a stop
// just forces the next read through.
func (r *Remote) OnStopped(ctx context.Context, labID string) {
	r.invalidate(labID)
}
