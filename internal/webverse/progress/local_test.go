package progress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/webverse/store"
)

func newLocalForTest(t *testing.T) (*Local, *cache.Cache, *notify.Notifier) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "webverse.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	c := cache.New()
	n := notify.New()
	return NewLocal(s, c, n), c, n
}

func flagLab(id, flag string) *lab.Lab {
	sum := sha256.Sum256([]byte(flag))
	return &lab.Lab{ID: id, Name: id, FlagSHA256: hex.EncodeToString(sum[:])}
}

func TestLocal_MarkStartedVisibleThroughMap(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	if err := l.MarkStarted(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	m, err := l.Map(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m["alpha"].StartedAt == "" {
		t.Error("started_at should be visible after MarkStarted")
	}
}

func TestLocal_WriteInvalidatesCachedRead(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	// Prime the cache with the empty view
	if _, err := l.Map(ctx); err != nil {
		t.Fatal(err)
	}

	if err := l.MarkAttempt(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	// The very next read must see the write, not the cached view
	m, err := l.Map(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m["alpha"].Attempts != 1 {
		t.Errorf("Read after write must be fresh, got %d attempts", m["alpha"].Attempts)
	}
}

func TestLocal_WriteEmitsProgressNotification(t *testing.T) {
	l, _, n := newLocalForTest(t)

	var events []notify.Event
	n.Subscribe(func(e notify.Event) { events = append(events, e) })

	if err := l.MarkSolved(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != notify.KindProgress || events[0].LabID != "alpha" {
		t.Errorf("Expected one progress notification for alpha, got %v", events)
	}
}

func TestLocal_SubmitFlag_Correct(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()
	target := flagLab("alpha", "WV{correct}")

	ok, reason, err := l.SubmitFlag(ctx, target, "WV{correct}")
	if err != nil || !ok {
		t.Fatalf("SubmitFlag() = %v/%q/%v, want accepted", ok, reason, err)
	}

	m, _ := l.Map(ctx)
	if !m["alpha"].Solved() {
		t.Error("Lab should be solved after a correct flag")
	}
	if m["alpha"].Attempts != 0 {
		t.Errorf("A correct flag is not an attempt, got %d", m["alpha"].Attempts)
	}
}

func TestLocal_SubmitFlag_RejectedCountsAttempt(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()
	target := flagLab("alpha", "WV{correct}")

	ok, reason, err := l.SubmitFlag(ctx, target, "WV{wrong}")
	if err != nil {
		t.Fatal(err)
	}
	if ok || reason == "" {
		t.Fatalf("Wrong flag should be rejected with a reason, got %v/%q", ok, reason)
	}

	m, _ := l.Map(ctx)
	if m["alpha"].Attempts != 1 {
		t.Errorf("Rejected flag counts one attempt, got %d", m["alpha"].Attempts)
	}
}

func TestLocal_SubmitFlag_SolveIsFirstWriteWins(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()
	target := flagLab("alpha", "WV{correct}")

	if ok, _, err := l.SubmitFlag(ctx, target, "WV{correct}"); err != nil || !ok {
		t.Fatal("first solve failed")
	}
	m, _ := l.Map(ctx)
	first := m["alpha"].SolvedAt

	if ok, _, err := l.SubmitFlag(ctx, target, "WV{correct}"); err != nil || !ok {
		t.Fatal("second solve failed")
	}
	m, _ = l.Map(ctx)
	if m["alpha"].SolvedAt != first {
		t.Errorf("solved_at must keep the first value: %s != %s", m["alpha"].SolvedAt, first)
	}
}

func TestLocal_SubmitFlag_TrimsWhitespace(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	target := flagLab("alpha", "WV{correct}")

	ok, _, err := l.SubmitFlag(context.Background(), target, "  WV{correct}\n")
	if err != nil || !ok {
		t.Errorf("Surrounding whitespace should be ignored, got %v/%v", ok, err)
	}
}

func TestLocal_SubmitFlag_NoManifestHash(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	target := &lab.Lab{ID: "alpha"}

	if _, _, err := l.SubmitFlag(context.Background(), target, "WV{x}"); err == nil {
		t.Error("Missing manifest hash must be an error, not a rejection")
	}
}

func TestLocal_OnStoppedCountsAttemptWithoutSolve(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	l.OnStarted(ctx, "alpha")
	l.OnStopped(ctx, "alpha")

	m, _ := l.Map(ctx)
	if m["alpha"].Attempts != 1 {
		t.Errorf("Stop without solve counts one attempt, got %d", m["alpha"].Attempts)
	}
}

func TestLocal_OnStoppedAfterSolveIsFree(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	l.OnStarted(ctx, "alpha")
	if err := l.MarkSolved(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	l.OnStopped(ctx, "alpha")

	m, _ := l.Map(ctx)
	if m["alpha"].Attempts != 0 {
		t.Errorf("Stop after solve is not an attempt, got %d", m["alpha"].Attempts)
	}
}

func TestLocal_OnStoppedNeverStartedIsFree(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	l.OnStopped(ctx, "alpha")

	m, _ := l.Map(ctx)
	if m["alpha"].Attempts != 0 {
		t.Errorf("Stop of a never-started lab is not an attempt, got %d", m["alpha"].Attempts)
	}
}

func TestLocal_SummaryAggregates(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	if err := l.MarkStarted(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkSolved(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkStarted(ctx, "beta"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkAttempt(ctx, "beta"); err != nil {
		t.Fatal(err)
	}

	s, err := l.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Started != 2 || s.Solved != 1 || s.Attempts != 1 {
		t.Errorf("Summary = %+v, want 2 started / 1 solved / 1 attempt", s)
	}
}

func TestLocal_NotesRoundTrip(t *testing.T) {
	l, _, _ := newLocalForTest(t)
	ctx := context.Background()

	if err := l.SetNotes(ctx, "alpha", "check the cookie"); err != nil {
		t.Fatal(err)
	}
	notes, err := l.Notes(ctx, "alpha")
	if err != nil || notes != "check the cookie" {
		t.Errorf("Notes() = %q/%v", notes, err)
	}
}
