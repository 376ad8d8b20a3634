package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "webverse.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_SeedsDeviceIdentityOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webverse.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	first, err := s.DeviceID()
	if err != nil {
		t.Fatalf("DeviceID() failed: %v", err)
	}
	if first == "" {
		t.Fatal("Device identity should be seeded on first open")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: the identity must survive and never regenerate
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = s2.Close() }()

	second, err := s2.DeviceID()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Device identity changed across reopen: %s != %s", first, second)
	}
}

func TestActiveLab_SetAndClear(t *testing.T) {
	s := openTestStore(t)

	active, err := s.ActiveLab()
	if err != nil || active != "" {
		t.Fatalf("Fresh store should have no active lab, got %q/%v", active, err)
	}

	if err := s.SetActiveLab("alpha"); err != nil {
		t.Fatal(err)
	}
	active, _ = s.ActiveLab()
	if active != "alpha" {
		t.Errorf("Expected alpha, got %q", active)
	}

	if err := s.SetActiveLab(""); err != nil {
		t.Fatal(err)
	}
	active, _ = s.ActiveLab()
	if active != "" {
		t.Errorf("Expected cleared lock, got %q", active)
	}
}

func TestMarkStarted_OverwritesStartTime(t *testing.T) {
	s := openTestStore(t)

	if err := s.MarkStarted("alpha"); err != nil {
		t.Fatal(err)
	}
	rows, err := s.ProgressMap()
	if err != nil {
		t.Fatal(err)
	}
	first := rows["alpha"].StartedAt
	if first == "" {
		t.Fatal("started_at should be set")
	}

	// Second start overwrites; the row must still be a single record
	if err := s.MarkStarted("alpha"); err != nil {
		t.Fatal(err)
	}
	rows, _ = s.ProgressMap()
	if len(rows) != 1 {
		t.Errorf("Expected one row, got %d", len(rows))
	}
	if rows["alpha"].StartedAt == "" {
		t.Error("started_at should remain set after restart")
	}
}

func TestMarkSolved_FirstWriteWins(t *testing.T) {
	s := openTestStore(t)

	if err := s.MarkSolved("alpha"); err != nil {
		t.Fatal(err)
	}
	rows, _ := s.ProgressMap()
	first := rows["alpha"].SolvedAt
	if first == "" {
		t.Fatal("solved_at should be set")
	}

	if err := s.MarkSolved("alpha"); err != nil {
		t.Fatal(err)
	}
	rows, _ = s.ProgressMap()
	if rows["alpha"].SolvedAt != first {
		t.Errorf("solved_at must keep the first value: %s != %s", rows["alpha"].SolvedAt, first)
	}
}

func TestMarkAttempt_MonotonicCounter(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.MarkAttempt("alpha"); err != nil {
			t.Fatal(err)
		}
	}
	rows, _ := s.ProgressMap()
	if rows["alpha"].Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", rows["alpha"].Attempts)
	}
	if rows["alpha"].LastAttemptAt == "" {
		t.Error("last_attempt_at should be stamped")
	}
}

func TestNotes_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	notes, err := s.Notes("alpha")
	if err != nil || notes != "" {
		t.Fatalf("Missing row should read as empty notes, got %q/%v", notes, err)
	}

	if err := s.SetNotes("alpha", "union-based, 3 columns"); err != nil {
		t.Fatal(err)
	}
	notes, _ = s.Notes("alpha")
	if notes != "union-based, 3 columns" {
		t.Errorf("Unexpected notes: %q", notes)
	}

	// Notes live alongside progress in the same row
	if err := s.MarkSolved("alpha"); err != nil {
		t.Fatal(err)
	}
	notes, _ = s.Notes("alpha")
	if notes != "union-based, 3 columns" {
		t.Errorf("Notes lost after progress write: %q", notes)
	}
}

func TestProgressMap_MultipleLabs(t *testing.T) {
	s := openTestStore(t)

	if err := s.MarkStarted("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkAttempt("beta"); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ProgressMap()
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]int{}
	for id, r := range rows {
		got[id] = r.Attempts
	}
	want := map[string]int{"alpha": 0, "beta": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProgressMap mismatch (-want +got):\n%s", diff)
	}
}

func TestFirstSeenSent_Marker(t *testing.T) {
	s := openTestStore(t)

	sent, err := s.FirstSeenSent()
	if err != nil || sent {
		t.Fatalf("Fresh device should not have sent first-seen, got %v/%v", sent, err)
	}
	if err := s.SetFirstSeenSent(true); err != nil {
		t.Fatal(err)
	}
	sent, _ = s.FirstSeenSent()
	if !sent {
		t.Error("first_seen_sent should persist")
	}
}
