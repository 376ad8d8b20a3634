package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/webverse/telemetry"
)

// authorityStub mimics the remote authority with a mutable progress view
type authorityStub struct {
	mu            sync.Mutex
	blob          api.ProgressBlob
	progressReads int
	submitOK      bool
	submitError   string

	// solveAfterReads makes the solve visible only after N progress
	// reads, mimicking asynchronous effect application.
	solveAfterReads int
	solveLab        string
}

func (s *authorityStub) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/progress/device/dev-1", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		s.progressReads++
		if s.solveLab != "" && s.progressReads >= s.solveAfterReads {
			row := s.blob.Progress[s.solveLab]
			row.SolvedAt = "2026-08-24T10:00:00Z"
			s.blob.Progress[s.solveLab] = row
		}
		blob := s.blob
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(blob)
	})
	mux.HandleFunc("/v1/labs/submit-flag", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		res := api.SubmitResult{OK: s.submitOK, Error: s.submitError}
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("/v1/telemetry", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/notes/device/dev-1/alpha", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"notes": "from endpoint"}`))
	})
	return mux
}

func (s *authorityStub) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressReads
}

func newRemoteForTest(t *testing.T, stub *authorityStub, locked bool) *Remote {
	t.Helper()
	if stub.blob.Progress == nil {
		stub.blob.Progress = map[string]api.ProgressRow{}
	}
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	client := api.New(server.URL, nil, nil)
	reporter := telemetry.New(client, "dev-1")
	t.Cleanup(reporter.Flush)

	return NewRemote(client, reporter, cache.New(), notify.New(), "dev-1",
		func(context.Context) bool { return locked })
}

func TestRemote_MapServedFromCache(t *testing.T) {
	stub := &authorityStub{blob: api.ProgressBlob{
		Progress: map[string]api.ProgressRow{"alpha": {StartedAt: "2026-08-24T09:00:00Z"}},
	}}
	r := newRemoteForTest(t, stub, false)
	ctx := context.Background()

	if _, err := r.Map(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Map(ctx); err != nil {
		t.Fatal(err)
	}
	if stub.reads() != 1 {
		t.Errorf("Second read within TTL must hit the cache, got %d fetches", stub.reads())
	}

	if _, err := r.MapForce(ctx); err != nil {
		t.Fatal(err)
	}
	if stub.reads() != 2 {
		t.Errorf("Forced read must bypass the cache, got %d fetches", stub.reads())
	}
}

func TestRemote_LockedDeviceReadsEmpty(t *testing.T) {
	stub := &authorityStub{blob: api.ProgressBlob{
		Progress: map[string]api.ProgressRow{"alpha": {SolvedAt: "2026-08-24T09:00:00Z"}},
	}}
	r := newRemoteForTest(t, stub, true)

	m, err := r.Map(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 0 {
		t.Errorf("Locked device must not see personal progress, got %v", m)
	}
	if stub.reads() != 0 {
		t.Errorf("Locked device must not fetch the blob, got %d fetches", stub.reads())
	}
}

func TestRemote_SubmitFlag_ConvergesOnSolve(t *testing.T) {
	stub := &authorityStub{
		blob:            api.ProgressBlob{Progress: map[string]api.ProgressRow{"alpha": {}}},
		submitOK:        true,
		solveLab:        "alpha",
		solveAfterReads: 2,
	}
	r := newRemoteForTest(t, stub, false)

	ok, _, err := r.SubmitFlag(context.Background(), &lab.Lab{ID: "alpha"}, "WV{x}")
	if err != nil || !ok {
		t.Fatalf("SubmitFlag() = %v/%v, want accepted", ok, err)
	}

	// Convergence polling kept forcing reads until the solve appeared
	if stub.reads() < 2 {
		t.Errorf("Expected at least 2 forced reads, got %d", stub.reads())
	}

	m, err := r.MapForce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !m["alpha"].Solved() {
		t.Error("Solve should be visible after convergence")
	}
}

func TestRemote_SubmitFlag_RejectedCountsAttempt(t *testing.T) {
	stub := &authorityStub{submitOK: false, submitError: "wrong flag"}
	r := newRemoteForTest(t, stub, false)

	ok, reason, err := r.SubmitFlag(context.Background(), &lab.Lab{ID: "alpha"}, "WV{x}")
	if err != nil {
		t.Fatal(err)
	}
	if ok || reason != "wrong flag" {
		t.Errorf("Expected rejection with the server reason, got %v/%q", ok, reason)
	}
}

func TestRemote_NotesPrefersBlob(t *testing.T) {
	stub := &authorityStub{blob: api.ProgressBlob{
		Progress: map[string]api.ProgressRow{"alpha": {Notes: "from blob"}},
	}}
	r := newRemoteForTest(t, stub, false)

	notes, err := r.Notes(context.Background(), "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if notes != "from blob" {
		t.Errorf("Notes() = %q, want the blob value", notes)
	}
}

func TestRemote_NotesFallsBackToEndpoint(t *testing.T) {
	stub := &authorityStub{}
	r := newRemoteForTest(t, stub, false)

	notes, err := r.Notes(context.Background(), "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if notes != "from endpoint" {
		t.Errorf("Notes() = %q, want the endpoint value", notes)
	}
}
