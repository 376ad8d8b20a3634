package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/webverselabs/webverse/internal/webverse/cache"
)

type fakeChecker struct {
	linked bool
	err    error
	calls  int
}

func (f *fakeChecker) DeviceLinked(_ context.Context, _ string) (bool, error) {
	f.calls++
	return f.linked, f.err
}

type fakeCreds struct {
	authed bool
}

func (f *fakeCreds) Authenticated() bool { return f.authed }

func TestLocked_Matrix(t *testing.T) {
	tests := []struct {
		name   string
		linked bool
		authed bool
		want   bool
	}{
		{"unlinked anonymous", false, false, false},
		{"unlinked authenticated", false, true, false},
		{"linked authenticated", true, true, false},
		{"linked logged out", true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(&fakeChecker{linked: tt.linked}, &fakeCreds{authed: tt.authed}, cache.New(), "dev")
			if got := g.Locked(context.Background()); got != tt.want {
				t.Errorf("Locked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinked_FailsOpenOnNetworkError(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	g := New(checker, &fakeCreds{}, cache.New(), "dev")

	if g.Linked(context.Background()) {
		t.Error("Connectivity failure must fail open (unlinked)")
	}
	if g.Locked(context.Background()) {
		t.Error("An offline device must never be locked out")
	}

	// The failure must not be cached as an answer
	checker.err = nil
	checker.linked = true
	if !g.Linked(context.Background()) {
		t.Error("Recovered check should see the linked state")
	}
}

func TestLinked_CachesResult(t *testing.T) {
	checker := &fakeChecker{linked: true}
	g := New(checker, &fakeCreds{}, cache.New(), "dev")

	g.Linked(context.Background())
	g.Linked(context.Background())
	if checker.calls != 1 {
		t.Errorf("Expected one server check, got %d", checker.calls)
	}

	g.LinkedForce(context.Background())
	if checker.calls != 2 {
		t.Errorf("Forced check must bypass the cache, got %d calls", checker.calls)
	}
}

func TestLocked_AuthenticatedSkipsServerCheck(t *testing.T) {
	checker := &fakeChecker{linked: true}
	g := New(checker, &fakeCreds{authed: true}, cache.New(), "dev")

	if g.Locked(context.Background()) {
		t.Error("Authenticated device is never locked")
	}
	if checker.calls != 0 {
		t.Errorf("Authenticated path needs no linkage check, got %d calls", checker.calls)
	}
}
