// Package session owns the lab lifecycle state machine, the global
// transient operation and the persisted runtime lock. It is the only
// writer of both; everything else observes them through notifications.
package session

import (
	"context"
	"errors"
	"sync"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/log"
)

// Op is the transient lifecycle state of the single active slot
type Op string

// Lifecycle states. stopped is the idle state; starting, stopping and
// resetting are mid-transition; running means a lab owns the slot.
const (
	OpStopped   Op = "stopped"
	OpStarting  Op = "starting"
	OpRunning   Op = "running"
	OpStopping  Op = "stopping"
	OpResetting Op = "resetting"
)

// ErrAlreadyRunning is returned when starting a lab that already owns
// the active slot.
var ErrAlreadyRunning = errors.New("lab is already running")

// Launcher runs environment operations. Implemented by runner.Runner.
type Launcher interface {
	Up(ctx context.Context, l *lab.Lab) (string, error)
	Down(ctx context.Context, l *lab.Lab) (string, error)
	Precheck(ctx context.Context, l *lab.Lab) error
	ProjectRunning(ctx context.Context, project string) (bool, error)
}

// LockStore persists the runtime lock value. Implemented by store.Store.
type LockStore interface {
	ActiveLab() (string, error)
	SetActiveLab(labID string) error
}

// ProgressHook receives lifecycle outcomes. The progress mode decides
// what each one means (e.g. whether a stop without a solve counts as
// an attempt).
type ProgressHook interface {
	OnStarted(ctx context.Context, labID string)
	OnStopped(ctx context.Context, labID string)
}

// Resolver maps a lab id to its descriptor. Implemented by lab.Registry.
type Resolver interface {
	Get(id string) (*lab.Lab, error)
}

// Manager is the lab session state machine
type Manager struct {
	mu    sync.Mutex
	op    Op
	opLab string

	launcher Launcher
	lock     LockStore
	hook     ProgressHook
	resolver Resolver
	notifier *notify.Notifier
}

// NewManager creates a session manager in the stopped state
func NewManager(launcher Launcher, lock LockStore, hook ProgressHook, resolver Resolver, notifier *notify.Notifier) *Manager {
	return &Manager{
		op:       OpStopped,
		launcher: launcher,
		lock:     lock,
		hook:     hook,
		resolver: resolver,
		notifier: notifier,
	}
}

// Current returns the transient op and the lab it applies to
func (m *Manager) Current() (Op, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.op, m.opLab
}

// ActiveLab returns the persisted runtime lock value
func (m *Manager) ActiveLab() (string, error) {
	return m.lock.ActiveLab()
}

// begin atomically claims the global transient op. A request while any
// op is outstanding is rejected immediately, never queued.
func (m *Manager) begin(op Op, labID string, allowRunningSelf bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.op {
	case OpStopped:
	case OpRunning:
		if m.opLab == labID {
			if !allowRunningSelf {
				return ErrAlreadyRunning
			}
		} else if op != OpStopping {
			// stop may target any lab to recover from a stuck state
			return wverrors.Wrapf(wverrors.ErrAnotherLabBusy, "%s is running", m.opLab)
		}
	default:
		if m.opLab == labID {
			return wverrors.Wrapf(wverrors.ErrExecutorBusy, "%s is %s", m.opLab, m.op)
		}
		return wverrors.Wrapf(wverrors.ErrAnotherLabBusy, "%s is %s", m.opLab, m.op)
	}

	m.op = op
	m.opLab = labID
	return nil
}

// finish moves the machine to a terminal-or-rest state and notifies
func (m *Manager) finish(op Op, labID string) {
	m.mu.Lock()
	m.op = op
	m.opLab = labID
	m.mu.Unlock()
	m.emitOp(op, labID)
}

// emitOp is called outside m.mu so handlers may read Manager state
func (m *Manager) emitOp(op Op, labID string) {
	m.notifier.Emit(notify.Event{Kind: notify.KindTransientOp, Op: string(op), LabID: labID})
}

// setLock persists the lock and emits an active-lab change when the
// value actually changed.
func (m *Manager) setLock(labID string) error {
	prev, err := m.lock.ActiveLab()
	if err != nil {
		return err
	}
	if prev == labID {
		return nil
	}
	if err := m.lock.SetActiveLab(labID); err != nil {
		return err
	}
	m.notifier.Emit(notify.Event{Kind: notify.KindActiveLab, LabID: labID})
	return nil
}

// Start brings a lab up. Allowed only when no transient op is
// outstanding and the runtime lock is empty or already owned by this
// lab. The combined compose output is returned for diagnostics.
func (m *Manager) Start(ctx context.Context, l *lab.Lab) (string, error) {
	active, err := m.lock.ActiveLab()
	if err != nil {
		return "", err
	}
	if active != "" && active != l.ID {
		return "", wverrors.Wrapf(wverrors.ErrAnotherLabBusy, "%s holds the runtime lock", active)
	}

	if err := m.begin(OpStarting, l.ID, false); err != nil {
		return "", err
	}
	m.emitOp(OpStarting, l.ID)

	// Fail fast before burning a long bring-up on an unwinnable
	// precondition.
	if err := m.launcher.Precheck(ctx, l); err != nil {
		m.finish(OpStopped, "")
		return "", err
	}

	// Speculative lock claim; released again if bring-up fails.
	if err := m.setLock(l.ID); err != nil {
		m.finish(OpStopped, "")
		return "", err
	}

	output, err := m.launcher.Up(ctx, l)
	if err != nil {
		// Roll back to the pre-start value: the claim above was a
		// no-op when this lab already held the lock.
		if lerr := m.setLock(active); lerr != nil {
			log.Error("Failed to release runtime lock: %v", lerr)
		}
		m.finish(OpStopped, "")
		return output, err
	}

	m.hook.OnStarted(ctx, l.ID)
	m.finish(OpRunning, l.ID)
	return output, nil
}

// Stop tears a lab down. Allowed regardless of which lab is running so
// a stuck environment can always be recovered. The lock is cleared and
// the op returns to stopped even when tear-down reports failure; the
// failure is still surfaced to the caller. The progress hook fires
// only when the stopped lab actually owned the session, so a recovery
// stop of some other lab stays invisible to progress.
func (m *Manager) Stop(ctx context.Context, l *lab.Lab) (string, error) {
	owner, err := m.lock.ActiveLab()
	if err != nil {
		return "", err
	}
	op, opLab := m.Current()
	owned := owner == l.ID || (op != OpStopped && opLab == l.ID)

	if err := m.begin(OpStopping, l.ID, true); err != nil {
		return "", err
	}
	m.emitOp(OpStopping, l.ID)

	output, err := m.launcher.Down(ctx, l)

	if lerr := m.setLock(""); lerr != nil {
		log.Error("Failed to release runtime lock: %v", lerr)
	}
	if owned {
		m.hook.OnStopped(ctx, l.ID)
	}
	m.finish(OpStopped, "")

	return output, err
}

// Reset cycles a lab (tear-down then bring-up) as a single visible
// resetting op. Observers never see an intermediate stopped state, and
// the runtime lock is held for the whole cycle so no other lab can
// start mid-reset.
func (m *Manager) Reset(ctx context.Context, l *lab.Lab) (string, error) {
	active, err := m.lock.ActiveLab()
	if err != nil {
		return "", err
	}
	if active != "" && active != l.ID {
		return "", wverrors.Wrapf(wverrors.ErrAnotherLabBusy, "%s holds the runtime lock", active)
	}

	if err := m.begin(OpResetting, l.ID, true); err != nil {
		return "", err
	}
	m.emitOp(OpResetting, l.ID)

	if err := m.setLock(l.ID); err != nil {
		m.finish(OpStopped, "")
		return "", err
	}

	downOut, err := m.launcher.Down(ctx, l)
	if err != nil {
		if lerr := m.setLock(""); lerr != nil {
			log.Error("Failed to release runtime lock: %v", lerr)
		}
		m.finish(OpStopped, "")
		return downOut, err
	}

	upOut, err := m.launcher.Up(ctx, l)
	if err != nil {
		if lerr := m.setLock(""); lerr != nil {
			log.Error("Failed to release runtime lock: %v", lerr)
		}
		m.finish(OpStopped, "")
		return downOut + upOut, err
	}

	m.hook.OnStarted(ctx, l.ID)
	m.finish(OpRunning, l.ID)
	return downOut + upOut, nil
}

// Reconcile verifies the persisted lock against the actual state of
// the outside world. A lock pointing at a dead environment (crash or
// forced shutdown) is cleared with exactly one change notification; a
// verified lock adopts the running state without emitting transitions.
func (m *Manager) Reconcile(ctx context.Context) error {
	active, err := m.lock.ActiveLab()
	if err != nil {
		return err
	}
	if active == "" {
		return nil
	}

	l, err := m.resolver.Get(active)
	if err == nil {
		running, perr := m.launcher.ProjectRunning(ctx, l.Project())
		if perr != nil {
			// Cannot verify; never trust the lock alone as proof of
			// liveness, but do not destroy it on a transient probe
			// failure either.
			return perr
		}
		if running {
			m.mu.Lock()
			m.op = OpRunning
			m.opLab = active
			m.mu.Unlock()
			return nil
		}
	}

	log.Debug("Runtime lock claims %s but nothing is running; clearing", active)
	if err := m.lock.SetActiveLab(""); err != nil {
		return err
	}
	m.notifier.Emit(notify.Event{Kind: notify.KindActiveLab, LabID: ""})
	return nil
}
