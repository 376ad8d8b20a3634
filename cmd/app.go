package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/webverselabs/webverse/internal/log"
	"github.com/webverselabs/webverse/internal/webverse/api"
	"github.com/webverselabs/webverse/internal/webverse/cache"
	"github.com/webverselabs/webverse/internal/webverse/creds"
	"github.com/webverselabs/webverse/internal/webverse/gate"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/webverse/notify"
	"github.com/webverselabs/webverse/internal/webverse/progress"
	"github.com/webverselabs/webverse/internal/webverse/runner"
	"github.com/webverselabs/webverse/internal/webverse/session"
	"github.com/webverselabs/webverse/internal/webverse/store"
	"github.com/webverselabs/webverse/internal/webverse/telemetry"
)

// progressMode is the full per-mode progress surface: the shared store
// contract, flag verification, and the session lifecycle hooks.
type progressMode interface {
	progress.Store
	progress.Solver
	session.ProgressHook
}

// app wires the long-lived components behind every command
type app struct {
	dataDir  string
	deviceID string
	remote   bool

	store    *store.Store
	cache    *cache.Cache
	notifier *notify.Notifier
	creds    *creds.Store
	api      *api.Client
	gate     *gate.Gate
	reporter *telemetry.Reporter
	registry *lab.Registry
	runner   *runner.Runner
	session  *session.Manager
	progress progressMode
}

// dataDir resolves the per-user state directory
func dataDir() string {
	if v := strings.TrimSpace(os.Getenv("WEBVERSE_DATA_DIR")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webverse"
	}
	return filepath.Join(home, ".webverse")
}

// labDirs returns the manifest search path: a labs/ directory next to
// the invocation first, then the user install directory. First claim
// of an id wins, so local checkouts shadow installed bundles.
func labDirs(dataDir string) []string {
	dirs := []string{}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(cwd, "labs"))
	}
	if v := strings.TrimSpace(os.Getenv("WEBVERSE_LABS_DIR")); v != "" {
		dirs = append(dirs, v)
	} else {
		dirs = append(dirs, filepath.Join(dataDir, "labs"))
	}
	return dirs
}

// remoteMode reports whether progress lives at the remote authority
func remoteMode() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("WEBVERSE_MODE")), "remote")
}

// newApp assembles the application. The runtime lock is reconciled
// against docker before the first command logic runs.
func newApp(ctx context.Context) (*app, error) {
	a := &app{
		dataDir:  dataDir(),
		remote:   remoteMode(),
		cache:    cache.New(),
		notifier: notify.New(),
		runner:   runner.New(),
	}

	s, err := store.Open(filepath.Join(a.dataDir, "webverse.db"))
	if err != nil {
		return nil, err
	}
	a.store = s

	a.deviceID, err = s.DeviceID()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	a.creds = creds.New(a.dataDir)
	a.api = api.New(api.BaseURL(), a.creds.Token, func() {
		// Stale token: drop the credential and every cached view of the
		// old identity.
		if err := a.creds.Clear(); err != nil {
			log.Debug("Failed to clear stale credential: %v", err)
		}
		a.cache.InvalidateAll()
		a.notifier.Emit(notify.Event{Kind: notify.KindAuth})
	})
	a.gate = gate.New(a.api, a.creds, a.cache, a.deviceID)
	a.reporter = telemetry.New(a.api, a.deviceID)

	a.registry = lab.NewRegistry(labDirs(a.dataDir)...)
	if err := a.registry.Refresh(); err != nil {
		_ = s.Close()
		return nil, err
	}

	if a.remote {
		a.progress = progress.NewRemote(a.api, a.reporter, a.cache, a.notifier, a.deviceID,
			func(ctx context.Context) bool { return a.gate.Locked(ctx) })
	} else {
		a.progress = progress.NewLocal(s, a.cache, a.notifier)
	}

	a.session = session.NewManager(a.runner, s, a.progress, a.registry, a.notifier)
	if err := a.session.Reconcile(ctx); err != nil {
		log.Debug("Runtime lock reconciliation failed: %v", err)
	}

	if a.remote {
		a.reporter.EmitFirstSeen(s)
	}

	return a, nil
}

// close flushes telemetry and releases the database
func (a *app) close() {
	a.reporter.Flush()
	if err := a.store.Close(); err != nil {
		log.Debug("Failed to close store: %v", err)
	}
}

// mustApp builds the app or exits
func mustApp(ctx context.Context) *app {
	a, err := newApp(ctx)
	if err != nil {
		log.Error("Initialization failed: %v", err)
		os.Exit(1)
	}
	return a
}

// resolveLab maps an id argument to a descriptor or exits
func (a *app) resolveLab(id string) *lab.Lab {
	l, err := a.registry.Get(id)
	if err != nil {
		log.Error("Unknown lab %q. Run 'webverse list' to see installed labs.", id)
		a.close()
		os.Exit(1)
	}
	return l
}

// activeLabArg resolves the lab a stop-like command targets: the
// explicit argument when given, otherwise the current lock holder.
func (a *app) activeLabArg(args []string) *lab.Lab {
	if len(args) > 0 {
		return a.resolveLab(args[0])
	}
	active, err := a.session.ActiveLab()
	if err != nil {
		log.Error("Failed to read runtime lock: %v", err)
		a.close()
		os.Exit(1)
	}
	if active == "" {
		log.Error("No lab is active")
		a.close()
		os.Exit(1)
	}
	return a.resolveLab(active)
}
