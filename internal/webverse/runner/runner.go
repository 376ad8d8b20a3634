// Package runner executes docker compose operations for labs: bring-up,
// tear-down and log retrieval. All operations capture combined output and
// report it to the caller whether or not the command succeeded.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/log"
)

// Operation timeouts. Bring-up includes image builds so it gets the
// long budget; tear-down and log fetches are capped much lower.
const (
	UpTimeout   = 10 * time.Minute
	DownTimeout = 3 * time.Minute
	LogsTimeout = 2 * time.Minute
)

// Runner executes compose operations. A second concurrent request for
// the same compose project is rejected immediately rather than queued.
type Runner struct {
	mu      sync.Mutex
	busy    map[string]bool
	compose []string
	lookup  func(string) (string, error)
}

// New creates a runner
func New() *Runner {
	return &Runner{
		busy:   map[string]bool{},
		lookup: exec.LookPath,
	}
}

// composeCmd returns the compose invocation, preferring Compose v2
// ("docker compose") and falling back to the standalone docker-compose.
func (r *Runner) composeCmd(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	cached := r.compose
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	if err := exec.CommandContext(ctx, "docker", "compose", "version").Run(); err == nil {
		r.setCompose([]string{"docker", "compose"})
		return []string{"docker", "compose"}, nil
	}
	if _, err := r.lookup("docker-compose"); err == nil {
		r.setCompose([]string{"docker-compose"})
		return []string{"docker-compose"}, nil
	}
	return nil, fmt.Errorf("docker compose not found: install Docker Desktop or docker-compose")
}

func (r *Runner) setCompose(cmd []string) {
	r.mu.Lock()
	r.compose = cmd
	r.mu.Unlock()
}

// acquire marks project busy; reports false if an operation is
// already in flight for it.
func (r *Runner) acquire(project string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy[project] {
		return false
	}
	r.busy[project] = true
	return true
}

func (r *Runner) release(project string) {
	r.mu.Lock()
	delete(r.busy, project)
	r.mu.Unlock()
}

// Up brings the lab environment up. The combined output is returned
// even on failure so callers can surface diagnostics.
func (r *Runner) Up(ctx context.Context, l *lab.Lab) (string, error) {
	return r.run(ctx, l, UpTimeout,
		"up", "-d", "--build", "--remove-orphans")
}

// Down tears the lab environment down, removing volumes for a clean slate
func (r *Runner) Down(ctx context.Context, l *lab.Lab) (string, error) {
	return r.run(ctx, l, DownTimeout,
		"down", "-v", "--remove-orphans")
}

// Logs fetches recent combined service logs for the lab
func (r *Runner) Logs(ctx context.Context, l *lab.Lab, tail int) (string, error) {
	return r.run(ctx, l, LogsTimeout,
		"logs", "--no-color", "--tail", fmt.Sprintf("%d", tail))
}

func (r *Runner) run(ctx context.Context, l *lab.Lab, timeout time.Duration, args ...string) (string, error) {
	project := l.Project()
	if !r.acquire(project) {
		return "", wverrors.Wrapf(wverrors.ErrExecutorBusy, "%s", l.ID)
	}
	defer r.release(project)

	compose, err := r.composeCmd(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := append([]string{}, compose[1:]...)
	full = append(full, "-p", project, "-f", l.ComposePath())
	full = append(full, args...)

	log.Debug("Running %s %v (cwd %s)", compose[0], full, l.Dir)

	//nolint:gosec // G204: compose invocations against lab definitions are intentional
	cmd := exec.CommandContext(ctx, compose[0], full...)
	cmd.Dir = l.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		// Timeouts, launch failures and non-zero exits all fold into
		// the same failure shape; output is never swallowed.
		return out.String(), fmt.Errorf("%s %s failed: %w", compose[0], args[0], err)
	}
	return out.String(), nil
}
