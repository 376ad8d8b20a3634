// Package labwatch keeps the lab registry in sync with on-disk
// manifest changes while a long-lived command is running.
package labwatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/webverselabs/webverse/internal/log"
)

// debounceWindow coalesces bursts of events into one refresh.
// Installers and editors touch several files per lab in quick
// succession.
const debounceWindow = 400 * time.Millisecond

// Watcher watches lab directories and triggers a refresh callback
type Watcher struct {
	dirs    []string
	refresh func()
	fw      *fsnotify.Watcher
}

// New creates a watcher over the given lab directories. Missing
// directories are skipped silently so first-run setups work.
func New(dirs []string, refresh func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{dirs: dirs, refresh: refresh, fw: fw}
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			log.Debug("Skipping watch dir %s: %v", dir, err)
		}
	}
	return w, nil
}

// addTree watches dir and its immediate lab subdirectories. Manifests
// live at most one level deep, so deeper nesting is not watched.
func (w *Watcher) addTree(dir string) error {
	if err := w.fw.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.fw.Add(filepath.Join(dir, e.Name())); err != nil {
				log.Debug("Failed to watch %s: %v", filepath.Join(dir, e.Name()), err)
			}
		}
	}
	return nil
}

// relevant reports whether the event should trigger a refresh
func relevant(ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	if base == "lab.yml" || base == "lab.yaml" {
		return true
	}
	// New or removed lab directory under a watched root
	if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		return !strings.HasPrefix(base, ".")
	}
	return false
}

// Run processes events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			log.Debug("Lab change detected: %s (%s)", ev.Name, ev.Op.String())

			// A freshly created lab directory needs its own watch
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.fw.Add(ev.Name); err != nil {
						log.Debug("Failed to watch %s: %v", ev.Name, err)
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.refresh()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Error("Lab watcher error: %v", err)
		}
	}
}
