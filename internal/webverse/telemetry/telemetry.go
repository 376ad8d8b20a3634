// Package telemetry emits fire-and-forget anonymous usage events.
// Events never block the caller, never carry flags or notes content,
// and failures are never surfaced.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/webverselabs/webverse/internal/log"
)

// Event names understood by the authority
const (
	EventLabStarted   = "lab_started"
	EventLabAttempt   = "lab_attempt"
	EventLabSolved    = "lab_solved"
	EventAppFirstSeen = "app_first_seen"
	EventAppClosed    = "last_closed_app"
)

const sendTimeout = 6 * time.Second

// Sender posts one event. Implemented by api.Client.
type Sender interface {
	SendEvent(ctx context.Context, deviceID, name string, props map[string]string) error
}

// FirstSeenMarker tracks whether the first-run event was sent.
// Implemented by store.Store.
type FirstSeenMarker interface {
	FirstSeenSent() (bool, error)
	SetFirstSeenSent(sent bool) error
}

// Reporter emits events for one device
type Reporter struct {
	sender   Sender
	deviceID string
	wg       sync.WaitGroup
}

// New creates a reporter
func New(sender Sender, deviceID string) *Reporter {
	return &Reporter{sender: sender, deviceID: deviceID}
}

// Emit sends an event in the background
func (r *Reporter) Emit(name string, props map[string]string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.send(name, props)
	}()
}

// EmitSync sends an event and waits for the attempt to finish. Used
// for the shutdown flush, where a background goroutine would die
// before completing.
func (r *Reporter) EmitSync(name string, props map[string]string) {
	r.send(name, props)
}

func (r *Reporter) send(name string, props map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := r.sender.SendEvent(ctx, r.deviceID, name, props); err != nil {
		log.Debug("Telemetry send failed for %s: %v", name, err)
	}
}

// Flush waits for in-flight background events
func (r *Reporter) Flush() {
	r.wg.Wait()
}

// EmitFirstSeen sends app_first_seen once per device
func (r *Reporter) EmitFirstSeen(marker FirstSeenMarker) {
	sent, err := marker.FirstSeenSent()
	if err != nil || sent {
		return
	}
	r.EmitSync(EventAppFirstSeen, nil)
	if err := marker.SetFirstSeenSent(true); err != nil {
		log.Debug("Failed to record first-seen marker: %v", err)
	}
}
