// Package notify is the narrow observer surface the core exposes to a
// presentation shell. Consumers re-read through the synchronization
// cache on each notification instead of caching payloads themselves.
package notify

import "sync"

// Kind identifies the class of change an event describes
type Kind int

const (
	// KindTransientOp fires on every session state machine transition
	KindTransientOp Kind = iota
	// KindActiveLab fires when the runtime lock value changes
	KindActiveLab
	// KindProgress fires when progress or summary data was invalidated
	KindProgress
	// KindAuth fires on login, logout or credential expiry
	KindAuth
)

// Event is a single change notification. Op and LabID are set for
// KindTransientOp and KindActiveLab events.
type Event struct {
	Kind  Kind
	Op    string
	LabID string
}

// Handler receives events; it must not block
type Handler func(Event)

// Notifier fans change notifications out to subscribers
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

// New creates an empty notifier
func New() *Notifier {
	return &Notifier{subs: map[int]Handler{}}
}

// Subscribe registers a handler and returns an id for Unsubscribe
func (n *Notifier) Subscribe(h Handler) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.subs[id] = h
	return id
}

// Unsubscribe removes a handler
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Emit delivers the event to all subscribers synchronously
func (n *Notifier) Emit(e Event) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs))
	for _, h := range n.subs {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
