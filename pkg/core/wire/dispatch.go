package wire

import (
	"encoding/json"
	"sort"
	"sync"
)

// Handler receives the raw data payload of a dispatched event.
type Handler func(data json.RawMessage)

// Dispatcher is an observer registry mapping event names to handlers.
// Registration is explicit: Subscribe returns an unsubscribe function and
// there is no implicit latest-handler slot.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]map[uint64]Handler),
	}
}

// Subscribe registers a handler for the named event and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (d *Dispatcher) Subscribe(event string, h Handler) func() {
	if h == nil {
		return func() {}
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	if d.handlers[event] == nil {
		d.handlers[event] = make(map[uint64]Handler)
	}
	d.handlers[event][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.handlers[event], id)
		})
	}
}

// Dispatch invokes every handler registered for the event, in
// registration order. Handlers run on the caller's goroutine, which for
// inbound events is the single connection read loop.
func (d *Dispatcher) Dispatch(event string, data json.RawMessage) {
	d.mu.Lock()
	registered := d.handlers[event]
	ids := make([]uint64, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	snapshot := make([]Handler, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, registered[id])
	}
	d.mu.Unlock()

	for _, h := range snapshot {
		h(data)
	}
}

// HandlerCount returns the number of handlers registered for an event.
func (d *Dispatcher) HandlerCount(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[event])
}
