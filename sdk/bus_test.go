package talentwire

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// fakeBus is an in-memory Bus. Pushed events run handlers synchronously,
// like the real connection read loop. An optional respond hook lets a
// test script the server side of request/response exchanges.
type fakeBus struct {
	dispatcher *wire.Dispatcher

	mu      sync.Mutex
	emitted []emittedFrame
	emitErr error
	respond func(event string, payload any)
}

type emittedFrame struct {
	event   string
	payload any
}

func newFakeBus() *fakeBus {
	return &fakeBus{dispatcher: wire.NewDispatcher()}
}

func (b *fakeBus) Emit(event string, payload any) error {
	b.mu.Lock()
	if b.emitErr != nil {
		err := b.emitErr
		b.mu.Unlock()
		return err
	}
	b.emitted = append(b.emitted, emittedFrame{event: event, payload: payload})
	respond := b.respond
	b.mu.Unlock()
	if respond != nil {
		respond(event, payload)
	}
	return nil
}

func (b *fakeBus) Subscribe(event string, h wire.Handler) func() {
	return b.dispatcher.Subscribe(event, h)
}

// push delivers a server event to all subscribers.
func (b *fakeBus) push(t *testing.T, event string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	b.dispatcher.Dispatch(event, data)
}

func (b *fakeBus) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.emitted))
	for i, f := range b.emitted {
		out[i] = f.event
	}
	return out
}
