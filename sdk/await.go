package talentwire

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// awaitEvent subscribes to event, runs send, and waits for the first
// matching payload. A server error frame arriving first fails the wait.
// match may be nil to accept any payload. The subscription is registered
// before send so a fast response cannot be missed.
func awaitEvent(ctx context.Context, bus Bus, event string, match func(json.RawMessage) bool, send func() error) (json.RawMessage, error) {
	ch := make(chan json.RawMessage, 1)
	unsub := bus.Subscribe(event, func(data json.RawMessage) {
		if match != nil && !match(data) {
			return
		}
		select {
		case ch <- data:
		default:
		}
	})
	defer unsub()

	errCh := make(chan error, 1)
	unsubErr := bus.Subscribe(wire.EventError, func(data json.RawMessage) {
		var se struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.Unmarshal(data, &se)
		if se.Message == "" {
			se.Message = "request failed"
		}
		select {
		case errCh <- core.NewApplicationError(se.Message, se.Code):
		default:
		}
	})
	defer unsubErr()

	if err := send(); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, core.NewConnectionError(fmt.Sprintf("timed out waiting for %q: %v", event, ctx.Err()))
	case err := <-errCh:
		return nil, err
	case data := <-ch:
		return data, nil
	}
}

// withDefaultTimeout adds a deadline when the caller's context has none.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
