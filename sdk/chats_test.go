package talentwire

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/stream"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

func newTestChatService(t *testing.T) (*ChatService, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	s := newChatService(bus, slog.Default(), time.Second)
	t.Cleanup(s.shutdown)
	return s, bus
}

// messageLog collects finalized messages thread-safely.
type messageLog struct {
	mu   sync.Mutex
	msgs []stream.Message
}

func (l *messageLog) record(msg stream.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *messageLog) assistant() []stream.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []stream.Message
	for _, m := range l.msgs {
		if m.Role == stream.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

func TestCreateChat(t *testing.T) {
	s, bus := newTestChatService(t)
	bus.respond = func(event string, _ any) {
		if event == wire.EventCreateChat {
			bus.push(t, wire.EventChatCreated, map[string]any{"chatId": "abc", "title": "X"})
		}
	}

	chat, err := s.Create(context.Background(), CreateChatRequest{Title: "X"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if chat.ID != "abc" || chat.Title != "X" {
		t.Fatalf("chat = %+v", chat)
	}
	if s.Active() != "abc" {
		t.Errorf("first created chat should become active, got %q", s.Active())
	}
}

func TestCreateChatTimesOut(t *testing.T) {
	s, _ := newTestChatService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Create(ctx, CreateChatRequest{})
	if !core.IsType(err, core.ErrConnection) {
		t.Fatalf("expected connection error on timeout, got %v", err)
	}
}

func TestSendStreamsAndFinalizesOnce(t *testing.T) {
	s, bus := newTestChatService(t)
	s.SetActive("abc")

	var log messageLog
	s.OnMessage(log.record)

	var deltasMu sync.Mutex
	var deltas []string
	s.OnDelta(func(d Delta) {
		deltasMu.Lock()
		deltas = append(deltas, d.Content)
		deltasMu.Unlock()
	})

	if err := s.Send("abc", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, chunk := range []string{"He", "llo", " there"} {
		bus.push(t, wire.EventAIResponseChunk, map[string]any{"chunk": chunk})
	}
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "Hello there"})
	// Duplicate completion must not produce a second message.
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "Hello there"})

	deltasMu.Lock()
	wantDeltas := []string{"He", "Hello", "Hello there"}
	if len(deltas) != len(wantDeltas) {
		t.Fatalf("deltas = %v, want %v", deltas, wantDeltas)
	}
	for i, w := range wantDeltas {
		if deltas[i] != w {
			t.Errorf("delta %d = %q, want %q", i, deltas[i], w)
		}
	}
	deltasMu.Unlock()

	final := log.assistant()
	if len(final) != 1 {
		t.Fatalf("got %d assistant messages, want exactly 1", len(final))
	}
	if final[0].Content != "Hello there" {
		t.Errorf("content = %q, want %q", final[0].Content, "Hello there")
	}
}

func TestCompleteWithoutChunksUsesFullText(t *testing.T) {
	s, bus := newTestChatService(t)
	s.SetActive("abc")

	var log messageLog
	s.OnMessage(log.record)

	if err := s.Send("abc", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "Hello there"})

	final := log.assistant()
	if len(final) != 1 || final[0].Content != "Hello there" {
		t.Fatalf("messages = %+v", final)
	}
}

func TestServerErrorRenderedAsMessage(t *testing.T) {
	s, bus := newTestChatService(t)
	s.SetActive("abc")

	var log messageLog
	s.OnMessage(log.record)
	var gotErr error
	s.OnError(func(err error) { gotErr = err })

	if err := s.Send("abc", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	bus.push(t, wire.EventError, map[string]any{"message": "quota exceeded"})

	final := log.assistant()
	if len(final) != 1 || final[0].Content != "quota exceeded" {
		t.Fatalf("failure should appear as message content, got %+v", final)
	}
	if !core.IsType(gotErr, core.ErrApplication) {
		t.Errorf("expected application error, got %v", gotErr)
	}
	// A completion arriving after the failure must not add a message.
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "late"})
	if got := log.assistant(); len(got) != 1 {
		t.Fatalf("late completion produced a message: %+v", got)
	}
}

func TestSendValidation(t *testing.T) {
	s, _ := newTestChatService(t)
	if err := s.Send("", "hi"); !core.IsType(err, core.ErrInvalidRequest) {
		t.Errorf("empty chat id: got %v", err)
	}
	if err := s.Send("abc", ""); !core.IsType(err, core.ErrInvalidRequest) {
		t.Errorf("empty content: got %v", err)
	}
}

func TestSendEmitFailureIsSurfaced(t *testing.T) {
	s, bus := newTestChatService(t)
	bus.emitErr = core.NewConnectionError("not authenticated")

	var log messageLog
	s.OnMessage(log.record)

	if err := s.Send("abc", "hi"); !core.IsType(err, core.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	// The failed send left nothing pending.
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "ghost"})
	if got := log.assistant(); len(got) != 0 {
		t.Fatalf("aborted send still finalized: %+v", got)
	}
}

func TestGetChat(t *testing.T) {
	s, bus := newTestChatService(t)
	bus.respond = func(event string, _ any) {
		if event == wire.EventGetChat {
			bus.push(t, wire.EventChatData, map[string]any{
				"id":    "abc",
				"title": "X",
				"messages": []map[string]any{
					{"id": "m1", "chatId": "abc", "role": "user", "content": "hi"},
					{"id": "m2", "chatId": "abc", "role": "assistant", "content": "hello"},
				},
			})
		}
	}

	chat, err := s.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(chat.Messages) != 2 || chat.Title != "X" {
		t.Fatalf("chat = %+v", chat)
	}
}

func TestListChats(t *testing.T) {
	s, bus := newTestChatService(t)
	bus.respond = func(event string, _ any) {
		if event == wire.EventGetChats {
			bus.push(t, wire.EventChatsList, map[string]any{
				"chats": []map[string]any{
					{"id": "a", "title": "first"},
					{"id": "b", "title": "second"},
				},
			})
		}
	}

	chats, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != "a" || chats[1].Title != "second" {
		t.Fatalf("chats = %+v", chats)
	}
}

func TestDeleteChatClearsState(t *testing.T) {
	s, bus := newTestChatService(t)
	s.SetActive("abc")
	bus.respond = func(event string, _ any) {
		if event == wire.EventDeleteChat {
			bus.push(t, wire.EventChatDeleted, map[string]any{"id": "abc"})
		}
	}

	if err := s.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Active() != "" {
		t.Errorf("active chat survived deletion: %q", s.Active())
	}
}

func TestIntentStatus(t *testing.T) {
	s, bus := newTestChatService(t)
	var status string
	s.OnStatus(func(line string) { status = line })

	bus.push(t, wire.EventIntentDetected, map[string]any{"intent": "sourcing"})
	if status == "" || s.Status() == "" {
		t.Fatal("sourcing intent should produce status text")
	}
	s.SetActive("abc")
	bus.push(t, wire.EventAIResponseChunk, map[string]any{"chunk": "x"})
	bus.push(t, wire.EventAIResponseComplete, map[string]any{"fullResponse": "x"})
	if s.Status() != "" {
		t.Errorf("status should clear when streaming ends, got %q", s.Status())
	}
}
