// Package stream turns token-level response events into finalized chat
// messages and maps intent classifications to rotating status text.
package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind identifies the rendering shape of a message.
type Kind string

const (
	KindPlain     Kind = "plain"
	KindResultSet Kind = "result-set"
	KindMatchSet  Kind = "match-set"
)

// Message is a finalized chat message. Content is mutable only while the
// message is streaming; after finalize it never changes.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeltaFunc observes incremental streaming content for a chat.
type DeltaFunc func(chatID, content string)

// FinalFunc observes a finalized assistant message.
type FinalFunc func(msg Message)

type accumulator struct {
	sb strings.Builder
}

// Assembler accumulates response tokens per chat session and finalizes
// them into permanent messages. At most one streaming message is in
// flight per session.
type Assembler struct {
	mu        sync.Mutex
	inflight  map[string]*accumulator
	expecting map[string]bool

	onDelta DeltaFunc
	onFinal FinalFunc
}

// NewAssembler creates an Assembler notifying the given observers.
// Either observer may be nil.
func NewAssembler(onDelta DeltaFunc, onFinal FinalFunc) *Assembler {
	return &Assembler{
		inflight:  make(map[string]*accumulator),
		expecting: make(map[string]bool),
		onDelta:   onDelta,
		onFinal:   onFinal,
	}
}

// Begin marks a chat as awaiting a streamed response. Called when a user
// message is sent, before any token arrives.
func (a *Assembler) Begin(chatID string) {
	a.mu.Lock()
	a.expecting[chatID] = true
	a.mu.Unlock()
}

// AppendChunk appends a token to the chat's in-flight message in arrival
// order and notifies the delta observer with the accumulated content.
func (a *Assembler) AppendChunk(chatID, chunk string) {
	a.mu.Lock()
	acc := a.inflight[chatID]
	if acc == nil {
		acc = &accumulator{}
		a.inflight[chatID] = acc
	}
	a.expecting[chatID] = true
	acc.sb.WriteString(chunk)
	content := acc.sb.String()
	a.mu.Unlock()

	if a.onDelta != nil {
		a.onDelta(chatID, content)
	}
}

// Streaming reports whether the chat has an in-flight message.
func (a *Assembler) Streaming(chatID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight[chatID] != nil
}

// Pending reports whether the chat is streaming or still awaiting its
// first token.
func (a *Assembler) Pending(chatID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight[chatID] != nil || a.expecting[chatID]
}

// Content returns the accumulated in-flight content for a chat.
func (a *Assembler) Content(chatID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc := a.inflight[chatID]; acc != nil {
		return acc.sb.String()
	}
	return ""
}

// Complete finalizes the chat's in-flight message. If no token was ever
// received the message is synthesized from fullText. A repeated
// completion with no active accumulator is a no-op, so duplicate
// completion events never produce duplicate messages.
func (a *Assembler) Complete(chatID, fullText string, at time.Time) (Message, bool) {
	a.mu.Lock()
	acc := a.inflight[chatID]
	expecting := a.expecting[chatID]
	delete(a.inflight, chatID)
	delete(a.expecting, chatID)
	a.mu.Unlock()

	var content string
	switch {
	case acc != nil:
		content = acc.sb.String()
	case expecting:
		content = fullText
	default:
		return Message{}, false
	}

	if at.IsZero() {
		at = time.Now()
	}
	msg := Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      RoleAssistant,
		Content:   content,
		Kind:      KindPlain,
		CreatedAt: at,
	}
	if a.onFinal != nil {
		a.onFinal(msg)
	}
	return msg, true
}

// Abort drops any in-flight accumulation for the chat without emitting a
// message. Used when a session is deleted mid-stream.
func (a *Assembler) Abort(chatID string) {
	a.mu.Lock()
	delete(a.inflight, chatID)
	delete(a.expecting, chatID)
	a.mu.Unlock()
}
