package stream

import (
	"sync"
	"time"
)

// Intent is a coarse classification of the user's request, used only to
// choose status text while a response streams.
type Intent string

const (
	IntentNone         Intent = ""
	IntentSourcing     Intent = "sourcing"
	IntentJobMatching  Intent = "job_matching"
	IntentConversation Intent = "conversation"
)

// StatusInterval is how often the status line rotates while streaming.
const StatusInterval = 4 * time.Second

var statusLines = map[Intent][]string{
	IntentSourcing: {
		"Searching candidate profiles...",
		"Ranking best matches...",
		"Pulling candidate details...",
	},
	IntentJobMatching: {
		"Scanning open positions...",
		"Scoring job fit...",
		"Preparing match results...",
	},
	IntentConversation: {
		"Thinking...",
		"Writing a response...",
	},
}

// StatusFor returns the status line for an intent at a given tick count.
// It is a pure function of its inputs: the rotation index is derived
// from the monotonic tick, never mutated in place.
func StatusFor(intent Intent, tick int) string {
	lines := statusLines[intent]
	if len(lines) == 0 {
		return ""
	}
	if tick < 0 {
		tick = 0
	}
	return lines[tick%len(lines)]
}

// IntentTracker holds the active intent and a monotonic tick counter.
// It is idle (empty status) when no intent is active.
type IntentTracker struct {
	mu     sync.Mutex
	intent Intent
	ticks  int
}

// NewIntentTracker creates an idle tracker.
func NewIntentTracker() *IntentTracker {
	return &IntentTracker{}
}

// SetIntent activates an intent. Switching intents resets the rotation.
func (t *IntentTracker) SetIntent(intent Intent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.intent != intent {
		t.ticks = 0
	}
	t.intent = intent
}

// Tick advances the rotation counter one step.
func (t *IntentTracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.intent != IntentNone {
		t.ticks++
	}
}

// Clear deactivates the tracker, e.g. when streaming ends.
func (t *IntentTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.intent = IntentNone
	t.ticks = 0
}

// Status returns the current status line, or "" when idle.
func (t *IntentTracker) Status() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return StatusFor(t.intent, t.ticks)
}

// Intent returns the active intent.
func (t *IntentTracker) Intent() Intent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intent
}
