package audio

import (
	"sync"
	"time"
)

// Buffer accumulates PCM16 bytes up to a duration cap, dropping the oldest
// audio when full. It retains the tail of the current utterance for level
// metering and diagnostics.
type Buffer struct {
	mu       sync.Mutex
	cfg      Config
	data     []byte
	maxBytes int
}

// NewBuffer returns a buffer that retains at most maxDuration of audio.
func NewBuffer(cfg Config, maxDuration time.Duration) *Buffer {
	return &Buffer{cfg: cfg, maxBytes: cfg.BytesForDuration(maxDuration)}
}

// Write appends pcm, trimming the oldest bytes past the cap.
func (b *Buffer) Write(pcm []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, pcm...)
	if b.maxBytes > 0 && len(b.data) > b.maxBytes {
		drop := len(b.data) - b.maxBytes
		drop += drop % 2
		b.data = b.data[drop:]
	}
}

// Bytes returns a copy of the buffered audio.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the buffered byte count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Duration returns the buffered stream time.
func (b *Buffer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.Duration(len(b.data))
}

// Energy returns the RMS energy of the buffered audio.
func (b *Buffer) Energy() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return RMSEnergy(b.data)
}

// Clear discards the buffered audio.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
}
