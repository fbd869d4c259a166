package audio

import (
	"bytes"
	"testing"
	"time"
)

func TestBufferTrimsOldest(t *testing.T) {
	cfg := Config{SampleRate: 4, Channels: 1} // 8 bytes per second
	b := NewBuffer(cfg, time.Second)
	b.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	b.Write([]byte{9, 10})
	got := b.Bytes()
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	if !bytes.Equal(got, []byte{3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Fatalf("kept %v, want newest 8 bytes", got)
	}
}

func TestBufferDurationAndClear(t *testing.T) {
	cfg := Config{SampleRate: 16000, Channels: 1}
	b := NewBuffer(cfg, time.Minute)
	b.Write(make([]byte, 32000))
	if d := b.Duration(); d != time.Second {
		t.Errorf("duration = %v, want 1s", d)
	}
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("len after clear = %d", b.Len())
	}
}

func TestBufferBytesIsCopy(t *testing.T) {
	b := NewBuffer(Config{SampleRate: 16000, Channels: 1}, time.Minute)
	b.Write([]byte{1, 2})
	got := b.Bytes()
	got[0] = 99
	if b.Bytes()[0] != 1 {
		t.Fatal("Bytes aliases internal storage")
	}
}
