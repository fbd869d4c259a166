package audio

import (
	"bytes"
	"testing"
)

func TestFramerCutsFixedFrames(t *testing.T) {
	f := newFramer(4)
	frames := f.push([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) || !bytes.Equal(frames[1], []byte{5, 6, 7, 8}) {
		t.Fatalf("frames out of order: %v", frames)
	}
	if rest := f.flush(); !bytes.Equal(rest, []byte{9}) {
		t.Fatalf("flush = %v, want [9]", rest)
	}
}

func TestFramerCarriesRemainder(t *testing.T) {
	f := newFramer(4)
	if frames := f.push([]byte{1, 2, 3}); frames != nil {
		t.Fatalf("partial push produced %d frames", len(frames))
	}
	frames := f.push([]byte{4, 5})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Fatalf("got %v, want one frame [1 2 3 4]", frames)
	}
}

func TestFramerFlushResets(t *testing.T) {
	f := newFramer(4)
	f.push([]byte{1, 2})
	f.flush()
	if frames := f.push([]byte{3, 4}); frames != nil {
		t.Fatalf("stale bytes survived flush: %v", frames)
	}
}

func TestFramerFramesAreCopies(t *testing.T) {
	f := newFramer(2)
	src := []byte{1, 2}
	frames := f.push(src)
	src[0] = 99
	if frames[0][0] != 1 {
		t.Fatal("frame aliases caller buffer")
	}
}
