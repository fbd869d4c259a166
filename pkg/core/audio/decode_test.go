package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// makeWAV builds a minimal PCM wav container by hand.
func makeWAV(rate, channels int, samples []int16) []byte {
	dataLen := len(samples) * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestSniffEncoding(t *testing.T) {
	if enc := SniffEncoding(makeWAV(24000, 1, []int16{1, 2})); enc != EncodingCompressed {
		t.Errorf("wav sniffed as %q", enc)
	}
	if enc := SniffEncoding([]byte{0, 0, 1, 1}); enc != EncodingPCM16 {
		t.Errorf("raw pcm sniffed as %q", enc)
	}
	if enc := SniffEncoding(nil); enc != EncodingPCM16 {
		t.Errorf("empty payload sniffed as %q", enc)
	}
}

func TestDecodeWAVMono(t *testing.T) {
	samples := []int16{0, 100, -100, 32767}
	pcm, rate, err := decodeWAV(makeWAV(24000, 1, samples))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 24000 {
		t.Errorf("rate = %d, want 24000", rate)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("got %d bytes, want %d", len(pcm), len(samples)*2)
	}
	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		if got != want {
			t.Errorf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	// Interleaved L/R pairs; decoded output should average them.
	pcm, _, err := decodeWAV(makeWAV(16000, 2, []int16{100, 300, -200, -400}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("got %d bytes, want 4", len(pcm))
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[0:])); got != 200 {
		t.Errorf("frame 0 = %d, want 200", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[2:])); got != -300 {
		t.Errorf("frame 1 = %d, want -300", got)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := decodeWAV([]byte("definitely not audio")); err == nil {
		t.Fatal("expected error for non-wav payload")
	}
}
