package audio

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// Encoding identifies the payload format of a playback request.
type Encoding string

const (
	// EncodingPCM16 is raw little-endian 16-bit mono PCM.
	EncodingPCM16 Encoding = "pcm16"
	// EncodingCompressed is a WAV container around the synthesis output.
	EncodingCompressed Encoding = "compressed"
)

// SniffEncoding inspects a payload and guesses its encoding. WAV containers
// start with a RIFF header; anything else is treated as raw PCM16.
func SniffEncoding(data []byte) Encoding {
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return EncodingCompressed
	}
	return EncodingPCM16
}

// decodeWAV extracts mono PCM16 and the source sample rate from a WAV
// container. Multi-channel input is downmixed by averaging; other bit
// depths are rescaled to 16 bits.
func decodeWAV(data []byte) ([]byte, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("payload is not a valid wav container")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("wav container holds no samples")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	shift := int(dec.BitDepth) - 16

	n := len(buf.Data) / channels
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i*channels+ch]
		}
		v := sum / channels
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out, int(dec.SampleRate), nil
}
