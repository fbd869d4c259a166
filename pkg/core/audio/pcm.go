package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Config describes a raw PCM16 stream.
type Config struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond returns the byte rate of the stream (2 bytes per sample).
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Channels * 2
}

// Duration converts a byte count to stream time.
func (c Config) Duration(n int) time.Duration {
	bps := c.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(bps) * float64(time.Second))
}

// BytesForDuration converts stream time to a byte count, rounded down to a
// whole sample.
func (c Config) BytesForDuration(d time.Duration) int {
	n := int(d.Seconds() * float64(c.BytesPerSecond()))
	return n - n%2
}

// FloatToPCM16 converts float32 samples to little-endian 16-bit PCM.
// Samples are clamped to [-1, 1] before scaling.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16ToFloat converts little-endian 16-bit PCM to float32 samples in
// [-1, 1]. A trailing odd byte is ignored.
func PCM16ToFloat(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// float32FromLE reinterprets little-endian float32 device frames.
func float32FromLE(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// RMSEnergy computes the root-mean-square energy of a PCM16 buffer,
// normalized to [0, 1]. Useful for level metering and silence detection.
func RMSEnergy(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}

// resamplePCM16 converts mono PCM16 between sample rates by linear
// interpolation. Quality is adequate for speech; not meant for music.
func resamplePCM16(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	in := PCM16ToFloat(pcm)
	if len(in) == 0 {
		return nil
	}
	outLen := int(float64(len(in)) * float64(to) / float64(from))
	out := make([]float32, outLen)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return FloatToPCM16(out)
}
