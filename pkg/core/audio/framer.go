package audio

// framer accumulates PCM16 bytes and cuts them into fixed-size frames.
// Leftover bytes carry over to the next push so no sample is dropped and
// frame order matches arrival order.
type framer struct {
	frameBytes int
	pending    []byte
}

func newFramer(frameBytes int) *framer {
	return &framer{frameBytes: frameBytes}
}

// push appends pcm and returns every complete frame now available, in order.
func (f *framer) push(pcm []byte) [][]byte {
	f.pending = append(f.pending, pcm...)
	var frames [][]byte
	for len(f.pending) >= f.frameBytes {
		frame := make([]byte, f.frameBytes)
		copy(frame, f.pending[:f.frameBytes])
		frames = append(frames, frame)
		f.pending = f.pending[f.frameBytes:]
	}
	return frames
}

// flush returns any partial frame and resets the framer.
func (f *framer) flush() []byte {
	rest := f.pending
	f.pending = nil
	return rest
}
