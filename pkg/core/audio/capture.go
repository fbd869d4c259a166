package audio

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
)

const (
	// CaptureSampleRate is the fixed microphone rate expected by the
	// transcription backend.
	CaptureSampleRate = 16000

	// FrameSamples is the number of PCM16 samples per emitted frame.
	FrameSamples = 2048

	frameBytes = FrameSamples * 2
)

// CaptureConfig is the stream shape of emitted frames.
var CaptureConfig = Config{SampleRate: CaptureSampleRate, Channels: 1}

// FrameFunc receives one complete PCM16 frame. Frames are delivered
// sequentially in capture order; the callback must not block for long or
// the device buffer will overrun.
type FrameFunc func(frame []byte)

// Capture owns the microphone device. The device produces float32 samples
// which are clamped and converted to PCM16 before framing.
type Capture struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	actx      *malgo.AllocatedContext
	device    *malgo.Device
	recording bool
	frames    *framer
	onFrame   FrameFunc
}

// NewCapture returns an idle capture pipeline. Logger and metrics may be nil.
func NewCapture(logger *slog.Logger, m *metrics.Metrics) *Capture {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{logger: logger, metrics: m}
}

// Recording reports whether the microphone is currently open.
func (c *Capture) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Start opens the default capture device and begins emitting frames to
// onFrame. A second Start while recording is rejected; device or backend
// failures surface as capability errors.
func (c *Capture) Start(onFrame FrameFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		return core.NewInvalidRequestError("audio capture already active")
	}
	if onFrame == nil {
		return core.NewInvalidRequestError("frame callback is required")
	}

	actx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return core.NewCapabilityError("audio backend unavailable", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = CaptureSampleRate
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = FrameSamples

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.push(input)
		},
	}

	device, err := malgo.InitDevice(actx.Context, cfg, callbacks)
	if err != nil {
		_ = actx.Uninit()
		return core.NewCapabilityError("microphone unavailable", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = actx.Uninit()
		return core.NewCapabilityError("microphone start failed", err)
	}

	c.actx = actx
	c.device = device
	c.frames = newFramer(frameBytes)
	c.onFrame = onFrame
	c.recording = true
	c.logger.Debug("audio capture started", "sample_rate", CaptureSampleRate, "frame_samples", FrameSamples)
	return nil
}

// push runs on the device callback thread. malgo delivers buffers serially,
// so frames reach onFrame in strict capture order.
func (c *Capture) push(input []byte) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return
	}
	pcm := FloatToPCM16(float32FromLE(input))
	frames := c.frames.push(pcm)
	onFrame := c.onFrame
	c.mu.Unlock()

	for _, frame := range frames {
		if c.metrics != nil {
			c.metrics.CaptureFrames.Inc()
			c.metrics.CaptureBytes.Add(float64(len(frame)))
		}
		onFrame(frame)
	}
}

// Stop closes the device and discards any partial frame. Safe to call when
// idle; repeated calls are no-ops.
func (c *Capture) Stop() {
	c.mu.Lock()
	device, actx := c.device, c.actx
	c.device, c.actx = nil, nil
	c.frames = nil
	c.onFrame = nil
	wasRecording := c.recording
	c.recording = false
	c.mu.Unlock()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if actx != nil {
		_ = actx.Uninit()
	}
	if wasRecording {
		c.logger.Debug("audio capture stopped")
	}
}
