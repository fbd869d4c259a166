// Package voice coordinates microphone capture with the realtime
// transcription backend: it opens the voice session on the wire, streams
// encoded frames in capture order, and closes the session on stop.
package voice

import (
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/audio"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// Transport sends outbound frames. Satisfied by the websocket connection.
type Transport interface {
	Emit(event string, payload any) error
}

// CaptureSource produces PCM16 frames. Satisfied by audio.Capture.
type CaptureSource interface {
	Start(onFrame audio.FrameFunc) error
	Stop()
	Recording() bool
}

// PlaybackMonitor reports whether the speaker is busy. Satisfied by
// audio.Playback.
type PlaybackMonitor interface {
	Active() bool
}

// Options tunes a transcription session.
type Options struct {
	// AllowWhilePlayback permits recording while synthesis output is
	// still playing. Off by default to avoid the microphone picking up
	// the speaker.
	AllowWhilePlayback bool
}

// meterWindow is how much recent audio the level meter considers.
const meterWindow = 500 * time.Millisecond

type startVoiceRequest struct {
	ChatID string `json:"chatId"`
}

type audioChunk struct {
	ChatID string `json:"chatId"`
	Bytes  string `json:"bytes"`
}

type stopVoiceRequest struct {
	ChatID string `json:"chatId"`
	Submit bool   `json:"submit"`
}

// Recorder runs at most one transcription session at a time.
type Recorder struct {
	logger    *slog.Logger
	transport Transport
	capture   CaptureSource
	playback  PlaybackMonitor
	meter     *audio.Buffer

	mu     sync.Mutex
	active bool
	chatID string
}

// NewRecorder wires a recorder to its transport and devices. playback may
// be nil when no output pipeline exists; logger may be nil.
func NewRecorder(transport Transport, capture CaptureSource, playback PlaybackMonitor, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger:    logger,
		transport: transport,
		capture:   capture,
		playback:  playback,
		meter:     audio.NewBuffer(audio.CaptureConfig, meterWindow),
	}
}

// Active reports whether a session is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// ChatID returns the chat of the running session, or "".
func (r *Recorder) ChatID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chatID
}

// Level returns the RMS energy of the last half second of captured audio.
func (r *Recorder) Level() float64 {
	return r.meter.Energy()
}

// Start opens a transcription session for chatID and begins streaming
// microphone frames. The session-open frame is sent before any audio so
// the backend never sees a chunk without context.
func (r *Recorder) Start(chatID string, opts Options) error {
	if chatID == "" {
		return core.NewInvalidRequestError("chat id is required for voice transcription")
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return core.NewInvalidRequestError("voice transcription already active")
	}
	if !opts.AllowWhilePlayback && r.playback != nil && r.playback.Active() {
		r.mu.Unlock()
		return core.NewInvalidRequestError("cannot record while audio playback is active")
	}
	r.active = true
	r.chatID = chatID
	r.mu.Unlock()

	r.meter.Clear()

	if err := r.transport.Emit(wire.EventStartVoiceTranscription, startVoiceRequest{ChatID: chatID}); err != nil {
		r.reset()
		return err
	}
	if err := r.capture.Start(r.onFrame); err != nil {
		// Best effort: tell the backend the session is over.
		_ = r.transport.Emit(wire.EventStopVoiceTranscription, stopVoiceRequest{ChatID: chatID})
		r.reset()
		return err
	}

	r.logger.Info("voice transcription started", "chat_id", chatID)
	return nil
}

// onFrame runs on the capture callback thread, so chunks hit the wire in
// strict capture order.
func (r *Recorder) onFrame(frame []byte) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	chatID := r.chatID
	r.mu.Unlock()

	r.meter.Write(frame)
	chunk := audioChunk{ChatID: chatID, Bytes: base64.StdEncoding.EncodeToString(frame)}
	if err := r.transport.Emit(wire.EventAudioChunk, chunk); err != nil {
		r.logger.Warn("dropped audio chunk", "chat_id", chatID, "error", err)
	}
}

// Stop ends the session. submit asks the backend to send the accumulated
// transcript as a chat message; false discards it. Stopping an idle
// recorder is a no-op.
func (r *Recorder) Stop(submit bool) error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil
	}
	chatID := r.chatID
	r.active = false
	r.chatID = ""
	r.mu.Unlock()

	r.capture.Stop()
	err := r.transport.Emit(wire.EventStopVoiceTranscription, stopVoiceRequest{ChatID: chatID, Submit: submit})
	r.logger.Info("voice transcription stopped", "chat_id", chatID, "submit", submit)
	return err
}

func (r *Recorder) reset() {
	r.mu.Lock()
	r.active = false
	r.chatID = ""
	r.mu.Unlock()
}
