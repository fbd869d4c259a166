package talentwire

import (
	"encoding/json"
	"log/slog"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/voice"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// Transcript is one transcription update. Interim transcripts revise each
// other; a final transcript is frozen text.
type Transcript struct {
	Text  string
	Final bool
}

// VoiceService runs voice transcription sessions and relays transcript
// events.
type VoiceService struct {
	bus      Bus
	recorder *voice.Recorder
	logger   *slog.Logger

	transcripts observers[Transcript]
	completes   observers[string]
	errs        observers[error]

	unsubs []func()
}

func newVoiceService(bus Bus, recorder *voice.Recorder, logger *slog.Logger) *VoiceService {
	s := &VoiceService{
		bus:      bus,
		recorder: recorder,
		logger:   logger,
	}
	s.unsubs = []func(){
		bus.Subscribe(wire.EventVoiceTranscript, s.onTranscript),
		bus.Subscribe(wire.EventVoiceTranscriptComplete, s.onTranscriptComplete),
		bus.Subscribe(wire.EventVoiceError, s.onVoiceError),
	}
	return s
}

// OnTranscript registers an observer for interim and final transcripts.
func (s *VoiceService) OnTranscript(fn func(Transcript)) func() {
	return s.transcripts.add(fn)
}

// OnTranscriptComplete registers an observer for the full transcript
// delivered when a session closes.
func (s *VoiceService) OnTranscriptComplete(fn func(text string)) func() {
	return s.completes.add(fn)
}

// OnError registers an observer for transcription failures.
func (s *VoiceService) OnError(fn func(error)) func() {
	return s.errs.add(fn)
}

// Start begins recording into the chat's transcription session.
func (s *VoiceService) Start(chatID string, opts voice.Options) error {
	return s.recorder.Start(chatID, opts)
}

// Stop ends the recording. With submit the accumulated transcript is
// delivered as a user message; without it the audio is discarded.
func (s *VoiceService) Stop(submit bool) error {
	return s.recorder.Stop(submit)
}

// Recording reports whether a session is active.
func (s *VoiceService) Recording() bool {
	return s.recorder.Active()
}

// Level returns the recent microphone input level in [0, 1].
func (s *VoiceService) Level() float64 {
	return s.recorder.Level()
}

func (s *VoiceService) onTranscript(data json.RawMessage) {
	var ev struct {
		Text    string `json:"text"`
		IsFinal bool   `json:"isFinal"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping malformed voice_transcript", "error", err)
		return
	}
	s.transcripts.notify(Transcript{Text: ev.Text, Final: ev.IsFinal})
}

func (s *VoiceService) onTranscriptComplete(data json.RawMessage) {
	var ev struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	s.completes.notify(ev.Text)
}

func (s *VoiceService) onVoiceError(data json.RawMessage) {
	var ev struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(data, &ev)
	if ev.Message == "" {
		ev.Message = "voice transcription failed"
	}
	// The device may still be streaming frames into a dead session.
	_ = s.recorder.Stop(false)
	s.errs.notify(core.NewApplicationError(ev.Message, "voice_error"))
}

func (s *VoiceService) shutdown() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}
