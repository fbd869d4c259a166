package talentwire

import (
	"log/slog"
	"testing"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/audio"
	"github.com/Mawhubtech/talentwire-go/pkg/core/voice"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// stubCapture satisfies voice.CaptureSource without a device.
type stubCapture struct {
	recording bool
}

func (c *stubCapture) Start(audio.FrameFunc) error {
	c.recording = true
	return nil
}

func (c *stubCapture) Stop()           { c.recording = false }
func (c *stubCapture) Recording() bool { return c.recording }

func newTestVoiceService(t *testing.T) (*VoiceService, *fakeBus, *stubCapture) {
	t.Helper()
	bus := newFakeBus()
	cap := &stubCapture{}
	recorder := voice.NewRecorder(bus, cap, nil, slog.Default())
	s := newVoiceService(bus, recorder, slog.Default())
	t.Cleanup(s.shutdown)
	return s, bus, cap
}

func TestTranscriptRouting(t *testing.T) {
	s, bus, _ := newTestVoiceService(t)
	var got []Transcript
	s.OnTranscript(func(tr Transcript) { got = append(got, tr) })
	var complete string
	s.OnTranscriptComplete(func(text string) { complete = text })

	bus.push(t, wire.EventVoiceTranscript, map[string]any{"text": "hello wor", "isFinal": false})
	bus.push(t, wire.EventVoiceTranscript, map[string]any{"text": "hello world", "isFinal": true})
	bus.push(t, wire.EventVoiceTranscriptComplete, map[string]any{"text": "hello world"})

	if len(got) != 2 || got[0].Final || !got[1].Final {
		t.Fatalf("transcripts = %+v", got)
	}
	if complete != "hello world" {
		t.Errorf("complete transcript = %q", complete)
	}
}

func TestVoiceErrorStopsRecording(t *testing.T) {
	s, bus, cap := newTestVoiceService(t)
	var gotErr error
	s.OnError(func(err error) { gotErr = err })

	if err := s.Start("chat-1", voice.Options{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Recording() || !cap.recording {
		t.Fatal("recording should be active")
	}

	bus.push(t, wire.EventVoiceError, map[string]any{"message": "transcriber crashed"})

	if !core.IsType(gotErr, core.ErrApplication) {
		t.Fatalf("expected application error, got %v", gotErr)
	}
	if s.Recording() || cap.recording {
		t.Fatal("voice error should stop the recording")
	}
}

func TestStopSubmitEmitsFrames(t *testing.T) {
	s, bus, _ := newTestVoiceService(t)
	if err := s.Start("chat-1", voice.Options{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(true); err != nil {
		t.Fatalf("stop: %v", err)
	}
	events := bus.events()
	want := []string{wire.EventStartVoiceTranscription, wire.EventStopVoiceTranscription}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, w := range want {
		if events[i] != w {
			t.Errorf("event %d = %q, want %q", i, events[i], w)
		}
	}
}
