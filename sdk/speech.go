package talentwire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/audio"
)

const defaultSynthesisTimeout = 30 * time.Second

// Progress is a point-in-time view of the current playback.
type Progress struct {
	Played time.Duration
	Total  time.Duration
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// SpeechService synthesizes text to speech and plays it through the
// output pipeline.
type SpeechService struct {
	http   *http.Client
	url    string
	voice  string
	player Player
	logger *slog.Logger

	mu        sync.Mutex
	startedAt time.Time
	total     time.Duration
	playing   bool

	started  observersUnit
	finished observers[error]
}

// observersUnit is an observer list for signals with no payload.
type observersUnit struct {
	inner observers[struct{}]
}

func (o *observersUnit) add(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return o.inner.add(func(struct{}) { fn() })
}

func (o *observersUnit) notify() {
	o.inner.notify(struct{}{})
}

func newSpeechService(client *http.Client, url, voice string, player Player, logger *slog.Logger) *SpeechService {
	return &SpeechService{
		http:   client,
		url:    url,
		voice:  voice,
		player: player,
		logger: logger,
	}
}

// OnPlaybackStarted registers an observer fired when output begins.
func (s *SpeechService) OnPlaybackStarted(fn func()) func() {
	return s.started.add(fn)
}

// OnPlaybackFinished registers an observer fired when playback ends.
// The error is nil on a clean finish or manual stop.
func (s *SpeechService) OnPlaybackFinished(fn func(error)) func() {
	return s.finished.add(fn)
}

// Synthesize converts text to audio bytes via the synthesis endpoint.
// A defensive timeout applies when the context carries no deadline.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, core.NewInvalidRequestError("synthesis text is empty")
	}
	if s.url == "" {
		return nil, core.NewInvalidRequestError("no synthesis endpoint configured")
	}
	ctx, cancel := withDefaultTimeout(ctx, defaultSynthesisTimeout)
	defer cancel()

	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: s.voice})
	if err != nil {
		return nil, core.NewInvalidRequestError("encode synthesis request: " + err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("build synthesis request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, core.NewConnectionError("synthesis request: " + err.Error())
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, core.NewConnectionError("read synthesis response: " + err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.NewApplicationError(fmt.Sprintf("synthesis failed with status %d", resp.StatusCode), "synthesis_failed")
	}
	if len(payload) == 0 {
		return nil, core.NewApplicationError("synthesis returned no audio", "synthesis_failed")
	}
	return payload, nil
}

// Speak synthesizes text and starts playback, returning once output has
// begun. Completion is delivered through the finished observers. Any
// playback already in progress is stopped first.
func (s *SpeechService) Speak(ctx context.Context, text string) error {
	data, err := s.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.Play(audio.Request{Data: data})
}

// Play starts playback of pre-synthesized audio.
func (s *SpeechService) Play(req audio.Request) error {
	pcm, rate, err := audio.Normalize(req)
	if err != nil {
		return err
	}
	total := audio.Config{SampleRate: rate, Channels: 1}.Duration(len(pcm))

	err = s.player.Play(req,
		func() {
			s.mu.Lock()
			s.startedAt = time.Now()
			s.total = total
			s.playing = true
			s.mu.Unlock()
			s.started.notify()
		},
		func(playErr error) {
			s.mu.Lock()
			s.playing = false
			s.mu.Unlock()
			s.finished.notify(playErr)
		},
	)
	if err != nil {
		s.logger.Warn("playback rejected", "error", err)
	}
	return err
}

// Stop halts the current playback, if any.
func (s *SpeechService) Stop() {
	s.player.Stop()
}

// Playing reports whether output is active.
func (s *SpeechService) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Progress reports how much of the current utterance has played. Played
// time is estimated from the wall clock, clamped to the total.
func (s *SpeechService) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return Progress{Total: s.total, Played: s.total}
	}
	played := time.Since(s.startedAt)
	if played > s.total {
		played = s.total
	}
	return Progress{Played: played, Total: s.total}
}
