package talentwire

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/audio"
)

// fakePlayer records requests and lets the test drive the callbacks.
type fakePlayer struct {
	mu        sync.Mutex
	reqs      []audio.Request
	completed func(error)
	playErr   error
	stopped   int
}

func (p *fakePlayer) Play(req audio.Request, started func(), completed func(error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playErr != nil {
		return p.playErr
	}
	p.reqs = append(p.reqs, req)
	p.completed = completed
	started()
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	completed := p.completed
	p.completed = nil
	p.stopped++
	p.mu.Unlock()
	if completed != nil {
		completed(nil)
	}
}

func (p *fakePlayer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed != nil
}

func pcmOfDuration(d time.Duration) []byte {
	return make([]byte, audio.Config{SampleRate: audio.DefaultPlaybackRate, Channels: 1}.BytesForDuration(d))
}

func TestSynthesizeValidation(t *testing.T) {
	s := newSpeechService(http.DefaultClient, "http://example.invalid", "ava", &fakePlayer{}, slog.Default())
	if _, err := s.Synthesize(context.Background(), ""); !core.IsType(err, core.ErrInvalidRequest) {
		t.Errorf("empty text: got %v", err)
	}
	s = newSpeechService(http.DefaultClient, "", "ava", &fakePlayer{}, slog.Default())
	if _, err := s.Synthesize(context.Background(), "hi"); !core.IsType(err, core.ErrInvalidRequest) {
		t.Errorf("no endpoint: got %v", err)
	}
}

func TestSpeakPostsTextAndPlays(t *testing.T) {
	wantAudio := pcmOfDuration(200 * time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req synthesizeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad synthesis body: %v", err)
		}
		if req.Text != "hello" || req.Voice != "ava" {
			t.Errorf("synthesis request = %+v", req)
		}
		w.Write(wantAudio)
	}))
	defer srv.Close()

	player := &fakePlayer{}
	s := newSpeechService(http.DefaultClient, srv.URL, "ava", player, slog.Default())

	var startedCount, finishedCount int
	s.OnPlaybackStarted(func() { startedCount++ })
	s.OnPlaybackFinished(func(err error) {
		finishedCount++
		if err != nil {
			t.Errorf("finished with error: %v", err)
		}
	})

	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if startedCount != 1 {
		t.Fatalf("started fired %d times", startedCount)
	}
	if !s.Playing() {
		t.Fatal("should be playing")
	}
	if p := s.Progress(); p.Total < 190*time.Millisecond || p.Total > 210*time.Millisecond {
		t.Errorf("total = %v, want ~200ms", p.Total)
	}

	player.completed(nil)
	if finishedCount != 1 {
		t.Fatalf("finished fired %d times", finishedCount)
	}
	if s.Playing() {
		t.Fatal("should be idle after completion")
	}
}

func TestSynthesizeServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := newSpeechService(http.DefaultClient, srv.URL, "", &fakePlayer{}, slog.Default())
	_, err := s.Synthesize(context.Background(), "hi")
	if !core.IsType(err, core.ErrApplication) {
		t.Fatalf("expected application error, got %v", err)
	}
}

func TestPlayDecodeFailure(t *testing.T) {
	player := &fakePlayer{}
	s := newSpeechService(http.DefaultClient, "", "", player, slog.Default())
	// A RIFF header with no valid body fails decode before the player is
	// touched.
	err := s.Play(audio.Request{Data: []byte("RIFF\x00\x00\x00\x00WAVEjunk")})
	if !core.IsType(err, core.ErrPlayback) {
		t.Fatalf("expected playback error, got %v", err)
	}
	if len(player.reqs) != 0 {
		t.Fatal("player should not receive an undecodable request")
	}
	if s.Playing() {
		t.Fatal("decode failure must leave the service idle")
	}
}

func TestStopEndsPlayback(t *testing.T) {
	player := &fakePlayer{}
	s := newSpeechService(http.DefaultClient, "", "", player, slog.Default())
	var finished int
	s.OnPlaybackFinished(func(error) { finished++ })

	if err := s.Play(audio.Request{Data: pcmOfDuration(time.Second)}); err != nil {
		t.Fatalf("play: %v", err)
	}
	s.Stop()
	if player.stopped != 1 || finished != 1 {
		t.Fatalf("stopped=%d finished=%d", player.stopped, finished)
	}
	if s.Playing() {
		t.Fatal("should be idle after stop")
	}
}
