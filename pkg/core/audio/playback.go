package audio

import (
	"bytes"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
)

// DefaultPlaybackRate is assumed when a raw PCM16 request carries no rate.
const DefaultPlaybackRate = 24000

// Request is one utterance to play.
type Request struct {
	Data       []byte
	Encoding   Encoding
	SampleRate int
}

// Playback owns the speaker. At most one source plays at a time; starting a
// new one force-stops the previous source first.
//
// The underlying output context can only be created once per process, so it
// is opened lazily at the first request's rate and later requests at other
// rates are resampled to match.
type Playback struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	otoCtx  *oto.Context
	ctxRate int
	player  *oto.Player
	session *playSession
}

// playSession guards the started and completed notifications so each fires
// exactly once even when end-of-stream and a manual stop race.
type playSession struct {
	startOnce sync.Once
	doneOnce  sync.Once
	cancel    chan struct{}
	started   func()
	completed func(error)
}

func (s *playSession) markStarted() {
	s.startOnce.Do(func() {
		if s.started != nil {
			s.started()
		}
	})
}

func (s *playSession) complete(err error) {
	s.doneOnce.Do(func() {
		close(s.cancel)
		if s.completed != nil {
			s.completed(err)
		}
	})
}

// NewPlayback returns an idle playback pipeline. Logger and metrics may be nil.
func NewPlayback(logger *slog.Logger, m *metrics.Metrics) *Playback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Playback{logger: logger, metrics: m}
}

// Active reports whether a source is currently playing.
func (p *Playback) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Play decodes the request if needed and starts the speaker. started fires
// once when output begins; completed fires once when the source drains, is
// stopped, or fails mid-stream. Decode and device failures are reported
// synchronously and neither callback fires.
func (p *Playback) Play(req Request, started func(), completed func(error)) error {
	p.Stop()

	pcm, rate, err := p.prepare(req)
	if err != nil {
		if p.metrics != nil {
			p.metrics.PlaybackFailures.Inc()
		}
		return err
	}

	p.mu.Lock()
	ctx, err := p.contextFor(rate)
	if err != nil {
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.PlaybackFailures.Inc()
		}
		return core.NewPlaybackError("audio output unavailable", err)
	}
	if rate != p.ctxRate {
		pcm = resamplePCM16(pcm, rate, p.ctxRate)
		rate = p.ctxRate
	}
	ses := &playSession{cancel: make(chan struct{}), started: started, completed: completed}
	player := ctx.NewPlayer(bytes.NewReader(pcm))
	p.player = player
	p.session = ses
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.PlaybackStarts.Inc()
	}
	player.Play()
	ses.markStarted()
	go p.watch(player, ses)
	return nil
}

// prepare normalizes a request to mono PCM16 plus its sample rate.
func (p *Playback) prepare(req Request) ([]byte, int, error) {
	return Normalize(req)
}

// Normalize converts a playback request to mono PCM16 plus its sample rate,
// decoding WAV containers and sniffing the encoding when unset.
func Normalize(req Request) ([]byte, int, error) {
	if len(req.Data) == 0 {
		return nil, 0, core.NewPlaybackError("empty audio payload", nil)
	}
	enc := req.Encoding
	if enc == "" {
		enc = SniffEncoding(req.Data)
	}
	switch enc {
	case EncodingPCM16:
		rate := req.SampleRate
		if rate <= 0 {
			rate = DefaultPlaybackRate
		}
		return req.Data, rate, nil
	case EncodingCompressed:
		pcm, rate, err := decodeWAV(req.Data)
		if err != nil {
			return nil, 0, core.NewPlaybackError("decode failed", err)
		}
		return pcm, rate, nil
	default:
		return nil, 0, core.NewPlaybackError("unknown audio encoding: "+string(enc), nil)
	}
}

// contextFor returns the shared output context, creating it on first use.
// Caller holds p.mu.
func (p *Playback) contextFor(rate int) (*oto.Context, error) {
	if p.otoCtx != nil {
		_ = p.otoCtx.Resume()
		return p.otoCtx, nil
	}
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	p.otoCtx = ctx
	p.ctxRate = rate
	return ctx, nil
}

// watch polls until the player drains, then fires the single completion.
func (p *Playback) watch(player *oto.Player, ses *playSession) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ses.cancel:
			return
		case <-ticker.C:
			if player.IsPlaying() {
				continue
			}
			p.mu.Lock()
			if p.session == ses {
				p.player, p.session = nil, nil
			}
			p.mu.Unlock()
			_ = player.Close()
			if p.metrics != nil {
				p.metrics.PlaybackCompletions.Inc()
			}
			ses.complete(nil)
			p.suspend()
			return
		}
	}
}

// Stop halts the current source, if any, and fires its completion. Safe to
// call when idle; repeated calls are no-ops.
func (p *Playback) Stop() {
	p.mu.Lock()
	player, ses := p.player, p.session
	p.player, p.session = nil, nil
	p.mu.Unlock()

	if player == nil {
		return
	}
	player.Pause()
	_ = player.Close()
	if p.metrics != nil {
		p.metrics.PlaybackCompletions.Inc()
	}
	ses.complete(nil)
	p.suspend()
}

// suspend releases the output device between utterances.
func (p *Playback) suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.otoCtx != nil && p.session == nil {
		_ = p.otoCtx.Suspend()
	}
}
