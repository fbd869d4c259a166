// Package talentwire provides the Go client for the TalentWire realtime
// conversation service: a persistent websocket carrying streamed AI
// responses, chat lifecycle, candidate search, and duplex voice.
package talentwire

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/audio"
	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
	"github.com/Mawhubtech/talentwire-go/pkg/core/voice"
	"github.com/Mawhubtech/talentwire-go/pkg/core/wire"
)

// Bus is the event transport the services ride on. *wire.Conn satisfies
// it; tests substitute fakes.
type Bus interface {
	Emit(event string, payload any) error
	Subscribe(event string, h wire.Handler) func()
}

// Player is the speaker pipeline consumed by the speech service.
// *audio.Playback satisfies it.
type Player interface {
	Play(req audio.Request, started func(), completed func(error)) error
	Stop()
	Active() bool
}

// Client is the main entry point for the SDK.
type Client struct {
	Chats  *ChatService
	Search *SearchService
	Voice  *VoiceService
	Speech *SpeechService

	// Internal
	conn       *wire.Conn
	playback   *audio.Playback
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client

	url            string
	searchURL      string
	synthesisURL   string
	synthesisVoice string

	requestTimeout       time.Duration
	maxReconnectAttempts int
	reconnectBaseDelay   time.Duration
	reconnectMaxDelay    time.Duration
}

// NewClient creates a client for the websocket endpoint at url.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, core.NewInvalidRequestError("websocket url is required")
	}
	c := &Client{
		url:            url,
		logger:         slog.Default(),
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.requestTimeout}
	}

	c.conn = wire.New(wire.Options{
		URL:                  c.url,
		Logger:               c.logger,
		Metrics:              c.metrics,
		MaxReconnectAttempts: c.maxReconnectAttempts,
		ReconnectBaseDelay:   c.reconnectBaseDelay,
		ReconnectMaxDelay:    c.reconnectMaxDelay,
	})
	c.playback = audio.NewPlayback(c.logger, c.metrics)

	c.Chats = newChatService(c.conn, c.logger, c.requestTimeout)
	c.Search = newSearchService(c.conn, c.httpClient, c.searchURL, c.logger, c.metrics)
	capture := audio.NewCapture(c.logger, c.metrics)
	c.Voice = newVoiceService(c.conn, voice.NewRecorder(c.conn, capture, c.playback, c.logger), c.logger)
	c.Speech = newSpeechService(c.httpClient, c.synthesisURL, c.synthesisVoice, c.playback, c.logger)
	return c, nil
}

// Connect dials the service and authenticates with token. Auth rejection
// fails immediately; only established sessions reconnect on drops.
func (c *Client) Connect(ctx context.Context, token string) error {
	return c.conn.Connect(ctx, token)
}

// State returns the connection state.
func (c *Client) State() wire.State {
	return c.conn.State()
}

// Subscribe registers a raw handler for an inbound wire event. Most
// callers want the typed service observers instead.
func (c *Client) Subscribe(event string, h wire.Handler) func() {
	return c.conn.Subscribe(event, h)
}

// Close stops any active recording and playback and tears down the
// connection. Safe to call more than once.
func (c *Client) Close() error {
	_ = c.Voice.Stop(false)
	c.playback.Stop()
	c.Chats.shutdown()
	c.Search.shutdown()
	c.Voice.shutdown()
	return c.conn.Close()
}
