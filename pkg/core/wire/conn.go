package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mawhubtech/talentwire-go/pkg/core"
	"github.com/Mawhubtech/talentwire-go/pkg/core/metrics"
)

const (
	defaultHandshakeTimeout     = 15 * time.Second
	defaultWriteTimeout         = 10 * time.Second
	defaultMaxReconnectAttempts = 5
	defaultReconnectBaseDelay   = 500 * time.Millisecond
	defaultReconnectMaxDelay    = 10 * time.Second
)

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateReconnecting
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Options configures a Conn. URL is required; everything else has
// defaults.
type Options struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *slog.Logger
	Metrics *metrics.Metrics

	// MaxReconnectAttempts bounds reconnection after an unexpected drop.
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Conn is the persistent websocket connection to the platform.
type Conn struct {
	url     string
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics

	maxAttempts      int
	baseDelay        time.Duration
	maxDelay         time.Duration
	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	dispatcher *Dispatcher
	state      atomic.Int32

	mu    sync.Mutex // guards ws, token, gen
	ws    *websocket.Conn
	token string
	gen   int

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// New creates a Conn in the Disconnected state.
func New(opts Options) *Conn {
	c := &Conn{
		url:              opts.URL,
		dialer:           opts.Dialer,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		maxAttempts:      opts.MaxReconnectAttempts,
		baseDelay:        opts.ReconnectBaseDelay,
		maxDelay:         opts.ReconnectMaxDelay,
		handshakeTimeout: opts.HandshakeTimeout,
		writeTimeout:     opts.WriteTimeout,
		dispatcher:       NewDispatcher(),
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxReconnectAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultReconnectBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultReconnectMaxDelay
	}
	if c.handshakeTimeout <= 0 {
		c.handshakeTimeout = defaultHandshakeTimeout
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// Subscribe registers a handler for an inbound event and returns an
// unsubscribe function.
func (c *Conn) Subscribe(event string, h Handler) func() {
	return c.dispatcher.Subscribe(event, h)
}

// Connect dials the platform and performs the auth handshake. An auth
// failure moves the connection to Failed without retrying; only drops of
// an established session are retried.
func (c *Conn) Connect(ctx context.Context, token string) error {
	if c.closed.Load() {
		return core.NewConnectionError("connection is closed")
	}
	switch c.State() {
	case StateDisconnected, StateFailed:
	default:
		return core.NewInvalidRequestError("connect called on an active connection")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}

	ws, err := c.dialAndAuth(ctx, false)
	if err != nil {
		c.setState(StateFailed)
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.readLoop(ws, gen)
	return nil
}

// dialAndAuth opens a socket and completes the auth handshake. During
// reconnection the state stays Reconnecting until the socket is open.
func (c *Conn) dialAndAuth(ctx context.Context, reconnecting bool) (*websocket.Conn, error) {
	if !reconnecting {
		c.setState(StateConnecting)
	}

	ws, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return nil, core.NewConnectionError(fmt.Sprintf("dial %s failed (status %d): %v", c.url, resp.StatusCode, err))
		}
		return nil, core.NewConnectionError(fmt.Sprintf("dial %s failed: %v", c.url, err))
	}
	c.setState(StateConnected)

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	auth, err := json.Marshal(authRequest{Token: token})
	if err != nil {
		_ = ws.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("encode auth frame: %v", err))
	}
	if err := ws.WriteJSON(Frame{Event: EventAuth, Data: auth}); err != nil {
		_ = ws.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("send auth frame: %v", err))
	}

	_ = ws.SetReadDeadline(time.Now().Add(c.handshakeTimeout))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("read auth response: %v", err))
	}
	_ = ws.SetReadDeadline(time.Time{})

	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		_ = ws.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("decode auth response: %v", err))
	}

	switch frame.Event {
	case EventConnected:
		c.setState(StateAuthenticated)
		c.dispatch(frame.Event, frame.Data)
		return ws, nil
	case EventError:
		_ = ws.Close()
		var se serverError
		_ = json.Unmarshal(frame.Data, &se)
		if se.Message == "" {
			se.Message = "authentication rejected"
		}
		return nil, core.NewConnectionError("authentication failed: " + se.Message)
	default:
		_ = ws.Close()
		return nil, core.NewConnectionError(fmt.Sprintf("unexpected handshake frame %q", frame.Event))
	}
}

// Emit sends an outbound event. It surfaces an error instead of writing
// when the connection is not authenticated.
func (c *Conn) Emit(event string, payload any) error {
	if c.closed.Load() {
		return core.NewConnectionError("connection is closed")
	}
	if c.State() != StateAuthenticated {
		return core.NewConnectionError(fmt.Sprintf("cannot emit %q: not authenticated (state %s)", event, c.State()))
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return core.NewInvalidRequestError(fmt.Sprintf("encode %q payload: %v", event, err))
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return core.NewConnectionError("no active socket")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := ws.WriteJSON(Frame{Event: event, Data: data}); err != nil {
		return core.NewConnectionError(fmt.Sprintf("write %q: %v", event, err))
	}
	if c.metrics != nil {
		c.metrics.EventsEmitted.WithLabelValues(event).Inc()
	}
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			c.writeMu.Lock()
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
			c.writeMu.Unlock()
			_ = ws.Close()
		}
		c.setState(StateDisconnected)
	})
	return nil
}

func (c *Conn) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setState(StateDisconnected)
				return
			}
			c.logger.Warn("connection dropped", "error", err)
			c.reconnect(gen)
			return
		}
		c.handleFrame(payload)
	}
}

// handleFrame decodes one inbound frame. Malformed frames are logged and
// dropped without terminating the stream.
func (c *Conn) handleFrame(payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Event == "" {
		if err == nil {
			err = fmt.Errorf("frame missing event")
		}
		c.logger.Warn("dropping malformed frame", "error", err)
		if c.metrics != nil {
			c.metrics.ProtocolErrors.Inc()
		}
		return
	}
	c.dispatch(frame.Event, frame.Data)
}

func (c *Conn) dispatch(event string, data json.RawMessage) {
	if c.metrics != nil {
		c.metrics.EventsDispatched.WithLabelValues(event).Inc()
	}
	c.dispatcher.Dispatch(event, data)
}

// reconnect re-establishes a dropped session with bounded exponential
// backoff, performing exactly one auth handshake per attempt. Only the
// read loop whose generation is still current may reconnect, so two
// loops can never race to dial concurrently.
func (c *Conn) reconnect(failedGen int) {
	c.mu.Lock()
	if c.gen != failedGen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.mu.Unlock()

	c.setState(StateReconnecting)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		time.Sleep(delayFor(attempt, c.baseDelay, c.maxDelay))
		if c.closed.Load() {
			return
		}
		if c.metrics != nil {
			c.metrics.ReconnectAttempts.Inc()
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.handshakeTimeout)
		ws, err := c.dialAndAuth(ctx, true)
		cancel()
		if err != nil {
			c.logger.Warn("reconnect attempt failed", "attempt", attempt+1, "error", err)
			c.setState(StateReconnecting)
			continue
		}

		c.mu.Lock()
		c.ws = ws
		c.gen++
		gen := c.gen
		c.mu.Unlock()

		if c.metrics != nil {
			c.metrics.Reconnects.Inc()
		}
		c.logger.Info("reconnected", "attempt", attempt+1)
		go c.readLoop(ws, gen)
		return
	}

	c.logger.Error("reconnect attempts exhausted", "attempts", c.maxAttempts)
	c.setState(StateFailed)
}
