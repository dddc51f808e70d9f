package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/observability/telemetry"
	"github.com/seu-repo/voxbank/internal/ports"
)

const (
	// maxReconnectAttempts caps the reconnect loop; after the fifth failed
	// attempt the channel stays disconnected until Connect is called again.
	maxReconnectAttempts = 5

	defaultBaseDelay = time.Second
)

// Conn is the subset of *websocket.Conn the channel uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a websocket connection
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Timer is a cancellable pending callback
type Timer interface {
	Stop() bool
}

// Options configures a Channel. Dialer, BaseDelay and After default to the
// real implementations when zero. HandshakeTimeout only applies to the
// default dialer.
type Options struct {
	URL              string
	Dialer           Dialer
	Tokens           ports.TokenProvider
	BaseDelay        time.Duration
	HandshakeTimeout time.Duration
	After            func(d time.Duration, fn func()) Timer
	Logger           *zap.Logger
}

// Channel is a persistent websocket session with the dialogue backend.
// It reconnects on unexpected drops with a linearly growing delay and gives
// up after maxReconnectAttempts consecutive failures.
type Channel struct {
	url       string
	dialer    Dialer
	tokens    ports.TokenProvider
	baseDelay time.Duration
	after     func(d time.Duration, fn func()) Timer
	log       *zap.Logger

	mu          sync.Mutex
	state       domain.ConnectionState
	conn        Conn
	retryCtx    context.Context
	retryCancel context.CancelFunc
	attempts    int
	timer    Timer
	wantOpen bool
	gen      int

	writeMu sync.Mutex

	nextID        int
	msgHandlers   map[int]func(map[string]interface{})
	errHandlers   map[int]func(error)
	closeHandlers map[int]func()
}

// NewChannel creates a disconnected channel
func NewChannel(opts Options) *Channel {
	c := &Channel{
		url:       opts.URL,
		dialer:    opts.Dialer,
		tokens:    opts.Tokens,
		baseDelay: opts.BaseDelay,
		after:     opts.After,
		log:       opts.Logger,

		state:         domain.ConnDisconnected,
		msgHandlers:   make(map[int]func(map[string]interface{})),
		errHandlers:   make(map[int]func(error)),
		closeHandlers: make(map[int]func()),
	}
	if c.dialer == nil {
		c.dialer = NewGorillaDialer(opts.HandshakeTimeout)
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.after == nil {
		c.after = func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		}
	}
	return c
}

// State returns the channel's current lifecycle position
func (c *Channel) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the websocket. Connecting while already open or connecting
// is a no-op. A failed dial counts as the first reconnect attempt. The
// caller's ctx bounds the initial dial only; reconnects run on a
// channel-owned context so a short-lived caller deadline cannot kill the
// standing connection's recovery.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == domain.ConnOpen || c.state == domain.ConnConnecting {
		c.mu.Unlock()
		return nil
	}
	c.wantOpen = true
	if c.retryCancel != nil {
		c.retryCancel()
	}
	c.retryCtx, c.retryCancel = context.WithCancel(context.Background())
	c.attempts = 0
	c.state = domain.ConnConnecting
	c.mu.Unlock()

	return c.dial(ctx)
}

// Disconnect closes the websocket deliberately. No reconnect is scheduled
// and all registered handlers are dropped.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.wantOpen = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.retryCancel != nil {
		c.retryCancel()
		c.retryCancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = domain.ConnClosing
	c.msgHandlers = make(map[int]func(map[string]interface{}))
	c.errHandlers = make(map[int]func(error))
	c.closeHandlers = make(map[int]func())
	c.state = domain.ConnDisconnected
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.log.Info("Realtime channel disconnected")
}

// Send ships one frame to the backend. Sending while the channel is not
// open fails loudly with ErrChannelNotOpen; frames are never queued.
func (c *Channel) Send(turn domain.RealtimeTurn) error {
	c.mu.Lock()
	if c.state != domain.ConnOpen || c.conn == nil {
		c.mu.Unlock()
		c.log.Error("Dropped outbound frame, channel not open",
			zap.String("state", string(c.state)),
		)
		return domain.ErrChannelNotOpen
	}
	conn := c.conn
	c.mu.Unlock()

	if turn.Token == "" && c.tokens != nil {
		turn.Token = c.tokens.AccessToken()
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	telemetry.RealtimeFramesTotal.WithLabelValues("out").Inc()
	return nil
}

// OnMessage registers a handler for parsed inbound frames. The returned
// function removes the handler.
func (c *Channel) OnMessage(fn func(map[string]interface{})) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.msgHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.msgHandlers, id)
	}
}

// OnError registers a handler for transport errors
func (c *Channel) OnError(fn func(error)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.errHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.errHandlers, id)
	}
}

// OnClose registers a handler for unexpected connection drops
func (c *Channel) OnClose(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.closeHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.closeHandlers, id)
	}
}

func (c *Channel) dial(ctx context.Context) error {
	header := http.Header{}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, err := c.dialer.Dial(ctx, c.url, header)

	c.mu.Lock()
	if !c.wantOpen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return err
	}

	if err != nil {
		c.log.Warn("Realtime dial failed", zap.String("url", c.url), zap.Error(err))
		errFns := c.snapshotErrHandlersLocked()
		c.scheduleRetryLocked()
		c.mu.Unlock()
		for _, fn := range errFns {
			fn(err)
		}
		return err
	}

	c.conn = conn
	c.state = domain.ConnOpen
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.log.Info("Realtime channel open", zap.String("url", c.url))
	go c.readLoop(gen, conn)
	return nil
}

// readLoop pumps inbound frames until the connection drops. A generation
// counter keeps loops of replaced connections from touching current state.
func (c *Channel) readLoop(gen int, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(gen, err)
			return
		}

		var payload map[string]interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			// Malformed frames are dropped, never fatal
			c.log.Warn("Dropping malformed frame",
				zap.Error(&domain.ProtocolError{Cause: err}),
			)
			continue
		}

		telemetry.RealtimeFramesTotal.WithLabelValues("in").Inc()
		for _, fn := range c.snapshotMsgHandlers() {
			fn(payload)
		}
	}
}

func (c *Channel) handleDrop(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil

	if !c.wantOpen {
		c.state = domain.ConnDisconnected
		c.mu.Unlock()
		return
	}

	c.log.Warn("Realtime channel dropped", zap.Error(err))
	errFns := c.snapshotErrHandlersLocked()
	closeFns := make([]func(), 0, len(c.closeHandlers))
	for _, fn := range c.closeHandlers {
		closeFns = append(closeFns, fn)
	}
	c.scheduleRetryLocked()
	c.mu.Unlock()

	for _, fn := range errFns {
		fn(err)
	}
	for _, fn := range closeFns {
		fn()
	}
}

// scheduleRetryLocked arms the next reconnect. The delay grows linearly
// with the attempt number: 1s, 2s, 3s, 4s, 5s with the default base delay.
func (c *Channel) scheduleRetryLocked() {
	if c.attempts >= maxReconnectAttempts {
		c.state = domain.ConnDisconnected
		c.wantOpen = false
		c.log.Warn("Giving up on realtime channel",
			zap.Int("attempts", c.attempts),
		)
		return
	}

	c.attempts++
	delay := time.Duration(c.attempts) * c.baseDelay
	c.state = domain.ConnConnecting
	telemetry.RealtimeReconnectsTotal.Inc()
	c.log.Info("Scheduling reconnect",
		zap.Int("attempt", c.attempts),
		zap.Duration("delay", delay),
	)

	ctx := c.retryCtx
	c.timer = c.after(delay, func() {
		c.mu.Lock()
		c.timer = nil
		if !c.wantOpen {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		_ = c.dial(ctx)
	})
}

func (c *Channel) snapshotErrHandlersLocked() []func(error) {
	fns := make([]func(error), 0, len(c.errHandlers))
	for _, fn := range c.errHandlers {
		fns = append(fns, fn)
	}
	return fns
}

func (c *Channel) snapshotMsgHandlers() []func(map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := make([]func(map[string]interface{}), 0, len(c.msgHandlers))
	for _, fn := range c.msgHandlers {
		fns = append(fns, fn)
	}
	return fns
}

type gorillaDialer struct {
	dialer *websocket.Dialer
}

// NewGorillaDialer returns the production Dialer. A zero timeout falls
// back to 10 seconds.
func NewGorillaDialer(handshakeTimeout time.Duration) Dialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &gorillaDialer{
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (g *gorillaDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := g.dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
