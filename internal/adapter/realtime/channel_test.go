package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/domain"
	"github.com/seu-repo/voxbank/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type inboundFrame struct {
	data []byte
	err  error
}

type fakeConn struct {
	mu      sync.Mutex
	inbound chan inboundFrame
	written [][]byte
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan inboundFrame, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	fr, ok := <-f.inbound
	if !ok {
		return 0, nil, errors.New("use of closed connection")
	}
	if fr.err != nil {
		return 0, nil, fr.err
	}
	return 1, fr.data, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

func (f *fakeConn) emit(t *testing.T, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.inbound <- inboundFrame{data: data}
}

func (f *fakeConn) emitRaw(data []byte) {
	f.inbound <- inboundFrame{data: data}
}

func (f *fakeConn) fail(err error) {
	f.inbound <- inboundFrame{err: err}
}

func (f *fakeConn) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

type dialResult struct {
	conn *fakeConn
	err  error
}

type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   int
	ctxs    []context.Context
}

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.ctxs = append(d.ctxs, ctx)
	if len(d.results) == 0 {
		return nil, errors.New("no scripted dial result")
	}
	r := d.results[0]
	d.results = d.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (d *fakeDialer) queue(r dialResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, r)
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// dialCtxErr returns the liveness of the context passed to the i-th dial
func (d *fakeDialer) dialCtxErr(i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctxs[i].Err()
}

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.stopped = true
	return true
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) after(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) pending() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*manualTimer, len(c.timers))
	copy(out, c.timers)
	return out
}

// fire runs the most recently scheduled timer
func (c *manualClock) fire(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	if len(c.timers) == 0 {
		c.mu.Unlock()
		t.Fatal("no timer scheduled")
	}
	timer := c.timers[len(c.timers)-1]
	c.mu.Unlock()
	timer.fn()
}

func newTestChannel(dialer *fakeDialer, clock *manualClock) *Channel {
	return NewChannel(Options{
		URL:       "ws://bank.test/ws/voice",
		Dialer:    dialer,
		Tokens:    mocks.StaticTokens("token-abc"),
		BaseDelay: time.Second,
		After:     clock.after,
		Logger:    newTestLogger(),
	})
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestChannel_ConnectAndSend(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	channel := newTestChannel(dialer, &manualClock{})
	defer channel.Disconnect()

	// Act
	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	err := channel.Send(domain.RealtimeTurn{UserID: "user-42", AudioBase64: "aGk="})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if channel.State() != domain.ConnOpen {
		t.Errorf("expected open state, got %s", channel.State())
	}

	frames := conn.frames()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	var sent domain.RealtimeTurn
	if err := json.Unmarshal(frames[0], &sent); err != nil {
		t.Fatalf("unmarshal sent frame: %v", err)
	}
	if sent.UserID != "user-42" {
		t.Errorf("unexpected user id %q", sent.UserID)
	}
	if sent.Token != "token-abc" {
		t.Errorf("expected session token attached, got %q", sent.Token)
	}
}

func TestChannel_SendWhileClosed(t *testing.T) {
	// Arrange
	channel := newTestChannel(&fakeDialer{}, &manualClock{})

	// Act
	err := channel.Send(domain.RealtimeTurn{UserID: "user-42"})

	// Assert
	if !errors.Is(err, domain.ErrChannelNotOpen) {
		t.Fatalf("expected ErrChannelNotOpen, got %v", err)
	}
}

func TestChannel_DispatchesInboundFrames(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	channel := newTestChannel(dialer, &manualClock{})
	defer channel.Disconnect()

	received := make(chan map[string]interface{}, 1)
	channel.OnMessage(func(payload map[string]interface{}) {
		received <- payload
	})

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	conn.emit(t, map[string]string{"transcript": "check my balance"})

	// Assert
	select {
	case payload := <-received:
		if payload["transcript"] != "check my balance" {
			t.Errorf("unexpected payload %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestChannel_MalformedFrameDropped(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	channel := newTestChannel(dialer, &manualClock{})
	defer channel.Disconnect()

	received := make(chan map[string]interface{}, 2)
	channel.OnMessage(func(payload map[string]interface{}) {
		received <- payload
	})

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	conn.emitRaw([]byte("{not json"))
	conn.emit(t, map[string]string{"transcript": "still alive"})

	// Assert
	select {
	case payload := <-received:
		if payload["transcript"] != "still alive" {
			t.Errorf("expected the valid frame only, got %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	if channel.State() != domain.ConnOpen {
		t.Errorf("expected channel to stay open, got %s", channel.State())
	}
}

func TestChannel_LinearBackoffAndGiveUp(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	clock := &manualClock{}
	channel := newTestChannel(dialer, clock)

	closed := make(chan struct{}, 8)
	channel.OnClose(func() { closed <- struct{}{} })

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act: drop the connection, then fail every redial
	conn.fail(errors.New("connection reset"))
	waitFor(t, closed)

	for i := 0; i < 5; i++ {
		dialer.queue(dialResult{err: errors.New("still down")})
	}
	timers := clock.pending()
	if len(timers) != 1 {
		t.Fatalf("expected reconnect scheduled, got %d timers", len(timers))
	}

	for i := 0; i < 5; i++ {
		clock.fire(t)
	}

	// Assert: delays grew linearly and the channel gave up after 5 attempts
	timers = clock.pending()
	if len(timers) != 5 {
		t.Fatalf("expected 5 scheduled reconnects, got %d", len(timers))
	}
	for i, timer := range timers {
		want := time.Duration(i+1) * time.Second
		if timer.delay != want {
			t.Errorf("attempt %d: expected delay %v, got %v", i+1, want, timer.delay)
		}
	}
	if channel.State() != domain.ConnDisconnected {
		t.Errorf("expected disconnected after giving up, got %s", channel.State())
	}
	// 1 initial + 5 failed redials; the give-up schedules nothing more
	if dialer.dialCount() != 6 {
		t.Errorf("expected 6 dials, got %d", dialer.dialCount())
	}
}

func TestChannel_BackoffResetsOnReconnect(t *testing.T) {
	// Arrange
	first := newFakeConn()
	second := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: first})
	clock := &manualClock{}
	channel := newTestChannel(dialer, clock)
	defer channel.Disconnect()

	closed := make(chan struct{}, 8)
	channel.OnClose(func() { closed <- struct{}{} })

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act: one failed redial, then a successful one, then another drop
	first.fail(errors.New("connection reset"))
	waitFor(t, closed)

	dialer.queue(dialResult{err: errors.New("still down")})
	clock.fire(t) // attempt 1 fails, schedules attempt 2

	dialer.queue(dialResult{conn: second})
	clock.fire(t) // attempt 2 succeeds

	if channel.State() != domain.ConnOpen {
		t.Fatalf("expected reopened channel, got %s", channel.State())
	}

	second.fail(errors.New("connection reset again"))
	waitFor(t, closed)

	// Assert: the drop after a successful open starts over at the base delay
	timers := clock.pending()
	last := timers[len(timers)-1]
	if last.delay != time.Second {
		t.Errorf("expected backoff reset to 1s, got %v", last.delay)
	}
}

func TestChannel_ReconnectOutlivesCallerContext(t *testing.T) {
	// Arrange
	first := newFakeConn()
	second := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: first})
	clock := &manualClock{}
	channel := newTestChannel(dialer, clock)
	defer channel.Disconnect()

	closed := make(chan struct{}, 1)
	channel.OnClose(func() { closed <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	if err := channel.Connect(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cancel() // the caller moves on; the standing connection stays up

	// Act: drop the connection after the caller's context ended
	first.fail(errors.New("connection reset"))
	waitFor(t, closed)

	dialer.queue(dialResult{conn: second})
	clock.fire(t)

	// Assert: the redial ran on a live context and reopened the channel
	if err := dialer.dialCtxErr(1); err != nil {
		t.Fatalf("expected a live redial context, got %v", err)
	}
	if channel.State() != domain.ConnOpen {
		t.Errorf("expected reopened channel, got %s", channel.State())
	}
}

func TestChannel_DisconnectSuppressesReconnect(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	clock := &manualClock{}
	channel := newTestChannel(dialer, clock)

	closeCalls := 0
	channel.OnClose(func() { closeCalls++ })

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	channel.Disconnect()

	// Assert
	if channel.State() != domain.ConnDisconnected {
		t.Errorf("expected disconnected, got %s", channel.State())
	}
	if len(clock.pending()) != 0 {
		t.Error("expected no reconnect scheduled")
	}
	if closeCalls != 0 {
		t.Error("expected close handlers not to fire on deliberate disconnect")
	}
	if err := channel.Send(domain.RealtimeTurn{}); !errors.Is(err, domain.ErrChannelNotOpen) {
		t.Errorf("expected ErrChannelNotOpen after disconnect, got %v", err)
	}
	if dialer.dialCount() != 1 {
		t.Errorf("expected no redial, got %d dials", dialer.dialCount())
	}
}

func TestNewGorillaDialer_HandshakeTimeout(t *testing.T) {
	// Arrange / Act
	configured := NewGorillaDialer(3 * time.Second).(*gorillaDialer)
	defaulted := NewGorillaDialer(0).(*gorillaDialer)

	// Assert
	if configured.dialer.HandshakeTimeout != 3*time.Second {
		t.Errorf("expected configured timeout, got %v", configured.dialer.HandshakeTimeout)
	}
	if defaulted.dialer.HandshakeTimeout != 10*time.Second {
		t.Errorf("expected 10s fallback, got %v", defaulted.dialer.HandshakeTimeout)
	}
}

func TestChannel_RemoveHandler(t *testing.T) {
	// Arrange
	conn := newFakeConn()
	dialer := &fakeDialer{}
	dialer.queue(dialResult{conn: conn})
	channel := newTestChannel(dialer, &manualClock{})
	defer channel.Disconnect()

	kept := make(chan map[string]interface{}, 2)
	removedCalled := false
	remove := channel.OnMessage(func(map[string]interface{}) { removedCalled = true })
	channel.OnMessage(func(payload map[string]interface{}) { kept <- payload })

	if err := channel.Connect(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	remove()
	conn.emit(t, map[string]string{"transcript": "hello"})

	// Assert
	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	if removedCalled {
		t.Error("expected removed handler not to fire")
	}
}
