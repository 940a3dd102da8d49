// Package streamclient is the consumer side of the realtime booking
// stream: a reconnecting websocket transport that authenticates, keeps a
// subscription set alive across reconnects, and hands inbound events to a
// reconciliation engine. The stream is a freshness accelerator, not a
// source of truth; after every reconnect the consumer is expected to
// refetch its focused view, since events missed while offline are gone.
package streamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/realtime"
)

var (
	// ErrUnauthorized is returned when the server rejects the handshake.
	ErrUnauthorized = errors.New("handshake rejected")
	// ErrBadState is returned when Connect is called while a session is live.
	ErrBadState = errors.New("client is not in a connectable state")
)

// Config holds client transport settings
type Config struct {
	// URL is the websocket endpoint, e.g. ws://host:port/ws.
	URL string
	// FocusRoom optionally narrows the live view to one club at handshake.
	FocusRoom realtime.Room
	// HandshakeTimeout bounds dial plus hello/welcome exchange.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds individual frame writes.
	WriteTimeout time.Duration
	// InitialBackoff is the first reconnect delay.
	InitialBackoff time.Duration
	// MaxBackoff caps the reconnect delay.
	MaxBackoff time.Duration
	// MaxAttempts bounds reconnect attempts before going offline.
	MaxAttempts int
	// Logger receives diagnostics; nil disables them.
	Logger *zap.Logger
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// Client is a reconnecting realtime stream consumer. All exported methods
// are safe for concurrent use.
type Client struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	state      State
	ws         *websocket.Conn
	credential string
	generation int
	stop       chan struct{}
	// desired is the subscription set the client believes it should hold,
	// in request order. It is re-sent wholesale on every re-authentication:
	// broker-side membership lives only in connection state and never
	// survives a reconnect.
	desired []realtime.Room
	// pending queues subscribe/unsubscribe frames issued before the
	// session is active; they flush in order once it is. The broker treats
	// duplicate joins as no-ops, so overlap with the desired resync is
	// harmless.
	pending []realtime.Message

	wmu sync.Mutex // serializes data frame writes

	onEvent func(*realtime.Event)
	onState func(State)
}

// New creates a client in the disconnected state
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:   cfg,
		log:   cfg.Logger,
		state: StateDisconnected,
	}
}

// OnEvent registers the inbound event handler. Events for one connection
// are delivered sequentially, in arrival order. Must be set before Connect.
func (c *Client) OnEvent(handler func(*realtime.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = handler
}

// OnStateChange registers a lifecycle observer. The offline state is the
// persistent signal that automatic reconnection gave up.
func (c *Client) OnStateChange(handler func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// State returns the current lifecycle state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Rooms returns the desired subscription set, in request order
func (c *Client) Rooms() []realtime.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]realtime.Room, len(c.desired))
	copy(rooms, c.desired)
	return rooms
}

// Connect dials the endpoint and runs the handshake with the given
// credential. It is synchronous: on return the session is active (the
// queued subscription set has been flushed) or an error describes why
// not. Transport drops after a successful Connect trigger automatic
// reconnection; Connect must be called again only after Close or after
// the client went offline.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.state != StateDisconnected && c.state != StateOffline {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBadState, c.state)
	}
	c.credential = credential
	c.stop = make(chan struct{})
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	c.notify(StateConnecting)

	ws, err := c.establish(ctx)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		c.notify(StateDisconnected)
		return err
	}

	c.startSession(ws)
	return nil
}

// establish dials and performs the hello/welcome exchange
func (c *Client) establish(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", c.cfg.URL, err)
	}

	hello := realtime.Message{
		Type:       realtime.MsgHello,
		Credential: c.credential,
		FocusRoom:  c.cfg.FocusRoom,
	}
	_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := ws.WriteJSON(hello); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	var welcome realtime.Message
	if err := ws.ReadJSON(&welcome); err != nil {
		_ = ws.Close()
		if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to read welcome: %w", err)
	}
	if welcome.Type != realtime.MsgWelcome {
		_ = ws.Close()
		return nil, fmt.Errorf("unexpected handshake frame %q", welcome.Type)
	}
	_ = ws.SetReadDeadline(time.Time{})

	c.log.Debug("handshake complete", zap.Int("rooms", len(welcome.Rooms)))
	return ws, nil
}

// startSession installs the socket, resyncs the subscription set and
// starts the read loop.
func (c *Client) startSession(ws *websocket.Conn) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.ws = ws
	c.setStateLocked(StateAuthenticated)
	desired := make([]realtime.Room, len(c.desired))
	copy(desired, c.desired)
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	c.notify(StateAuthenticated)

	c.mu.Lock()
	if c.generation != gen {
		// Closed while the handshake was finishing.
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.setStateLocked(StateSubscribing)
	c.mu.Unlock()
	c.notify(StateSubscribing)

	// Wholesale resync, then the queued operations in issue order.
	for _, room := range desired {
		c.send(ws, realtime.Message{Type: realtime.MsgSubscribe, Room: room})
	}
	for _, op := range pending {
		c.send(ws, op)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.setStateLocked(StateActive)
	c.mu.Unlock()
	c.notify(StateActive)

	go c.readLoop(ws, gen)
}

// Subscribe asks to join one extra room. While the session is not active
// the request is queued, and the desired set is re-sent on every
// re-authentication regardless.
func (c *Client) Subscribe(room realtime.Room) {
	c.mu.Lock()
	if !containsRoom(c.desired, room) {
		c.desired = append(c.desired, room)
	}
	if c.state == StateActive {
		ws := c.ws
		c.mu.Unlock()
		c.send(ws, realtime.Message{Type: realtime.MsgSubscribe, Room: room})
		return
	}
	c.pending = append(c.pending, realtime.Message{Type: realtime.MsgSubscribe, Room: room})
	c.mu.Unlock()
}

// Unsubscribe asks to leave a room
func (c *Client) Unsubscribe(room realtime.Room) {
	c.mu.Lock()
	c.desired = removeRoom(c.desired, room)
	if c.state == StateActive {
		ws := c.ws
		c.mu.Unlock()
		c.send(ws, realtime.Message{Type: realtime.MsgUnsubscribe, Room: room})
		return
	}
	c.pending = append(c.pending, realtime.Message{Type: realtime.MsgUnsubscribe, Room: room})
	c.mu.Unlock()
}

// Close tears the session down. No automatic reconnection follows.
func (c *Client) Close() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.generation++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	ws := c.ws
	c.ws = nil
	c.pending = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
	c.notify(StateDisconnected)
}

func (c *Client) send(ws *websocket.Conn, msg realtime.Message) {
	if ws == nil {
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := ws.WriteJSON(msg); err != nil {
		// The read loop will observe the dead socket and reconnect.
		c.log.Debug("frame write failed", zap.String("type", string(msg.Type)), zap.Error(err))
	}
}

func (c *Client) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// One bad frame must not take the stream down.
			c.log.Warn("malformed frame skipped", zap.Error(err))
			continue
		}

		switch msg.Type {
		case realtime.MsgEvent:
			if msg.Event == nil {
				c.log.Warn("event frame without event skipped")
				continue
			}
			c.mu.Lock()
			handler := c.onEvent
			c.mu.Unlock()
			if handler != nil {
				handler(msg.Event)
			}
		case realtime.MsgSubscribed, realtime.MsgUnsubscribed:
			c.log.Debug("subscription ack", zap.String("type", string(msg.Type)), zap.String("room", string(msg.Room)))
		default:
			c.log.Debug("unexpected frame ignored", zap.String("type", string(msg.Type)))
		}
	}

	_ = ws.Close()
	c.reconnect(gen)
}

// reconnect runs capped exponential backoff with a bounded attempt count,
// then surfaces offline. Room membership does not survive on the broker,
// so every successful attempt re-sends the full desired set.
func (c *Client) reconnect(gen int) {
	c.mu.Lock()
	if c.generation != gen || c.state == StateDisconnected {
		// Superseded by Close or a newer session.
		c.mu.Unlock()
		return
	}
	stop := c.stop
	c.setStateLocked(StateReconnecting)
	c.mu.Unlock()
	c.notify(StateReconnecting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		select {
		case <-stop:
			return
		case <-time.After(bo.NextBackOff()):
		}

		c.mu.Lock()
		if c.generation != gen || c.state != StateReconnecting {
			c.mu.Unlock()
			return
		}
		c.setStateLocked(StateConnecting)
		c.mu.Unlock()
		c.notify(StateConnecting)

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
		ws, err := c.establish(ctx)
		cancel()
		if err != nil {
			c.log.Debug("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			c.mu.Lock()
			if c.generation != gen || c.state != StateConnecting {
				c.mu.Unlock()
				return
			}
			c.setStateLocked(StateReconnecting)
			c.mu.Unlock()
			c.notify(StateReconnecting)
			continue
		}

		c.startSession(ws)
		return
	}

	c.mu.Lock()
	if c.generation == gen && c.state == StateReconnecting {
		c.setStateLocked(StateOffline)
		c.mu.Unlock()
		c.notify(StateOffline)
		return
	}
	c.mu.Unlock()
}

// setStateLocked transitions the lifecycle state; the caller holds c.mu.
func (c *Client) setStateLocked(next State) {
	if c.state == next {
		return
	}
	if !c.state.CanTransitionTo(next) {
		c.log.Warn("invalid state transition forced",
			zap.String("from", string(c.state)),
			zap.String("to", string(next)),
		)
	}
	c.state = next
}

func (c *Client) notify(state State) {
	c.mu.Lock()
	handler := c.onState
	c.mu.Unlock()
	if handler != nil {
		handler(state)
	}
}

func containsRoom(rooms []realtime.Room, room realtime.Room) bool {
	for _, r := range rooms {
		if r == room {
			return true
		}
	}
	return false
}

func removeRoom(rooms []realtime.Room, room realtime.Room) []realtime.Room {
	out := rooms[:0]
	for _, r := range rooms {
		if r != room {
			out = append(out, r)
		}
	}
	return out
}
