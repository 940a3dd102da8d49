package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/config"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// maxFrameSize bounds inbound frames; runtime messages are tiny.
const maxFrameSize = 4096

// Conn is one authenticated server-side connection. Outbound frames go
// through a buffered channel drained by the write pump, so fan-out never
// blocks on a slow socket.
type Conn struct {
	id       string
	identity *auth.Identity
	ws       *websocket.Conn
	send     chan []byte
	broker   *Broker
	router   *Router
	cfg      *config.RealtimeConfig
	log      *logger.Logger
	metrics  *Metrics

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, identity *auth.Identity, ws *websocket.Conn, broker *Broker, router *Router, cfg *config.RealtimeConfig, log *logger.Logger, metrics *Metrics) *Conn {
	return &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		send:     make(chan []byte, cfg.SendBufferSize),
		broker:   broker,
		router:   router,
		cfg:      cfg,
		log:      log.WithFields(zap.String("conn_id", id), zap.String("user_id", identity.UserID)),
		metrics:  metrics,
		done:     make(chan struct{}),
	}
}

// Deliver implements Subscriber. It never blocks: a full buffer or a
// closing connection drops the frame.
func (c *Conn) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// run starts the write pump and blocks in the read pump until the
// connection drops.
func (c *Conn) run() {
	go c.writePump()
	c.readPump()
}

func (c *Conn) readPump() {
	defer c.shutdown()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("connection closed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// One bad frame must not take the connection down.
			c.log.Warn("malformed frame skipped", zap.Error(err))
			continue
		}
		c.handle(&msg)
	}
}

func (c *Conn) handle(msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Type {
	case MsgSubscribe:
		if !msg.Room.Valid() {
			c.log.Warn("subscribe for malformed room skipped", zap.String("room", string(msg.Room)))
			return
		}
		if !c.router.Authorize(ctx, c.identity, msg.Room) {
			// Silent denial: no ack, connection stays open.
			c.log.Debug("subscribe denied", zap.String("room", string(msg.Room)))
			return
		}
		c.broker.Join(c, msg.Room)
		c.ack(MsgSubscribed, msg.Room)

	case MsgUnsubscribe:
		c.broker.Leave(c, msg.Room)
		c.ack(MsgUnsubscribed, msg.Room)

	default:
		c.log.Debug("unexpected frame type ignored", zap.String("type", string(msg.Type)))
	}
}

func (c *Conn) ack(msgType MessageType, room Room) {
	frame, err := json.Marshal(Message{Type: msgType, Room: room})
	if err != nil {
		return
	}
	c.Deliver(frame)
}

func (c *Conn) writePump() {
	pingPeriod := c.cfg.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

// shutdown removes the connection from every room before the socket is
// torn down, so no publish can deliver into a dead connection.
func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		c.broker.Unregister(c)
		close(c.done)
		_ = c.ws.Close()
		c.metrics.ConnectionClosed(context.Background())
		c.log.Debug("connection shut down")
	})
}
