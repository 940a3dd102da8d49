package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/config"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// Handler upgrades HTTP requests to realtime connections and runs the
// authentication handshake.
type Handler struct {
	verifier *auth.Verifier
	router   *Router
	broker   *Broker
	cfg      *config.RealtimeConfig
	log      *logger.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates a new Handler
func NewHandler(verifier *auth.Verifier, router *Router, broker *Broker, cfg *config.RealtimeConfig, log *logger.Logger, metrics *Metrics) *Handler {
	return &Handler{
		verifier: verifier,
		router:   router,
		broker:   broker,
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Credentials travel in the first frame, not in cookies,
				// so cross-origin upgrades carry no ambient authority.
				return true
			},
		},
	}
}

// Serve handles GET /ws
func (h *Handler) Serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.handshake(ws)
}

// handshake reads the hello frame, verifies the credential and joins the
// implicit room set. Any failure closes the socket with a generic policy
// code; the reason is never detailed to the peer.
func (h *Handler) handshake(ws *websocket.Conn) {
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.AuthTimeout))

	_, data, err := ws.ReadMessage()
	if err != nil {
		h.reject(ws)
		return
	}

	var hello Message
	if err := json.Unmarshal(data, &hello); err != nil || hello.Type != MsgHello {
		h.reject(ws)
		return
	}

	identity, err := h.verifier.Verify(hello.Credential)
	if err != nil {
		h.reject(ws)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rooms := h.router.RoomsFor(ctx, identity)

	// A focus room narrows the live view to one club. An unauthorized
	// request is dropped silently; the connection itself stands.
	if hello.FocusRoom != "" && hello.FocusRoom.Valid() {
		if h.router.Authorize(ctx, identity, hello.FocusRoom) {
			rooms = appendRoom(rooms, hello.FocusRoom)
		} else {
			h.log.Debug("focus room denied",
				zap.String("user_id", identity.UserID),
				zap.String("room", string(hello.FocusRoom)),
			)
		}
	}

	conn := newConn(uuid.NewString(), identity, ws, h.broker, h.router, h.cfg, h.log, h.metrics)
	h.broker.Register(conn, rooms)
	h.metrics.ConnectionOpened(ctx)

	welcome, err := json.Marshal(Message{Type: MsgWelcome, Rooms: rooms})
	if err == nil {
		conn.Deliver(welcome)
	}

	h.log.Info("connection established",
		zap.String("conn_id", conn.id),
		zap.String("user_id", identity.UserID),
		zap.Int("rooms", len(rooms)),
	)

	conn.run()
}

// reject closes an unauthenticated socket with a generic close code
func (h *Handler) reject(ws *websocket.Conn) {
	deadline := time.Now().Add(h.cfg.WriteTimeout)
	_ = ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
		deadline,
	)
	_ = ws.Close()
}

func appendRoom(rooms []Room, room Room) []Room {
	for _, r := range rooms {
		if r == room {
			return rooms
		}
	}
	return append(rooms, room)
}
