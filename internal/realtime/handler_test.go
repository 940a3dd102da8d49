package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/config"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

const handlerTestSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type wsFixture struct {
	server *httptest.Server
	broker *Broker
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	cfg := &config.RealtimeConfig{
		AuthTimeout:    2 * time.Second,
		WriteTimeout:   2 * time.Second,
		PongTimeout:    60 * time.Second,
		SendBufferSize: 16,
	}
	verifier := auth.NewVerifier(&auth.VerifierConfig{Secret: handlerTestSecret})
	router := NewRouter(testDirectory(), logger.Nop())
	broker := NewBroker(logger.Nop(), nil)
	handler := NewHandler(verifier, router, broker, cfg, logger.Nop(), nil)

	engine := gin.New()
	engine.GET("/ws", handler.Serve)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &wsFixture{server: server, broker: broker}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func credentialFor(t *testing.T, userID string, orgs, clubs []string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID:  userID,
		OrgIDs:  orgs,
		ClubIDs: clubs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(handlerTestSecret))
	if err != nil {
		t.Fatalf("failed to sign credential: %v", err)
	}
	return signed
}

func readMessage(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return msg
}

func TestHandshake_EmptyCredentialRejected(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: ""}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := ws.ReadMessage()
	if err == nil {
		t.Fatal("expected connection to be closed")
	}
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("close error = %v, want policy violation", err)
	}
}

func TestHandshake_NonHelloFirstFrameRejected(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	if err := ws.WriteJSON(Message{Type: MsgSubscribe, Room: ClubRoom("club-1")}); err != nil {
		t.Fatalf("failed to send frame: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed")
	}
}

func TestHandshake_WelcomeNamesJoinedRooms(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "u1", []string{"org-1"}, nil)
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}

	welcome := readMessage(t, ws)
	if welcome.Type != MsgWelcome {
		t.Fatalf("first frame type = %q, want %q", welcome.Type, MsgWelcome)
	}
	for _, want := range []Room{PlayerRoom("u1"), OrgRoom("org-1"), ClubRoom("club-1"), ClubRoom("club-2")} {
		if !containsRoom(welcome.Rooms, want) {
			t.Errorf("welcome rooms %v missing %q", welcome.Rooms, want)
		}
	}
}

func TestEventsFlowToJoinedRooms(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "u1", nil, []string{"club-1"})
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
	readMessage(t, ws) // welcome

	p := NewPublisher(f.broker, NewMemorySequencer(), logger.Nop())

	// Registration completes before the welcome frame is queued, so the
	// connection is a member by the time the welcome was read above.
	if n := f.broker.Publish(context.Background(), testEvent("b1", 100), []Room{ClubRoom("club-1")}); n != 1 {
		t.Fatalf("Publish delivered %d frames, want 1", n)
	}

	msg := readMessage(t, ws)
	if msg.Type != MsgEvent || msg.Event == nil {
		t.Fatalf("expected event frame, got %+v", msg)
	}
	if msg.Event.EntityID != "b1" || msg.Event.Room != ClubRoom("club-1") {
		t.Errorf("event = %+v, want b1 in club-1 room", msg.Event)
	}

	// An event targeted at a room this connection is not in must not arrive.
	if err := p.Publish(context.Background(), EventUpdated, "booking", "b2", 0, nil, []Room{ClubRoom("club-2")}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if err := p.Publish(context.Background(), EventUpdated, "booking", "b3", 0, nil, []Room{ClubRoom("club-1")}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	msg = readMessage(t, ws)
	if msg.Event == nil || msg.Event.EntityID != "b3" {
		t.Errorf("next frame = %+v, want b3 (b2 targeted an unjoined room)", msg)
	}
}

func TestSubscribe_DeniedSilentlyGrantedWithAck(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "u1", nil, []string{"club-1"})
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
	readMessage(t, ws) // welcome

	// Denied subscribe produces no ack and no error; the granted one that
	// follows must be the first ack to arrive.
	if err := ws.WriteJSON(Message{Type: MsgSubscribe, Room: ClubRoom("club-2")}); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}
	if err := ws.WriteJSON(Message{Type: MsgSubscribe, Room: PlayerRoom("u1")}); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	ack := readMessage(t, ws)
	if ack.Type != MsgSubscribed || ack.Room != PlayerRoom("u1") {
		t.Fatalf("first ack = %+v, want subscribed player:u1", ack)
	}

	if err := ws.WriteJSON(Message{Type: MsgUnsubscribe, Room: ClubRoom("club-1")}); err != nil {
		t.Fatalf("failed to send unsubscribe: %v", err)
	}
	ack = readMessage(t, ws)
	if ack.Type != MsgUnsubscribed || ack.Room != ClubRoom("club-1") {
		t.Errorf("ack = %+v, want unsubscribed club:club-1", ack)
	}
}

func TestFocusRoom_GrantedForOrgAdmin(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "admin-1", []string{"org-1"}, nil)
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred, FocusRoom: ClubRoom("club-2")}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}

	welcome := readMessage(t, ws)
	if !containsRoom(welcome.Rooms, ClubRoom("club-2")) {
		t.Errorf("welcome rooms %v missing focus room club-2", welcome.Rooms)
	}
}

func TestFocusRoom_DeniedKeepsConnectionAlive(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "u1", nil, []string{"club-1"})
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred, FocusRoom: ClubRoom("club-3")}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}

	welcome := readMessage(t, ws)
	if welcome.Type != MsgWelcome {
		t.Fatalf("expected welcome despite denied focus room, got %+v", welcome)
	}
	if containsRoom(welcome.Rooms, ClubRoom("club-3")) {
		t.Errorf("welcome rooms %v should not contain denied focus room", welcome.Rooms)
	}
}

func TestMalformedFrameDoesNotKillConnection(t *testing.T) {
	f := newWSFixture(t)
	ws := f.dial(t)

	cred := credentialFor(t, "u1", nil, []string{"club-1"})
	if err := ws.WriteJSON(Message{Type: MsgHello, Credential: cred}); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
	readMessage(t, ws) // welcome

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}
	if err := ws.WriteJSON(Message{Type: MsgSubscribe, Room: PlayerRoom("u1")}); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	ack := readMessage(t, ws)
	if ack.Type != MsgSubscribed {
		t.Errorf("expected subscribe ack after garbage frame, got %+v", ack)
	}
}
