package realtime

// MessageType tags every frame exchanged over a connection
type MessageType string

const (
	// MsgHello is the first client frame: credential plus optional focus room.
	MsgHello MessageType = "hello"
	// MsgWelcome acknowledges a successful handshake and names the joined rooms.
	MsgWelcome MessageType = "welcome"
	// MsgSubscribe asks to join one extra room.
	MsgSubscribe MessageType = "subscribe"
	// MsgUnsubscribe asks to leave a room.
	MsgUnsubscribe MessageType = "unsubscribe"
	// MsgSubscribed acknowledges a granted subscribe.
	MsgSubscribed MessageType = "subscribed"
	// MsgUnsubscribed acknowledges an unsubscribe.
	MsgUnsubscribed MessageType = "unsubscribed"
	// MsgEvent carries one event to the client.
	MsgEvent MessageType = "event"
)

// Message is the wire frame for both directions. Fields are populated
// according to Type; unknown types are ignored by both peers.
type Message struct {
	Type       MessageType `json:"type"`
	Credential string      `json:"credential,omitempty"`
	FocusRoom  Room        `json:"focus_room,omitempty"`
	Room       Room        `json:"room,omitempty"`
	Rooms      []Room      `json:"rooms,omitempty"`
	Event      *Event      `json:"event,omitempty"`
}
