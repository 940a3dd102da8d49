package realtime

import "strings"

// Room is a named broadcast group on the broker, the unit of pub/sub
// scoping. Four kinds exist, in ascending scope: player, club,
// organization, root.
type Room string

// RoomKind identifies the scope level of a room
type RoomKind string

const (
	RoomKindPlayer       RoomKind = "player"
	RoomKindClub         RoomKind = "club"
	RoomKindOrganization RoomKind = "organization"
	RoomKindRoot         RoomKind = "root"
	RoomKindInvalid      RoomKind = ""
)

// RootRoom is the single platform-wide room, joinable by root admins only.
const RootRoom Room = "root"

// PlayerRoom returns the personal notification room for a user
func PlayerRoom(userID string) Room {
	return Room("player:" + userID)
}

// ClubRoom returns the room carrying a club's booking and court events
func ClubRoom(clubID string) Room {
	return Room("club:" + clubID)
}

// OrgRoom returns the aggregated room for an organization's clubs
func OrgRoom(orgID string) Room {
	return Room("organization:" + orgID)
}

// Kind returns the scope level of the room, or RoomKindInvalid if the
// room name is malformed.
func (r Room) Kind() RoomKind {
	if r == RootRoom {
		return RoomKindRoot
	}
	prefix, id, ok := strings.Cut(string(r), ":")
	if !ok || id == "" {
		return RoomKindInvalid
	}
	switch RoomKind(prefix) {
	case RoomKindPlayer, RoomKindClub, RoomKindOrganization:
		return RoomKind(prefix)
	}
	return RoomKindInvalid
}

// ID returns the scope identifier embedded in the room name. The root
// room has no identifier.
func (r Room) ID() string {
	_, id, _ := strings.Cut(string(r), ":")
	return id
}

// Valid reports whether the room name is well formed
func (r Room) Valid() bool {
	return r.Kind() != RoomKindInvalid
}
