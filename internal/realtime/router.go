package realtime

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/directory"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

// Router computes room membership from an authenticated identity. The
// expansion from organizations to their clubs happens here, once per
// connection, so publishes never need a directory lookup.
type Router struct {
	dir directory.Directory
	log *logger.Logger
}

// NewRouter creates a new Router
func NewRouter(dir directory.Directory, log *logger.Logger) *Router {
	return &Router{dir: dir, log: log}
}

// RoomsFor returns the implicit room set for an identity: the personal
// player room, root for root admins, one room per administered
// organization, one room per member club, and every club room under each
// administered organization. A directory failure skips that organization's
// club expansion rather than failing the connection; the stream is a
// freshness layer, not a correctness dependency.
func (r *Router) RoomsFor(ctx context.Context, identity *auth.Identity) []Room {
	set := map[Room]struct{}{
		PlayerRoom(identity.UserID): {},
	}

	if identity.RootAdmin {
		set[RootRoom] = struct{}{}
	}

	for clubID := range identity.ClubIDs {
		set[ClubRoom(clubID)] = struct{}{}
	}

	for orgID := range identity.OrgIDs {
		set[OrgRoom(orgID)] = struct{}{}

		clubs, err := r.dir.ClubsOfOrg(ctx, orgID)
		if err != nil {
			r.log.Warn("club expansion failed for organization",
				zap.String("org_id", orgID),
				zap.Error(err),
			)
			continue
		}
		for _, clubID := range clubs {
			set[ClubRoom(clubID)] = struct{}{}
		}
	}

	rooms := make([]Room, 0, len(set))
	for room := range set {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Authorize reports whether the identity may join the given room. Used for
// focus-room requests and runtime subscribes; a negative answer is a
// silent denial, never a connection error.
func (r *Router) Authorize(ctx context.Context, identity *auth.Identity, room Room) bool {
	switch room.Kind() {
	case RoomKindRoot:
		return identity.RootAdmin

	case RoomKindPlayer:
		return room == PlayerRoom(identity.UserID)

	case RoomKindOrganization:
		return identity.AdminsOrg(room.ID())

	case RoomKindClub:
		clubID := room.ID()
		if identity.MemberOfClub(clubID) {
			return true
		}
		// An org admin implicitly reaches all of its clubs' rooms.
		for orgID := range identity.OrgIDs {
			clubs, err := r.dir.ClubsOfOrg(ctx, orgID)
			if err != nil {
				r.log.Warn("club lookup failed during authorization",
					zap.String("org_id", orgID),
					zap.Error(err),
				)
				continue
			}
			for _, id := range clubs {
				if id == clubID {
					return true
				}
			}
		}
		// Membership records may postdate the credential.
		member, err := r.dir.IsClubMember(ctx, identity.UserID, clubID)
		if err != nil {
			r.log.Warn("membership lookup failed during authorization",
				zap.String("club_id", clubID),
				zap.Error(err),
			)
			return false
		}
		return member
	}
	return false
}
