package realtime

import (
	"context"
	"testing"

	"github.com/ihor-metko/RSP-sub004/internal/auth"
	"github.com/ihor-metko/RSP-sub004/internal/directory"
	"github.com/ihor-metko/RSP-sub004/internal/logger"
)

func testDirectory() *directory.Memory {
	dir := directory.NewMemory()
	dir.AddClub("org-1", "club-1")
	dir.AddClub("org-1", "club-2")
	dir.AddClub("org-2", "club-3")
	dir.AddMember("club-1", "member-1")
	return dir
}

func identityFor(userID string, rootAdmin bool, orgs, clubs []string) *auth.Identity {
	orgSet := make(map[string]struct{})
	for _, o := range orgs {
		orgSet[o] = struct{}{}
	}
	clubSet := make(map[string]struct{})
	for _, c := range clubs {
		clubSet[c] = struct{}{}
	}
	return &auth.Identity{UserID: userID, RootAdmin: rootAdmin, OrgIDs: orgSet, ClubIDs: clubSet}
}

func containsRoom(rooms []Room, room Room) bool {
	for _, r := range rooms {
		if r == room {
			return true
		}
	}
	return false
}

func TestRouter_RoomsFor(t *testing.T) {
	router := NewRouter(testDirectory(), logger.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		identity *auth.Identity
		want     []Room
		absent   []Room
	}{
		{
			name:     "plain player",
			identity: identityFor("u1", false, nil, nil),
			want:     []Room{PlayerRoom("u1")},
			absent:   []Room{RootRoom},
		},
		{
			name:     "club member",
			identity: identityFor("u2", false, nil, []string{"club-3"}),
			want:     []Room{PlayerRoom("u2"), ClubRoom("club-3")},
			absent:   []Room{ClubRoom("club-1"), RootRoom},
		},
		{
			name:     "org admin reaches every club under the org",
			identity: identityFor("u3", false, []string{"org-1"}, nil),
			want:     []Room{PlayerRoom("u3"), OrgRoom("org-1"), ClubRoom("club-1"), ClubRoom("club-2")},
			absent:   []Room{ClubRoom("club-3"), RootRoom},
		},
		{
			name:     "root admin",
			identity: identityFor("u4", true, nil, nil),
			want:     []Room{PlayerRoom("u4"), RootRoom},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := router.RoomsFor(ctx, tt.identity)
			for _, room := range tt.want {
				if !containsRoom(rooms, room) {
					t.Errorf("rooms %v missing %q", rooms, room)
				}
			}
			for _, room := range tt.absent {
				if containsRoom(rooms, room) {
					t.Errorf("rooms %v should not contain %q", rooms, room)
				}
			}
		})
	}
}

func TestRouter_RoomsForDeduplicates(t *testing.T) {
	// club-1 appears both as a direct membership and via the org expansion.
	router := NewRouter(testDirectory(), logger.Nop())
	rooms := router.RoomsFor(context.Background(), identityFor("u1", false, []string{"org-1"}, []string{"club-1"}))

	count := 0
	for _, room := range rooms {
		if room == ClubRoom("club-1") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("club-1 room appears %d times, want 1", count)
	}
}

func TestRouter_Authorize(t *testing.T) {
	router := NewRouter(testDirectory(), logger.Nop())
	ctx := context.Background()

	clubMember := identityFor("u1", false, nil, []string{"club-1"})
	orgAdmin := identityFor("u2", false, []string{"org-1"}, nil)
	rootAdmin := identityFor("u3", true, nil, nil)
	lateMember := identityFor("member-1", false, nil, nil) // membership only in directory

	tests := []struct {
		name     string
		identity *auth.Identity
		room     Room
		want     bool
	}{
		{"own player room", clubMember, PlayerRoom("u1"), true},
		{"someone else's player room", clubMember, PlayerRoom("u9"), false},
		{"own club room", clubMember, ClubRoom("club-1"), true},
		{"different club room", clubMember, ClubRoom("club-2"), false},
		{"root denied for club member", clubMember, RootRoom, false},
		{"org admin reaches org room", orgAdmin, OrgRoom("org-1"), true},
		{"org admin reaches club under org", orgAdmin, ClubRoom("club-2"), true},
		{"org admin denied club outside org", orgAdmin, ClubRoom("club-3"), false},
		{"root admin reaches root", rootAdmin, RootRoom, true},
		{"membership record without claim", lateMember, ClubRoom("club-1"), true},
		{"malformed room", clubMember, Room("club:"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := router.Authorize(ctx, tt.identity, tt.room); got != tt.want {
				t.Errorf("Authorize(%q) = %v, want %v", tt.room, got, tt.want)
			}
		})
	}
}

func TestRoomKinds(t *testing.T) {
	tests := []struct {
		room Room
		kind RoomKind
		id   string
	}{
		{PlayerRoom("u1"), RoomKindPlayer, "u1"},
		{ClubRoom("42"), RoomKindClub, "42"},
		{OrgRoom("7"), RoomKindOrganization, "7"},
		{RootRoom, RoomKindRoot, ""},
		{Room("club:"), RoomKindInvalid, ""},
		{Room("warehouse:9"), RoomKindInvalid, "9"},
		{Room(""), RoomKindInvalid, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.room), func(t *testing.T) {
			if got := tt.room.Kind(); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if got := tt.room.ID(); got != tt.id {
				t.Errorf("ID() = %q, want %q", got, tt.id)
			}
		})
	}
}
