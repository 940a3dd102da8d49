package auth

// Identity is the authenticated principal for one connection, together with
// its tenant-scope memberships. It is derived once at connection time and
// never mutated afterwards; a credential refresh requires a new connection.
type Identity struct {
	UserID    string
	RootAdmin bool
	OrgIDs    map[string]struct{}
	ClubIDs   map[string]struct{}
}

// AdminsOrg reports whether the identity administers the given organization.
func (i *Identity) AdminsOrg(orgID string) bool {
	_, ok := i.OrgIDs[orgID]
	return ok
}

// MemberOfClub reports whether the identity administers or plays at the given club.
func (i *Identity) MemberOfClub(clubID string) bool {
	_, ok := i.ClubIDs[clubID]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}
