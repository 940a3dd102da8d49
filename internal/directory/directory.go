// Package directory resolves the tenant hierarchy (organizations, clubs,
// memberships) for room routing. It is read-only from the point of view of
// this subsystem; the booking application owns the underlying data.
package directory

import "context"

// Directory answers the two tenant-topology questions room routing needs.
type Directory interface {
	// ClubsOfOrg returns the IDs of every club belonging to the organization.
	ClubsOfOrg(ctx context.Context, orgID string) ([]string, error)
	// IsClubMember reports whether the user administers or plays at the club.
	IsClubMember(ctx context.Context, userID, clubID string) (bool, error)
}
