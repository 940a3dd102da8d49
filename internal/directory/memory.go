package directory

import (
	"context"
	"sync"
)

// Memory is an in-memory Directory used in tests and local development.
type Memory struct {
	mu       sync.RWMutex
	orgClubs map[string][]string
	members  map[string]map[string]struct{} // clubID -> userIDs
}

// NewMemory creates an empty in-memory directory
func NewMemory() *Memory {
	return &Memory{
		orgClubs: make(map[string][]string),
		members:  make(map[string]map[string]struct{}),
	}
}

// AddClub registers a club under an organization
func (m *Memory) AddClub(orgID, clubID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgClubs[orgID] = append(m.orgClubs[orgID], clubID)
}

// AddMember registers a user as a member of a club
func (m *Memory) AddMember(clubID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[clubID] == nil {
		m.members[clubID] = make(map[string]struct{})
	}
	m.members[clubID][userID] = struct{}{}
}

// ClubsOfOrg returns the IDs of every club belonging to the organization.
func (m *Memory) ClubsOfOrg(_ context.Context, orgID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clubs := make([]string, len(m.orgClubs[orgID]))
	copy(clubs, m.orgClubs[orgID])
	return clubs, nil
}

// IsClubMember reports whether the user administers or plays at the club.
func (m *Memory) IsClubMember(_ context.Context, userID, clubID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[clubID][userID]
	return ok, nil
}
