package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Directory against the booking application's database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres directory
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ClubsOfOrg returns the IDs of every club belonging to the organization.
func (p *Postgres) ClubsOfOrg(ctx context.Context, orgID string) ([]string, error) {
	query := `
		SELECT id
		FROM clubs
		WHERE organization_id = $1 AND deleted_at IS NULL
	`
	rows, err := p.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clubs of org %s: %w", orgID, err)
	}
	defer rows.Close()

	var clubs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan club id: %w", err)
		}
		clubs = append(clubs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read clubs of org %s: %w", orgID, err)
	}
	return clubs, nil
}

// IsClubMember reports whether the user administers or plays at the club.
func (p *Postgres) IsClubMember(ctx context.Context, userID, clubID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM club_members
			WHERE club_id = $1 AND user_id = $2 AND deleted_at IS NULL
		)
	`
	var exists bool
	if err := p.pool.QueryRow(ctx, query, clubID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check club membership: %w", err)
	}
	return exists, nil
}
