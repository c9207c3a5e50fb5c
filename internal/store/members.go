package store

import (
	"context"
	"fmt"
)

// Member is one org member.
type Member struct {
	OrgID  string
	UserID string
	Name   string
	Role   string
}

// GetMember fetches one org member.
func (s *Store) GetMember(ctx context.Context, orgID, userID string) (*Member, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT org_id, user_id, COALESCE(name, ''), role
		FROM org_members WHERE org_id = $1 AND user_id = $2`, orgID, userID)

	var m Member
	if err := row.Scan(&m.OrgID, &m.UserID, &m.Name, &m.Role); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListTrainees returns the org's trainee members.
func (s *Store) ListTrainees(ctx context.Context, orgID string) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT org_id, user_id, COALESCE(name, ''), role
		FROM org_members
		WHERE org_id = $1 AND role = 'trainee'
		ORDER BY user_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list trainees: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
