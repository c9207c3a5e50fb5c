package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Activity is one row of the agent activity log: which agent did what,
// for whom.
type Activity struct {
	ID        uuid.UUID
	OrgID     string
	UserID    string
	Agent     string
	Action    string
	Detail    json.RawMessage
	CreatedAt time.Time
}

// LogActivity appends to the agent activity log. Log failures are the
// caller's to ignore; the log is advisory.
func (s *Store) LogActivity(ctx context.Context, a Activity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_activity_log (id, org_id, user_id, agent, action, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), a.OrgID, a.UserID, a.Agent, a.Action, a.Detail,
	)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

// ListRecentActivity returns the org's newest activity-log rows.
func (s *Store) ListRecentActivity(ctx context.Context, orgID string, limit int) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, user_id, agent, action, detail, created_at
		FROM agent_activity_log
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.OrgID, &a.UserID, &a.Agent, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
