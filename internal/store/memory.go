package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Memory types stored in user_memory.
const (
	MemoryWeaknessProfile = "weakness_profile"
	MemorySkillLevel      = "skill_level"
)

// UserMemory is one long-lived fact the coach keeps about a trainee,
// keyed by (org, user, type, key).
type UserMemory struct {
	ID         uuid.UUID
	OrgID      string
	UserID     string
	MemoryType string
	Key        string
	Value      json.RawMessage
	Score      float64
	Trend      string
	UpdatedAt  time.Time
}

// UpsertUserMemory inserts or refreshes one memory entry.
func (s *Store) UpsertUserMemory(ctx context.Context, m UserMemory) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_memory (id, org_id, user_id, memory_type, key, value, score, trend, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (org_id, user_id, memory_type, key)
		DO UPDATE SET value = EXCLUDED.value, score = EXCLUDED.score,
		              trend = EXCLUDED.trend, updated_at = now()`,
		uuid.New(), m.OrgID, m.UserID, m.MemoryType, m.Key, m.Value, m.Score, m.Trend,
	)
	if err != nil {
		return fmt.Errorf("upsert user memory: %w", err)
	}
	return nil
}

// DeleteUserMemory removes one memory entry if present.
func (s *Store) DeleteUserMemory(ctx context.Context, orgID, userID, memoryType, key string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM user_memory
		WHERE org_id = $1 AND user_id = $2 AND memory_type = $3 AND key = $4`,
		orgID, userID, memoryType, key,
	)
	if err != nil {
		return fmt.Errorf("delete user memory: %w", err)
	}
	return nil
}

// ListUserMemory returns a user's memory entries of one type, worst score
// first.
func (s *Store) ListUserMemory(ctx context.Context, orgID, userID, memoryType string) ([]UserMemory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, user_id, memory_type, key, value, score, trend, updated_at
		FROM user_memory
		WHERE org_id = $1 AND user_id = $2 AND memory_type = $3
		ORDER BY score ASC`, orgID, userID, memoryType)
	if err != nil {
		return nil, fmt.Errorf("list user memory: %w", err)
	}
	return scanMemories(rows)
}

// ListTopSkills returns a user's strongest skill_level entries.
func (s *Store) ListTopSkills(ctx context.Context, orgID, userID string, limit int) ([]UserMemory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, user_id, memory_type, key, value, score, trend, updated_at
		FROM user_memory
		WHERE org_id = $1 AND user_id = $2 AND memory_type = 'skill_level'
		ORDER BY score DESC
		LIMIT $3`, orgID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list top skills: %w", err)
	}
	return scanMemories(rows)
}

// ListOrgMemory returns all entries of one type across the org.
func (s *Store) ListOrgMemory(ctx context.Context, orgID, memoryType string) ([]UserMemory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, user_id, memory_type, key, value, score, trend, updated_at
		FROM user_memory
		WHERE org_id = $1 AND memory_type = $2
		ORDER BY score ASC`, orgID, memoryType)
	if err != nil {
		return nil, fmt.Errorf("list org memory: %w", err)
	}
	return scanMemories(rows)
}

func scanMemories(rows pgx.Rows) ([]UserMemory, error) {
	defer rows.Close()

	var out []UserMemory
	for rows.Next() {
		var m UserMemory
		if err := rows.Scan(&m.ID, &m.OrgID, &m.UserID, &m.MemoryType, &m.Key, &m.Value, &m.Score, &m.Trend, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
