package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verbalize-ai/coachd/internal/kpi"
	"github.com/verbalize-ai/coachd/internal/scoring"
)

// Scenario is one practice scenario an org publishes to its trainees.
type Scenario struct {
	ID          uuid.UUID
	OrgID       string
	Title       string
	Description string
	Difficulty  string
	Status      string
	PersonaName string
	Config      kpi.ScenarioConfig
	Rubric      *scoring.ScenarioRubric
	CreatedAt   time.Time
}

// GetScenario fetches one scenario with its matching config and rubric.
func (s *Store) GetScenario(ctx context.Context, id uuid.UUID) (*Scenario, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, title, COALESCE(description, ''), COALESCE(difficulty, ''),
		       status, COALESCE(persona_name, ''), config, rubric, created_at
		FROM scenarios WHERE id = $1`, id)

	sc, err := scanScenario(row)
	if err != nil {
		return nil, notFound(err)
	}
	return sc, nil
}

// ListActiveScenarios returns the org's active scenarios, newest first.
func (s *Store) ListActiveScenarios(ctx context.Context, orgID string) ([]Scenario, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, title, COALESCE(description, ''), COALESCE(difficulty, ''),
		       status, COALESCE(persona_name, ''), config, rubric, created_at
		FROM scenarios
		WHERE org_id = $1 AND status = 'active'
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list active scenarios: %w", err)
	}
	defer rows.Close()

	var out []Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func scanScenario(row pgx.Row) (*Scenario, error) {
	var sc Scenario
	var config, rubric []byte
	err := row.Scan(&sc.ID, &sc.OrgID, &sc.Title, &sc.Description, &sc.Difficulty,
		&sc.Status, &sc.PersonaName, &config, &rubric, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalInto(config, &sc.Config); err != nil {
		return nil, fmt.Errorf("decode scenario config: %w", err)
	}
	if err := unmarshalInto(rubric, &sc.Rubric); err != nil {
		return nil, fmt.Errorf("decode scenario rubric: %w", err)
	}
	return &sc, nil
}
