package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verbalize-ai/coachd/internal/feedback"
	"github.com/verbalize-ai/coachd/internal/kpi"
	"github.com/verbalize-ai/coachd/internal/scoring"
)

// Attempt statuses.
const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
	AttemptAbandoned  = "abandoned"
)

// Attempt is one training-call attempt.
type Attempt struct {
	ID              uuid.UUID
	OrgID           string
	UserID          string
	ScenarioID      uuid.UUID
	Status          string
	Transcript      []kpi.Segment
	DurationSeconds float64
	Score           *float64
	KPIs            *kpi.CallKPIs
	ScenarioKPIs    *kpi.ScenarioKPIs
	Quality         *kpi.QualityMetrics
	ScoreBreakdown  map[string]scoring.Criterion
	FeedbackText    string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// GetAttempt fetches a single attempt with its transcript and score data.
func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (*Attempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, org_id, user_id, scenario_id, status, transcript, duration_seconds,
		       score, kpis, scenario_kpis, quality, score_breakdown, COALESCE(feedback_text, ''),
		       started_at, completed_at
		FROM attempts WHERE id = $1`, id)

	var a Attempt
	var transcript, kpis, scenarioKPIs, quality, breakdown []byte
	err := row.Scan(&a.ID, &a.OrgID, &a.UserID, &a.ScenarioID, &a.Status, &transcript,
		&a.DurationSeconds, &a.Score, &kpis, &scenarioKPIs, &quality, &breakdown, &a.FeedbackText,
		&a.StartedAt, &a.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}

	if err := unmarshalInto(transcript, &a.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if err := unmarshalInto(kpis, &a.KPIs); err != nil {
		return nil, fmt.Errorf("decode kpis: %w", err)
	}
	if err := unmarshalInto(scenarioKPIs, &a.ScenarioKPIs); err != nil {
		return nil, fmt.Errorf("decode scenario kpis: %w", err)
	}
	if err := unmarshalInto(quality, &a.Quality); err != nil {
		return nil, fmt.Errorf("decode quality: %w", err)
	}
	if err := unmarshalInto(breakdown, &a.ScoreBreakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return &a, nil
}

// SaveScore persists the scored outcome for an attempt.
func (s *Store) SaveScore(ctx context.Context, id uuid.UUID, result scoring.Result, global kpi.CallKPIs, scenario kpi.ScenarioKPIs, quality kpi.QualityMetrics, fb *feedback.Feedback, feedbackText string) error {
	kpis, err := json.Marshal(global)
	if err != nil {
		return fmt.Errorf("encode kpis: %w", err)
	}
	scenarioKPIs, err := json.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("encode scenario kpis: %w", err)
	}
	qualityJSON, err := json.Marshal(quality)
	if err != nil {
		return fmt.Errorf("encode quality: %w", err)
	}
	breakdown, err := json.Marshal(result.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	var fbJSON []byte
	if fb != nil {
		if fbJSON, err = json.Marshal(fb); err != nil {
			return fmt.Errorf("encode feedback: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE attempts
		SET score = $1, kpis = $2, scenario_kpis = $3, quality = $4, score_breakdown = $5,
		    feedback = $6, feedback_text = $7, scored_at = now()
		WHERE id = $8`,
		result.TotalScore, kpis, scenarioKPIs, qualityJSON, breakdown, fbJSON, feedbackText, id,
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// AttemptScore is the slim row used by analyzers: who scored what, when.
type AttemptScore struct {
	ID             uuid.UUID
	UserID         string
	ScenarioID     uuid.UUID
	Score          *float64
	KPIs           *kpi.CallKPIs
	ScenarioKPIs   *kpi.ScenarioKPIs
	Quality        *kpi.QualityMetrics
	ScoreBreakdown map[string]scoring.Criterion
	StartedAt      time.Time
}

// ListUserAttempts returns a user's completed attempts, newest first.
func (s *Store) ListUserAttempts(ctx context.Context, orgID, userID string, limit int) ([]AttemptScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, scenario_id, score, kpis, scenario_kpis, quality, score_breakdown, started_at
		FROM attempts
		WHERE org_id = $1 AND user_id = $2 AND status = 'completed'
		ORDER BY started_at DESC
		LIMIT $3`, orgID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user attempts: %w", err)
	}
	return scanAttemptScores(rows)
}

// ListUserAttemptsBetween returns a user's completed attempts in [from, to),
// newest first.
func (s *Store) ListUserAttemptsBetween(ctx context.Context, orgID, userID string, from, to time.Time) ([]AttemptScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, scenario_id, score, kpis, scenario_kpis, quality, score_breakdown, started_at
		FROM attempts
		WHERE org_id = $1 AND user_id = $2 AND status = 'completed'
		  AND started_at >= $3 AND started_at < $4
		ORDER BY started_at DESC`, orgID, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list user attempts between: %w", err)
	}
	return scanAttemptScores(rows)
}

// ListOrgAttempts returns completed attempts across the whole org since a
// cutoff, newest first.
func (s *Store) ListOrgAttempts(ctx context.Context, orgID string, since time.Time) ([]AttemptScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, scenario_id, score, kpis, scenario_kpis, quality, score_breakdown, started_at
		FROM attempts
		WHERE org_id = $1 AND status = 'completed' AND started_at >= $2
		ORDER BY started_at DESC`, orgID, since)
	if err != nil {
		return nil, fmt.Errorf("list org attempts: %w", err)
	}
	return scanAttemptScores(rows)
}

// ListRecentScenarioIDs returns scenario IDs the user attempted since the
// cutoff, with repeats.
func (s *Store) ListRecentScenarioIDs(ctx context.Context, orgID, userID string, since time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT scenario_id FROM attempts
		WHERE org_id = $1 AND user_id = $2 AND started_at >= $3`, orgID, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list recent scenario ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListScenarioAttempts returns a user's completed attempts at one scenario,
// newest first.
func (s *Store) ListScenarioAttempts(ctx context.Context, orgID, userID string, scenarioID uuid.UUID, limit int) ([]AttemptScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, scenario_id, score, kpis, scenario_kpis, quality, score_breakdown, started_at
		FROM attempts
		WHERE org_id = $1 AND user_id = $2 AND scenario_id = $3 AND status = 'completed'
		ORDER BY started_at DESC
		LIMIT $4`, orgID, userID, scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scenario attempts: %w", err)
	}
	return scanAttemptScores(rows)
}

// AttemptActivity is a minimal completed-attempt record for activity scans.
type AttemptActivity struct {
	OrgID     string
	UserID    string
	StartedAt time.Time
}

// ListCompletedActivityPage pages over all completed attempts, newest
// first, for the inactivity scan.
func (s *Store) ListCompletedActivityPage(ctx context.Context, limit, offset int) ([]AttemptActivity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT org_id, user_id, started_at FROM attempts
		WHERE status = 'completed'
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list completed activity: %w", err)
	}
	defer rows.Close()

	var out []AttemptActivity
	for rows.Next() {
		var a AttemptActivity
		if err := rows.Scan(&a.OrgID, &a.UserID, &a.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// OrgUser is one (org, user) pair.
type OrgUser struct {
	OrgID  string
	UserID string
}

// ListActiveOrgUsers returns distinct (org, user) pairs with at least one
// attempt since the cutoff.
func (s *Store) ListActiveOrgUsers(ctx context.Context, since time.Time) ([]OrgUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT org_id, user_id FROM attempts
		WHERE started_at >= $1
		ORDER BY org_id, user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("list active org users: %w", err)
	}
	defer rows.Close()

	var out []OrgUser
	for rows.Next() {
		var ou OrgUser
		if err := rows.Scan(&ou.OrgID, &ou.UserID); err != nil {
			return nil, err
		}
		out = append(out, ou)
	}
	return out, rows.Err()
}

// ListActiveOrgs returns distinct org IDs with attempts since the cutoff.
func (s *Store) ListActiveOrgs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT org_id FROM attempts
		WHERE started_at >= $1
		ORDER BY org_id`, since)
	if err != nil {
		return nil, fmt.Errorf("list active orgs: %w", err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func scanAttemptScores(rows pgx.Rows) ([]AttemptScore, error) {
	defer rows.Close()

	var out []AttemptScore
	for rows.Next() {
		var a AttemptScore
		var kpis, scenarioKPIs, quality, breakdown []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.ScenarioID, &a.Score, &kpis, &scenarioKPIs, &quality, &breakdown, &a.StartedAt); err != nil {
			return nil, err
		}
		if err := unmarshalInto(kpis, &a.KPIs); err != nil {
			return nil, fmt.Errorf("decode kpis: %w", err)
		}
		if err := unmarshalInto(scenarioKPIs, &a.ScenarioKPIs); err != nil {
			return nil, fmt.Errorf("decode scenario kpis: %w", err)
		}
		if err := unmarshalInto(quality, &a.Quality); err != nil {
			return nil, fmt.Errorf("decode quality: %w", err)
		}
		if err := unmarshalInto(breakdown, &a.ScoreBreakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func unmarshalInto(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
