package events

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects. coachd consumes AttemptCompleted and emits the rest.
const (
	SubjectAttemptCompleted    = "training.attempt.completed"
	SubjectAttemptScored       = "training.attempt.scored"
	SubjectAttemptScoredLow    = "training.attempt.scored.low"
	SubjectAttemptScoredHigh   = "training.attempt.scored.high"
	SubjectUserInactive        = "training.user.inactive"
	SubjectWeaknessUpdated     = "training.coach.weakness.updated"
	SubjectRecommendationReady = "training.coach.recommendation_ready"
	SubjectManagerInsight      = "training.manager.insight"
)

// Score thresholds for the low/high side channels.
const (
	LowScoreThreshold  = 60
	HighScoreThreshold = 80
)

// AttemptCompleted announces a finished call ready for scoring.
type AttemptCompleted struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	OrgID     string    `json:"org_id"`
	UserID    string    `json:"user_id"`
}

// AttemptScored announces a scored attempt. Also published on the .low
// and .high subjects when the score crosses a threshold.
type AttemptScored struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	OrgID      string    `json:"org_id"`
	UserID     string    `json:"user_id"`
	ScenarioID uuid.UUID `json:"scenario_id"`
	Score      float64   `json:"score"`
	ScoredAt   time.Time `json:"scored_at"`
}

// UserInactive flags a trainee with no completed attempts for too long.
type UserInactive struct {
	OrgID        string    `json:"org_id"`
	UserID       string    `json:"user_id"`
	LastActiveAt time.Time `json:"last_active_at"`
	DaysInactive int       `json:"days_inactive"`
}

// WeaknessUpdated announces a rebuilt weakness profile.
type WeaknessUpdated struct {
	OrgID      string   `json:"org_id"`
	UserID     string   `json:"user_id"`
	Weaknesses []string `json:"weaknesses"`
}

// RecommendationReady announces a coaching recommendation for a user.
// ScenarioID is nil when no suitable scenario exists; Message always
// carries the reason.
type RecommendationReady struct {
	OrgID              string     `json:"org_id"`
	UserID             string     `json:"user_id"`
	RecommendationType string     `json:"recommendation_type"`
	ScenarioID         *uuid.UUID `json:"scenario_id,omitempty"`
	Message            string     `json:"message"`
}

// ManagerInsight announces one generated team insight.
type ManagerInsight struct {
	OrgID    string `json:"org_id"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Title    string `json:"title"`
}
