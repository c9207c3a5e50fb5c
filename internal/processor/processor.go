// Package processor wires the event stream to the analysis pipeline:
// completed attempts get scored, scored attempts update the trainee's
// memory and trigger coaching recommendations.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verbalize-ai/coachd/internal/cache"
	"github.com/verbalize-ai/coachd/internal/coach"
	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/feedback"
	"github.com/verbalize-ai/coachd/internal/kpi"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/scoring"
	"github.com/verbalize-ai/coachd/internal/store"
)

// Processor orchestrates the scoring and coaching pipeline.
type Processor struct {
	store       *store.Store
	events      *events.Client
	cache       *cache.Cache
	generator   *feedback.Generator
	profiler    *memory.Profiler
	embedder    *memory.Embedder
	recommender *coach.Recommender
	logger      *slog.Logger
}

func New(
	st *store.Store,
	ev *events.Client,
	c *cache.Cache,
	gen *feedback.Generator,
	prof *memory.Profiler,
	emb *memory.Embedder,
	rec *coach.Recommender,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		store:       st,
		events:      ev,
		cache:       c,
		generator:   gen,
		profiler:    prof,
		embedder:    emb,
		recommender: rec,
		logger:      logger,
	}
}

// HandleAttemptCompleted is the NATS handler for training.attempt.completed.
func (p *Processor) HandleAttemptCompleted(subject string, data []byte) {
	ctx := context.Background()

	var evt events.AttemptCompleted
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse attempt completed event", "error", err)
		return
	}

	p.logger.Info("scoring attempt", "attempt_id", evt.AttemptID, "org_id", evt.OrgID, "user_id", evt.UserID)

	if err := p.ScoreAttempt(ctx, evt); err != nil {
		if errors.Is(err, scoring.ErrNotReady) {
			p.logger.Warn("attempt not ready for scoring", "attempt_id", evt.AttemptID, "error", err)
			return
		}
		p.logger.Error("failed to score attempt", "attempt_id", evt.AttemptID, "error", err)
	}
}

// ScoreAttempt runs the full scoring pipeline for one attempt: KPIs,
// rubric score, feedback, persistence, and the scored events.
func (p *Processor) ScoreAttempt(ctx context.Context, evt events.AttemptCompleted) error {
	attempt, err := p.store.GetAttempt(ctx, evt.AttemptID)
	if err != nil {
		return fmt.Errorf("score attempt: %w", err)
	}
	if attempt.Status != store.AttemptCompleted {
		return fmt.Errorf("attempt %s status %q: %w", attempt.ID, attempt.Status, scoring.ErrNotReady)
	}
	if len(attempt.Transcript) == 0 {
		return fmt.Errorf("attempt %s has no transcript: %w", attempt.ID, scoring.ErrNotReady)
	}

	scenario, err := p.store.GetScenario(ctx, attempt.ScenarioID)
	if err != nil {
		return fmt.Errorf("score attempt: %w", err)
	}

	global := kpi.ComputeCallKPIs(attempt.Transcript, attempt.DurationSeconds)
	scenarioKPIs := kpi.ComputeScenarioKPIs(attempt.Transcript, scenario.Config, attempt.DurationSeconds)
	quality := kpi.ComputeQualityMetrics(attempt.Transcript)

	rubric := scoring.DefaultRubric().WithScenario(scenario.Rubric)
	result := scoring.Score(global, scenarioKPIs, rubric)

	// Feedback is decoupled from scoring: an LLM failure falls back to a
	// canned response rather than failing the attempt.
	fb, err := p.generator.Generate(ctx, feedback.Input{
		ScenarioTitle:       scenario.Title,
		ScenarioDescription: scenario.Description,
		PersonaName:         scenario.PersonaName,
		Segments:            attempt.Transcript,
		Global:              global,
		Scenario:            scenarioKPIs,
		Score:               result.TotalScore,
	})
	if err != nil {
		p.logger.Error("feedback generation failed, using fallback", "attempt_id", attempt.ID, "error", err)
		fb = feedback.Fallback()
	}
	feedbackText := fb.Render()

	if err := p.store.SaveScore(ctx, attempt.ID, result, global, scenarioKPIs, quality, fb, feedbackText); err != nil {
		return fmt.Errorf("score attempt: %w", err)
	}

	if err := p.store.LogActivity(ctx, store.Activity{
		OrgID:  evt.OrgID,
		UserID: evt.UserID,
		Agent:  "scoring",
		Action: "attempt_scored",
		Detail: mustJSON(map[string]any{"attempt_id": attempt.ID, "score": result.TotalScore}),
	}); err != nil {
		p.logger.Warn("failed to log scoring activity", "attempt_id", attempt.ID, "error", err)
	}

	scored := events.AttemptScored{
		AttemptID:  attempt.ID,
		OrgID:      evt.OrgID,
		UserID:     evt.UserID,
		ScenarioID: attempt.ScenarioID,
		Score:      result.TotalScore,
		ScoredAt:   time.Now().UTC(),
	}
	if err := p.events.Publish(events.SubjectAttemptScored, scored); err != nil {
		return fmt.Errorf("publish attempt scored: %w", err)
	}
	switch {
	case result.TotalScore < events.LowScoreThreshold:
		if err := p.events.Publish(events.SubjectAttemptScoredLow, scored); err != nil {
			p.logger.Warn("failed to publish low score event", "attempt_id", attempt.ID, "error", err)
		}
	case result.TotalScore >= events.HighScoreThreshold:
		if err := p.events.Publish(events.SubjectAttemptScoredHigh, scored); err != nil {
			p.logger.Warn("failed to publish high score event", "attempt_id", attempt.ID, "error", err)
		}
	}

	p.logger.Info("attempt scored", "attempt_id", attempt.ID, "score", result.TotalScore)
	return nil
}

// HandleAttemptScored is the NATS handler for training.attempt.scored.
// It rebuilds the weakness profile, embeds significant segments, and
// emits a fresh scenario recommendation.
func (p *Processor) HandleAttemptScored(subject string, data []byte) {
	ctx := context.Background()

	var evt events.AttemptScored
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse attempt scored event", "error", err)
		return
	}

	// Profile failures must not block embedding or recommendations.
	weaknesses, err := p.profiler.Rebuild(ctx, evt.OrgID, evt.UserID)
	if err != nil {
		p.logger.Error("failed to rebuild weakness profile", "user_id", evt.UserID, "error", err)
		weaknesses = nil
	} else {
		keys := make([]string, 0, len(weaknesses))
		for _, w := range weaknesses {
			keys = append(keys, w.Key)
		}
		if err := p.events.Publish(events.SubjectWeaknessUpdated, events.WeaknessUpdated{
			OrgID:      evt.OrgID,
			UserID:     evt.UserID,
			Weaknesses: keys,
		}); err != nil {
			p.logger.Warn("failed to publish weakness updated", "user_id", evt.UserID, "error", err)
		}
	}

	attempt, err := p.store.GetAttempt(ctx, evt.AttemptID)
	if err != nil {
		p.logger.Error("failed to load attempt for embedding", "attempt_id", evt.AttemptID, "error", err)
	} else if _, err := p.embedder.EmbedAttempt(ctx, attempt); err != nil {
		p.logger.Error("failed to embed attempt", "attempt_id", evt.AttemptID, "error", err)
	}

	profile, err := p.store.ListUserMemory(ctx, evt.OrgID, evt.UserID, store.MemoryWeaknessProfile)
	if err != nil {
		p.logger.Error("failed to load weakness profile", "user_id", evt.UserID, "error", err)
		return
	}
	analysis := coach.AnalyzeSkillGaps(profile)

	rec, reason, err := p.recommender.Recommend(ctx, evt.OrgID, evt.UserID, analysis.TopGaps)
	if err != nil {
		p.logger.Error("failed to recommend scenario", "user_id", evt.UserID, "error", err)
		return
	}
	payload := events.RecommendationReady{
		OrgID:              evt.OrgID,
		UserID:             evt.UserID,
		RecommendationType: "next_scenario",
		Message:            reason,
	}
	if rec != nil {
		payload.ScenarioID = &rec.ScenarioID
	}
	if err := p.events.Publish(events.SubjectRecommendationReady, payload); err != nil {
		p.logger.Warn("failed to publish recommendation", "user_id", evt.UserID, "error", err)
	}

	if err := p.cache.Invalidate(ctx, "team_analysis:"+evt.OrgID); err != nil {
		p.logger.Warn("failed to invalidate team analysis cache", "org_id", evt.OrgID, "error", err)
	}

	if err := p.store.LogActivity(ctx, store.Activity{
		OrgID:  evt.OrgID,
		UserID: evt.UserID,
		Agent:  "coach",
		Action: "update_weakness_profile",
		Detail: mustJSON(map[string]any{"attempt_id": evt.AttemptID, "dimensions_updated": len(weaknesses)}),
	}); err != nil {
		p.logger.Warn("failed to log coach activity", "user_id", evt.UserID, "error", err)
	}
}

// HandleUserInactive is the NATS handler for training.user.inactive.
// It sends the trainee a personalized practice reminder.
func (p *Processor) HandleUserInactive(subject string, data []byte) {
	ctx := context.Background()

	var evt events.UserInactive
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse user inactive event", "error", err)
		return
	}

	weaknesses, err := p.store.ListUserMemory(ctx, evt.OrgID, evt.UserID, store.MemoryWeaknessProfile)
	if err != nil {
		p.logger.Error("failed to load weakness profile", "user_id", evt.UserID, "error", err)
		return
	}

	payload := events.RecommendationReady{
		OrgID:              evt.OrgID,
		UserID:             evt.UserID,
		RecommendationType: "practice_reminder",
		Message:            ReminderMessage(weaknesses, evt.DaysInactive),
	}
	if err := p.events.Publish(events.SubjectRecommendationReady, payload); err != nil {
		p.logger.Warn("failed to publish practice reminder", "user_id", evt.UserID, "error", err)
		return
	}

	if err := p.store.LogActivity(ctx, store.Activity{
		OrgID:  evt.OrgID,
		UserID: evt.UserID,
		Agent:  "coach",
		Action: "send_practice_reminder",
		Detail: mustJSON(map[string]any{"days_inactive": evt.DaysInactive, "weakness_count": len(weaknesses)}),
	}); err != nil {
		p.logger.Warn("failed to log reminder activity", "user_id", evt.UserID, "error", err)
	}
}

// ReminderMessage builds the nudge sent to an inactive trainee, naming
// their weakest area when the profile has one.
func ReminderMessage(weaknesses []store.UserMemory, daysInactive int) string {
	dayLabel := "days"
	if daysInactive == 1 {
		dayLabel = "day"
	}
	if len(weaknesses) == 0 {
		return fmt.Sprintf("You haven't practiced in %d %s. A quick session will keep your skills sharp.", daysInactive, dayLabel)
	}
	weakest := weaknesses[0]
	return fmt.Sprintf("You haven't practiced in %d %s. Your weakest area is %s (score: %.0f). A focused practice session could help improve it.",
		daysInactive, dayLabel, weakest.Key, weakest.Score)
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
