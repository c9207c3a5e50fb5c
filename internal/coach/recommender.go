package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/scoring"
	"github.com/verbalize-ai/coachd/internal/store"
)

const (
	overPracticeDays  = 7
	overPracticeCount = 3
)

// gapToRubricField maps a gap key to the rubric criterion that trains it
// directly.
var gapToRubricField = map[string]func(*scoring.ScenarioRubric) *scoring.CriterionWeight{
	memory.SkillObjectionHandling: func(r *scoring.ScenarioRubric) *scoring.CriterionWeight { return r.ObjectionsHandled },
	memory.SkillQuestionHandling:  func(r *scoring.ScenarioRubric) *scoring.CriterionWeight { return r.OpenQuestions },
}

// confidenceGaps benefit from easier scenarios to rebuild confidence.
var confidenceGaps = map[string]bool{
	memory.SkillConfidence:      true,
	memory.SkillProfessionalism: true,
	memory.SkillClarity:         true,
}

// qualityGaps are covered by a conversation_quality rubric section.
var qualityGaps = map[string]bool{
	memory.SkillClarity:           true,
	memory.SkillProfessionalism:   true,
	memory.SkillEmpathy:           true,
	memory.SkillTalkListenBalance: true,
	memory.SkillFillerWords:       true,
}

// Recommendation points a trainee at their best next scenario.
type Recommendation struct {
	ScenarioID    uuid.UUID `json:"scenario_id"`
	ScenarioTitle string    `json:"scenario_title"`
	Reason        string    `json:"reason"`
	Difficulty    string    `json:"difficulty,omitempty"`
}

// Recommender matches active scenarios to a trainee's skill gaps.
type Recommender struct {
	store  *store.Store
	logger *slog.Logger
}

func NewRecommender(st *store.Store, logger *slog.Logger) *Recommender {
	return &Recommender{store: st, logger: logger}
}

// Recommend picks the scenario that best targets the given gaps. The
// returned reason is always set; the recommendation itself is nil when
// nothing suitable exists.
func (r *Recommender) Recommend(ctx context.Context, orgID, userID string, gaps []SkillGap) (*Recommendation, string, error) {
	if len(gaps) == 0 {
		return nil, "No skill gaps identified yet.", nil
	}

	scenarios, err := r.store.ListActiveScenarios(ctx, orgID)
	if err != nil {
		return nil, "", fmt.Errorf("recommend scenario: %w", err)
	}
	if len(scenarios) == 0 {
		return nil, "No active scenarios available for this organization.", nil
	}

	cutoff := time.Now().Add(-overPracticeDays * 24 * time.Hour)
	recentIDs, err := r.store.ListRecentScenarioIDs(ctx, orgID, userID, cutoff)
	if err != nil {
		return nil, "", fmt.Errorf("recommend scenario: %w", err)
	}
	recentCounts := make(map[uuid.UUID]int)
	for _, id := range recentIDs {
		recentCounts[id]++
	}

	var best *store.Scenario
	bestScore := 0
	candidates := 0
	for i := range scenarios {
		sc := &scenarios[i]
		if recentCounts[sc.ID] >= overPracticeCount {
			continue
		}
		candidates++
		if score := scoreScenarioForGaps(sc, gaps); score > bestScore {
			best, bestScore = sc, score
		}
	}
	if candidates == 0 {
		return nil, "All matching scenarios have been practiced 3+ times in the last 7 days.", nil
	}
	if best == nil {
		return nil, "No scenarios match the identified skill gaps.", nil
	}

	reason := recommendationReason(best, gaps)
	return &Recommendation{
		ScenarioID:    best.ID,
		ScenarioTitle: best.Title,
		Reason:        reason,
		Difficulty:    best.Difficulty,
	}, reason, nil
}

// scoreScenarioForGaps scores a scenario against ranked gaps, the first
// gap weighted highest: 10 points for a direct rubric match, 5 for an
// easy scenario against a confidence-related gap, 3 for a covering
// conversation_quality section, each times the position weight.
func scoreScenarioForGaps(sc *store.Scenario, gaps []SkillGap) int {
	score := 0
	for i, gap := range gaps {
		positionWeight := len(gaps) - i

		if sc.Rubric != nil {
			if field, ok := gapToRubricField[gap.Key]; ok && field(sc.Rubric) != nil {
				score += 10 * positionWeight
			}
			if sc.Rubric.ConversationQuality != nil && qualityGaps[gap.Key] {
				score += 3 * positionWeight
			}
		}
		if confidenceGaps[gap.Key] && sc.Difficulty == "easy" {
			score += 5 * positionWeight
		}
	}
	return score
}

func recommendationReason(sc *store.Scenario, gaps []SkillGap) string {
	var matched []string
	for _, gap := range gaps {
		if sc.Rubric == nil {
			break
		}
		field, direct := gapToRubricField[gap.Key]
		if (direct && field(sc.Rubric) != nil) || (sc.Rubric.ConversationQuality != nil && qualityGaps[gap.Key]) {
			matched = append(matched, strings.ToLower(memory.SkillLabel(gap.Key)))
		}
	}
	if len(matched) > 0 {
		return "This scenario targets your weakest areas: " + strings.Join(matched, ", ") + "."
	}
	if confidenceGaps[gaps[0].Key] && sc.Difficulty == "easy" {
		return fmt.Sprintf("An easier scenario to help rebuild %s.", strings.ToLower(memory.SkillLabel(gaps[0].Key)))
	}
	return "Recommended based on your current skill gaps."
}
