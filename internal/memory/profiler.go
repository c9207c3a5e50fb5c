// Package memory maintains what the coach knows about each trainee: a
// per-skill weakness profile rebuilt from attempt history, embedded
// evidence snippets, and the aggregate context agents read before acting.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/verbalize-ai/coachd/internal/store"
)

const (
	// Skills scoring below this become weakness_profile entries.
	WeaknessThreshold = 70

	// Exponential decay applied per attempt of age when aggregating.
	recencyDecay = 0.85

	// Attempts considered when rebuilding a profile.
	profileWindow = 20

	trendThreshold = 5
)

// Trend values for skill histories.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"

	// TrendNew marks a dimension with no trend computed yet.
	TrendNew = "new"
)

// Skill dimension keys.
const (
	SkillObjectionHandling = "objection_handling"
	SkillQuestionHandling  = "question_handling"
	SkillClarity           = "clarity"
	SkillProfessionalism   = "professionalism"
	SkillEmpathy           = "empathy"
	SkillTalkListenBalance = "talk_listen_balance"
	SkillFillerWords       = "filler_words"
	SkillConfidence        = "confidence"
	SkillGoalAchievement   = "goal_achievement"
	SkillRapportBuilding   = "rapport_building"
)

// SkillLabels maps dimension keys to the labels shown to managers.
var SkillLabels = map[string]string{
	SkillObjectionHandling: "Objection handling",
	SkillQuestionHandling:  "Asking questions",
	SkillClarity:           "Communication clarity",
	SkillProfessionalism:   "Professional tone",
	SkillEmpathy:           "Empathy and rapport",
	SkillTalkListenBalance: "Talk/listen balance",
	SkillFillerWords:       "Minimal filler words",
	SkillConfidence:        "Confidence",
	SkillGoalAchievement:   "Goal achievement",
	SkillRapportBuilding:   "Rapport building",
}

// SkillLabel returns the display label for a skill key, falling back to
// the key itself.
func SkillLabel(key string) string {
	if label, ok := SkillLabels[key]; ok {
		return label
	}
	return key
}

// dimension extracts one 0-100 skill signal from an attempt, or false when
// the attempt carries no evidence for it.
type dimension struct {
	key     string
	extract func(a store.AttemptScore) (float64, bool)
}

var dimensions = []dimension{
	{SkillObjectionHandling, func(a store.AttemptScore) (float64, bool) {
		c, ok := a.ScoreBreakdown["scenario_objection_handling"]
		if !ok {
			return 0, false
		}
		return clamp(c.Score*100, 0, 100), true
	}},
	{SkillQuestionHandling, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return inverseCount(a.Quality.UnansweredQuestions, 5), true
	}},
	{SkillClarity, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return float64(a.Quality.ClarityScore), true
	}},
	{SkillProfessionalism, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return float64(a.Quality.ProfessionalismScore), true
	}},
	{SkillEmpathy, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return countScore(len(a.Quality.EmpathySignals), 10), true
	}},
	{SkillTalkListenBalance, func(a store.AttemptScore) (float64, bool) {
		if a.KPIs == nil {
			return 0, false
		}
		return talkRatioScore(a.KPIs.UserTalkPercent), true
	}},
	{SkillFillerWords, func(a store.AttemptScore) (float64, bool) {
		if a.KPIs == nil {
			return 0, false
		}
		return fillerRateScore(a.KPIs.FillerRatePerMin), true
	}},
	{SkillConfidence, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return float64(a.Quality.ConfidenceScore), true
	}},
	{SkillGoalAchievement, func(a store.AttemptScore) (float64, bool) {
		c, ok := a.ScoreBreakdown["scenario_goal_achievement"]
		if !ok {
			return 0, false
		}
		return clamp(c.Score*100, 0, 100), true
	}},
	{SkillRapportBuilding, func(a store.AttemptScore) (float64, bool) {
		if a.Quality == nil {
			return 0, false
		}
		return countScore(len(a.Quality.EmpathySignals)+a.Quality.Acknowledgments, 10), true
	}},
}

// Normalization helpers.

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// inverseCount maps 0 occurrences to 100 and maxBad occurrences to 0.
func inverseCount(count, maxBad int) float64 {
	return clamp(100-float64(count)/float64(maxBad)*100, 0, 100)
}

// countScore maps 0 occurrences to 0 and maxGood occurrences to 100.
func countScore(count, maxGood int) float64 {
	return clamp(float64(count)/float64(maxGood)*100, 0, 100)
}

// talkRatioScore treats 50% user talk as ideal and penalizes deviation.
func talkRatioScore(userPct int) float64 {
	deviation := math.Abs(float64(userPct) - 50)
	return clamp(100-deviation*2.5, 0, 100)
}

// fillerRateScore maps 0 fillers/min to 100 and 6+/min to 0.
func fillerRateScore(ratePerMin float64) float64 {
	return clamp(100-ratePerMin/6*100, 0, 100)
}

// WeightedScore aggregates a newest-first score history with exponential
// recency decay: the newest point has full weight, older points fade.
func WeightedScore(newestFirst []float64) float64 {
	if len(newestFirst) == 0 {
		return 0
	}
	var valueSum, weightSum float64
	for i, score := range newestFirst {
		weight := math.Pow(recencyDecay, float64(i))
		valueSum += score * weight
		weightSum += weight
	}
	return math.Round(valueSum / weightSum)
}

// ComputeTrend classifies a newest-first score history. Histories shorter
// than 4 points are always stable; otherwise the mean of the recent half
// is compared against the older half with a 5-point threshold.
func ComputeTrend(newestFirst []float64) string {
	if len(newestFirst) < 4 {
		return TrendStable
	}

	half := len(newestFirst) / 2
	recent := mean(newestFirst[:half])
	older := mean(newestFirst[half:])

	switch {
	case recent > older+trendThreshold:
		return TrendImproving
	case recent < older-trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// DimensionAverages computes the mean score per skill dimension across a
// set of attempts, skipping attempts with no evidence for a dimension.
func DimensionAverages(attempts []store.AttemptScore) map[string]float64 {
	averages := make(map[string]float64)
	for _, dim := range dimensions {
		var scores []float64
		for _, a := range attempts {
			if score, ok := dim.extract(a); ok {
				scores = append(scores, score)
			}
		}
		if len(scores) > 0 {
			averages[dim.key] = math.Round(mean(scores))
		}
	}
	return averages
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// Dimension is one rebuilt skill entry.
type Dimension struct {
	Key            string    `json:"key"`
	Score          float64   `json:"score"`
	Trend          string    `json:"trend"`
	EvidenceCount  int       `json:"evidence_count"`
	LastEvidenceAt time.Time `json:"last_evidence_at"`
}

// memoryValue is the JSON stored in user_memory.value.
type memoryValue struct {
	Dimension      string    `json:"dimension"`
	RawScore       float64   `json:"raw_score"`
	EvidenceCount  int       `json:"evidence_count"`
	LastEvidenceAt time.Time `json:"last_evidence_at"`
}

// Profiler rebuilds weakness profiles from attempt history.
type Profiler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewProfiler(st *store.Store, logger *slog.Logger) *Profiler {
	return &Profiler{store: st, logger: logger}
}

// Rebuild recomputes every skill dimension for a user from their recent
// completed attempts and persists each as weakness_profile or skill_level.
// Returns the entries that scored below the weakness threshold.
func (p *Profiler) Rebuild(ctx context.Context, orgID, userID string) ([]Dimension, error) {
	attempts, err := p.store.ListUserAttempts(ctx, orgID, userID, profileWindow)
	if err != nil {
		return nil, fmt.Errorf("fetch attempts for profile: %w", err)
	}
	if len(attempts) == 0 {
		return nil, nil
	}

	// The query orders newest first; trend and decay both assume it, so
	// sort defensively rather than trusting the caller chain.
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})

	var weaknesses []Dimension
	for _, dim := range dimensions {
		result, ok := aggregate(dim, attempts)
		if !ok {
			continue
		}

		memoryType := store.MemorySkillLevel
		otherType := store.MemoryWeaknessProfile
		if result.Score < WeaknessThreshold {
			memoryType = store.MemoryWeaknessProfile
			otherType = store.MemorySkillLevel
			weaknesses = append(weaknesses, result)
		}

		value, err := json.Marshal(memoryValue{
			Dimension:      result.Key,
			RawScore:       result.Score,
			EvidenceCount:  result.EvidenceCount,
			LastEvidenceAt: result.LastEvidenceAt,
		})
		if err != nil {
			return nil, fmt.Errorf("encode memory value: %w", err)
		}

		if err := p.store.UpsertUserMemory(ctx, store.UserMemory{
			OrgID:      orgID,
			UserID:     userID,
			MemoryType: memoryType,
			Key:        result.Key,
			Value:      value,
			Score:      result.Score,
			Trend:      result.Trend,
		}); err != nil {
			return nil, fmt.Errorf("upsert %s: %w", result.Key, err)
		}
		// The same skill never lives on both sides of the threshold.
		if err := p.store.DeleteUserMemory(ctx, orgID, userID, otherType, result.Key); err != nil {
			return nil, fmt.Errorf("clear stale %s: %w", result.Key, err)
		}
	}

	p.logger.Info("weakness profile rebuilt",
		"org_id", orgID,
		"user_id", userID,
		"attempts", len(attempts),
		"weaknesses", len(weaknesses),
	)
	return weaknesses, nil
}

func aggregate(dim dimension, newestFirst []store.AttemptScore) (Dimension, bool) {
	var scores []float64
	var lastEvidenceAt time.Time

	for _, attempt := range newestFirst {
		score, ok := dim.extract(attempt)
		if !ok {
			continue
		}
		scores = append(scores, score)
		if attempt.StartedAt.After(lastEvidenceAt) {
			lastEvidenceAt = attempt.StartedAt
		}
	}
	if len(scores) == 0 {
		return Dimension{}, false
	}

	return Dimension{
		Key:            dim.key,
		Score:          WeightedScore(scores),
		Trend:          ComputeTrend(scores),
		EvidenceCount:  len(scores),
		LastEvidenceAt: lastEvidenceAt,
	}, true
}
