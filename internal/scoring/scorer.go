package scoring

import (
	"errors"
	"math"

	"github.com/verbalize-ai/coachd/internal/kpi"
)

// ErrNotReady is returned when an attempt cannot be scored yet, either
// because it is not completed or has no transcript.
var ErrNotReady = errors.New("attempt not ready for scoring")

// Criterion is one weighted line of the score breakdown.
type Criterion struct {
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	MaxPoints float64 `json:"max_points"`
}

// Result is the scored outcome for one attempt. Breakdown keys are the
// weight-table keys prefixed with "global_" or "scenario_".
type Result struct {
	TotalScore float64              `json:"total_score"`
	Breakdown  map[string]Criterion `json:"breakdown"`
}

// Score combines global and scenario KPIs under the rubric's weights.
// Each criterion contributes ratio * (weight/100) * MaxScore points; the
// total is clamped to [0, MaxScore].
func Score(global kpi.CallKPIs, scenario kpi.ScenarioKPIs, rubric Rubric) Result {
	globalRatios := map[string]float64{
		KeyTalkListenRatio: scoreTalkListenRatio(global.UserTalkPercent),
		KeyFillerWords:     scoreFillerRate(global.FillerRatePerMin),
		KeyInterruptions:   scoreInterruptions(global.Interruptions),
		KeySpeakingPace:    scorePace(global.PaceWPM),
		KeySentiment:       global.UserSentiment,
		KeyResponseTime:    scoreResponseTime(global.AvgResponseMS),
	}
	scenarioRatios := map[string]float64{
		KeyRequiredPhrases:   float64(scenario.RequiredPhrases.Percent) / 100,
		KeyObjectionHandling: float64(scenario.ObjectionHandling.SuccessRate) / 100,
		KeyOpenQuestions:     scoreOpenQuestions(scenario.OpenQuestions.RatePerMin),
		KeyGoalAchievement:   scoreGoals(scenario.GoalAchievement),
	}

	result := Result{Breakdown: make(map[string]Criterion, len(globalRatios)+len(scenarioRatios))}

	var total float64
	total += applyWeights(result.Breakdown, "global_", globalRatios, rubric.GlobalWeights, rubric.MaxScore)
	total += applyWeights(result.Breakdown, "scenario_", scenarioRatios, rubric.ScenarioWeights, rubric.MaxScore)

	result.TotalScore = math.Round(clamp(total, 0, rubric.MaxScore)*100) / 100
	return result
}

func applyWeights(breakdown map[string]Criterion, prefix string, ratios, weights map[string]float64, maxScore float64) float64 {
	var total float64
	for key, ratio := range ratios {
		weight := weights[key]
		maxPoints := weight / 100 * maxScore
		breakdown[prefix+key] = Criterion{
			Score:     math.Round(ratio*100) / 100,
			Weight:    weight,
			MaxPoints: maxPoints,
		}
		total += ratio * maxPoints
	}
	return total
}

// Band ratings below map a raw metric into {1.0, 0.8, 0.6, 0.4} bands.

func scoreTalkListenRatio(userPct int) float64 {
	switch {
	case userPct >= 60 && userPct <= 70:
		return 1.0
	case userPct >= 50 && userPct <= 80:
		return 0.8
	case userPct >= 40 && userPct <= 90:
		return 0.6
	default:
		return 0.4
	}
}

func scoreFillerRate(perMin float64) float64 {
	switch {
	case perMin <= 2:
		return 1.0
	case perMin <= 4:
		return 0.8
	case perMin <= 6:
		return 0.6
	default:
		return 0.4
	}
}

func scoreInterruptions(count int) float64 {
	switch {
	case count <= 1:
		return 1.0
	case count <= 3:
		return 0.8
	case count <= 5:
		return 0.6
	default:
		return 0.4
	}
}

func scorePace(wpm int) float64 {
	switch {
	case wpm >= 140 && wpm <= 160:
		return 1.0
	case wpm >= 120 && wpm <= 180:
		return 0.8
	case wpm >= 100 && wpm <= 200:
		return 0.6
	default:
		return 0.4
	}
}

func scoreResponseTime(avgMS int64) float64 {
	switch {
	case avgMS >= 1000 && avgMS <= 3000:
		return 1.0
	case avgMS >= 500 && avgMS <= 5000:
		return 0.8
	case avgMS >= 100 && avgMS <= 8000:
		return 0.6
	default:
		return 0.4
	}
}

func scoreOpenQuestions(ratePerMin float64) float64 {
	switch {
	case ratePerMin >= 3:
		return 1.0
	case ratePerMin >= 2:
		return 0.8
	case ratePerMin >= 1:
		return 0.6
	default:
		return 0.4
	}
}

// scoreGoals gives 0.7 for the primary goal and splits 0.3 across
// secondary goals. Full secondary credit when none are configured.
func scoreGoals(g kpi.GoalAchievement) float64 {
	var score float64
	if g.PrimaryAchieved {
		score += 0.7
	}
	if g.TotalSecondaryGoals > 0 {
		score += float64(g.SecondaryAchieved) / float64(g.TotalSecondaryGoals) * 0.3
	} else {
		score += 0.3
	}
	return math.Min(score, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
