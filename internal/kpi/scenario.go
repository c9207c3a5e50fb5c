package kpi

import (
	"math"
	"strings"
)

// ScenarioConfig is the matching configuration a scenario carries: phrases
// the trainee must say, objections the agent raises, and call goals. All
// matching is case-insensitive exact substring containment, no fuzziness.
type ScenarioConfig struct {
	RequiredPhrases   []string `json:"required_phrases,omitempty"`
	ObjectionKeywords []string `json:"objection_keywords,omitempty"`
	PrimaryGoal       string   `json:"primary_goal,omitempty"`
	SecondaryGoals    []string `json:"secondary_goals,omitempty"`
}

// PhraseMatch records one required phrase and whether/when it appeared.
type PhraseMatch struct {
	Phrase      string `json:"phrase"`
	Mentioned   bool   `json:"mentioned"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
}

// RequiredPhrases summarises the phrase-coverage KPI.
type RequiredPhrases struct {
	Total     int           `json:"total"`
	Mentioned int           `json:"mentioned"`
	Percent   int           `json:"percent"`
	Phrases   []PhraseMatch `json:"phrases"`
}

// ObjectionHandling summarises objection-keyword coverage. Encountered
// keywords count as handled; the transcript alone cannot distinguish a
// raised objection from an addressed one.
type ObjectionHandling struct {
	Raised      int      `json:"raised"`
	Addressed   int      `json:"addressed"`
	SuccessRate int      `json:"success_rate"`
	Keywords    []string `json:"keywords,omitempty"`
}

// OpenQuestions counts question turns by the trainee.
type OpenQuestions struct {
	Count      int     `json:"count"`
	RatePerMin float64 `json:"rate_per_min"`
}

// GoalAchievement flags whether configured goals were reached.
type GoalAchievement struct {
	PrimaryAchieved     bool `json:"primary_achieved"`
	SecondaryAchieved   int  `json:"secondary_achieved"`
	TotalSecondaryGoals int  `json:"total_secondary_goals"`
}

// ScenarioKPIs are the scenario-specific metrics for one attempt.
type ScenarioKPIs struct {
	RequiredPhrases   RequiredPhrases   `json:"required_phrases"`
	ObjectionHandling ObjectionHandling `json:"objection_handling"`
	OpenQuestions     OpenQuestions     `json:"open_questions"`
	GoalAchievement   GoalAchievement   `json:"goal_achievement"`
}

// ComputeScenarioKPIs matches transcript content against the scenario
// configuration.
func ComputeScenarioKPIs(segments []Segment, cfg ScenarioConfig, durationSeconds float64) ScenarioKPIs {
	userText := traineeText(segments)

	var k ScenarioKPIs

	k.RequiredPhrases.Total = len(cfg.RequiredPhrases)
	for _, phrase := range cfg.RequiredPhrases {
		match := PhraseMatch{Phrase: phrase}
		if strings.Contains(userText, strings.ToLower(phrase)) {
			match.Mentioned = true
			match.TimestampMS = phraseTimestamp(segments, phrase)
			k.RequiredPhrases.Mentioned++
		}
		k.RequiredPhrases.Phrases = append(k.RequiredPhrases.Phrases, match)
	}
	if k.RequiredPhrases.Total > 0 {
		k.RequiredPhrases.Percent = int(math.Round(float64(k.RequiredPhrases.Mentioned) / float64(k.RequiredPhrases.Total) * 100))
	}

	for _, keyword := range cfg.ObjectionKeywords {
		if strings.Contains(userText, strings.ToLower(keyword)) {
			k.ObjectionHandling.Keywords = append(k.ObjectionHandling.Keywords, keyword)
		}
	}
	k.ObjectionHandling.Raised = len(k.ObjectionHandling.Keywords)
	k.ObjectionHandling.Addressed = k.ObjectionHandling.Raised
	if k.ObjectionHandling.Raised > 0 {
		k.ObjectionHandling.SuccessRate = 100
	}

	for _, seg := range segments {
		if seg.Speaker == SpeakerTrainee && strings.Contains(seg.Text, "?") {
			k.OpenQuestions.Count++
		}
	}
	if durationSeconds > 0 {
		k.OpenQuestions.RatePerMin = math.Round(float64(k.OpenQuestions.Count)/durationSeconds*60*100) / 100
	}

	k.GoalAchievement.PrimaryAchieved = goalAchieved(userText, cfg.PrimaryGoal)
	k.GoalAchievement.TotalSecondaryGoals = len(cfg.SecondaryGoals)
	for _, goal := range cfg.SecondaryGoals {
		if goalAchieved(userText, goal) {
			k.GoalAchievement.SecondaryAchieved++
		}
	}

	return k
}

func goalAchieved(userText, goal string) bool {
	if goal == "" {
		return false
	}
	return strings.Contains(userText, strings.ToLower(goal))
}

func phraseTimestamp(segments []Segment, phrase string) int64 {
	lower := strings.ToLower(phrase)
	for _, seg := range segments {
		if seg.Speaker == SpeakerTrainee && strings.Contains(strings.ToLower(seg.Text), lower) {
			return seg.StartTimeMS
		}
	}
	return 0
}
