// Package scoring turns KPIs into a weighted 0-100 attempt score.
package scoring

// Rubric holds the global and scenario weight tables. Weights are
// percentages of MaxScore; the shipped defaults are the product's
// calibrated table and are stored alongside scenarios that override them.
type Rubric struct {
	GlobalWeights   map[string]float64 `json:"global_weights"`
	ScenarioWeights map[string]float64 `json:"scenario_weights"`
	MaxScore        float64            `json:"max_score"`
}

// Weight table keys.
const (
	KeyTalkListenRatio   = "talk_listen_ratio"
	KeyFillerWords       = "filler_words"
	KeyInterruptions     = "interruptions"
	KeySpeakingPace      = "speaking_pace"
	KeySentiment         = "sentiment"
	KeyResponseTime      = "response_time"
	KeyRequiredPhrases   = "required_phrases"
	KeyObjectionHandling = "objection_handling"
	KeyOpenQuestions     = "open_questions"
	KeyGoalAchievement   = "goal_achievement"
)

// DefaultRubric returns the stock weight table used when a scenario does
// not carry its own.
func DefaultRubric() Rubric {
	return Rubric{
		GlobalWeights: map[string]float64{
			KeyTalkListenRatio: 15,
			KeyFillerWords:     10,
			KeyInterruptions:   10,
			KeySpeakingPace:    10,
			KeySentiment:       10,
			KeyResponseTime:    5,
		},
		ScenarioWeights: map[string]float64{
			KeyRequiredPhrases:   15,
			KeyObjectionHandling: 10,
			KeyOpenQuestions:     10,
			KeyGoalAchievement:   25,
		},
		MaxScore: 100,
	}
}

// CriterionWeight is one optional scenario rubric section.
type CriterionWeight struct {
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
}

// ScenarioRubric is the per-scenario criterion configuration authors attach
// to a scenario. Sections are optional; a nil section means the criterion
// is not part of that scenario's evaluation.
type ScenarioRubric struct {
	GoalAchievement     *CriterionWeight `json:"goal_achievement,omitempty"`
	RequiredPhrases     *CriterionWeight `json:"required_phrases,omitempty"`
	OpenQuestions       *CriterionWeight `json:"open_questions,omitempty"`
	ObjectionsHandled   *CriterionWeight `json:"objections_handled,omitempty"`
	ConversationQuality *CriterionWeight `json:"conversation_quality,omitempty"`
}

// WithScenario overlays a scenario's own criterion weights on the stock
// table. Sections that are absent, or carry no weight, keep the default.
func (r Rubric) WithScenario(sr *ScenarioRubric) Rubric {
	if !sr.HasCriteria() {
		return r
	}

	out := Rubric{
		GlobalWeights:   r.GlobalWeights,
		ScenarioWeights: make(map[string]float64, len(r.ScenarioWeights)),
		MaxScore:        r.MaxScore,
	}
	for k, v := range r.ScenarioWeights {
		out.ScenarioWeights[k] = v
	}

	overrides := map[string]*CriterionWeight{
		KeyGoalAchievement:   sr.GoalAchievement,
		KeyRequiredPhrases:   sr.RequiredPhrases,
		KeyOpenQuestions:     sr.OpenQuestions,
		KeyObjectionHandling: sr.ObjectionsHandled,
	}
	for key, section := range overrides {
		if section != nil && section.Weight > 0 {
			out.ScenarioWeights[key] = section.Weight
		}
	}
	return out
}

// HasCriteria reports whether any section is configured.
func (r *ScenarioRubric) HasCriteria() bool {
	if r == nil {
		return false
	}
	return r.GoalAchievement != nil || r.RequiredPhrases != nil || r.OpenQuestions != nil ||
		r.ObjectionsHandled != nil || r.ConversationQuality != nil
}
