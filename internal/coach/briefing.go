package coach

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verbalize-ai/coachd/internal/anthropic"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/store"
)

const (
	maxFocusAreas       = 3
	maxTips             = 3
	maxPreviousAttempts = 3
)

var defaultFocusAreas = []string{
	"Focus on clear communication",
	"Listen actively to the prospect",
	"Ask open-ended questions",
}

// weaknessFocusMap turns a weakness key into an actionable reminder.
var weaknessFocusMap = map[string]string{
	memory.SkillObjectionHandling: "Listen for objections and address them with empathy",
	memory.SkillQuestionHandling:  "Prepare thoughtful open-ended questions",
	memory.SkillClarity:           "Speak clearly and avoid jargon",
	memory.SkillProfessionalism:   "Maintain a professional and confident tone",
	memory.SkillEmpathy:           "Show genuine understanding of the prospect's situation",
	memory.SkillTalkListenBalance: "Let the prospect speak, aim for a balanced conversation",
	memory.SkillFillerWords:       "Reduce filler words (um, uh, like)",
	memory.SkillConfidence:        "Project confidence in your product knowledge",
	memory.SkillGoalAchievement:   "Stay focused on the call objective",
	memory.SkillRapportBuilding:   "Build rapport early in the conversation",
}

// PreviousAttempt summarizes one earlier run at the same scenario.
type PreviousAttempt struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	Score     *float64  `json:"score"`
	StartedAt time.Time `json:"started_at"`
}

// Briefing is shown to a trainee right before a practice call.
type Briefing struct {
	FocusAreas       []string          `json:"focus_areas"`
	ScenarioTips     []string          `json:"scenario_tips"`
	PreviousAttempts []PreviousAttempt `json:"previous_attempts"`
	MotivationalNote string            `json:"motivational_note"`
	Difficulty       string            `json:"estimated_difficulty"`
}

// BriefingBuilder assembles pre-call briefings. Focus areas and tips are
// deterministic; the motivational note is the only LLM call.
type BriefingBuilder struct {
	store  *store.Store
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewBriefingBuilder(st *store.Store, llm *anthropic.Client, logger *slog.Logger) *BriefingBuilder {
	return &BriefingBuilder{store: st, llm: llm, logger: logger}
}

// Build generates a briefing for one trainee and scenario.
func (b *BriefingBuilder) Build(ctx context.Context, orgID, userID string, scenarioID uuid.UUID) (*Briefing, error) {
	var (
		wg         sync.WaitGroup
		scenario   *store.Scenario
		weaknesses []store.UserMemory
		attempts   []store.AttemptScore
		errs       [3]error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		scenario, errs[0] = b.store.GetScenario(ctx, scenarioID)
	}()
	go func() {
		defer wg.Done()
		weaknesses, errs[1] = b.store.ListUserMemory(ctx, orgID, userID, store.MemoryWeaknessProfile)
	}()
	go func() {
		defer wg.Done()
		attempts, errs[2] = b.store.ListScenarioAttempts(ctx, orgID, userID, scenarioID, maxPreviousAttempts)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("build briefing: %w", err)
		}
	}

	previous := make([]PreviousAttempt, 0, len(attempts))
	for _, a := range attempts {
		previous = append(previous, PreviousAttempt{AttemptID: a.ID, Score: a.Score, StartedAt: a.StartedAt})
	}

	briefing := &Briefing{
		FocusAreas:       buildFocusAreas(weaknesses, scenario),
		ScenarioTips:     buildScenarioTips(scenario),
		PreviousAttempts: previous,
		Difficulty:       normalizeDifficulty(scenario.Difficulty),
	}
	briefing.MotivationalNote = b.motivationalNote(ctx, briefing.FocusAreas, previous, scenario.Title)
	return briefing, nil
}

// buildFocusAreas maps the worst weaknesses to actionable reminders,
// topping up with generic ones when the profile is thin.
func buildFocusAreas(weaknesses []store.UserMemory, scenario *store.Scenario) []string {
	if len(weaknesses) == 0 {
		return defaultFocusAreas
	}

	var areas []string
	for _, w := range weaknesses {
		if len(areas) >= maxFocusAreas {
			break
		}
		if area := weaknessFocusArea(w.Key, scenario); area != "" {
			areas = append(areas, area)
		}
	}
	for _, fallback := range defaultFocusAreas {
		if len(areas) >= maxFocusAreas {
			break
		}
		if !slices.Contains(areas, fallback) {
			areas = append(areas, fallback)
		}
	}
	return areas
}

func weaknessFocusArea(key string, scenario *store.Scenario) string {
	if key == memory.SkillObjectionHandling && len(scenario.Config.ObjectionKeywords) > 0 {
		kinds := scenario.Config.ObjectionKeywords
		if len(kinds) > 2 {
			kinds = kinds[:2]
		}
		return fmt.Sprintf("Listen for %s objections and use feel-felt-found technique", strings.Join(kinds, " and "))
	}
	return weaknessFocusMap[key]
}

// buildScenarioTips derives tips from the scenario's rubric and config.
func buildScenarioTips(scenario *store.Scenario) []string {
	rubric := scenario.Rubric
	if rubric == nil || !rubric.HasCriteria() {
		return []string{"Review the scenario description before starting"}
	}

	var tips []string
	if rubric.GoalAchievement != nil {
		if rubric.GoalAchievement.Required {
			tips = append(tips, "Achieving the call goal is required, stay focused on the objective")
		} else {
			tips = append(tips, "Try to achieve the call goal for maximum points")
		}
	}
	if rubric.RequiredPhrases != nil && len(scenario.Config.RequiredPhrases) > 0 {
		n := len(scenario.Config.RequiredPhrases)
		plural := ""
		if n > 1 {
			plural = "s"
		}
		tips = append(tips, fmt.Sprintf("Include %d required phrase%s during the conversation", n, plural))
	}
	if rubric.OpenQuestions != nil {
		tips = append(tips, "Ask open-ended questions throughout the call")
	}
	if rubric.ObjectionsHandled != nil && len(scenario.Config.ObjectionKeywords) > 0 {
		kinds := scenario.Config.ObjectionKeywords
		if len(kinds) > 3 {
			kinds = kinds[:3]
		}
		tips = append(tips, "Be ready to handle objections: "+strings.Join(kinds, ", "))
	}
	if rubric.ConversationQuality != nil {
		tips = append(tips, "Conversation quality is scored, keep your tone clear and professional")
	}

	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}
	return tips
}

func (b *BriefingBuilder) motivationalNote(ctx context.Context, focusAreas []string, previous []PreviousAttempt, scenarioTitle string) string {
	attemptContext := "This is their first time attempting this scenario."
	if len(previous) > 0 {
		latest := "unscored"
		if previous[0].Score != nil {
			latest = fmt.Sprintf("%.0f", *previous[0].Score)
		}
		attemptContext = fmt.Sprintf("They have %d previous attempt(s) on this scenario, latest score: %s.", len(previous), latest)
	}

	prompt := fmt.Sprintf(`You are a supportive sales coach. Write a brief (1-2 sentence) motivational note for a trainee about to practice %q. %s Their focus areas are: %s. Be encouraging but specific. Do not use emojis.`,
		scenarioTitle, attemptContext, strings.Join(focusAreas, ", "))

	text, err := b.llm.GenerateText(ctx, prompt)
	if err != nil {
		b.logger.Error("motivational note generation failed, using fallback", "error", err)
		return "You've got this. Focus on your key areas and give it your best shot."
	}
	return strings.TrimSpace(text)
}

func normalizeDifficulty(value string) string {
	switch value {
	case "easy", "medium", "hard":
		return value
	}
	return "unknown"
}
