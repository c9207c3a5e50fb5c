package coach

import (
	"strings"
	"testing"

	"github.com/verbalize-ai/coachd/internal/kpi"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/scoring"
	"github.com/verbalize-ai/coachd/internal/store"
)

func TestBuildFocusAreas(t *testing.T) {
	scenario := &store.Scenario{
		Config: kpi.ScenarioConfig{ObjectionKeywords: []string{"price", "timing", "authority"}},
	}

	t.Run("no weaknesses falls back to defaults", func(t *testing.T) {
		got := buildFocusAreas(nil, scenario)
		if len(got) != 3 || got[0] != "Focus on clear communication" {
			t.Errorf("areas = %v", got)
		}
	})

	t.Run("objection weakness uses scenario objection types", func(t *testing.T) {
		weaknesses := []store.UserMemory{{Key: memory.SkillObjectionHandling, Score: 40}}
		got := buildFocusAreas(weaknesses, scenario)
		if len(got) != 3 {
			t.Fatalf("areas = %v", got)
		}
		if got[0] != "Listen for price and timing objections and use feel-felt-found technique" {
			t.Errorf("areas[0] = %q", got[0])
		}
		// Remaining slots top up from defaults.
		if got[1] != "Focus on clear communication" {
			t.Errorf("areas[1] = %q", got[1])
		}
	})

	t.Run("three weaknesses fill all slots", func(t *testing.T) {
		weaknesses := []store.UserMemory{
			{Key: memory.SkillFillerWords, Score: 40},
			{Key: memory.SkillConfidence, Score: 45},
			{Key: memory.SkillEmpathy, Score: 50},
			{Key: memory.SkillClarity, Score: 55},
		}
		got := buildFocusAreas(weaknesses, &store.Scenario{})
		want := []string{
			"Reduce filler words (um, uh, like)",
			"Project confidence in your product knowledge",
			"Show genuine understanding of the prospect's situation",
		}
		if len(got) != 3 {
			t.Fatalf("areas = %v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("areas[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestBuildScenarioTips(t *testing.T) {
	t.Run("no rubric", func(t *testing.T) {
		got := buildScenarioTips(&store.Scenario{})
		if len(got) != 1 || got[0] != "Review the scenario description before starting" {
			t.Errorf("tips = %v", got)
		}
	})

	t.Run("required goal leads", func(t *testing.T) {
		sc := &store.Scenario{
			Config: kpi.ScenarioConfig{
				RequiredPhrases:   []string{"free trial", "next steps"},
				ObjectionKeywords: []string{"price"},
			},
			Rubric: &scoring.ScenarioRubric{
				GoalAchievement:   &scoring.CriterionWeight{Weight: 25, Required: true},
				RequiredPhrases:   &scoring.CriterionWeight{Weight: 15},
				ObjectionsHandled: &scoring.CriterionWeight{Weight: 10},
			},
		}
		got := buildScenarioTips(sc)
		if len(got) != 3 {
			t.Fatalf("tips = %v", got)
		}
		if !strings.Contains(got[0], "required") {
			t.Errorf("tips[0] = %q", got[0])
		}
		if got[1] != "Include 2 required phrases during the conversation" {
			t.Errorf("tips[1] = %q", got[1])
		}
		if got[2] != "Be ready to handle objections: price" {
			t.Errorf("tips[2] = %q", got[2])
		}
	})
}

func TestNormalizeDifficulty(t *testing.T) {
	for in, want := range map[string]string{
		"easy": "easy", "medium": "medium", "hard": "hard", "": "unknown", "expert": "unknown",
	} {
		if got := normalizeDifficulty(in); got != want {
			t.Errorf("normalizeDifficulty(%q) = %q, want %q", in, got, want)
		}
	}
}
