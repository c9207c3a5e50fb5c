package coach

import (
	"strings"
	"testing"

	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/store"
)

func TestAnalyzeSkillGaps_Empty(t *testing.T) {
	got := AnalyzeSkillGaps(nil)
	if len(got.TopGaps) != 0 || got.FocusArea != "" {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if !strings.Contains(got.Reasoning, "No weaknesses identified yet") {
		t.Errorf("reasoning = %q", got.Reasoning)
	}
}

func TestAnalyzeSkillGaps_Prioritization(t *testing.T) {
	weaknesses := []store.UserMemory{
		{Key: memory.SkillFillerWords, Score: 30, Trend: memory.TrendImproving},
		{Key: memory.SkillClarity, Score: 55, Trend: memory.TrendDeclining},
		{Key: memory.SkillEmpathy, Score: 50, Trend: memory.TrendStable},
		{Key: memory.SkillConfidence, Score: 45, Trend: memory.TrendStable},
		{Key: memory.SkillRapportBuilding, Score: 40, Trend: ""},
	}

	got := AnalyzeSkillGaps(weaknesses)
	if len(got.TopGaps) != 3 {
		t.Fatalf("expected 3 gaps, got %d: %+v", len(got.TopGaps), got.TopGaps)
	}
	// Declining beats stable regardless of score, stable ties break on
	// the lower score, missing trend counts as new.
	if got.TopGaps[0].Key != memory.SkillClarity {
		t.Errorf("gap[0] = %q", got.TopGaps[0].Key)
	}
	if got.TopGaps[1].Key != memory.SkillConfidence {
		t.Errorf("gap[1] = %q", got.TopGaps[1].Key)
	}
	if got.TopGaps[2].Key != memory.SkillEmpathy {
		t.Errorf("gap[2] = %q", got.TopGaps[2].Key)
	}
	if got.FocusArea != memory.SkillClarity {
		t.Errorf("focus = %q", got.FocusArea)
	}
	if got.TopGaps[0].Trend != memory.TrendDeclining {
		t.Errorf("gap[0] trend = %q", got.TopGaps[0].Trend)
	}
}

func TestAnalyzeSkillGaps_Reasoning(t *testing.T) {
	weaknesses := []store.UserMemory{
		{Key: memory.SkillObjectionHandling, Score: 42, Trend: memory.TrendDeclining},
		{Key: memory.SkillClarity, Score: 55, Trend: ""},
	}

	got := AnalyzeSkillGaps(weaknesses)
	want := "Top gaps: objection handling at 42% (declining), communication clarity at 55% (newly identified)."
	if got.Reasoning != want {
		t.Errorf("reasoning = %q, want %q", got.Reasoning, want)
	}
}
