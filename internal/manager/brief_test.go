package manager

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/scoring"
	"github.com/verbalize-ai/coachd/internal/store"
)

func TestBuildPerformanceSummary(t *testing.T) {
	now := time.Now()
	trainee := []store.AttemptScore{
		scoredAttempt("t", 90, now),
		scoredAttempt("t", 88, now),
		scoredAttempt("t", 70, now),
		scoredAttempt("t", 72, now),
	}
	team := []store.AttemptScore{
		scoredAttempt("t", 90, now),
		scoredAttempt("o", 60, now),
		scoredAttempt("o", 60, now),
		scoredAttempt("o", 62, now),
	}

	summary := buildPerformanceSummary(trainee, team)
	if summary.OverallScore == nil || *summary.OverallScore != 80 {
		t.Fatalf("overall = %v, want 80", summary.OverallScore)
	}
	if summary.Trend != "up" {
		t.Errorf("trend = %q, want up", summary.Trend)
	}
	if summary.TeamAvgScore == nil || *summary.TeamAvgScore != 68 {
		t.Fatalf("team avg = %v, want 68", summary.TeamAvgScore)
	}
	if summary.ComparedToTeam != "above" {
		t.Errorf("comparedToTeam = %q, want above", summary.ComparedToTeam)
	}
	if summary.AttemptCount != 4 {
		t.Errorf("attempt count = %d", summary.AttemptCount)
	}
}

func TestBuildPerformanceSummary_NoAttempts(t *testing.T) {
	summary := buildPerformanceSummary(nil, nil)
	if summary.OverallScore != nil || summary.TeamAvgScore != nil {
		t.Errorf("expected nil scores: %+v", summary)
	}
	if summary.ComparedToTeam != "" {
		t.Errorf("comparedToTeam = %q, want empty", summary.ComparedToTeam)
	}
	if summary.Trend != "stable" {
		t.Errorf("trend = %q, want stable", summary.Trend)
	}
}

func TestBuildAreaLines(t *testing.T) {
	weaknesses := []store.UserMemory{
		{Key: memory.SkillObjectionHandling, Score: 42, Trend: memory.TrendDeclining},
		{Key: memory.SkillClarity, Score: 55, Trend: memory.TrendStable},
		{Key: memory.SkillEmpathy, Score: 58, Trend: memory.TrendImproving},
		{Key: memory.SkillConfidence, Score: 62, Trend: memory.TrendStable},
	}

	lines := buildAreaLines(weaknesses)
	if len(lines) != 3 {
		t.Fatalf("expected 3 areas, got %d: %v", len(lines), lines)
	}
	if lines[0] != "Objection handling at 42% (declining)" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "Communication clarity at 55% (not improving)" {
		t.Errorf("lines[1] = %q", lines[1])
	}
	if lines[2] != "Empathy and rapport at 58%" {
		t.Errorf("lines[2] = %q", lines[2])
	}

	empty := buildAreaLines(nil)
	if len(empty) != 1 || !strings.Contains(empty[0], "No specific weaknesses") {
		t.Errorf("empty = %v", empty)
	}
}

func objectionScenario(title string) store.Scenario {
	return store.Scenario{
		ID:    uuid.New(),
		Title: title,
		Rubric: &scoring.ScenarioRubric{
			ObjectionsHandled: &scoring.CriterionWeight{Weight: 10},
		},
	}
}

func TestRecommendAssignments(t *testing.T) {
	weaknesses := []store.UserMemory{
		{Key: memory.SkillObjectionHandling, Score: 40},
		{Key: memory.SkillClarity, Score: 55},
	}

	direct := objectionScenario("Price objection drill")
	quality := store.Scenario{
		ID:     uuid.New(),
		Title:  "Discovery call",
		Rubric: &scoring.ScenarioRubric{ConversationQuality: &scoring.CriterionWeight{Weight: 5}},
	}
	unrelated := store.Scenario{
		ID:     uuid.New(),
		Title:  "Closing practice",
		Rubric: &scoring.ScenarioRubric{GoalAchievement: &scoring.CriterionWeight{Weight: 25}},
	}

	got := recommendAssignments(weaknesses, []store.Scenario{unrelated, quality, direct}, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 assignments, got %d: %+v", len(got), got)
	}
	// Direct rubric match (10x2) outranks conversation quality (3x1).
	if got[0].ScenarioID != direct.ID {
		t.Errorf("top assignment = %q", got[0].ScenarioTitle)
	}
	if !strings.Contains(got[0].Reason, "objection handling") {
		t.Errorf("reason = %q", got[0].Reason)
	}
	if got[1].ScenarioID != quality.ID {
		t.Errorf("second assignment = %q", got[1].ScenarioTitle)
	}
}

func TestRecommendAssignments_ExcludesOverPracticed(t *testing.T) {
	weaknesses := []store.UserMemory{{Key: memory.SkillObjectionHandling, Score: 40}}
	sc := objectionScenario("Price objection drill")

	recent := []uuid.UUID{sc.ID, sc.ID, sc.ID}
	if got := recommendAssignments(weaknesses, []store.Scenario{sc}, recent); len(got) != 0 {
		t.Errorf("over-practiced scenario should be excluded, got %+v", got)
	}

	twice := []uuid.UUID{sc.ID, sc.ID}
	if got := recommendAssignments(weaknesses, []store.Scenario{sc}, twice); len(got) != 1 {
		t.Errorf("twice-practiced scenario should stay, got %+v", got)
	}
}

func TestFallbackTalkingPoints(t *testing.T) {
	areas := []string{
		"Objection handling at 42% (declining)",
		"Asking questions at 50%",
		"Confidence at 58%",
	}
	strengths := []string{"Empathy and rapport (88%)"}

	points := fallbackTalkingPoints(areas, strengths)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d: %v", len(points), points)
	}
	if !strings.Contains(points[0], "feel-felt-found") {
		t.Errorf("points[0] = %q", points[0])
	}
	if !strings.Contains(points[1], "open-ended questions") {
		t.Errorf("points[1] = %q", points[1])
	}
	if points[2] != "Discuss strategies to improve confidence." {
		t.Errorf("points[2] = %q", points[2])
	}
	if points[3] != "Reinforce strong performance in empathy and rapport (88%)." {
		t.Errorf("points[3] = %q", points[3])
	}

	generic := fallbackTalkingPoints(nil, nil)
	if len(generic) != 2 {
		t.Errorf("generic fallback = %v", generic)
	}
}
