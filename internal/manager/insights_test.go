package manager

import (
	"strings"
	"testing"

	"github.com/verbalize-ai/coachd/internal/memory"
)

func TestGenerateInsights_PrioritySort(t *testing.T) {
	analysis := &TeamAnalysis{
		TeamStats:    TeamStats{TotalTrainees: 10, ActiveTrainees: 3},
		SystemicGaps: []SystemicGap{{Skill: memory.SkillObjectionHandling, AffectedCount: 3, AvgScore: 45}},
		AtRiskReps:   []AtRiskRep{{UserID: "u1", Reasons: []string{"declining scores"}}},
		TopPerformers: []TopPerformer{
			{UserID: "star", AvgScore: 92, AttemptCount: 8},
		},
	}

	insights := GenerateInsights(analysis)
	if len(insights) != 4 {
		t.Fatalf("expected 4 insights, got %d: %+v", len(insights), insights)
	}

	wantTypes := []string{InsightSystemicGap, InsightAtRiskRep, InsightEngagementDrop, InsightMilestone}
	for i, want := range wantTypes {
		if insights[i].Type != want {
			t.Errorf("insights[%d].Type = %q, want %q", i, insights[i].Type, want)
		}
	}
	if insights[0].Priority != PriorityHigh || insights[2].Priority != PriorityMedium || insights[3].Priority != PriorityLow {
		t.Errorf("unexpected priorities: %+v", insights)
	}
	if !strings.Contains(insights[0].Message, "Objection handling") {
		t.Errorf("gap message = %q", insights[0].Message)
	}
}

func TestGenerateInsights_MilestoneThresholds(t *testing.T) {
	tests := []struct {
		name      string
		performer TopPerformer
		want      bool
	}{
		{"high score too few attempts", TopPerformer{AvgScore: 95, AttemptCount: 3}, false},
		{"enough attempts low score", TopPerformer{AvgScore: 89, AttemptCount: 12}, false},
		{"both thresholds met", TopPerformer{AvgScore: 90, AttemptCount: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := &TeamAnalysis{
				TeamStats:     TeamStats{TotalTrainees: 2, ActiveTrainees: 2},
				TopPerformers: []TopPerformer{tt.performer},
			}
			insights := GenerateInsights(analysis)
			got := len(insights) == 1 && insights[0].Type == InsightMilestone
			if got != tt.want {
				t.Errorf("milestone emitted = %v, want %v (%+v)", got, tt.want, insights)
			}
			if !tt.want && len(insights) != 0 {
				t.Errorf("expected no insights, got %+v", insights)
			}
		})
	}
}

func TestGenerateInsights_EngagementThreshold(t *testing.T) {
	below := &TeamAnalysis{TeamStats: TeamStats{TotalTrainees: 10, ActiveTrainees: 3}}
	if insights := GenerateInsights(below); len(insights) != 1 || insights[0].Type != InsightEngagementDrop {
		t.Errorf("expected engagement drop for 3/10 active, got %+v", insights)
	}

	atHalf := &TeamAnalysis{TeamStats: TeamStats{TotalTrainees: 10, ActiveTrainees: 5}}
	if insights := GenerateInsights(atHalf); len(insights) != 0 {
		t.Errorf("expected no insight for exactly half active, got %+v", insights)
	}

	empty := &TeamAnalysis{}
	if insights := GenerateInsights(empty); len(insights) != 0 {
		t.Errorf("expected no insight for zero trainees, got %+v", insights)
	}
}
