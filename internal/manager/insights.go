package manager

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/verbalize-ai/coachd/internal/memory"
)

// Insight types and priorities.
const (
	InsightSystemicGap    = "systemic_gap"
	InsightAtRiskRep      = "at_risk_rep"
	InsightEngagementDrop = "engagement_drop"
	InsightMilestone      = "milestone"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	milestoneScore    = 90
	milestoneAttempts = 5
)

var priorityOrder = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Insight is one actionable item surfaced to a manager.
type Insight struct {
	Type     string         `json:"type"`
	Priority string         `json:"priority"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Skill    string         `json:"skill,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// GenerateInsights converts a team analysis into prioritized insights.
// Systemic gaps and at-risk reps are high priority, an engagement drop
// below 50% is medium, and milestones are low. The sort is stable so
// insertion order holds within a priority.
func GenerateInsights(analysis *TeamAnalysis) []Insight {
	insights := []Insight{}

	for _, gap := range analysis.SystemicGaps {
		label := memory.SkillLabel(gap.Skill)
		insights = append(insights, Insight{
			Type:     InsightSystemicGap,
			Priority: PriorityHigh,
			Skill:    gap.Skill,
			Title:    fmt.Sprintf("Systemic gap in %s: %d reps affected", label, gap.AffectedCount),
			Message: fmt.Sprintf("%d reps are struggling with %s, averaging %.0f%%. Consider scheduling team-wide training.",
				gap.AffectedCount, label, gap.AvgScore),
			Metadata: map[string]any{
				"skill":          gap.Skill,
				"affected_count": gap.AffectedCount,
				"avg_score":      gap.AvgScore,
			},
		})
	}

	for _, rep := range analysis.AtRiskReps {
		insights = append(insights, Insight{
			Type:     InsightAtRiskRep,
			Priority: PriorityHigh,
			Title:    "At-risk rep identified",
			Message:  fmt.Sprintf("Rep flagged as at risk: %s. Consider scheduling a 1:1.", strings.Join(rep.Reasons, ", ")),
			Metadata: map[string]any{
				"user_id": rep.UserID,
				"reasons": rep.Reasons,
			},
		})
	}

	stats := analysis.TeamStats
	if stats.TotalTrainees > 0 {
		ratio := float64(stats.ActiveTrainees) / float64(stats.TotalTrainees)
		if ratio < engagementThreshold {
			pct := int(math.Round(ratio * 100))
			insights = append(insights, Insight{
				Type:     InsightEngagementDrop,
				Priority: PriorityMedium,
				Title:    fmt.Sprintf("Low team engagement: %d%% active", pct),
				Message: fmt.Sprintf("Only %d of %d trainees (%d%%) practiced in the last 7 days. Consider sending reminders.",
					stats.ActiveTrainees, stats.TotalTrainees, pct),
				Metadata: map[string]any{
					"active_trainees": stats.ActiveTrainees,
					"total_trainees":  stats.TotalTrainees,
					"active_percent":  pct,
				},
			})
		}
	}

	for _, p := range analysis.TopPerformers {
		if p.AvgScore < milestoneScore || p.AttemptCount < milestoneAttempts {
			continue
		}
		insights = append(insights, Insight{
			Type:     InsightMilestone,
			Priority: PriorityLow,
			Title:    fmt.Sprintf("Top performer averaging %.0f%%", p.AvgScore),
			Message: fmt.Sprintf("A rep is averaging %.0f%% across %d attempts. Consider recognizing their achievement.",
				p.AvgScore, p.AttemptCount),
			Metadata: map[string]any{
				"user_id":       p.UserID,
				"avg_score":     p.AvgScore,
				"attempt_count": p.AttemptCount,
			},
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return priorityOrder[insights[i].Priority] < priorityOrder[insights[j].Priority]
	})
	return insights
}
