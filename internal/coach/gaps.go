// Package coach turns a trainee's memory and history into individual
// coaching outputs: skill-gap analysis, scenario recommendations,
// pre-call briefings, and daily digests.
package coach

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/store"
)

const maxGaps = 3

// trendPriority orders gaps by urgency. A declining skill needs
// attention before one that is merely weak.
var trendPriority = map[string]int{
	memory.TrendDeclining: 0,
	memory.TrendStable:    1,
	memory.TrendNew:       2,
	memory.TrendImproving: 3,
}

// SkillGap is one weakness ranked for coaching attention.
type SkillGap struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Trend string  `json:"trend"`
}

// GapAnalysis is the prioritized view of a trainee's weaknesses.
type GapAnalysis struct {
	TopGaps   []SkillGap `json:"top_gaps"`
	FocusArea string     `json:"focus_area,omitempty"`
	Reasoning string     `json:"reasoning"`
}

// AnalyzeSkillGaps ranks weakness-profile rows by trend urgency, then by
// lowest score, and keeps the top three.
func AnalyzeSkillGaps(weaknesses []store.UserMemory) GapAnalysis {
	if len(weaknesses) == 0 {
		return GapAnalysis{
			TopGaps:   []SkillGap{},
			Reasoning: "No weaknesses identified yet, not enough data to analyze skill gaps.",
		}
	}

	gaps := make([]SkillGap, 0, len(weaknesses))
	for _, w := range weaknesses {
		trend := w.Trend
		if trend == "" {
			trend = memory.TrendNew
		}
		gaps = append(gaps, SkillGap{Key: w.Key, Score: w.Score, Trend: trend})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if trendPriority[gaps[i].Trend] != trendPriority[gaps[j].Trend] {
			return trendPriority[gaps[i].Trend] < trendPriority[gaps[j].Trend]
		}
		return gaps[i].Score < gaps[j].Score
	})
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}

	return GapAnalysis{
		TopGaps:   gaps,
		FocusArea: gaps[0].Key,
		Reasoning: gapReasoning(gaps),
	}
}

func gapReasoning(gaps []SkillGap) string {
	parts := make([]string, 0, len(gaps))
	for _, gap := range gaps {
		trendLabel := "improving"
		switch gap.Trend {
		case memory.TrendDeclining:
			trendLabel = "declining"
		case memory.TrendStable:
			trendLabel = "not improving"
		case memory.TrendNew:
			trendLabel = "newly identified"
		}
		parts = append(parts, fmt.Sprintf("%s at %.0f%% (%s)",
			strings.ToLower(memory.SkillLabel(gap.Key)), gap.Score, trendLabel))
	}
	return "Top gaps: " + strings.Join(parts, ", ") + "."
}
