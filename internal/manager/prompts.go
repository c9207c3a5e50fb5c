package manager

import (
	"fmt"
	"strings"
)

func talkingPointsPrompt(name string, summary PerformanceSummary, areas, strengths []string) string {
	performance := "No scored attempts yet."
	if summary.OverallScore != nil {
		performance = fmt.Sprintf("Overall score: %.0f%%. Trend: %s. Attempts: %d.",
			*summary.OverallScore, summary.Trend, summary.AttemptCount)
		if summary.ComparedToTeam != "" {
			performance += fmt.Sprintf(" Compared to team: %s average.", summary.ComparedToTeam)
		}
	}

	return fmt.Sprintf(`You are a sales coaching expert. Generate 3-5 specific, actionable talking points for a manager's 1:1 meeting with %s.

Performance: %s
Areas needing improvement: %s
Strengths: %s

Rules:
- Each talking point should be one concise sentence.
- Focus on specific coaching actions, not generic advice.
- If there are declining areas, address those first.
- Include at least one positive reinforcement point.
- Reference specific skills by name (e.g., "objection handling", "rapport building").
- Do not use emojis or bullet points.
- Return each talking point on its own line, nothing else.`,
		name, performance, strings.Join(areas, "; "), strings.Join(strengths, "; "))
}
