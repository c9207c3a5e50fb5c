// Package feedback produces the narrative coaching feedback for a scored
// attempt: an LLM-written structured review with a deterministic fallback.
package feedback

import (
	"fmt"
	"strings"
)

// Strength is one thing the trainee did well.
type Strength struct {
	Area                string `json:"area"`
	Description         string `json:"description"`
	TranscriptReference string `json:"transcript_reference,omitempty"`
}

// Improvement is one area to work on, with a concrete suggestion.
type Improvement struct {
	Area                string `json:"area"`
	Description         string `json:"description"`
	Suggestion          string `json:"suggestion"`
	TranscriptReference string `json:"transcript_reference,omitempty"`
}

// Feedback is the structured review stored with a scored attempt.
type Feedback struct {
	Summary      string        `json:"summary"`
	Strengths    []Strength    `json:"strengths"`
	Improvements []Improvement `json:"improvements"`
	NextSteps    []string      `json:"next_steps"`
}

// Render flattens structured feedback into the plain-text form shown in
// digests and stored as feedback_text.
func (f *Feedback) Render() string {
	var sb strings.Builder
	sb.WriteString(f.Summary)

	if len(f.Strengths) > 0 {
		sb.WriteString("\n\nStrengths:\n")
		for _, s := range f.Strengths {
			fmt.Fprintf(&sb, "- %s: %s\n", s.Area, s.Description)
		}
	}
	if len(f.Improvements) > 0 {
		sb.WriteString("\nAreas for improvement:\n")
		for _, im := range f.Improvements {
			fmt.Fprintf(&sb, "- %s: %s %s\n", im.Area, im.Description, im.Suggestion)
		}
	}
	if len(f.NextSteps) > 0 {
		sb.WriteString("\nNext steps:\n")
		for i, step := range f.NextSteps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Fallback is the canned review used when generation fails. Scoring never
// blocks on feedback; the attempt keeps its score either way.
func Fallback() *Feedback {
	return &Feedback{
		Summary: "Performance analysis completed. Review the metrics and transcript for detailed insights.",
		Strengths: []Strength{
			{Area: "Participation", Description: "Actively engaged in the conversation"},
		},
		Improvements: []Improvement{
			{
				Area:        "Performance Analysis",
				Description: "Automated feedback generation encountered an issue",
				Suggestion:  "Review the conversation transcript and metrics manually for insights",
			},
		},
		NextSteps: []string{
			"Review conversation transcript",
			"Focus on key performance metrics",
			"Practice identified weak areas",
			"Attempt scenario again for improvement",
		},
	}
}
