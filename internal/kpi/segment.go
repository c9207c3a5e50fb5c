// Package kpi turns raw conversation transcripts into objective metrics:
// global call KPIs, scenario-specific KPIs, and conversation-quality scores.
package kpi

import "strings"

// Speaker roles in a training call transcript.
const (
	SpeakerTrainee = "trainee"
	SpeakerAgent   = "agent"
)

// Segment is one timestamped speaker turn. Ordered chronologically;
// immutable once the attempt is finalized. EndTimeMS may be zero when the
// transport did not report it.
type Segment struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	StartTimeMS int64  `json:"start_time_ms"`
	EndTimeMS   int64  `json:"end_time_ms,omitempty"`
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// traineeText concatenates all trainee turns, lowercased, for substring
// matching.
func traineeText(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if seg.Speaker != SpeakerTrainee {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ToLower(seg.Text))
	}
	return sb.String()
}
