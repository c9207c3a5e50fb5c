package kpi

import (
	"regexp"
	"strings"
)

// Replies below this word count do not count as answering a question.
const shortReplyWords = 8

// Fumble severities and types. A fumble is a trainee turn that signals
// hesitation or breakdown rather than a substantive reply.
const (
	FumbleFillerRepetition   = "filler_repetition"
	FumbleIncompleteSentence = "incomplete_sentence"
	FumbleRepeatedQuestion   = "repeated_question"
	FumbleUncertainty        = "uncertainty"

	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Fumble is one detected hesitation in the trainee's speech.
type Fumble struct {
	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp_ms"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
}

// QualityMetrics are heuristic conversation-quality signals derived from
// the transcript text alone. Scores are 0-100.
type QualityMetrics struct {
	ConfidenceScore      int      `json:"confidence_score"`
	ProfessionalismScore int      `json:"professionalism_score"`
	ClarityScore         int      `json:"clarity_score"`
	EmpathySignals       []string `json:"empathy_signals,omitempty"`
	ConfidenceMarkers    []string `json:"confidence_markers,omitempty"`
	Fumbles              []Fumble `json:"fumbles,omitempty"`
	Acknowledgments      int      `json:"acknowledgments"`
	ValueStatements      int      `json:"value_statements"`
	UnansweredQuestions  int      `json:"unanswered_questions"`
}

var (
	fillerRepeatPattern = regexp.MustCompile(`(?i)\b(uh+|um+|er+|ah+)(\s+(uh+|um+|er+|ah+)){2,}`)

	repeatedQuestionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)what (was|did) you (say|ask|need|want to know)`),
		regexp.MustCompile(`(?i)can you repeat`),
	}
	uncertaintyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(uh|um|er)\s+(yeah|yes|okay|well)`),
		regexp.MustCompile(`(?i)\bi (think|guess|suppose|maybe)\b`),
		regexp.MustCompile(`(?i)kind of|sort of|i don't know`),
	}
	confidencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(absolutely|certainly|definitely|of course|I can help|let me explain)\b`),
		regexp.MustCompile(`(?i)\b(great question|that's a good point|I understand)\b`),
	}
	empathyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(I understand|I hear you|that makes sense|I appreciate)\b`),
		regexp.MustCompile(`(?i)\b(thank you for|I'm sorry to hear|I can see)\b`),
	}
	acknowledgmentPattern = regexp.MustCompile(`(?i)\b(yes|yeah|okay|alright|sure|absolutely|I see)\b`)
	valuePattern          = regexp.MustCompile(`(?i)\b(I can help|let me explain|let me clarify|I'll|I will)\b`)
)

// ComputeQualityMetrics scores the trainee's delivery from text heuristics.
// All detection runs over trainee turns only.
func ComputeQualityMetrics(segments []Segment) QualityMetrics {
	var m QualityMetrics

	for _, seg := range segments {
		if seg.Speaker != SpeakerTrainee {
			continue
		}
		m.Fumbles = append(m.Fumbles, detectFumbles(seg)...)

		for _, p := range confidencePatterns {
			if match := p.FindString(seg.Text); match != "" {
				m.ConfidenceMarkers = append(m.ConfidenceMarkers, match)
			}
		}
		for _, p := range empathyPatterns {
			if match := p.FindString(seg.Text); match != "" {
				m.EmpathySignals = append(m.EmpathySignals, match)
			}
		}
		if acknowledgmentPattern.MatchString(seg.Text) {
			m.Acknowledgments++
		}
		if valuePattern.MatchString(seg.Text) {
			m.ValueStatements++
		}
	}

	m.UnansweredQuestions = countUnanswered(segments)

	var severe, fillerReps, incomplete int
	for _, f := range m.Fumbles {
		if f.Severity == SeveritySevere {
			severe++
		}
		switch f.Type {
		case FumbleFillerRepetition:
			fillerReps++
		case FumbleIncompleteSentence:
			incomplete++
		}
	}

	confidence := 80 - severe*20 - len(m.Fumbles)*5 + len(m.ConfidenceMarkers)*5
	professionalism := 85 - fillerReps*10 - severe*15
	clarity := 75 - incomplete*8 + len(m.EmpathySignals)*3

	m.ConfidenceScore = clampScore(confidence)
	m.ProfessionalismScore = clampScore(professionalism)
	m.ClarityScore = clampScore(clarity)

	return m
}

func detectFumbles(seg Segment) []Fumble {
	var fumbles []Fumble
	text := seg.Text

	if fillerRepeatPattern.MatchString(text) {
		fumbles = append(fumbles, Fumble{
			Text:        text,
			TimestampMS: seg.StartTimeMS,
			Type:        FumbleFillerRepetition,
			Severity:    SeverityModerate,
		})
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 10 && strings.Contains(trimmed, " ") &&
		!strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "?") && !strings.HasSuffix(trimmed, "!") {
		fumbles = append(fumbles, Fumble{
			Text:        text,
			TimestampMS: seg.StartTimeMS,
			Type:        FumbleIncompleteSentence,
			Severity:    SeverityMinor,
		})
	}
	for _, p := range repeatedQuestionPatterns {
		if p.MatchString(text) {
			fumbles = append(fumbles, Fumble{
				Text:        text,
				TimestampMS: seg.StartTimeMS,
				Type:        FumbleRepeatedQuestion,
				Severity:    SeveritySevere,
			})
			break
		}
	}
	for _, p := range uncertaintyPatterns {
		if p.MatchString(text) {
			severity := SeverityModerate
			if len(text) < 20 {
				severity = SeveritySevere
			}
			fumbles = append(fumbles, Fumble{
				Text:        text,
				TimestampMS: seg.StartTimeMS,
				Type:        FumbleUncertainty,
				Severity:    severity,
			})
			break
		}
	}

	return fumbles
}

// countUnanswered counts agent questions with no trainee reply, or a reply
// too short to carry an answer, within the next two turns.
func countUnanswered(segments []Segment) int {
	count := 0
	for i, seg := range segments {
		if seg.Speaker != SpeakerAgent || !containsQuestion(seg.Text) {
			continue
		}
		answered := false
		for j := i + 1; j < len(segments) && j <= i+2; j++ {
			if segments[j].Speaker == SpeakerTrainee && WordCount(segments[j].Text) >= shortReplyWords {
				answered = true
				break
			}
		}
		if !answered {
			count++
		}
	}
	return count
}

var questionLeadPattern = regexp.MustCompile(`(?i)^(what|where|when|why|how|who|which|can|could|would|will|should|do|does|did|is|are|was|were)\b`)

func containsQuestion(text string) bool {
	return strings.Contains(text, "?") || questionLeadPattern.MatchString(text)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
