package kpi

import "testing"

func TestComputeQualityMetrics_Baseline(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerAgent, Text: "Tell me about the product."},
		{Speaker: SpeakerTrainee, Text: "It automates the whole reporting workflow end to end."},
	}

	m := ComputeQualityMetrics(segments)

	if len(m.Fumbles) != 0 {
		t.Fatalf("Fumbles = %+v, want none", m.Fumbles)
	}
	if m.ConfidenceScore != 80 {
		t.Errorf("ConfidenceScore = %d, want 80", m.ConfidenceScore)
	}
	if m.ProfessionalismScore != 85 {
		t.Errorf("ProfessionalismScore = %d, want 85", m.ProfessionalismScore)
	}
	if m.ClarityScore != 75 {
		t.Errorf("ClarityScore = %d, want 75", m.ClarityScore)
	}
}

func TestComputeQualityMetrics_FumbleTypes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType string
		wantSev  string
	}{
		{
			name:     "filler repetition",
			text:     "uh um uh the number slipped my mind.",
			wantType: FumbleFillerRepetition,
			wantSev:  SeverityModerate,
		},
		{
			name:     "repeated question",
			text:     "Sorry, what did you say about the contract?",
			wantType: FumbleRepeatedQuestion,
			wantSev:  SeveritySevere,
		},
		{
			name:     "uncertainty",
			text:     "I think the renewal price is kind of negotiable in most cases.",
			wantType: FumbleUncertainty,
			wantSev:  SeverityModerate,
		},
		{
			name:     "short uncertainty is severe",
			text:     "I guess so.",
			wantType: FumbleUncertainty,
			wantSev:  SeveritySevere,
		},
		{
			name:     "trailing off mid sentence",
			text:     "So the integration basically works by",
			wantType: FumbleIncompleteSentence,
			wantSev:  SeverityMinor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeQualityMetrics([]Segment{{Speaker: SpeakerTrainee, Text: tt.text}})
			found := false
			for _, f := range m.Fumbles {
				if f.Type == tt.wantType && f.Severity == tt.wantSev {
					found = true
				}
			}
			if !found {
				t.Errorf("fumbles = %+v, want type %s severity %s", m.Fumbles, tt.wantType, tt.wantSev)
			}
		})
	}
}

func TestComputeQualityMetrics_AgentTurnsIgnored(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerAgent, Text: "uh um uh let me check that for you."},
	}
	m := ComputeQualityMetrics(segments)
	if len(m.Fumbles) != 0 {
		t.Errorf("Fumbles = %+v, want none from agent turns", m.Fumbles)
	}
}

func TestComputeQualityMetrics_MarkersAndSignals(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "Absolutely, I can help with that."},
		{Speaker: SpeakerTrainee, Text: "I understand the concern and I appreciate the candor."},
	}

	m := ComputeQualityMetrics(segments)

	if len(m.ConfidenceMarkers) == 0 {
		t.Errorf("ConfidenceMarkers empty, want at least one")
	}
	if len(m.EmpathySignals) == 0 {
		t.Errorf("EmpathySignals empty, want at least one")
	}
	if m.Acknowledgments != 1 {
		t.Errorf("Acknowledgments = %d, want 1", m.Acknowledgments)
	}
	if m.ValueStatements != 1 {
		t.Errorf("ValueStatements = %d, want 1", m.ValueStatements)
	}
	if m.ConfidenceScore <= 80 {
		t.Errorf("ConfidenceScore = %d, want above the 80 baseline", m.ConfidenceScore)
	}
}

func TestCountUnanswered(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     int
	}{
		{
			name: "short reply does not answer",
			segments: []Segment{
				{Speaker: SpeakerAgent, Text: "What is your budget for this quarter?"},
				{Speaker: SpeakerTrainee, Text: "Not sure."},
			},
			want: 1,
		},
		{
			name: "substantive reply answers",
			segments: []Segment{
				{Speaker: SpeakerAgent, Text: "What is your budget for this quarter?"},
				{Speaker: SpeakerTrainee, Text: "We have fifty thousand set aside for tooling this quarter already."},
			},
			want: 0,
		},
		{
			name: "no reply at all",
			segments: []Segment{
				{Speaker: SpeakerAgent, Text: "Could you share the timeline?"},
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countUnanswered(tt.segments); got != tt.want {
				t.Errorf("countUnanswered() = %d, want %d", got, tt.want)
			}
		})
	}
}
