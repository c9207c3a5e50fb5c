package kpi

import (
	"strings"
	"testing"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("alpha ", n))
}

func TestComputeCallKPIs_TalkListenRatio(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: words(600)},
		{Speaker: SpeakerAgent, Text: words(400)},
	}

	k := ComputeCallKPIs(segments, 100)

	if k.UserTalkTime != 180 {
		t.Errorf("UserTalkTime = %v, want 180", k.UserTalkTime)
	}
	if k.AgentTalkTime != 120 {
		t.Errorf("AgentTalkTime = %v, want 120", k.AgentTalkTime)
	}
	if k.TalkListenRatio != "60:40" {
		t.Errorf("TalkListenRatio = %q, want \"60:40\"", k.TalkListenRatio)
	}
	if k.UserTalkPercent != 60 {
		t.Errorf("UserTalkPercent = %d, want 60", k.UserTalkPercent)
	}
	if k.PaceWPM != 360 {
		t.Errorf("PaceWPM = %d, want 360", k.PaceWPM)
	}
	if k.TotalWords != 600 {
		t.Errorf("TotalWords = %d, want 600", k.TotalWords)
	}
}

func TestComputeCallKPIs_RatioAlwaysSumsTo100(t *testing.T) {
	splits := []struct{ user, agent int }{
		{1, 999}, {333, 667}, {1, 2}, {7, 13}, {100, 1},
	}
	for _, split := range splits {
		segments := []Segment{
			{Speaker: SpeakerTrainee, Text: words(split.user)},
			{Speaker: SpeakerAgent, Text: words(split.agent)},
		}
		k := ComputeCallKPIs(segments, 60)

		parts := strings.SplitN(k.TalkListenRatio, ":", 2)
		if len(parts) != 2 {
			t.Fatalf("split %v: malformed ratio %q", split, k.TalkListenRatio)
		}
		sum := atoiOrFail(t, parts[0]) + atoiOrFail(t, parts[1])
		if sum != 100 {
			t.Errorf("split %v: ratio %q sums to %d, want 100", split, k.TalkListenRatio, sum)
		}
	}
}

func atoiOrFail(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Fatalf("non-numeric ratio part %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func TestComputeCallKPIs_NoTalk(t *testing.T) {
	for _, segments := range [][]Segment{
		nil,
		{{Speaker: SpeakerTrainee, Text: ""}, {Speaker: SpeakerAgent, Text: "  "}},
	} {
		k := ComputeCallKPIs(segments, 100)
		if k.TalkListenRatio != "0:0" {
			t.Errorf("TalkListenRatio = %q, want \"0:0\"", k.TalkListenRatio)
		}
		if k.SentimentScore != 0.5 {
			t.Errorf("SentimentScore = %v, want 0.5", k.SentimentScore)
		}
	}
}

func TestComputeCallKPIs_FillersAndQuestions(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerTrainee, Text: "um well basically that works, you know"},
		{Speaker: SpeakerAgent, Text: "um well what do you think?"},
		{Speaker: SpeakerTrainee, Text: "what budget did you have in mind?"},
	}

	k := ComputeCallKPIs(segments, 60)

	// Fillers count on trainee turns only: um, well, basically, you know.
	if k.FillerWords != 4 {
		t.Errorf("FillerWords = %d, want 4", k.FillerWords)
	}
	if k.FillerRatePerMin != 4 {
		t.Errorf("FillerRatePerMin = %v, want 4", k.FillerRatePerMin)
	}
	if k.QuestionsAsked != 1 {
		t.Errorf("QuestionsAsked = %d, want 1", k.QuestionsAsked)
	}
	if k.Interruptions != 0 {
		t.Errorf("Interruptions = %d, want 0", k.Interruptions)
	}
}

func TestComputeCallKPIs_Sentiment(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     float64
	}{
		{
			name: "positive user, negative agent averages to neutral",
			segments: []Segment{
				{Speaker: SpeakerTrainee, Text: "great, excellent!"},
				{Speaker: SpeakerAgent, Text: "terrible, awful."},
			},
			want: 0.5,
		},
		{
			name: "all positive",
			segments: []Segment{
				{Speaker: SpeakerTrainee, Text: "this is wonderful"},
				{Speaker: SpeakerAgent, Text: "perfect, absolutely"},
			},
			want: 1,
		},
		{
			name: "no sentiment words",
			segments: []Segment{
				{Speaker: SpeakerTrainee, Text: "the quarterly report"},
			},
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := ComputeCallKPIs(tt.segments, 60)
			if k.SentimentScore != tt.want {
				t.Errorf("SentimentScore = %v, want %v", k.SentimentScore, tt.want)
			}
		})
	}
}

func TestResponseTimes(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerAgent, Text: "hello", StartTimeMS: 0},
		{Speaker: SpeakerTrainee, Text: "hi there", StartTimeMS: 1500},
		{Speaker: SpeakerAgent, Text: "question", StartTimeMS: 2000},
		{Speaker: SpeakerTrainee, Text: "answer", StartTimeMS: 5000},
	}

	avg, median, max := responseTimes(segments)
	if avg != 2250 {
		t.Errorf("avg = %d, want 2250", avg)
	}
	if median != 3000 {
		t.Errorf("median = %d, want 3000", median)
	}
	if max != 3000 {
		t.Errorf("max = %d, want 3000", max)
	}
}

func TestResponseTimes_NoTimestamps(t *testing.T) {
	segments := []Segment{
		{Speaker: SpeakerAgent, Text: "hello"},
		{Speaker: SpeakerTrainee, Text: "hi"},
	}
	avg, median, max := responseTimes(segments)
	if avg != 0 || median != 0 || max != 0 {
		t.Errorf("got %d/%d/%d, want all 0", avg, median, max)
	}
}
