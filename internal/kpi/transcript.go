package kpi

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// secondsPerWord estimates talk time from word counts (~200 WPM). Segment
// timestamps are unreliable across transports, so talk time is always
// derived from words, never from start/end times.
const secondsPerWord = 0.3

// FillerPattern matches the fixed filler vocabulary in trainee speech.
var FillerPattern = regexp.MustCompile(`(?i)\b(um+|uh+|hmm+|well|like|you know|i mean|basically|actually|so+)\b`)

var (
	positiveWords = map[string]bool{
		"good": true, "great": true, "excellent": true, "amazing": true,
		"wonderful": true, "fantastic": true, "perfect": true, "love": true,
		"like": true, "yes": true, "absolutely": true, "definitely": true,
	}
	negativeWords = map[string]bool{
		"bad": true, "terrible": true, "awful": true, "horrible": true,
		"hate": true, "dislike": true, "no": true, "never": true,
		"impossible": true, "difficult": true, "problem": true, "issue": true,
	}
)

// CallKPIs are the global, scenario-independent metrics for one completed
// attempt. Talk times are word-count estimates in seconds.
type CallKPIs struct {
	DurationSeconds float64 `json:"duration_seconds"`
	UserTalkTime    float64 `json:"user_talk_time"`
	AgentTalkTime   float64 `json:"agent_talk_time"`
	TalkListenRatio string  `json:"talk_listen_ratio"`
	UserTalkPercent int     `json:"user_talk_percent"`
	FillerWords     int     `json:"filler_words"`
	FillerRatePerMin float64 `json:"filler_rate_per_min"`
	QuestionsAsked  int     `json:"questions_asked"`
	// Interruptions are only detectable from the live call-event stream.
	// This batch path always reports 0; see the package doc for the
	// limitation.
	Interruptions int `json:"interruptions"`
	PaceWPM       int `json:"pace_wpm"`
	TotalWords    int `json:"total_words"`
	// Sentiment scores are crude lexicon ratios in [0,1]; 0.5 = neutral.
	SentimentScore float64 `json:"sentiment_score"`
	UserSentiment  float64 `json:"user_sentiment"`
	AgentSentiment float64 `json:"agent_sentiment"`
	AvgResponseMS  int64   `json:"avg_response_ms"`
	MedianResponseMS int64 `json:"median_response_ms"`
	MaxResponseMS  int64   `json:"max_response_ms"`
}

// ComputeCallKPIs derives global KPIs from the full transcript and the call
// duration in seconds.
func ComputeCallKPIs(segments []Segment, durationSeconds float64) CallKPIs {
	k := CallKPIs{
		DurationSeconds: durationSeconds,
		TalkListenRatio: "0:0",
		SentimentScore:  0.5,
		UserSentiment:   0.5,
		AgentSentiment:  0.5,
	}
	if len(segments) == 0 {
		return k
	}

	var userWords, agentWords int
	var userText, agentText strings.Builder
	for _, seg := range segments {
		words := WordCount(seg.Text)
		switch seg.Speaker {
		case SpeakerTrainee:
			userWords += words
			userText.WriteString(strings.ToLower(seg.Text))
			userText.WriteByte(' ')
			k.FillerWords += len(FillerPattern.FindAllString(seg.Text, -1))
			if strings.Contains(seg.Text, "?") {
				k.QuestionsAsked++
			}
		case SpeakerAgent:
			agentWords += words
			agentText.WriteString(strings.ToLower(seg.Text))
			agentText.WriteByte(' ')
		}
	}

	k.UserTalkTime = float64(userWords) * secondsPerWord
	k.AgentTalkTime = float64(agentWords) * secondsPerWord
	k.TotalWords = userWords

	total := k.UserTalkTime + k.AgentTalkTime
	if total > 0 {
		// Agent share is the complement so the two always sum to 100.
		userPct := int(math.Round(k.UserTalkTime / total * 100))
		k.UserTalkPercent = userPct
		k.TalkListenRatio = fmt.Sprintf("%d:%d", userPct, 100-userPct)
	}

	if durationSeconds > 0 {
		k.FillerRatePerMin = math.Round(float64(k.FillerWords)/durationSeconds*60*100) / 100
		k.PaceWPM = int(math.Round(float64(userWords) / durationSeconds * 60))
	}

	k.UserSentiment = math.Round(lexiconSentiment(userText.String())*100) / 100
	k.AgentSentiment = math.Round(lexiconSentiment(agentText.String())*100) / 100
	k.SentimentScore = math.Round((k.UserSentiment+k.AgentSentiment)/2*100) / 100

	k.AvgResponseMS, k.MedianResponseMS, k.MaxResponseMS = responseTimes(segments)

	return k
}

// lexiconSentiment scores text by counting positive vs negative words.
// Returns 0.5 when no sentiment words appear.
func lexiconSentiment(text string) float64 {
	var pos, neg int
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:")
		if positiveWords[word] {
			pos++
		}
		if negativeWords[word] {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0.5
	}
	return float64(pos) / float64(pos+neg)
}

// responseTimes measures trainee latency after agent turns using segment
// timestamps. Timestamps may be absent (all zero), in which case everything
// reports 0.
func responseTimes(segments []Segment) (avg, median, max int64) {
	var times []int64
	for i := 1; i < len(segments); i++ {
		if segments[i].Speaker != SpeakerTrainee || segments[i-1].Speaker != SpeakerAgent {
			continue
		}
		delta := segments[i].StartTimeMS - segments[i-1].StartTimeMS
		if delta > 0 {
			times = append(times, delta)
		}
	}
	if len(times) == 0 {
		return 0, 0, 0
	}

	var sum int64
	for _, t := range times {
		sum += t
		if t > max {
			max = t
		}
	}
	avg = sum / int64(len(times))

	sorted := append([]int64(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	median = sorted[len(sorted)/2]
	return avg, median, max
}
