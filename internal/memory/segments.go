package memory

import (
	"strings"

	"github.com/verbalize-ai/coachd/internal/kpi"
)

// Candidate kinds for embedded evidence.
const (
	KindUnansweredQuestion = "unanswered_question"
	KindFumble             = "fumble"
	KindStrongResponse     = "strong_response"
	KindCoachingInsight    = "coaching_insight"
)

const (
	shortReplyWords     = 8
	strongResponseWords = 25
	maxCandidates       = 10
)

// Candidate is one snippet worth embedding as long-term evidence.
type Candidate struct {
	Kind    string
	Content string
}

// ExtractSignificantSegments scans the transcript once, in order, and
// classifies the moments worth remembering. A reply consumed as evidence
// for an unanswered question is not revisited, so a short mumbled answer
// counts once, not once as evidence and again as a fumble.
func ExtractSignificantSegments(segments []kpi.Segment, feedbackText string) []Candidate {
	var candidates []Candidate
	consumed := make(map[int]bool)

	for i, seg := range segments {
		if len(candidates) >= maxCandidates {
			break
		}
		if consumed[i] {
			continue
		}

		if seg.Speaker == kpi.SpeakerAgent && strings.Contains(seg.Text, "?") {
			reply, replyIdx := nextTraineeReply(segments, i)
			switch {
			case reply == nil:
				candidates = append(candidates, Candidate{
					Kind:    KindUnansweredQuestion,
					Content: "Agent asked: " + seg.Text,
				})
			case kpi.WordCount(reply.Text) < shortReplyWords:
				consumed[replyIdx] = true
				candidates = append(candidates, Candidate{
					Kind:    KindUnansweredQuestion,
					Content: "Agent asked: " + seg.Text + " Trainee replied: " + reply.Text,
				})
			}
			continue
		}

		if seg.Speaker != kpi.SpeakerTrainee {
			continue
		}

		words := kpi.WordCount(seg.Text)
		fillers := len(kpi.FillerPattern.FindAllString(seg.Text, -1))

		if words < shortReplyWords && fillers >= 2 {
			candidates = append(candidates, Candidate{Kind: KindFumble, Content: seg.Text})
			continue
		}
		if words >= strongResponseWords && float64(fillers)/float64(words) < 0.1 {
			candidates = append(candidates, Candidate{Kind: KindStrongResponse, Content: seg.Text})
		}
	}

	if feedbackText != "" && len(candidates) < maxCandidates {
		candidates = append(candidates, Candidate{Kind: KindCoachingInsight, Content: feedbackText})
	}
	return candidates
}

// nextTraineeReply finds the trainee turn immediately following index i,
// skipping nothing: a follow-on agent turn means the question went
// unanswered.
func nextTraineeReply(segments []kpi.Segment, i int) (*kpi.Segment, int) {
	if i+1 >= len(segments) {
		return nil, -1
	}
	next := &segments[i+1]
	if next.Speaker != kpi.SpeakerTrainee {
		return nil, -1
	}
	return next, i + 1
}
