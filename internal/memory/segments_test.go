package memory

import (
	"strings"
	"testing"

	"github.com/verbalize-ai/coachd/internal/kpi"
)

func agentTurn(text string) kpi.Segment {
	return kpi.Segment{Speaker: kpi.SpeakerAgent, Text: text}
}

func traineeTurn(text string) kpi.Segment {
	return kpi.Segment{Speaker: kpi.SpeakerTrainee, Text: text}
}

func TestExtractSignificantSegments_ShortMumbledReply(t *testing.T) {
	segments := []kpi.Segment{
		agentTurn("What would the rollout timeline look like?"),
		traineeTurn("Um, like, soon"),
	}

	got := ExtractSignificantSegments(segments, "")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %+v", len(got), got)
	}
	if got[0].Kind != KindUnansweredQuestion {
		t.Errorf("kind = %q, want %q", got[0].Kind, KindUnansweredQuestion)
	}
	if !strings.Contains(got[0].Content, "What would the rollout timeline look like?") {
		t.Errorf("content missing question: %q", got[0].Content)
	}
	if !strings.Contains(got[0].Content, "Um, like, soon") {
		t.Errorf("content missing reply: %q", got[0].Content)
	}
}

func TestExtractSignificantSegments_NoReply(t *testing.T) {
	segments := []kpi.Segment{
		agentTurn("How does your pricing compare to the incumbent?"),
		agentTurn("Hello? Are you still there?"),
	}

	got := ExtractSignificantSegments(segments, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	for _, c := range got {
		if c.Kind != KindUnansweredQuestion {
			t.Errorf("kind = %q, want %q", c.Kind, KindUnansweredQuestion)
		}
		if !strings.HasPrefix(c.Content, "Agent asked: ") {
			t.Errorf("content = %q, want Agent asked prefix", c.Content)
		}
	}
}

func TestExtractSignificantSegments_AdequateReply(t *testing.T) {
	segments := []kpi.Segment{
		agentTurn("What happens if we need to cancel mid-contract?"),
		traineeTurn("You can cancel with thirty days notice and we prorate the final invoice for you"),
	}

	if got := ExtractSignificantSegments(segments, ""); len(got) != 0 {
		t.Fatalf("expected no candidates for an answered question, got %+v", got)
	}
}

func TestExtractSignificantSegments_FumbleAndStrongResponse(t *testing.T) {
	strong := strings.TrimSpace(strings.Repeat("We help teams close deals faster. ", 5))
	segments := []kpi.Segment{
		agentTurn("Tell me more about the product."),
		traineeTurn("Um, uh, right"),
		traineeTurn(strong),
	}

	got := ExtractSignificantSegments(segments, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Kind != KindFumble {
		t.Errorf("first kind = %q, want %q", got[0].Kind, KindFumble)
	}
	if got[1].Kind != KindStrongResponse {
		t.Errorf("second kind = %q, want %q", got[1].Kind, KindStrongResponse)
	}
}

func TestExtractSignificantSegments_FeedbackInsight(t *testing.T) {
	got := ExtractSignificantSegments(nil, "Slow down when handling objections.")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Kind != KindCoachingInsight {
		t.Errorf("kind = %q, want %q", got[0].Kind, KindCoachingInsight)
	}
	if got[0].Content != "Slow down when handling objections." {
		t.Errorf("content = %q", got[0].Content)
	}
}

func TestExtractSignificantSegments_Cap(t *testing.T) {
	var segments []kpi.Segment
	for i := 0; i < 12; i++ {
		segments = append(segments, agentTurn("Still with me?"))
	}

	got := ExtractSignificantSegments(segments, "Great energy throughout.")
	if len(got) != maxCandidates {
		t.Fatalf("expected %d candidates, got %d", maxCandidates, len(got))
	}
	for _, c := range got {
		if c.Kind == KindCoachingInsight {
			t.Error("coaching insight should not be added once the cap is reached")
		}
	}
}
