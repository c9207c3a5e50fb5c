package feedback

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verbalize-ai/coachd/internal/anthropic"
	"github.com/verbalize-ai/coachd/internal/kpi"
)

func TestRender(t *testing.T) {
	f := &Feedback{
		Summary: "Solid discovery call with room to tighten objection handling.",
		Strengths: []Strength{
			{Area: "Rapport", Description: "Opened with a genuine personal connection"},
		},
		Improvements: []Improvement{
			{Area: "Objections", Description: "Price pushback went unaddressed.", Suggestion: "Acknowledge, then reframe around value."},
		},
		NextSteps: []string{"Rehearse the pricing objection", "Ask two more open questions"},
	}

	out := f.Render()

	for _, want := range []string{
		"Solid discovery call",
		"Strengths:\n- Rapport: Opened with a genuine personal connection",
		"Areas for improvement:\n- Objections: Price pushback went unaddressed. Acknowledge, then reframe around value.",
		"Next steps:\n1. Rehearse the pricing objection\n2. Ask two more open questions",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered feedback missing %q in:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("rendered feedback has trailing newline")
	}
}

func TestRender_SummaryOnly(t *testing.T) {
	f := &Feedback{Summary: "Short call."}
	if got := f.Render(); got != "Short call." {
		t.Errorf("Render() = %q, want summary only", got)
	}
}

func TestFallback(t *testing.T) {
	f := Fallback()
	if f.Summary == "" || len(f.NextSteps) != 4 {
		t.Errorf("fallback malformed: %+v", f)
	}
}

func TestGenerate(t *testing.T) {
	structured := Feedback{
		Summary:   "Strong close.",
		NextSteps: []string{"Keep asking open questions"},
	}
	body, _ := json.Marshal(structured)

	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, _ := io.ReadAll(r.Body)
		gotPrompt = string(reqBody)
		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": string(body)}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := anthropic.NewClient("test-key", "test-model")
	client.SetTestTransport(server.URL)

	g := NewGenerator(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f, err := g.Generate(context.Background(), Input{
		ScenarioTitle: "Cold outreach",
		Score:         82,
		Segments: []kpi.Segment{
			{Speaker: kpi.SpeakerTrainee, Text: "Let's book a demo."},
		},
		Global: kpi.CallKPIs{TalkListenRatio: "60:40"},
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if f.Summary != "Strong close." {
		t.Errorf("Summary = %q, want %q", f.Summary, "Strong close.")
	}
	for _, want := range []string{"Cold outreach", "82/100", "TRAINEE: Let's book a demo.", "60:40"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerate_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"content": []map[string]string{{"type": "text", "text": "not json"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := anthropic.NewClient("test-key", "test-model")
	client.SetTestTransport(server.URL)

	g := NewGenerator(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := g.Generate(context.Background(), Input{ScenarioTitle: "x"}); err == nil {
		t.Fatal("expected parse error")
	}
}
