package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verbalize-ai/coachd/internal/anthropic"
	"github.com/verbalize-ai/coachd/internal/kpi"
)

// Generator writes coaching feedback for scored attempts.
type Generator struct {
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewGenerator(llm *anthropic.Client, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, logger: logger}
}

// Input carries everything the reviewer prompt needs.
type Input struct {
	ScenarioTitle       string
	ScenarioDescription string
	PersonaName         string
	Segments            []kpi.Segment
	Global              kpi.CallKPIs
	Scenario            kpi.ScenarioKPIs
	Score               float64
}

// Generate asks the LLM for a structured review of the attempt.
func (g *Generator) Generate(ctx context.Context, in Input) (*Feedback, error) {
	goal := "No"
	if in.Scenario.GoalAchievement.PrimaryAchieved {
		goal = "Yes"
	}

	prompt := fmt.Sprintf(feedbackUserPrompt,
		in.ScenarioTitle,
		orNA(in.ScenarioDescription),
		orDefault(in.PersonaName, "AI Agent"),
		in.Score,
		in.Global.TalkListenRatio,
		in.Global.FillerWords,
		in.Global.FillerRatePerMin,
		in.Global.PaceWPM,
		in.Global.AvgResponseMS,
		in.Global.UserSentiment,
		in.Scenario.RequiredPhrases.Mentioned,
		in.Scenario.RequiredPhrases.Total,
		in.Scenario.RequiredPhrases.Percent,
		in.Scenario.OpenQuestions.Count,
		goal,
		formatTranscript(in.Segments),
	)

	messages := []anthropic.Message{
		{Role: "user", Content: prompt},
	}

	g.logger.Info("generating feedback",
		"scenario", in.ScenarioTitle,
		"score", in.Score,
		"segments", len(in.Segments),
	)

	raw, err := g.llm.Complete(ctx, feedbackSystemPrompt, messages, 2048)
	if err != nil {
		return nil, fmt.Errorf("llm feedback: %w", err)
	}

	var f Feedback
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		g.logger.Error("failed to parse feedback response",
			"error", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("parse feedback: %w", err)
	}

	return &f, nil
}

func formatTranscript(segments []kpi.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(seg.Speaker), seg.Text))
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
