package manager

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verbalize-ai/coachd/internal/anthropic"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/scoring"
	"github.com/verbalize-ai/coachd/internal/store"
)

const (
	maxRecentScores    = 10
	maxAreasToDiscuss  = 3
	maxAssignments     = 3
	overPracticeDays   = 7
	overPracticeCount  = 3
	comparisonMargin   = 5
	traineeScoreWindow = 100
)

// gapToRubricField maps a weakness key to the rubric criterion that
// directly trains it.
var gapToRubricField = map[string]func(*scoring.ScenarioRubric) *scoring.CriterionWeight{
	memory.SkillObjectionHandling: func(r *scoring.ScenarioRubric) *scoring.CriterionWeight { return r.ObjectionsHandled },
	memory.SkillQuestionHandling:  func(r *scoring.ScenarioRubric) *scoring.CriterionWeight { return r.OpenQuestions },
}

// conversationQualityGaps are weakness keys the conversation_quality
// rubric section addresses indirectly.
var conversationQualityGaps = map[string]bool{
	memory.SkillClarity:           true,
	memory.SkillProfessionalism:   true,
	memory.SkillEmpathy:           true,
	memory.SkillTalkListenBalance: true,
	memory.SkillFillerWords:       true,
}

// PerformanceSummary is the deterministic half of a coaching brief.
type PerformanceSummary struct {
	OverallScore   *float64  `json:"overall_score"`
	AttemptCount   int       `json:"attempt_count"`
	Trend          string    `json:"trend"`
	RecentScores   []float64 `json:"recent_scores"`
	TeamAvgScore   *float64  `json:"team_avg_score"`
	ComparedToTeam string    `json:"compared_to_team,omitempty"`
}

// Assignment is one scenario recommended for the trainee.
type Assignment struct {
	ScenarioID    uuid.UUID `json:"scenario_id"`
	ScenarioTitle string    `json:"scenario_title"`
	Reason        string    `json:"reason"`
	Difficulty    string    `json:"difficulty,omitempty"`
}

// Brief is everything a manager needs for a 1:1 with a trainee.
type Brief struct {
	TraineeID          string             `json:"trainee_id"`
	TraineeName        string             `json:"trainee_name"`
	GeneratedAt        time.Time          `json:"generated_at"`
	PerformanceSummary PerformanceSummary `json:"performance_summary"`
	Strengths          []string           `json:"strengths_to_reinforce"`
	AreasToDiscuss     []string           `json:"areas_to_discuss"`
	TalkingPoints      []string           `json:"talking_points"`
	Assignments        []Assignment       `json:"recommended_assignments"`
}

// BriefBuilder assembles coaching briefs. The talking points are the
// only LLM call; everything else is computed from the store.
type BriefBuilder struct {
	store  *store.Store
	llm    *anthropic.Client
	logger *slog.Logger
}

func NewBriefBuilder(st *store.Store, llm *anthropic.Client, logger *slog.Logger) *BriefBuilder {
	return &BriefBuilder{store: st, llm: llm, logger: logger}
}

// Build generates a coaching brief for one trainee.
func (b *BriefBuilder) Build(ctx context.Context, orgID, traineeID string) (*Brief, error) {
	var (
		wg              sync.WaitGroup
		member          *store.Member
		weaknesses      []store.UserMemory
		strengths       []store.UserMemory
		traineeAttempts []store.AttemptScore
		teamAttempts    []store.AttemptScore
		scenarios       []store.Scenario
		recentScenarios []uuid.UUID
		errs            [7]error
	)

	recentCutoff := time.Now().Add(-overPracticeDays * 24 * time.Hour)

	wg.Add(7)
	go func() {
		defer wg.Done()
		member, errs[0] = b.store.GetMember(ctx, orgID, traineeID)
	}()
	go func() {
		defer wg.Done()
		weaknesses, errs[1] = b.store.ListUserMemory(ctx, orgID, traineeID, store.MemoryWeaknessProfile)
	}()
	go func() {
		defer wg.Done()
		strengths, errs[2] = b.store.ListTopSkills(ctx, orgID, traineeID, 3)
	}()
	go func() {
		defer wg.Done()
		traineeAttempts, errs[3] = b.store.ListUserAttempts(ctx, orgID, traineeID, traineeScoreWindow)
	}()
	go func() {
		defer wg.Done()
		teamAttempts, errs[4] = b.store.ListOrgAttempts(ctx, orgID, time.Time{})
	}()
	go func() {
		defer wg.Done()
		scenarios, errs[5] = b.store.ListActiveScenarios(ctx, orgID)
	}()
	go func() {
		defer wg.Done()
		recentScenarios, errs[6] = b.store.ListRecentScenarioIDs(ctx, orgID, traineeID, recentCutoff)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("build coaching brief: %w", err)
		}
	}

	summary := buildPerformanceSummary(traineeAttempts, teamAttempts)
	strengthLines := buildStrengthLines(strengths)
	areaLines := buildAreaLines(weaknesses)
	assignments := recommendAssignments(weaknesses, scenarios, recentScenarios)

	brief := &Brief{
		TraineeID:          traineeID,
		TraineeName:        member.Name,
		GeneratedAt:        time.Now().UTC(),
		PerformanceSummary: summary,
		Strengths:          strengthLines,
		AreasToDiscuss:     areaLines,
		Assignments:        assignments,
	}
	brief.TalkingPoints = b.talkingPoints(ctx, member.Name, summary, areaLines, strengthLines)
	return brief, nil
}

func buildPerformanceSummary(traineeAttempts, teamAttempts []store.AttemptScore) PerformanceSummary {
	var traineeScores []float64
	for _, a := range traineeAttempts {
		if a.Score != nil {
			traineeScores = append(traineeScores, *a.Score)
		}
	}

	summary := PerformanceSummary{
		AttemptCount: len(traineeAttempts),
		Trend:        scoreTrend(traineeScores),
		RecentScores: traineeScores,
	}
	if len(summary.RecentScores) > maxRecentScores {
		summary.RecentScores = summary.RecentScores[:maxRecentScores]
	}
	if len(traineeScores) > 0 {
		overall := math.Round(meanOf(traineeScores))
		summary.OverallScore = &overall
	}

	var teamScores []float64
	for _, a := range teamAttempts {
		if a.Score != nil {
			teamScores = append(teamScores, *a.Score)
		}
	}
	if len(teamScores) > 0 {
		teamAvg := math.Round(meanOf(teamScores))
		summary.TeamAvgScore = &teamAvg
	}

	if summary.OverallScore != nil && summary.TeamAvgScore != nil {
		switch {
		case *summary.OverallScore > *summary.TeamAvgScore+comparisonMargin:
			summary.ComparedToTeam = "above"
		case *summary.OverallScore < *summary.TeamAvgScore-comparisonMargin:
			summary.ComparedToTeam = "below"
		default:
			summary.ComparedToTeam = "at"
		}
	}
	return summary
}

// scoreTrend compares the recent half of a newest-first score history
// against the older half, the same way skill trends are computed.
func scoreTrend(newestFirst []float64) string {
	switch memory.ComputeTrend(newestFirst) {
	case memory.TrendImproving:
		return "up"
	case memory.TrendDeclining:
		return "down"
	default:
		return "stable"
	}
}

func buildStrengthLines(strengths []store.UserMemory) []string {
	if len(strengths) == 0 {
		return []string{"No strengths identified yet, more practice data needed"}
	}
	lines := make([]string, 0, len(strengths))
	for _, s := range strengths {
		lines = append(lines, fmt.Sprintf("%s (%.0f%%)", memory.SkillLabel(s.Key), s.Score))
	}
	return lines
}

func buildAreaLines(weaknesses []store.UserMemory) []string {
	if len(weaknesses) == 0 {
		return []string{"No specific weaknesses identified yet, encourage more practice sessions"}
	}
	if len(weaknesses) > maxAreasToDiscuss {
		weaknesses = weaknesses[:maxAreasToDiscuss]
	}
	lines := make([]string, 0, len(weaknesses))
	for _, w := range weaknesses {
		note := ""
		switch w.Trend {
		case memory.TrendDeclining:
			note = " (declining)"
		case memory.TrendStable:
			note = " (not improving)"
		}
		lines = append(lines, fmt.Sprintf("%s at %.0f%%%s", memory.SkillLabel(w.Key), w.Score, note))
	}
	return lines
}

// recommendAssignments scores each active scenario against the trainee's
// weaknesses, worst weakness weighted highest. Scenarios attempted three
// or more times in the last week are excluded even on a perfect match.
func recommendAssignments(weaknesses []store.UserMemory, scenarios []store.Scenario, recentScenarios []uuid.UUID) []Assignment {
	if len(weaknesses) == 0 || len(scenarios) == 0 {
		return []Assignment{}
	}

	recentCounts := make(map[uuid.UUID]int)
	for _, id := range recentScenarios {
		recentCounts[id]++
	}

	type scored struct {
		scenario store.Scenario
		points   int
	}
	var candidates []scored
	for _, sc := range scenarios {
		if recentCounts[sc.ID] >= overPracticeCount {
			continue
		}
		candidates = append(candidates, scored{scenario: sc, points: scoreScenario(sc.Rubric, weaknesses)})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].points > candidates[j].points })

	assignments := []Assignment{}
	for _, c := range candidates {
		if c.points <= 0 || len(assignments) == maxAssignments {
			break
		}
		assignments = append(assignments, Assignment{
			ScenarioID:    c.scenario.ID,
			ScenarioTitle: c.scenario.Title,
			Reason:        assignmentReason(c.scenario.Rubric, weaknesses),
			Difficulty:    c.scenario.Difficulty,
		})
	}
	return assignments
}

func scoreScenario(rubric *scoring.ScenarioRubric, weaknesses []store.UserMemory) int {
	if rubric == nil {
		return 0
	}
	points := 0
	for i, w := range weaknesses {
		positionWeight := len(weaknesses) - i
		if field, ok := gapToRubricField[w.Key]; ok && field(rubric) != nil {
			points += 10 * positionWeight
		}
		if rubric.ConversationQuality != nil && conversationQualityGaps[w.Key] {
			points += 3 * positionWeight
		}
	}
	return points
}

func assignmentReason(rubric *scoring.ScenarioRubric, weaknesses []store.UserMemory) string {
	if rubric == nil {
		return "Recommended based on current skill gaps."
	}
	var matched []string
	for _, w := range weaknesses {
		field, direct := gapToRubricField[w.Key]
		if (direct && field(rubric) != nil) || (rubric.ConversationQuality != nil && conversationQualityGaps[w.Key]) {
			matched = append(matched, strings.ToLower(memory.SkillLabel(w.Key)))
		}
	}
	if len(matched) == 0 {
		return "Recommended based on current skill gaps."
	}
	return "Targets weak areas: " + strings.Join(matched, ", ") + "."
}

func (b *BriefBuilder) talkingPoints(ctx context.Context, name string, summary PerformanceSummary, areas, strengths []string) []string {
	prompt := talkingPointsPrompt(name, summary, areas, strengths)

	text, err := b.llm.GenerateText(ctx, prompt)
	if err != nil {
		b.logger.Error("talking point generation failed, using fallback", "error", err)
		return fallbackTalkingPoints(areas, strengths)
	}

	var points []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			points = append(points, line)
		}
	}
	if len(points) == 0 {
		return fallbackTalkingPoints(areas, strengths)
	}
	return points
}

// fallbackTalkingPoints covers an LLM outage with one deterministic
// sentence per discussion area plus a reinforcement line.
func fallbackTalkingPoints(areas, strengths []string) []string {
	var points []string

	for _, area := range areas {
		label := strings.ToLower(strings.SplitN(area, " at ", 2)[0])
		switch {
		case strings.Contains(label, "objection"):
			points = append(points, "Ask about specific objections encountered and review the feel-felt-found technique.")
		case strings.Contains(label, "question"):
			points = append(points, "Practice framing open-ended questions that uncover prospect needs.")
		default:
			points = append(points, fmt.Sprintf("Discuss strategies to improve %s.", label))
		}
	}

	if len(strengths) > 0 && !strings.Contains(strengths[0], "No strengths") {
		points = append(points, fmt.Sprintf("Reinforce strong performance in %s.", strings.ToLower(strengths[0])))
	}

	if len(points) == 0 {
		return []string{
			"Review recent call recordings together.",
			"Set specific goals for the next practice session.",
		}
	}
	return points
}
