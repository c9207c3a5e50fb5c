package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/verbalize-ai/coachd/internal/store"
)

const day = 24 * time.Hour

// PracticePattern summarises how often a trainee practices.
type PracticePattern struct {
	TotalAttempts      int     `json:"total_attempts"`
	AvgAttemptsPerWeek float64 `json:"avg_attempts_per_week"`
	// LastAttemptDaysAgo is -1 when the trainee has never practiced.
	LastAttemptDaysAgo int `json:"last_attempt_days_ago"`
	StreakDays         int `json:"streak_days"`
}

// ComputePracticePattern derives frequency, recency, and streak from
// newest-first completed-attempt timestamps.
func ComputePracticePattern(newestFirst []time.Time, now time.Time) PracticePattern {
	if len(newestFirst) == 0 {
		return PracticePattern{LastAttemptDaysAgo: -1}
	}

	last := newestFirst[0]
	first := newestFirst[len(newestFirst)-1]

	spanWeeks := last.Sub(first).Hours() / 24 / 7
	if spanWeeks < 1 {
		spanWeeks = 1
	}

	return PracticePattern{
		TotalAttempts:      len(newestFirst),
		AvgAttemptsPerWeek: math.Round(float64(len(newestFirst))/spanWeeks*10) / 10,
		LastAttemptDaysAgo: int(now.Sub(last).Hours() / 24),
		StreakDays:         StreakDays(newestFirst, now),
	}
}

// StreakDays counts consecutive practice days walking back from today.
// A day without practice today does not break an otherwise live streak.
func StreakDays(timestamps []time.Time, now time.Time) int {
	practiceDays := make(map[string]bool, len(timestamps))
	for _, ts := range timestamps {
		practiceDays[ts.UTC().Format("2006-01-02")] = true
	}

	streak := 0
	for i := 0; i < 365; i++ {
		key := now.UTC().Add(-time.Duration(i) * day).Format("2006-01-02")
		if practiceDays[key] {
			streak++
		} else if i == 0 {
			continue
		} else {
			break
		}
	}
	return streak
}

// Context is everything an agent reads about a trainee before acting.
type Context struct {
	Weaknesses     []store.UserMemory   `json:"weaknesses"`
	Strengths      []store.UserMemory   `json:"strengths"`
	RecentAttempts []store.AttemptScore `json:"recent_attempts"`
	Trajectory     string               `json:"trajectory"`
	Pattern        PracticePattern      `json:"practice_pattern"`
	Insights       []string             `json:"insights"`
}

// ContextBuilder assembles agent context from the store.
type ContextBuilder struct {
	store  *store.Store
	logger *slog.Logger
}

func NewContextBuilder(st *store.Store, logger *slog.Logger) *ContextBuilder {
	return &ContextBuilder{store: st, logger: logger}
}

// Build fetches the trainee's profile, strengths, and history in parallel
// and derives trajectory, practice pattern, and headline insights.
func (b *ContextBuilder) Build(ctx context.Context, orgID, userID string) (*Context, error) {
	var (
		wg         sync.WaitGroup
		weaknesses []store.UserMemory
		strengths  []store.UserMemory
		attempts   []store.AttemptScore
		errs       [3]error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		weaknesses, errs[0] = b.store.ListUserMemory(ctx, orgID, userID, store.MemoryWeaknessProfile)
	}()
	go func() {
		defer wg.Done()
		strengths, errs[1] = b.store.ListTopSkills(ctx, orgID, userID, 3)
	}()
	go func() {
		defer wg.Done()
		attempts, errs[2] = b.store.ListUserAttempts(ctx, orgID, userID, 100)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("build agent context: %w", err)
		}
	}

	times := make([]time.Time, 0, len(attempts))
	var scores []float64
	for _, a := range attempts {
		times = append(times, a.StartedAt)
		if a.Score != nil {
			scores = append(scores, *a.Score)
		}
	}

	pattern := ComputePracticePattern(times, time.Now())
	trajectory := ComputeTrend(scores)

	recent := attempts
	if len(recent) > 10 {
		recent = recent[:10]
	}

	return &Context{
		Weaknesses:     weaknesses,
		Strengths:      strengths,
		RecentAttempts: recent,
		Trajectory:     trajectory,
		Pattern:        pattern,
		Insights:       buildInsights(weaknesses, strengths, pattern, trajectory),
	}, nil
}

func buildInsights(weaknesses, strengths []store.UserMemory, pattern PracticePattern, trajectory string) []string {
	var insights []string

	if len(weaknesses) > 0 {
		insights = append(insights, fmt.Sprintf("Weakest area: %s (score: %.0f)", weaknesses[0].Key, weaknesses[0].Score))
	}
	if len(strengths) > 0 {
		insights = append(insights, fmt.Sprintf("Strongest area: %s (score: %.0f)", strengths[0].Key, strengths[0].Score))
	}

	if pattern.TotalAttempts == 0 {
		return append(insights, "No completed attempts yet")
	}

	if pattern.LastAttemptDaysAgo > 3 {
		insights = append(insights, fmt.Sprintf("Inactive for %d days", pattern.LastAttemptDaysAgo))
	}
	if pattern.StreakDays > 0 {
		suffix := "s"
		if pattern.StreakDays == 1 {
			suffix = ""
		}
		insights = append(insights, fmt.Sprintf("Current practice streak: %d day%s", pattern.StreakDays, suffix))
	}
	switch trajectory {
	case TrendImproving:
		insights = append(insights, "Performance trending upward")
	case TrendDeclining:
		insights = append(insights, "Performance trending downward, may need intervention")
	}
	return insights
}
