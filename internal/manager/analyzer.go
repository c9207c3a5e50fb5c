// Package manager builds org-level performance analysis, prioritized
// insights, and per-trainee coaching briefs for team managers.
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

	"github.com/verbalize-ai/coachd/internal/cache"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/store"
)

const (
	inactivityDays      = 7
	systemicGapUsers    = 3
	weaknessScoreCutoff = 60
	topPerformerLimit   = 5
	engagementThreshold = 0.5
	analysisCacheTTL    = 15 * time.Minute
)

// TeamStats is the headline numbers for an org.
type TeamStats struct {
	TotalTrainees     int      `json:"total_trainees"`
	ActiveTrainees    int      `json:"active_trainees"`
	AvgScore          *float64 `json:"avg_score"`
	CompletedAttempts int      `json:"completed_attempts"`
}

// SystemicGap is a skill at least three trainees are weak in.
type SystemicGap struct {
	Skill         string  `json:"skill"`
	AffectedCount int     `json:"affected_count"`
	AvgScore      float64 `json:"avg_score"`
}

// AtRiskRep flags one trainee with the reasons they were flagged.
type AtRiskRep struct {
	UserID  string   `json:"user_id"`
	Name    string   `json:"name,omitempty"`
	Reasons []string `json:"reasons"`
}

// TopPerformer is one of the org's highest-scoring trainees.
type TopPerformer struct {
	UserID       string  `json:"user_id"`
	Name         string  `json:"name,omitempty"`
	AvgScore     float64 `json:"avg_score"`
	AttemptCount int     `json:"attempt_count"`
}

// TeamAnalysis is the full org-level picture.
type TeamAnalysis struct {
	OrgID           string         `json:"org_id"`
	GeneratedAt     time.Time      `json:"generated_at"`
	TeamStats       TeamStats      `json:"team_stats"`
	SystemicGaps    []SystemicGap  `json:"systemic_gaps"`
	AtRiskReps      []AtRiskRep    `json:"at_risk_reps"`
	TopPerformers   []TopPerformer `json:"top_performers"`
	Recommendations []string       `json:"recommendations"`
}

// Analyzer computes team analyses from the store, with a short cache so
// dashboard refreshes do not re-scan the org every time.
type Analyzer struct {
	store  *store.Store
	cache  *cache.Cache
	logger *slog.Logger
}

func NewAnalyzer(st *store.Store, c *cache.Cache, logger *slog.Logger) *Analyzer {
	return &Analyzer{store: st, cache: c, logger: logger}
}

// Analyze builds the team analysis for one org. An org with no trainees
// yields an empty analysis without any further queries.
func (a *Analyzer) Analyze(ctx context.Context, orgID string) (*TeamAnalysis, error) {
	cacheKey := "team_analysis:" + orgID
	var cached TeamAnalysis
	if hit, err := a.cache.Get(ctx, cacheKey, &cached); err != nil {
		a.logger.Warn("team analysis cache read failed", "org_id", orgID, "error", err)
	} else if hit {
		return &cached, nil
	}

	trainees, err := a.store.ListTrainees(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("analyze team: %w", err)
	}

	analysis := &TeamAnalysis{
		OrgID:           orgID,
		GeneratedAt:     time.Now().UTC(),
		SystemicGaps:    []SystemicGap{},
		AtRiskReps:      []AtRiskRep{},
		TopPerformers:   []TopPerformer{},
		Recommendations: []string{},
	}
	if len(trainees) == 0 {
		return analysis, nil
	}

	var (
		wg       sync.WaitGroup
		profiles []store.UserMemory
		attempts []store.AttemptScore
		errs     [2]error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		profiles, errs[0] = a.store.ListOrgMemory(ctx, orgID, store.MemoryWeaknessProfile)
	}()
	go func() {
		defer wg.Done()
		attempts, errs[1] = a.store.ListOrgAttempts(ctx, orgID, time.Time{})
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("analyze team: %w", err)
		}
	}

	// Memory rows can belong to non-trainee members; keep trainees only.
	traineeSet := make(map[string]bool, len(trainees))
	names := make(map[string]string, len(trainees))
	for _, t := range trainees {
		traineeSet[t.UserID] = true
		names[t.UserID] = t.Name
	}
	profiles = filterByUser(profiles, traineeSet)
	attempts = filterAttemptsByUser(attempts, traineeSet)

	now := time.Now()
	analysis.SystemicGaps = findSystemicGaps(profiles)
	analysis.AtRiskReps = findAtRiskReps(trainees, profiles, attempts, now)
	analysis.TopPerformers = findTopPerformers(attempts, names)
	analysis.TeamStats = computeTeamStats(len(trainees), attempts, now)
	analysis.Recommendations = buildRecommendations(analysis.SystemicGaps, analysis.AtRiskReps, analysis.TeamStats)

	if err := a.cache.Set(ctx, cacheKey, analysis, analysisCacheTTL); err != nil {
		a.logger.Warn("team analysis cache write failed", "org_id", orgID, "error", err)
	}
	return analysis, nil
}

func filterByUser(rows []store.UserMemory, keep map[string]bool) []store.UserMemory {
	out := rows[:0]
	for _, r := range rows {
		if keep[r.UserID] {
			out = append(out, r)
		}
	}
	return out
}

func filterAttemptsByUser(rows []store.AttemptScore, keep map[string]bool) []store.AttemptScore {
	out := rows[:0]
	for _, r := range rows {
		if keep[r.UserID] {
			out = append(out, r)
		}
	}
	return out
}

// findSystemicGaps groups weakness rows below the cutoff by skill and
// keeps skills shared by enough distinct trainees.
func findSystemicGaps(profiles []store.UserMemory) []SystemicGap {
	usersBySkill := make(map[string]map[string]bool)
	scoresBySkill := make(map[string][]float64)

	for _, p := range profiles {
		if p.Score >= weaknessScoreCutoff {
			continue
		}
		if usersBySkill[p.Key] == nil {
			usersBySkill[p.Key] = make(map[string]bool)
		}
		usersBySkill[p.Key][p.UserID] = true
		scoresBySkill[p.Key] = append(scoresBySkill[p.Key], p.Score)
	}

	gaps := []SystemicGap{}
	for skill, users := range usersBySkill {
		if len(users) < systemicGapUsers {
			continue
		}
		gaps = append(gaps, SystemicGap{
			Skill:         skill,
			AffectedCount: len(users),
			AvgScore:      math.Round(meanOf(scoresBySkill[skill])),
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].AffectedCount != gaps[j].AffectedCount {
			return gaps[i].AffectedCount > gaps[j].AffectedCount
		}
		return gaps[i].Skill < gaps[j].Skill
	})
	return gaps
}

// findAtRiskReps flags trainees with declining weakness trends or a long
// gap since their last attempt. Reasons accumulate independently.
func findAtRiskReps(trainees []store.Member, profiles []store.UserMemory, attempts []store.AttemptScore, now time.Time) []AtRiskRep {
	profilesByUser := make(map[string][]store.UserMemory)
	for _, p := range profiles {
		profilesByUser[p.UserID] = append(profilesByUser[p.UserID], p)
	}

	// Attempts arrive newest-first, so the first row per user wins.
	lastAttemptByUser := make(map[string]time.Time)
	for _, a := range attempts {
		if _, ok := lastAttemptByUser[a.UserID]; !ok {
			lastAttemptByUser[a.UserID] = a.StartedAt
		}
	}

	atRisk := []AtRiskRep{}
	for _, t := range trainees {
		var reasons []string

		userProfiles := profilesByUser[t.UserID]
		if len(userProfiles) > 0 {
			declining := 0
			for _, p := range userProfiles {
				if p.Trend == memory.TrendDeclining {
					declining++
				}
			}
			if declining > 0 && float64(declining) >= float64(len(userProfiles))/2 {
				reasons = append(reasons, "declining scores")
			}
		}

		last, ok := lastAttemptByUser[t.UserID]
		if !ok {
			reasons = append(reasons, "no completed attempts")
		} else if daysSince := int(now.Sub(last).Hours() / 24); daysSince >= inactivityDays {
			reasons = append(reasons, fmt.Sprintf("inactive for %d days", daysSince))
		}

		if len(reasons) > 0 {
			atRisk = append(atRisk, AtRiskRep{UserID: t.UserID, Name: t.Name, Reasons: reasons})
		}
	}
	return atRisk
}

func findTopPerformers(attempts []store.AttemptScore, names map[string]string) []TopPerformer {
	scoresByUser := make(map[string][]float64)
	for _, a := range attempts {
		if a.Score == nil {
			continue
		}
		scoresByUser[a.UserID] = append(scoresByUser[a.UserID], *a.Score)
	}

	performers := []TopPerformer{}
	for userID, scores := range scoresByUser {
		performers = append(performers, TopPerformer{
			UserID:       userID,
			Name:         names[userID],
			AvgScore:     math.Round(meanOf(scores)),
			AttemptCount: len(scores),
		})
	}

	sort.SliceStable(performers, func(i, j int) bool {
		if performers[i].AvgScore != performers[j].AvgScore {
			return performers[i].AvgScore > performers[j].AvgScore
		}
		return performers[i].UserID < performers[j].UserID
	})
	if len(performers) > topPerformerLimit {
		performers = performers[:topPerformerLimit]
	}
	return performers
}

func computeTeamStats(totalTrainees int, attempts []store.AttemptScore, now time.Time) TeamStats {
	activeCutoff := now.Add(-inactivityDays * 24 * time.Hour)
	activeUsers := make(map[string]bool)
	var scores []float64

	for _, a := range attempts {
		if a.Score != nil {
			scores = append(scores, *a.Score)
		}
		if !a.StartedAt.Before(activeCutoff) {
			activeUsers[a.UserID] = true
		}
	}

	stats := TeamStats{
		TotalTrainees:     totalTrainees,
		ActiveTrainees:    len(activeUsers),
		CompletedAttempts: len(attempts),
	}
	if len(scores) > 0 {
		avg := math.Round(meanOf(scores))
		stats.AvgScore = &avg
	}
	return stats
}

// buildRecommendations emits manager-facing suggestions in a fixed order:
// systemic gaps, then inactivity, then declining reps, then engagement.
func buildRecommendations(gaps []SystemicGap, atRisk []AtRiskRep, stats TeamStats) []string {
	recs := []string{}

	for _, gap := range gaps {
		recs = append(recs, fmt.Sprintf("Team-wide training needed for %s: %d reps averaging %.0f%%.",
			memory.SkillLabel(gap.Skill), gap.AffectedCount, gap.AvgScore))
	}

	inactive := 0
	declining := 0
	for _, r := range atRisk {
		for _, reason := range r.Reasons {
			switch {
			case reason == "declining scores":
				declining++
			case reason == "no completed attempts" || strings.HasPrefix(reason, "inactive for"):
				inactive++
			}
		}
	}
	if inactive > 0 {
		plural := ""
		if inactive > 1 {
			plural = "s"
		}
		recs = append(recs, fmt.Sprintf("%d rep%s inactive for 7+ days, consider outreach or reassignment.", inactive, plural))
	}
	if declining > 0 {
		verb := "has"
		plural := ""
		if declining > 1 {
			verb = "have"
			plural = "s"
		}
		recs = append(recs, fmt.Sprintf("%d rep%s %s declining scores, review coaching plans.", declining, plural, verb))
	}

	if stats.TotalTrainees > 0 && float64(stats.ActiveTrainees)/float64(stats.TotalTrainees) < engagementThreshold {
		recs = append(recs, fmt.Sprintf("Low engagement: only %d of %d trainees active in the last 7 days.",
			stats.ActiveTrainees, stats.TotalTrainees))
	}
	return recs
}

func meanOf(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
