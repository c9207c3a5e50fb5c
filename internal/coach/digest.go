package coach

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/store"
)

const digestTrendThreshold = 3

// DigestSummary is the performance snapshot for the last 24 hours.
type DigestSummary struct {
	Attempts       int      `json:"attempts"`
	AvgScore       *float64 `json:"avg_score"`
	Trend          string   `json:"trend"`
	BestDimension  string   `json:"best_dimension,omitempty"`
	WorstDimension string   `json:"worst_dimension,omitempty"`
}

// Digest is a trainee's daily progress report.
type Digest struct {
	Summary          DigestSummary `json:"summary"`
	TopImprovement   string        `json:"top_improvement,omitempty"`
	TopDecline       string        `json:"top_decline,omitempty"`
	NextActions      []string      `json:"next_actions"`
	Streak           int           `json:"streak"`
	NoRecentActivity bool          `json:"no_recent_activity"`
}

// DigestBuilder produces daily digests. Nothing here calls an LLM; the
// digest message is assembled from deterministic templates.
type DigestBuilder struct {
	store  *store.Store
	logger *slog.Logger
}

func NewDigestBuilder(st *store.Store, logger *slog.Logger) *DigestBuilder {
	return &DigestBuilder{store: st, logger: logger}
}

// Build compares the last 24 hours of attempts against the prior 24
// hours and derives trend, biggest skill deltas, and next actions.
func (d *DigestBuilder) Build(ctx context.Context, orgID, userID string) (*Digest, error) {
	now := time.Now()
	oneDayAgo := now.Add(-24 * time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	var (
		wg         sync.WaitGroup
		current    []store.AttemptScore
		previous   []store.AttemptScore
		weaknesses []store.UserMemory
		strengths  []store.UserMemory
		history    []store.AttemptScore
		errs       [5]error
	)
	wg.Add(5)
	go func() {
		defer wg.Done()
		current, errs[0] = d.store.ListUserAttemptsBetween(ctx, orgID, userID, oneDayAgo, now)
	}()
	go func() {
		defer wg.Done()
		previous, errs[1] = d.store.ListUserAttemptsBetween(ctx, orgID, userID, twoDaysAgo, oneDayAgo)
	}()
	go func() {
		defer wg.Done()
		weaknesses, errs[2] = d.store.ListUserMemory(ctx, orgID, userID, store.MemoryWeaknessProfile)
	}()
	go func() {
		defer wg.Done()
		strengths, errs[3] = d.store.ListTopSkills(ctx, orgID, userID, 3)
	}()
	go func() {
		defer wg.Done()
		history, errs[4] = d.store.ListUserAttempts(ctx, orgID, userID, 100)
	}()
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("build digest: %w", err)
		}
	}

	times := make([]time.Time, 0, len(history))
	for _, a := range history {
		times = append(times, a.StartedAt)
	}
	streak := memory.StreakDays(times, now)

	worst := ""
	if len(weaknesses) > 0 {
		worst = weaknesses[0].Key
	}
	best := ""
	if len(strengths) > 0 {
		best = strengths[0].Key
	}

	return buildDigest(current, previous, best, worst, streak), nil
}

func buildDigest(current, previous []store.AttemptScore, bestDimension, worstDimension string, streak int) *Digest {
	if len(current) == 0 {
		return &Digest{
			Summary: DigestSummary{
				Trend:          "insufficient_data",
				BestDimension:  bestDimension,
				WorstDimension: worstDimension,
			},
			NextActions:      nextActions(false, worstDimension, ""),
			Streak:           streak,
			NoRecentActivity: true,
		}
	}

	var avgScore *float64
	if scores := scoresOf(current); len(scores) > 0 {
		avg := math.Round(meanOf(scores))
		avgScore = &avg
	}

	trend := "insufficient_data"
	if prevScores := scoresOf(previous); avgScore != nil && len(prevScores) > 0 {
		diff := *avgScore - meanOf(prevScores)
		switch {
		case diff > digestTrendThreshold:
			trend = "improving"
		case diff < -digestTrendThreshold:
			trend = "declining"
		default:
			trend = "stable"
		}
	}

	currentDims := memory.DimensionAverages(current)
	previousDims := memory.DimensionAverages(previous)
	topImprovement := topDelta(currentDims, previousDims, true)
	topDecline := topDelta(currentDims, previousDims, false)

	// Today's numbers beat the long-term profile for best/worst.
	if len(currentDims) > 0 {
		maxScore, minScore := -1.0, 101.0
		for _, key := range sortedKeys(currentDims) {
			score := currentDims[key]
			if score > maxScore {
				maxScore, bestDimension = score, key
			}
			if score < minScore {
				minScore, worstDimension = score, key
			}
		}
	}

	return &Digest{
		Summary: DigestSummary{
			Attempts:       len(current),
			AvgScore:       avgScore,
			Trend:          trend,
			BestDimension:  bestDimension,
			WorstDimension: worstDimension,
		},
		TopImprovement:   topImprovement,
		TopDecline:       topDecline,
		NextActions:      nextActions(true, worstDimension, topDecline),
		Streak:           streak,
		NoRecentActivity: false,
	}
}

// topDelta finds the dimension with the largest change between periods,
// formatted like "objection_handling +6". Empty when nothing moved.
func topDelta(current, previous map[string]float64, improvement bool) string {
	bestKey := ""
	bestDelta := 0.0
	for _, key := range sortedKeys(current) {
		prev, ok := previous[key]
		if !ok {
			continue
		}
		delta := current[key] - prev
		if improvement && delta > bestDelta {
			bestKey, bestDelta = key, delta
		} else if !improvement && delta < bestDelta {
			bestKey, bestDelta = key, delta
		}
	}
	if bestKey == "" || bestDelta == 0 {
		return ""
	}
	sign := ""
	if bestDelta > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s %s%.0f", bestKey, sign, bestDelta)
}

func nextActions(hasRecentActivity bool, worstDimension, topDecline string) []string {
	if !hasRecentActivity {
		if worstDimension != "" {
			return []string{fmt.Sprintf("Try a session focused on %s to strengthen this skill.",
				strings.ToLower(memory.SkillLabel(worstDimension)))}
		}
		return []string{"Complete a practice session to build momentum."}
	}

	var actions []string
	if topDecline != "" {
		label := strings.ToLower(memory.SkillLabel(strings.SplitN(topDecline, " ", 2)[0]))
		actions = append(actions, fmt.Sprintf("Practice %s to reverse the recent dip.", label))
	}
	if worstDimension != "" {
		label := strings.ToLower(memory.SkillLabel(worstDimension))
		covered := false
		for _, a := range actions {
			if strings.Contains(a, label) {
				covered = true
				break
			}
		}
		if !covered {
			actions = append(actions, fmt.Sprintf("Strengthen %s with focused practice.", label))
		}
	}
	if len(actions) == 0 {
		actions = append(actions, "Complete another session to keep building your skills.")
	}
	return actions
}

// FormatDigestMessage renders the digest as the notification text sent
// to the trainee.
func FormatDigestMessage(d *Digest) string {
	var b strings.Builder

	if d.NoRecentActivity {
		if d.Streak > 0 {
			fmt.Fprintf(&b, "You're on a %d-day practice streak. Don't break it now!", d.Streak)
		} else {
			b.WriteString("No practice sessions yesterday. A quick session today keeps your skills sharp.")
		}
		if len(d.NextActions) > 0 {
			b.WriteString(" " + d.NextActions[0])
		}
		return b.String()
	}

	plural := ""
	if d.Summary.Attempts > 1 {
		plural = "s"
	}
	fmt.Fprintf(&b, "You completed %d session%s in the last 24 hours", d.Summary.Attempts, plural)
	if d.Summary.AvgScore != nil {
		fmt.Fprintf(&b, " averaging %.0f%%", *d.Summary.AvgScore)
	}
	b.WriteString(".")

	switch d.Summary.Trend {
	case "improving":
		b.WriteString(" Your scores are trending up compared to the day before.")
	case "declining":
		b.WriteString(" Your scores dipped compared to the day before.")
	}

	if d.TopImprovement != "" {
		key := strings.SplitN(d.TopImprovement, " ", 2)[0]
		b.WriteString(" Biggest gain: " + strings.ToLower(memory.SkillLabel(key)) + ".")
	}
	if d.Streak > 1 {
		fmt.Fprintf(&b, " Practice streak: %d days.", d.Streak)
	}
	for _, action := range d.NextActions {
		b.WriteString(" " + action)
	}
	return b.String()
}

func scoresOf(attempts []store.AttemptScore) []float64 {
	var scores []float64
	for _, a := range attempts {
		if a.Score != nil {
			scores = append(scores, *a.Score)
		}
	}
	return scores
}

func meanOf(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
