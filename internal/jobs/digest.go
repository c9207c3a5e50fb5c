package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verbalize-ai/coachd/internal/coach"
	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/store"
)

// RunDailyDigests builds a progress digest for every trainee active in
// the configured window and publishes each as a recommendation event.
// One trainee failing does not abort the batch.
func (r *Runner) RunDailyDigests(ctx context.Context) (BatchResult, error) {
	cutoff := time.Now().AddDate(0, 0, -r.digestWindowDays)
	active, err := r.store.ListActiveOrgUsers(ctx, cutoff)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active trainees: %w", err)
	}

	var res BatchResult
	for _, trainee := range active {
		res.Processed++
		if err := r.sendDigest(ctx, trainee.OrgID, trainee.UserID); err != nil {
			res.Failed++
			r.logger.Error("digest failed",
				"org_id", trainee.OrgID, "user_id", trainee.UserID, "error", err)
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

func (r *Runner) sendDigest(ctx context.Context, orgID, userID string) error {
	digest, err := r.digests.Build(ctx, orgID, userID)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}

	if err := r.events.Publish(events.SubjectRecommendationReady, events.RecommendationReady{
		OrgID:              orgID,
		UserID:             userID,
		RecommendationType: "daily_digest",
		Message:            coach.FormatDigestMessage(digest),
	}); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}

	if err := r.store.LogActivity(ctx, store.Activity{
		OrgID:  orgID,
		UserID: userID,
		Agent:  "coach",
		Action: "generate_daily_digest",
		Detail: detailJSON(map[string]any{
			"attempts":           digest.Summary.Attempts,
			"avg_score":          digest.Summary.AvgScore,
			"trend":              digest.Summary.Trend,
			"no_recent_activity": digest.NoRecentActivity,
			"streak":             digest.Streak,
		}),
	}); err != nil {
		r.logger.Warn("activity log failed",
			"org_id", orgID, "user_id", userID, "error", err)
	}
	return nil
}

func detailJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
