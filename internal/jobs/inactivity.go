package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/store"
)

// activityPageSize bounds each page of the completed-attempt scan.
const activityPageSize = 1000

type orgUser struct {
	orgID  string
	userID string
}

// DetectInactiveUsers scans completed attempts for trainees whose last
// session is older than the inactivity threshold and publishes a
// UserInactive event for each. One event per user per run; the consumer
// side decides how often to actually nag.
func (r *Runner) DetectInactiveUsers(ctx context.Context) (BatchResult, error) {
	latest := make(map[orgUser]time.Time)

	for offset := 0; ; offset += activityPageSize {
		page, err := r.store.ListCompletedActivityPage(ctx, activityPageSize, offset)
		if err != nil {
			return BatchResult{}, fmt.Errorf("scan completed attempts: %w", err)
		}
		mergeLatest(latest, page)
		if len(page) < activityPageSize {
			break
		}
	}

	inactive := filterInactive(latest, time.Now(), r.inactivityDays)

	var res BatchResult
	for _, evt := range inactive {
		res.Processed++
		if err := r.events.Publish(events.SubjectUserInactive, evt); err != nil {
			res.Failed++
			r.logger.Error("publish inactive event failed",
				"org_id", evt.OrgID, "user_id", evt.UserID, "error", err)
			continue
		}
		res.Succeeded++
	}

	r.logger.Info("inactivity scan complete",
		"users_seen", len(latest), "inactive", len(inactive))
	return res, nil
}

// mergeLatest folds a page of attempts into the per-user latest map.
// Pages arrive newest first, but the timestamp comparison makes the
// fold order-independent.
func mergeLatest(latest map[orgUser]time.Time, rows []store.AttemptActivity) {
	for _, row := range rows {
		key := orgUser{orgID: row.OrgID, userID: row.UserID}
		if row.StartedAt.After(latest[key]) {
			latest[key] = row.StartedAt
		}
	}
}

// filterInactive returns one UserInactive event per user whose last
// completed attempt is at least thresholdDays old.
func filterInactive(latest map[orgUser]time.Time, now time.Time, thresholdDays int) []events.UserInactive {
	var out []events.UserInactive
	for key, lastAt := range latest {
		days := int(now.Sub(lastAt).Hours() / 24)
		if days < thresholdDays {
			continue
		}
		out = append(out, events.UserInactive{
			OrgID:        key.orgID,
			UserID:       key.userID,
			LastActiveAt: lastAt,
			DaysInactive: days,
		})
	}
	return out
}
