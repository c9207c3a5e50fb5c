package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/manager"
	"github.com/verbalize-ai/coachd/internal/store"
)

// analysisOrgWindow bounds which orgs the weekly analysis considers.
// Orgs with no attempts in 90 days have nothing new to report.
const analysisOrgWindow = 90 * 24 * time.Hour

// RunWeeklyAnalysis analyzes every recently active org and publishes a
// ManagerInsight event per generated insight. A failing org is logged
// and skipped.
func (r *Runner) RunWeeklyAnalysis(ctx context.Context) (BatchResult, error) {
	orgIDs, err := r.store.ListActiveOrgs(ctx, time.Now().Add(-analysisOrgWindow))
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active orgs: %w", err)
	}

	var res BatchResult
	for _, orgID := range orgIDs {
		res.Processed++
		count, err := r.analyzeOrg(ctx, orgID)
		if err != nil {
			res.Failed++
			r.logger.Error("org analysis failed", "org_id", orgID, "error", err)
			continue
		}
		res.Succeeded++
		r.logger.Info("org analyzed", "org_id", orgID, "insights", count)
	}
	return res, nil
}

func (r *Runner) analyzeOrg(ctx context.Context, orgID string) (int, error) {
	analysis, err := r.analyzer.Analyze(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("analyze team: %w", err)
	}

	insights := manager.GenerateInsights(analysis)
	for _, insight := range insights {
		if err := r.events.Publish(events.SubjectManagerInsight, events.ManagerInsight{
			OrgID:    orgID,
			Type:     insight.Type,
			Priority: insight.Priority,
			Title:    insight.Title,
		}); err != nil {
			r.logger.Error("publish insight failed",
				"org_id", orgID, "type", insight.Type, "error", err)
		}
	}

	if err := r.store.LogActivity(ctx, store.Activity{
		OrgID:  orgID,
		Agent:  "manager",
		Action: "weekly_team_analysis",
		Detail: detailJSON(map[string]any{
			"trainees": analysis.TeamStats.TotalTrainees,
			"insights": len(insights),
		}),
	}); err != nil {
		r.logger.Warn("activity log failed", "org_id", orgID, "error", err)
	}
	return len(insights), nil
}
