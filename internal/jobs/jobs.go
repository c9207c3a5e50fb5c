// Package jobs runs the scheduled batch work: the daily inactivity
// scan, the daily trainee digests, and the weekly team analysis. Each
// job is a plain method so the API layer can trigger one on demand;
// Start wires them to tickers for unattended operation.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/verbalize-ai/coachd/internal/coach"
	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/manager"
	"github.com/verbalize-ai/coachd/internal/store"
)

// Intervals between job runs. Cron-precise scheduling is not needed;
// a fixed interval from process start is close enough.
const (
	inactivityInterval = 24 * time.Hour
	digestInterval     = 24 * time.Hour
	analysisInterval   = 7 * 24 * time.Hour
)

// BatchResult summarizes one job run. Failed counts items that errored
// and were skipped; the run itself still completes.
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Runner owns the scheduled jobs and their dependencies.
type Runner struct {
	store    *store.Store
	events   *events.Client
	digests  *coach.DigestBuilder
	analyzer *manager.Analyzer
	logger   *slog.Logger

	inactivityDays   int
	digestWindowDays int
}

func NewRunner(st *store.Store, ev *events.Client, dg *coach.DigestBuilder, an *manager.Analyzer, logger *slog.Logger, inactivityDays, digestWindowDays int) *Runner {
	return &Runner{
		store:            st,
		events:           ev,
		digests:          dg,
		analyzer:         an,
		logger:           logger,
		inactivityDays:   inactivityDays,
		digestWindowDays: digestWindowDays,
	}
}

// Start launches one goroutine per job and blocks until ctx is done.
// Each job also runs once shortly after startup so a freshly deployed
// instance does not wait a full interval for its first pass.
func (r *Runner) Start(ctx context.Context) {
	go r.loop(ctx, "detect_inactive_users", inactivityInterval, r.DetectInactiveUsers)
	go r.loop(ctx, "daily_digests", digestInterval, r.RunDailyDigests)
	go r.loop(ctx, "weekly_team_analysis", analysisInterval, r.RunWeeklyAnalysis)
	<-ctx.Done()
}

func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, job func(context.Context) (BatchResult, error)) {
	// Short warmup delay so startup bursts (DB pool, NATS reconnects)
	// settle before the first batch.
	warmup := time.NewTimer(time.Minute)
	defer warmup.Stop()

	select {
	case <-ctx.Done():
		return
	case <-warmup.C:
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx, name, job)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, name string, job func(context.Context) (BatchResult, error)) {
	started := time.Now()
	res, err := job(ctx)
	if err != nil {
		r.logger.Error("job failed", "job", name, "error", err)
		return
	}
	r.logger.Info("job finished",
		"job", name,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", time.Since(started).Round(time.Millisecond).String())
}
