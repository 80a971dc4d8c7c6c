package bootstrap

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/metrics"
	"github.com/coldroute/coldroute/internal/pkg/logger"
	"github.com/coldroute/coldroute/internal/scheduler"
)

// Jobs assembles the §4.9 cadence table over an already-built Wiring.
// Jobs whose backing collaborator isn't configured (no nodes, no Redis
// counters) are simply omitted rather than registered against a nil
// receiver.
func (w *Wiring) Jobs(mc *metrics.Collector) []scheduler.Job {
	cfg := w.Config
	jobs := []scheduler.Job{
		{
			Name:     "blacklist-sweep",
			Schedule: scheduler.Every(time.Duration(cfg.Scheduler.BlacklistSweepHours) * time.Hour),
			Run:      w.Blacklist.Sweep,
		},
		{
			Name:     "quarantine-release",
			Schedule: scheduler.DailyAt{Hour: cfg.Scheduler.QuarantineReleaseHourUTC},
			Run: func(ctx context.Context) error {
				_, err := w.Lifecycle.ReleaseQuarantine(ctx)
				return err
			},
		},
		{
			Name:     "monthly-rotation",
			Schedule: scheduler.MonthlyAt{DayOfMonth: cfg.Scheduler.RotationDayOfMonth, Hour: cfg.Scheduler.RotationHourUTC},
			Run: func(ctx context.Context) error {
				_, err := w.Lifecycle.RotateMonthly(ctx)
				return err
			},
		},
		{
			Name:     "warmup-daily-tick",
			Schedule: scheduler.DailyAt{Hour: cfg.Scheduler.WarmupTickHourUTC},
			Run:      w.Warmup.DailyTick,
		},
		{
			Name:     "warmup-quota-sync",
			Schedule: scheduler.Every(time.Hour),
			Run:      w.Warmup.QuotaSyncJob,
		},
		{
			Name:     "retry-queue-drain",
			Schedule: scheduler.Every(time.Duration(cfg.Scheduler.RetryDrainSeconds) * time.Second),
			Run: func(ctx context.Context) error {
				_, err := w.RetryQueue.Drain(ctx)
				return err
			},
		},
	}

	if mc != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "metrics-refresh",
			Schedule: scheduler.Every(time.Duration(cfg.Scheduler.MetricsRefreshSeconds) * time.Second),
			Run: func(ctx context.Context) error {
				errs := mc.Refresh(ctx, w.IPRepo, w.NodeHealthIface(), w.PlanRepo, w.BlEventRepo, w.RetryQueue.Depth())
				if len(errs) > 0 {
					return errs[0]
				}
				return nil
			},
		})
	}

	if w.NodeRegistry != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "health-probe",
			Schedule: scheduler.Every(time.Duration(cfg.Scheduler.HealthProbeSeconds) * time.Second),
			Run: func(ctx context.Context) error {
				for _, r := range w.NodeRegistry.HealthCheckAll(ctx) {
					if !r.Reachable {
						logger.Warn("node unreachable", "node", r.NodeID)
					}
				}
				return nil
			},
		})
	}

	if w.Consolidator != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "warmup-stats-consolidate",
			Schedule: scheduler.DailyAt{Hour: cfg.Scheduler.ConsolidateHourUTC, Minute: cfg.Scheduler.ConsolidateMinuteUTC},
			Run: func(ctx context.Context) error {
				_, err := w.Consolidator.Consolidate(ctx, time.Now().AddDate(0, 0, -1))
				return err
			},
		})
	}

	return jobs
}
