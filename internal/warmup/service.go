package warmup

import (
	"context"
	"strconv"
	"time"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/campaignmgr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// Service drives the warmup engine: plan creation, the daily tick, and
// the hourly quota-sync job.
type Service struct {
	plans      PlanRepository
	stats      StatRepository
	ips        IPRepository
	servers    ServerController
	alerts     alert.Sink
	thresholds Thresholds
}

// NewService builds a warmup Service. alerts may be nil (defaults to a
// no-op sink); thresholds zero-value falls back to DefaultThresholds.
func NewService(plans PlanRepository, stats StatRepository, ips IPRepository, servers ServerController, alerts alert.Sink, thresholds Thresholds) *Service {
	if alerts == nil {
		alerts = alert.NoopSink{}
	}
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Service{plans: plans, stats: stats, ips: ips, servers: servers, alerts: alerts, thresholds: thresholds}
}

// CreatePlan creates the day-1 plan for an IP entering WARMING. Intended
// to be wired as a lifecycle.EnterWarmingHook.
func (s *Service) CreatePlan(ctx context.Context, ip *domain.IP) error {
	if _, err := s.plans.GetByIP(ctx, ip.ID); err == nil {
		return ErrAlreadyWarming
	}
	plan := &domain.WarmupPlan{
		TenantRef:         ip.TenantRef,
		IPRef:             ip.ID,
		Phase:             "day_1",
		CurrentDailyQuota: GetQuotaForDay(1),
		TargetDailyQuota:  TargetDailyQuota,
	}
	return s.plans.Create(ctx, plan)
}

// DayNumber computes the current day number for a plan: count of stat
// rows + 1 if any exist (pause-insensitive), else elapsed wall-clock
// days since StartedAt. Clamped to <= 71 (70 active days plus the
// completion check on day 71).
func (s *Service) DayNumber(ctx context.Context, plan domain.WarmupPlan) (int, error) {
	n, err := s.stats.CountDays(ctx, plan.ID)
	if err != nil {
		return 0, err
	}
	var day int
	if n > 0 {
		day = n + 1
	} else {
		elapsed := int(time.Since(plan.StartedAt).Hours() / 24)
		day = elapsed + 1
		if day < 1 {
			day = 1
		}
	}
	if day > 71 {
		day = 71
	}
	return day, nil
}

// safetyResult reports the outcome of evaluating one plan's bounce/spam
// rates, and the rolling 7d rates to persist on a safe verdict.
type safetyResult struct {
	v            verdict
	bounceRate7d float64
	spamRate7d   float64
}

func (s *Service) evaluateSafety(ctx context.Context, plan domain.WarmupPlan) (safetyResult, error) {
	h24, err := s.stats.Last24h(ctx, plan.ID)
	if err != nil {
		return safetyResult{}, err
	}
	h7d, err := s.stats.Last7d(ctx, plan.ID)
	if err != nil {
		return safetyResult{}, err
	}
	v := evaluate(s.thresholds, h24.BounceRate(), h24.SpamRate(), h7d.BounceRate(), h7d.SpamRate())
	return safetyResult{v: v, bounceRate7d: h7d.BounceRate(), spamRate7d: h7d.SpamRate()}, nil
}

// applySafety acts on a non-safe verdict: pausing the plan, flipping the
// delivery server's status, and alerting. Returns true if the plan was
// left unsafe (caller should stop processing it for this tick).
func (s *Service) applySafety(ctx context.Context, plan domain.WarmupPlan, r safetyResult) (bool, error) {
	switch r.v {
	case verdictEmergency:
		until := time.Now().Add(30 * 24 * time.Hour)
		if err := s.plans.Pause(ctx, plan.ID, until, true); err != nil {
			return true, err
		}
		if err := s.ips.SetQuarantine(ctx, plan.IPRef, domain.IPQuarantined, until); err != nil {
			logger.Error("emergency stop: quarantine ip failed", "plan", plan.ID, "error", err.Error())
		}
		if err := s.setServerStatus(ctx, plan.IPRef, campaignmgr.StatusInactive); err != nil {
			logger.Error("emergency stop: set server inactive failed", "plan", plan.ID, "error", err.Error())
		}
		_ = s.alerts.Send(ctx, alert.Critical, "warmup emergency stop on plan "+plan.ID)
		return true, nil
	case verdictBounce7d:
		until := time.Now().Add(72 * time.Hour)
		if err := s.plans.Pause(ctx, plan.ID, until, false); err != nil {
			return true, err
		}
		if err := s.setServerStatus(ctx, plan.IPRef, campaignmgr.StatusInactive); err != nil {
			logger.Error("bounce pause: set server inactive failed", "plan", plan.ID, "error", err.Error())
		}
		_ = s.alerts.Send(ctx, alert.Warning, "warmup paused on plan "+plan.ID+": 7d bounce rate exceeded")
		return true, nil
	case verdictSpam7d:
		until := time.Now().Add(96 * time.Hour)
		if err := s.plans.Pause(ctx, plan.ID, until, false); err != nil {
			return true, err
		}
		if err := s.setServerStatus(ctx, plan.IPRef, campaignmgr.StatusInactive); err != nil {
			logger.Error("spam pause: set server inactive failed", "plan", plan.ID, "error", err.Error())
		}
		_ = s.alerts.Send(ctx, alert.Critical, "warmup paused on plan "+plan.ID+": 7d spam rate exceeded")
		return true, nil
	default:
		if err := s.plans.SetRates(ctx, plan.ID, r.bounceRate7d, r.spamRate7d); err != nil {
			return false, err
		}
		return false, nil
	}
}

// setServerStatus resolves the delivery-server ref from the IP and
// pushes the status. Best-effort: a degraded campaign-manager adapter
// must not block the warmup tick itself.
func (s *Service) setServerStatus(ctx context.Context, ipRef string, status campaignmgr.ServerStatus) error {
	ip, err := s.ips.Get(ctx, ipRef)
	if err != nil {
		return err
	}
	if ip.MailwizzServerRef == "" {
		return nil
	}
	return s.servers.SetServerStatus(ctx, ip.MailwizzServerRef, status)
}

// DailyTick runs the once-per-day advancement described in §4.5 over
// every active plan.
func (s *Service) DailyTick(ctx context.Context) error {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		if err := s.tickOne(ctx, plan); err != nil {
			logger.Error("warmup daily tick failed for plan", "plan", plan.ID, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) tickOne(ctx context.Context, plan domain.WarmupPlan) error {
	if plan.Paused {
		if plan.PauseUntil != nil && !time.Now().Before(*plan.PauseUntil) {
			if err := s.plans.Resume(ctx, plan.ID); err != nil {
				return err
			}
			if err := s.setServerStatus(ctx, plan.IPRef, campaignmgr.StatusActive); err != nil {
				logger.Error("resume: set server active failed", "plan", plan.ID, "error", err.Error())
			}
			_ = s.alerts.Send(ctx, alert.Info, "warmup resumed on plan "+plan.ID)
			plan.Paused = false
		} else {
			return nil
		}
	}

	result, err := s.evaluateSafety(ctx, plan)
	if err != nil {
		return err
	}
	if unsafe, err := s.applySafety(ctx, plan, result); err != nil || unsafe {
		return err
	}

	day, err := s.DayNumber(ctx, plan)
	if err != nil {
		return err
	}

	if day > 70 {
		if err := s.plans.Advance(ctx, plan.ID, domain.PhaseCompleted, TargetDailyQuota); err != nil {
			return err
		}
		if err := s.ips.SetStatus(ctx, plan.IPRef, domain.IPActive); err != nil {
			logger.Error("completion: activate ip failed", "plan", plan.ID, "error", err.Error())
		}
		if err := s.syncQuota(ctx, plan.IPRef, TargetDailyQuota); err != nil {
			logger.Error("completion: sync quota failed", "plan", plan.ID, "error", err.Error())
		}
		if err := s.setServerStatus(ctx, plan.IPRef, campaignmgr.StatusActive); err != nil {
			logger.Error("completion: set server active failed", "plan", plan.ID, "error", err.Error())
		}
		_ = s.alerts.Send(ctx, alert.Info, "warmup completed on plan "+plan.ID)
		return nil
	}

	quota := GetQuotaForDay(day)
	phase := dayPhase(day)
	if err := s.plans.Advance(ctx, plan.ID, phase, quota); err != nil {
		return err
	}
	return s.syncQuota(ctx, plan.IPRef, quota)
}

// QuotaSyncJob runs hourly, independent of the daily tick, re-asserting
// the campaign manager's quota for every non-completed plan to
// compensate for external drift.
func (s *Service) QuotaSyncJob(ctx context.Context) error {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		if plan.Paused {
			continue
		}
		if err := s.syncQuota(ctx, plan.IPRef, plan.CurrentDailyQuota); err != nil {
			logger.Error("warmup quota sync failed", "plan", plan.ID, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) syncQuota(ctx context.Context, ipRef string, dailyQuota int) error {
	ip, err := s.ips.Get(ctx, ipRef)
	if err != nil {
		return err
	}
	if ip.MailwizzServerRef == "" {
		return nil
	}
	return s.servers.SyncWarmupQuota(ctx, ip.MailwizzServerRef, dailyQuota)
}

func dayPhase(day int) string {
	return "day_" + strconv.Itoa(day)
}
