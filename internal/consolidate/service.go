package consolidate

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// Service implements the event consolidator: per-event recording plus the
// daily fold-into-WarmupDailyStat job.
type Service struct {
	ips      IPRepository
	plans    PlanRepository
	stats    StatRepository
	events   EventRepository
	counters CounterStore
}

// NewService builds a consolidator over the given collaborators.
func NewService(ips IPRepository, plans PlanRepository, stats StatRepository, events EventRepository, counters CounterStore) *Service {
	return &Service{ips: ips, plans: plans, stats: stats, events: events, counters: counters}
}

// countersFor maps an inbound event kind to the day-counter fields it
// contributes to. delivered/bounced/complained each represent one
// send attempt reaching a terminal outcome, so they also bump "sent";
// opened/clicked are downstream engagement on an already-counted send and
// bump only their own field. unsubscribed and deferred are recorded for
// audit but carry no WarmupDailyStat field and are not counted.
func countersFor(kind domain.EventKind) map[string]int64 {
	switch kind {
	case domain.EventDelivered:
		return map[string]int64{"sent": 1, "delivered": 1}
	case domain.EventBounced:
		return map[string]int64{"sent": 1, "bounced": 1}
	case domain.EventComplained:
		return map[string]int64{"sent": 1, "complaints": 1}
	case domain.EventOpened:
		return map[string]int64{"opens": 1}
	case domain.EventClicked:
		return map[string]int64{"clicks": 1}
	default:
		return nil
	}
}

// RecordEvent persists an audit-trail row for one inbound mail event and,
// if ip is currently WARMING, tallies it into today's counter hash (§4.10).
func (s *Service) RecordEvent(ctx context.Context, ip *domain.IP, kind domain.EventKind, recipient, detail string) error {
	e := &domain.Event{
		TenantRef: ip.TenantRef,
		IPRef:     ip.ID,
		Kind:      string(kind),
		Recipient: recipient,
		Detail:    detail,
	}
	if err := s.events.Record(ctx, e); err != nil {
		return err
	}

	if ip.Status != domain.IPWarming {
		return nil
	}
	deltas := countersFor(kind)
	if deltas == nil {
		return nil
	}
	today := truncateDay(time.Now())
	for field, delta := range deltas {
		if err := s.counters.Increment(ctx, ip.ID, today, field, delta); err != nil {
			logger.Error("increment warmup counter failed", "ip", ip.Address, "field", field, "error", err.Error())
		}
	}
	return nil
}

// Result summarizes one Consolidate pass.
type Result struct {
	Consolidated int
	AlreadyDone  int
	NoPlan       int
}

// Consolidate folds forDate's counters into a WarmupDailyStat row for
// every WARMING or ACTIVE IP, skipping any IP with no plan (never warmed,
// or its plan was removed) and any day already consolidated (idempotent:
// re-running never double-counts). Run once daily at 00:30 UTC for
// yesterday's date.
func (s *Service) Consolidate(ctx context.Context, forDate time.Time) (Result, error) {
	forDate = truncateDay(forDate)
	var result Result

	ips, err := s.candidateIPs(ctx)
	if err != nil {
		return result, err
	}

	for _, ip := range ips {
		plan, err := s.plans.GetByIP(ctx, ip.ID)
		if err != nil {
			result.NoPlan++
			continue
		}

		exists, err := s.stats.Exists(ctx, plan.ID, forDate)
		if err != nil {
			logger.Error("consolidate: check existing stat failed", "plan", plan.ID, "error", err.Error())
			continue
		}
		if exists {
			result.AlreadyDone++
			continue
		}

		counted, err := s.counters.Read(ctx, ip.ID, forDate)
		if err != nil {
			logger.Error("consolidate: read counters failed", "ip", ip.Address, "error", err.Error())
			continue
		}
		counted.PlanRef = plan.ID
		counted.Date = forDate

		if err := s.stats.Upsert(ctx, plan.ID, forDate, counted); err != nil {
			logger.Error("consolidate: upsert daily stat failed", "plan", plan.ID, "error", err.Error())
			continue
		}
		if err := s.counters.Delete(ctx, ip.ID, forDate); err != nil {
			logger.Error("consolidate: delete counters failed", "ip", ip.Address, "error", err.Error())
		}
		result.Consolidated++
	}
	return result, nil
}

func (s *Service) candidateIPs(ctx context.Context) ([]domain.IP, error) {
	warming, err := s.ips.ListByStatus(ctx, domain.IPWarming)
	if err != nil {
		return nil, err
	}
	active, err := s.ips.ListByStatus(ctx, domain.IPActive)
	if err != nil {
		return nil, err
	}
	return append(warming, active...), nil
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
