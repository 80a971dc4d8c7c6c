package lifecycle

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// allowedTransitions is the §4.4 state table. Any pair not listed here
// fails without side effects.
var allowedTransitions = map[domain.IPStatus]map[domain.IPStatus]bool{
	domain.IPActive:      {domain.IPRetiring: true, domain.IPBlacklisted: true},
	domain.IPRetiring:    {domain.IPResting: true},
	domain.IPResting:     {domain.IPWarming: true, domain.IPStandby: true},
	domain.IPWarming:     {domain.IPActive: true, domain.IPBlacklisted: true},
	domain.IPBlacklisted: {domain.IPResting: true, domain.IPStandby: true},
	domain.IPStandby:     {domain.IPWarming: true, domain.IPActive: true},
}

// Allowed reports whether a from->to transition is permitted.
func Allowed(from, to domain.IPStatus) bool {
	return allowedTransitions[from][to]
}

// EnterWarmingHook is invoked whenever an IP transitions into WARMING, so
// the warmup engine can create its plan without lifecycle importing it.
type EnterWarmingHook func(ctx context.Context, ip *domain.IP) error

// DefaultRestDays is the quarantine window applied on every transition
// into RESTING when no override is configured (§4.4).
const DefaultRestDays = 14

// Service implements the IP state machine and blacklist/rotation
// workflows. It is safe for concurrent use across distinct IPs; callers
// serialize operations on the same IP via the row itself (SetStatus is a
// single UPDATE keyed by id).
type Service struct {
	ips        IPRepository
	blEvents   BlacklistEventRepository
	alerts     alert.Sink
	restDays   int
	onWarming  EnterWarmingHook
}

// NewService builds a lifecycle service. onWarming may be nil.
func NewService(ips IPRepository, blEvents BlacklistEventRepository, alerts alert.Sink, restDays int, onWarming EnterWarmingHook) *Service {
	if restDays <= 0 {
		restDays = DefaultRestDays
	}
	if alerts == nil {
		alerts = alert.NoopSink{}
	}
	return &Service{ips: ips, blEvents: blEvents, alerts: alerts, restDays: restDays, onWarming: onWarming}
}

// Transition moves ip from its current status to `to`, failing with
// ErrTransitionNotAllowed (wrapped as apperr.InvalidState) if the pair
// isn't in the allowed table. Any transition into RESTING also stamps a
// quarantine window.
func (s *Service) Transition(ctx context.Context, ipID string, to domain.IPStatus) (*domain.IP, error) {
	ip, err := s.ips.Get(ctx, ipID)
	if err != nil {
		return nil, err
	}
	if !Allowed(ip.Status, to) {
		return nil, apperr.Wrap(apperr.InvalidState, "transition not allowed", ErrTransitionNotAllowed)
	}

	if to == domain.IPResting {
		until := time.Now().Add(time.Duration(s.restDays) * 24 * time.Hour)
		if err := s.ips.SetQuarantine(ctx, ipID, to, until); err != nil {
			return nil, err
		}
	} else {
		if err := s.ips.SetStatus(ctx, ipID, to); err != nil {
			return nil, err
		}
	}

	ip.Status = to
	if to == domain.IPWarming && s.onWarming != nil {
		if err := s.onWarming(ctx, ip); err != nil {
			logger.Error("enter-warming hook failed", "ip", ip.Address, "error", err.Error())
		}
	}
	return ip, nil
}

// HandleBlacklistListing records zone(s) against ip, transitions it to
// BLACKLISTED, and promotes one STANDBY IP to ACTIVE in its place (§4.4).
func (s *Service) HandleBlacklistListing(ctx context.Context, ip *domain.IP, zones []string) (*domain.BlacklistEvent, error) {
	var event *domain.BlacklistEvent
	for _, zone := range zones {
		existing, err := s.blEvents.GetOpen(ctx, ip.ID, zone)
		switch {
		case err == nil:
			if event == nil {
				event = existing
			}
		case apperr.Is(err, apperr.NotFound):
			e := &domain.BlacklistEvent{TenantRef: ip.TenantRef, IPRef: ip.ID, BlacklistName: zone}
			if err := s.blEvents.Open(ctx, e); err != nil {
				return nil, err
			}
			if event == nil {
				event = e
			}
		default:
			return nil, err
		}
		if err := s.ips.AddBlacklistMark(ctx, ip.ID, zone); err != nil {
			return nil, err
		}
	}

	if Allowed(ip.Status, domain.IPBlacklisted) {
		if err := s.ips.SetStatus(ctx, ip.ID, domain.IPBlacklisted); err != nil {
			return nil, err
		}
	}

	standbys, err := s.ips.ListStandby(ctx, ip.TenantRef)
	if err != nil {
		return nil, err
	}
	if len(standbys) > 0 {
		promoted := standbys[0]
		if err := s.ips.SetStatus(ctx, promoted.ID, domain.IPActive); err != nil {
			return nil, err
		}
		if event != nil {
			if err := s.blEvents.SetStandbyActivated(ctx, event.ID, promoted.ID); err != nil {
				return nil, err
			}
			event.StandbyIPActivatedRef = &promoted.ID
		}
		_ = s.alerts.Send(ctx, alert.Critical, "IP "+ip.Address+" blacklisted on "+joinZones(zones)+"; promoted standby "+promoted.Address)
	} else {
		_ = s.alerts.Send(ctx, alert.Critical, "IP "+ip.Address+" blacklisted on "+joinZones(zones)+"; no standby available")
	}

	return event, nil
}

func joinZones(zones []string) string {
	out := ""
	for i, z := range zones {
		if i > 0 {
			out += ", "
		}
		out += z
	}
	return out
}

// ReleaseQuarantine transitions every RESTING IP whose quarantine window
// has elapsed into WARMING, run as a daily job. Expired QUARANTINED IPs are
// skipped, since QUARANTINED->WARMING is not in the allowed table.
func (s *Service) ReleaseQuarantine(ctx context.Context) ([]domain.IP, error) {
	expired, err := s.ips.ListQuarantineExpired(ctx)
	if err != nil {
		return nil, err
	}
	var released []domain.IP
	for _, ip := range expired {
		if !Allowed(ip.Status, domain.IPWarming) {
			continue
		}
		if _, err := s.Transition(ctx, ip.ID, domain.IPWarming); err != nil {
			logger.Error("quarantine release transition failed", "ip", ip.Address, "error", err.Error())
			continue
		}
		released = append(released, ip)
	}
	return released, nil
}

// RotateMonthly selects every ACTIVE IP in one query (oldest
// status_changed_at first) and retires each through two successive
// transitions, ACTIVE -> RETIRING -> RESTING, no grace window; the two
// steps are not wrapped in a transaction. Returns the addresses retired.
func (s *Service) RotateMonthly(ctx context.Context) ([]string, error) {
	active, err := s.ips.ListByStatus(ctx, domain.IPActive)
	if err != nil {
		return nil, err
	}
	var retired []string
	for _, ip := range active {
		if _, err := s.Transition(ctx, ip.ID, domain.IPRetiring); err != nil {
			logger.Error("monthly rotation retiring transition failed", "ip", ip.Address, "error", err.Error())
			continue
		}
		if _, err := s.Transition(ctx, ip.ID, domain.IPResting); err != nil {
			logger.Error("monthly rotation resting transition failed", "ip", ip.Address, "error", err.Error())
			continue
		}
		retired = append(retired, ip.Address)
	}
	return retired, nil
}
