package blacklist

import (
	"context"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// DefaultZones is the fixed DNSBL zone list checked on every sweep,
// matching the teacher's own health checker's list.
var DefaultZones = []string{
	"zen.spamhaus.org",
	"b.barracudacentral.org",
	"bl.spamcop.net",
	"dnsbl.sorbs.net",
	"cbl.abuseat.org",
	"dnsbl-1.uceprotect.net",
	"psbl.surriel.com",
	"dyna.spamrats.com",
}

// Service runs the periodic RBL sweep.
type Service struct {
	ips       IPRepository
	events    EventRepository
	lifecycle LifecycleResponder
	alerts    alert.Sink
	resolver  Resolver
	zones     []string
}

// NewService builds a checker over the fixed zone list (nil or empty
// uses DefaultZones). resolver defaults to a Go-native *net.Resolver.
func NewService(ips IPRepository, events EventRepository, lc LifecycleResponder, alerts alert.Sink, resolver Resolver, zones []string) *Service {
	if alerts == nil {
		alerts = alert.NoopSink{}
	}
	if resolver == nil {
		resolver = defaultResolver()
	}
	if len(zones) == 0 {
		zones = DefaultZones
	}
	return &Service{ips: ips, events: events, lifecycle: lc, alerts: alerts, resolver: resolver, zones: zones}
}

// Sweep checks every ACTIVE/WARMING IP against the zone list, opens
// BlacklistEvent rows for new listings, re-probes and closes every
// currently-open event that has gone clean, then hands each IP with a
// fresh listing to the lifecycle manager.
func (s *Service) Sweep(ctx context.Context) error {
	ips, err := s.activeAndWarmingIPs(ctx)
	if err != nil {
		return err
	}

	newlyListed := make(map[string][]string, len(ips))
	for _, ip := range ips {
		for _, zone := range s.zones {
			listed, timedOut := checkZone(ctx, s.resolver, ip.Address, zone)
			if timedOut {
				logger.Warn("blacklist check timed out", "ip", ip.Address, "zone", zone)
				continue
			}
			if !listed {
				continue
			}
			if _, err := s.events.GetOpen(ctx, ip.ID, zone); err == nil {
				continue // already open
			}
			e := &domain.BlacklistEvent{TenantRef: ip.TenantRef, IPRef: ip.ID, BlacklistName: zone}
			if err := s.events.Open(ctx, e); err != nil {
				logger.Error("open blacklist event failed", "ip", ip.Address, "zone", zone, "error", err.Error())
				continue
			}
			newlyListed[ip.ID] = append(newlyListed[ip.ID], zone)
		}
	}

	if err := s.reprobeOpen(ctx); err != nil {
		logger.Error("blacklist re-probe pass failed", "error", err.Error())
	}

	for ipID, zones := range newlyListed {
		ip, err := s.ips.Get(ctx, ipID)
		if err != nil {
			logger.Error("lookup ip for blacklist response failed", "ip_id", ipID, "error", err.Error())
			continue
		}
		if _, err := s.lifecycle.HandleBlacklistListing(ctx, ip, zones); err != nil {
			logger.Error("lifecycle blacklist response failed", "ip", ip.Address, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) activeAndWarmingIPs(ctx context.Context) ([]domain.IP, error) {
	active, err := s.ips.ListByStatus(ctx, domain.IPActive)
	if err != nil {
		return nil, err
	}
	warming, err := s.ips.ListByStatus(ctx, domain.IPWarming)
	if err != nil {
		return nil, err
	}
	return append(active, warming...), nil
}

// reprobeOpen re-checks every currently-open event's single zone; a
// clean result closes it with auto_recovered=true and an info alert.
func (s *Service) reprobeOpen(ctx context.Context) error {
	open, err := s.events.ListAllOpen(ctx)
	if err != nil {
		return err
	}
	for _, e := range open {
		ip, err := s.ips.Get(ctx, e.IPRef)
		if err != nil {
			logger.Error("reprobe: lookup ip failed", "event", e.ID, "error", err.Error())
			continue
		}
		listed, timedOut := checkZone(ctx, s.resolver, ip.Address, e.BlacklistName)
		if timedOut || listed {
			continue
		}
		if err := s.events.Close(ctx, e.ID, true, nil); err != nil {
			logger.Error("reprobe: close event failed", "event", e.ID, "error", err.Error())
			continue
		}
		_ = s.alerts.Send(ctx, alert.Info, "ip "+ip.Address+" auto-recovered from "+e.BlacklistName)
	}
	return nil
}
