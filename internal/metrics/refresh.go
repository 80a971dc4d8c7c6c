package metrics

import (
	"context"

	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/node"
)

// IPCounter is the subset of store.IPRepo the refresh job needs.
type IPCounter interface {
	ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error)
}

// NodeHealthChecker is the subset of node.Registry the refresh job needs.
type NodeHealthChecker interface {
	HealthCheckAll(ctx context.Context) []node.HealthReport
}

// PlanCounter is the subset of store.WarmupPlanRepo the refresh job needs.
type PlanCounter interface {
	ListActive(ctx context.Context) ([]domain.WarmupPlan, error)
}

// BlacklistCounter is the subset of store.BlacklistEventRepo the refresh
// job needs.
type BlacklistCounter interface {
	ListAllOpen(ctx context.Context) ([]domain.BlacklistEvent, error)
}

var allStatuses = []domain.IPStatus{
	domain.IPActive, domain.IPRetiring, domain.IPResting, domain.IPWarming,
	domain.IPBlacklisted, domain.IPStandby, domain.IPQuarantined,
}

// Refresh recomputes every gauge from current repository state. Errors
// from any one collaborator don't block refreshing the rest; the caller
// logs them.
func (c *Collector) Refresh(ctx context.Context, ips IPCounter, nodes NodeHealthChecker, plans PlanCounter, bl BlacklistCounter, retryQueueDepth int) []error {
	var errs []error

	for _, status := range allStatuses {
		list, err := ips.ListByStatus(ctx, status)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.IPsByStatus.WithLabelValues(string(status)).Set(float64(len(list)))
	}

	if nodes != nil {
		for _, r := range nodes.HealthCheckAll(ctx) {
			reachable := 0.0
			if r.Reachable {
				reachable = 1.0
			}
			c.NodeReachable.WithLabelValues(r.NodeID).Set(reachable)
			c.NodeQueueDepth.WithLabelValues(r.NodeID).Set(float64(r.QueueDepth))
		}
	}

	if active, err := plans.ListActive(ctx); err != nil {
		errs = append(errs, err)
	} else {
		c.WarmupActivePlans.Set(float64(len(active)))
	}

	if open, err := bl.ListAllOpen(ctx); err != nil {
		errs = append(errs, err)
	} else {
		c.OpenBlacklistings.Set(float64(len(open)))
	}

	c.RetryQueueDepth.Set(float64(retryQueueDepth))
	return errs
}
