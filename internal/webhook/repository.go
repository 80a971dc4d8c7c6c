package webhook

import (
	"context"

	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/node"
	"github.com/coldroute/coldroute/internal/provision"
)

// IPResolver is the subset of store.IPRepo the webhook handlers use to map
// an inbound event onto an IP. Events carry a source IP or a vmta name,
// never a tenant (§6), so lookups are global rather than tenant-scoped.
type IPResolver interface {
	GetByAddressGlobal(ctx context.Context, address string) (*domain.IP, error)
	GetByVMTAName(ctx context.Context, vmtaName string) (*domain.IP, error)
	Get(ctx context.Context, id string) (*domain.IP, error)
}

// EventRecorder is the subset of consolidate.Service the webhook handlers
// call to record an inbound event and tally it into warmup counters.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ip *domain.IP, kind domain.EventKind, recipient, detail string) error
}

// Provisioner is the subset of provision.Service the admin endpoints front.
type Provisioner interface {
	Create(ctx context.Context, p provision.CreateParams) (*domain.IP, error)
	Delete(ctx context.Context, ip *domain.IP, deprovision bool) error
}

// NodeHealthChecker is the subset of node.Registry the health endpoint
// fans out to.
type NodeHealthChecker interface {
	HealthCheckAll(ctx context.Context) []node.HealthReport
}
