package provision

import (
	"context"

	"github.com/coldroute/coldroute/internal/campaignmgr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/node"
)

// IPRepository is the subset of store.IPRepo the provisioner needs.
type IPRepository interface {
	GetByAddress(ctx context.Context, tenantRef, address string) (*domain.IP, error)
	Create(ctx context.Context, ip *domain.IP) error
	Delete(ctx context.Context, id string) error
}

// NodeResolver is the subset of node.Registry the provisioner uses to pick
// and reach the node that will host a new IP.
type NodeResolver interface {
	ResolveByHostname(hostname string) (domain.NodeConfig, error)
	Client(nodeID string) (*node.Client, error)
}

// DeliveryServerManager is the subset of campaignmgr.Adapter the
// provisioner drives to create/delete the matching delivery server.
type DeliveryServerManager interface {
	CreateDeliveryServer(ctx context.Context, name, hostname string, port int, fromEmail, fromName string, hourlyQuota, maxConnectionMessages int, customerRef string) (string, error)
	DeleteDeliveryServer(ctx context.Context, serverRef string) error
}

// compile-time assertions that the concrete collaborators satisfy the
// narrow interfaces the provisioner depends on.
var (
	_ NodeResolver          = (*node.Registry)(nil)
	_ DeliveryServerManager = (*campaignmgr.Adapter)(nil)
)
