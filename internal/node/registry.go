package node

import (
	"context"
	"strings"
	"sync"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

// Registry resolves a domain or hostname to the node responsible for it
// (C3), enumerates configured nodes, and fans health checks out across all
// of them.
type Registry struct {
	mu      sync.RWMutex
	nodes   []domain.NodeConfig
	clients map[string]*Client
}

// NewRegistry builds a registry over the configured nodes, constructing one
// Client per node via newChannel.
func NewRegistry(nodes []domain.NodeConfig, newChannel func(domain.NodeConfig) (Channel, error)) (*Registry, error) {
	r := &Registry{nodes: nodes, clients: make(map[string]*Client, len(nodes))}
	for _, n := range nodes {
		ch, err := newChannel(n)
		if err != nil {
			return nil, err
		}
		r.clients[n.NodeID] = NewClient(n, ch)
	}
	return r, nil
}

// Nodes returns the configured node list.
func (r *Registry) Nodes() []domain.NodeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.NodeConfig, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Client returns the client for a known node ID.
func (r *Registry) Client(nodeID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[nodeID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "unknown node: "+nodeID)
	}
	return c, nil
}

// ResolveByDomain returns the node whose Domains list contains domain
// directly; failing that, strips one DNS label at a time from the left and
// retries; failing that, falls back to the first configured node.
func (r *Registry) ResolveByDomain(domainName string) (domain.NodeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.nodes) == 0 {
		return domain.NodeConfig{}, apperr.New(apperr.NotFound, "no nodes configured")
	}

	candidate := strings.ToLower(domainName)
	for {
		for _, n := range r.nodes {
			for _, d := range n.Domains {
				if strings.EqualFold(d, candidate) {
					return n, nil
				}
			}
		}
		idx := strings.Index(candidate, ".")
		if idx < 0 {
			break
		}
		candidate = candidate[idx+1:]
	}
	return r.nodes[0], nil
}

// ResolveByHostname strips a leading mail|smtp|send|out label (if present)
// and defers to ResolveByDomain.
func (r *Registry) ResolveByHostname(hostname string) (domain.NodeConfig, error) {
	lower := strings.ToLower(hostname)
	for _, prefix := range []string{"mail.", "smtp.", "send.", "out."} {
		if strings.HasPrefix(lower, prefix) {
			return r.ResolveByDomain(lower[len(prefix):])
		}
	}
	return r.ResolveByDomain(lower)
}

// HealthReport is the per-node result of a health-check fan-out.
type HealthReport struct {
	NodeID     string
	Reachable  bool
	Running    bool
	QueueDepth int
	Err        error
}

// HealthCheckAll fans reachable/running/queue-depth checks out to every
// configured node concurrently.
func (r *Registry) HealthCheckAll(ctx context.Context) []HealthReport {
	r.mu.RLock()
	nodes := make([]domain.NodeConfig, len(r.nodes))
	copy(nodes, r.nodes)
	clients := make(map[string]*Client, len(r.clients))
	for k, v := range r.clients {
		clients[k] = v
	}
	r.mu.RUnlock()

	reports := make([]HealthReport, len(nodes))
	var wg sync.WaitGroup
	for i, n := range nodes {
		wg.Add(1)
		go func(i int, n domain.NodeConfig) {
			defer wg.Done()
			c := clients[n.NodeID]
			rep := HealthReport{NodeID: n.NodeID}
			reachable, err := c.Reachable(ctx)
			rep.Reachable = reachable
			if err != nil {
				rep.Err = err
				reports[i] = rep
				return
			}
			running, err := c.Running(ctx)
			rep.Running = running
			if err != nil {
				rep.Err = err
			}
			depth, err := c.QueueDepth(ctx)
			rep.QueueDepth = depth
			if err != nil && rep.Err == nil {
				rep.Err = err
			}
			reports[i] = rep
		}(i, n)
	}
	wg.Wait()
	return reports
}
