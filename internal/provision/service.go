package provision

import (
	"context"
	"strings"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// Service implements the two-phase atomic create/delete of §4.6,
// correlating an MTA virtual-mta block (C1) with a campaign-manager
// delivery server (C2) under one IP row.
type Service struct {
	ips     IPRepository
	nodes   NodeResolver
	servers DeliveryServerManager
}

// NewService builds a provisioner over the given collaborators.
func NewService(ips IPRepository, nodes NodeResolver, servers DeliveryServerManager) *Service {
	return &Service{ips: ips, nodes: nodes, servers: servers}
}

// CreateParams describes a new IP to provision. NodeID, SenderEmail,
// VMTAName, DKIMKeyPath, FromName and CustomerRef are all optional;
// VMTAName is derived from Hostname when empty.
type CreateParams struct {
	TenantRef             string
	Address               string
	Hostname              string
	Purpose               domain.IPPurpose
	Weight                int
	SenderEmail           string
	NodeID                string
	VMTAName              string
	DKIMKeyPath           string
	FromName              string
	HourlyQuota           int
	MaxConnectionMessages int
	CustomerRef           string
}

// Create provisions a new IP: optionally an MTA virtual-mta block and a
// matching delivery server, persisted together in STANDBY. Any failure
// after the block is appended rolls the block back before returning; a
// failure persisting the row also deletes the delivery server.
func (s *Service) Create(ctx context.Context, p CreateParams) (*domain.IP, error) {
	if _, err := s.ips.GetByAddress(ctx, p.TenantRef, p.Address); err == nil {
		return nil, apperr.Wrap(apperr.Conflict, "ip address already provisioned", ErrAddressExists)
	} else if !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}

	vmtaName := p.VMTAName
	if vmtaName == "" {
		vmtaName = deriveVMTAName(p.Hostname)
	}

	ip := &domain.IP{
		TenantRef:   p.TenantRef,
		Address:     p.Address,
		Hostname:    p.Hostname,
		Purpose:     p.Purpose,
		Status:      domain.IPStandby,
		Weight:      p.Weight,
		VMTAName:    vmtaName,
		SenderEmail: p.SenderEmail,
	}

	var rollback func()
	if p.SenderEmail != "" {
		node, err := s.resolveNode(p.NodeID, p.Hostname)
		if err != nil {
			return nil, err
		}
		client, err := s.nodes.Client(node.NodeID)
		if err != nil {
			return nil, err
		}

		if err := client.AppendVMTABlock(ctx, vmtaName, p.Address, p.Hostname, p.SenderEmail, p.DKIMKeyPath); err != nil {
			return nil, apperr.Wrap(apperr.ServiceUnavailable, "append vmta block", err)
		}

		hourlyQuota := p.HourlyQuota
		if hourlyQuota <= 0 {
			hourlyQuota = 1
		}
		serverRef, err := s.servers.CreateDeliveryServer(ctx, vmtaName, node.Host, node.SMTPPort, p.SenderEmail, p.FromName, hourlyQuota, p.MaxConnectionMessages, p.CustomerRef)
		if err != nil {
			if rbErr := client.RemoveVMTABlock(ctx, vmtaName, p.SenderEmail); rbErr != nil {
				logger.Error("provision rollback: remove vmta block failed", "vmta", vmtaName, "error", rbErr.Error())
			}
			return nil, apperr.Wrap(apperr.ServiceUnavailable, "create delivery server", err)
		}

		ip.NodeRef = node.NodeID
		ip.MailwizzServerRef = serverRef
		rollback = func() {
			if rbErr := s.servers.DeleteDeliveryServer(ctx, serverRef); rbErr != nil {
				logger.Error("provision rollback: delete delivery server failed", "server", serverRef, "error", rbErr.Error())
			}
			if rbErr := client.RemoveVMTABlock(ctx, vmtaName, p.SenderEmail); rbErr != nil {
				logger.Error("provision rollback: remove vmta block failed", "vmta", vmtaName, "error", rbErr.Error())
			}
		}
	}

	if err := s.ips.Create(ctx, ip); err != nil {
		if rollback != nil {
			rollback()
		}
		return nil, err
	}
	return ip, nil
}

// Delete deprovisions an IP: removing its delivery server and vmta block
// (best-effort, log-only on failure per §4.6) before deleting the row.
func (s *Service) Delete(ctx context.Context, ip *domain.IP, deprovision bool) error {
	if deprovision && ip.MailwizzServerRef != "" {
		if err := s.servers.DeleteDeliveryServer(ctx, ip.MailwizzServerRef); err != nil {
			logger.Error("deprovision: delete delivery server failed", "ip", ip.Address, "error", err.Error())
		}
	}

	if deprovision && ip.VMTAName != "" && ip.NodeRef != "" {
		client, err := s.nodes.Client(ip.NodeRef)
		if err != nil {
			logger.Error("deprovision: resolve node client failed", "ip", ip.Address, "error", err.Error())
		} else {
			sender := ip.SenderEmail
			if sender == "" {
				if found, err := client.GetSenderForVMTA(ctx, ip.VMTAName); err == nil {
					sender = found
				}
			}
			if err := client.RemoveVMTABlock(ctx, ip.VMTAName, sender); err != nil {
				logger.Error("deprovision: remove vmta block failed", "ip", ip.Address, "error", err.Error())
			}
		}
	}

	return s.ips.Delete(ctx, ip.ID)
}

// lister is implemented by node.Registry; used to resolve an explicit
// node_id override to its full config (host, smtp port, domains).
type lister interface{ Nodes() []domain.NodeConfig }

func (s *Service) resolveNode(nodeIDOverride, hostname string) (domain.NodeConfig, error) {
	if nodeIDOverride != "" {
		if l, ok := s.nodes.(lister); ok {
			for _, n := range l.Nodes() {
				if n.NodeID == nodeIDOverride {
					return n, nil
				}
			}
		}
		return domain.NodeConfig{}, apperr.New(apperr.NotFound, "unknown node: "+nodeIDOverride)
	}
	return s.nodes.ResolveByHostname(hostname)
}

// deriveVMTAName strips a leading mail|smtp|send|out label from hostname,
// slugifies what remains, and prefixes it with "vmta-" (§4.6.2).
func deriveVMTAName(hostname string) string {
	lower := strings.ToLower(hostname)
	for _, prefix := range []string{"mail.", "smtp.", "send.", "out."} {
		if strings.HasPrefix(lower, prefix) {
			lower = lower[len(prefix):]
			break
		}
	}
	return "vmta-" + slugify(lower)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	return out
}
