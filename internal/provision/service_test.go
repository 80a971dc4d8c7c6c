package provision

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memChannel is an in-memory node.Channel over a single config file,
// letting Service.Create/Delete drive a real node.Client without a
// network round trip.
type memChannel struct {
	mu   sync.Mutex
	data []byte
}

func newMemChannel(initial string) *memChannel {
	return &memChannel{data: []byte(initial)}
}

func (c *memChannel) ReadFile(ctx context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out, nil
}

func (c *memChannel) WriteFileAtomic(ctx context.Context, tmpPath, destPath string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append([]byte(nil), data...)
	return nil
}

func (c *memChannel) Run(ctx context.Context, command string) (string, error) {
	return "", nil
}

func (c *memChannel) contents() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.data)
}

const baseConfig = "<pattern-list>\n</pattern-list>\n"

func testNodeConfig() domain.NodeConfig {
	return domain.NodeConfig{
		NodeID:     "vps1",
		Host:       "vps1.example.com",
		ConfigPath: "/etc/pmta/config",
		SMTPPort:   25,
		MgmtHost:   "127.0.0.1",
		MgmtPort:   1, // nothing listens here; QueueDepth degrades to -1,nil
	}
}

// fakeResolver implements NodeResolver over a single preconfigured client.
type fakeResolver struct {
	cfg    domain.NodeConfig
	client *node.Client
}

func (f *fakeResolver) ResolveByHostname(hostname string) (domain.NodeConfig, error) {
	return f.cfg, nil
}

func (f *fakeResolver) Client(nodeID string) (*node.Client, error) {
	return f.client, nil
}

// fakeIPRepo is an in-memory IPRepository.
type fakeIPRepo struct {
	byAddr map[string]*domain.IP
	seq    int
}

func newFakeIPRepo() *fakeIPRepo { return &fakeIPRepo{byAddr: map[string]*domain.IP{}} }

func (r *fakeIPRepo) GetByAddress(ctx context.Context, tenantRef, address string) (*domain.IP, error) {
	if ip, ok := r.byAddr[address]; ok {
		return ip, nil
	}
	return nil, apperr.New(apperr.NotFound, "ip not found")
}

func (r *fakeIPRepo) Create(ctx context.Context, ip *domain.IP) error {
	r.seq++
	ip.ID = "ip-" + string(rune('a'+r.seq))
	r.byAddr[ip.Address] = ip
	return nil
}

func (r *fakeIPRepo) Delete(ctx context.Context, id string) error {
	for addr, ip := range r.byAddr {
		if ip.ID == id {
			delete(r.byAddr, addr)
		}
	}
	return nil
}

// failingServers always fails CreateDeliveryServer, to exercise the
// rollback path (scenario 4).
type failingServers struct{ deleteCalls []string }

func (f *failingServers) CreateDeliveryServer(ctx context.Context, name, hostname string, port int, fromEmail, fromName string, hourlyQuota, maxConnectionMessages int, customerRef string) (string, error) {
	return "", apperr.New(apperr.ServiceUnavailable, "campaign manager store unreachable")
}

func (f *failingServers) DeleteDeliveryServer(ctx context.Context, serverRef string) error {
	f.deleteCalls = append(f.deleteCalls, serverRef)
	return nil
}

// TestCreateRollsBackVMTAOnDeliveryServerFailure exercises scenario 4:
// the node-side append succeeds, the campaign-manager create fails, and
// the vmta block plus pattern-list entry must be fully rolled back with
// no persisted IP row.
func TestCreateRollsBackVMTAOnDeliveryServerFailure(t *testing.T) {
	ctx := context.Background()
	channel := newMemChannel(baseConfig)
	cfg := testNodeConfig()
	client := node.NewClient(cfg, channel)
	resolver := &fakeResolver{cfg: cfg, client: client}
	servers := &failingServers{}
	ips := newFakeIPRepo()
	svc := NewService(ips, resolver, servers)

	_, err := svc.Create(ctx, CreateParams{
		TenantRef:   "tenant-1",
		Address:     "203.0.113.5",
		Hostname:    "mail.hub-travelers.com",
		SenderEmail: "contact@mail.hub-travelers.com",
	})

	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.ServiceUnavailable, appErr.Kind)

	assert.Empty(t, ips.byAddr, "no IP row should be persisted")

	cfgText := channel.contents()
	assert.NotContains(t, cfgText, "vmta-hub-travelers")
	assert.NotContains(t, cfgText, "contact@mail.hub-travelers.com")
	assert.Equal(t, strings.TrimRight(baseConfig, "\n"), strings.TrimRight(cfgText, "\n"),
		"config must be restored to its pre-create state modulo trailing blank lines")
}

// okServers always succeeds, recording the delivery-server name/email
// pair it was asked to create.
type okServers struct {
	created  []string
	fromMail string
}

func (o *okServers) CreateDeliveryServer(ctx context.Context, name, hostname string, port int, fromEmail, fromName string, hourlyQuota, maxConnectionMessages int, customerRef string) (string, error) {
	o.created = append(o.created, name)
	o.fromMail = fromEmail
	return "server-1", nil
}

func (o *okServers) DeleteDeliveryServer(ctx context.Context, serverRef string) error { return nil }

func TestCreateSucceedsAndPersistsCorrelatedIdentifiers(t *testing.T) {
	ctx := context.Background()
	channel := newMemChannel(baseConfig)
	cfg := testNodeConfig()
	client := node.NewClient(cfg, channel)
	resolver := &fakeResolver{cfg: cfg, client: client}
	servers := &okServers{}
	ips := newFakeIPRepo()
	svc := NewService(ips, resolver, servers)

	ip, err := svc.Create(ctx, CreateParams{
		TenantRef:   "tenant-1",
		Address:     "203.0.113.9",
		Hostname:    "mail.example.com",
		SenderEmail: "sender@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IPStandby, ip.Status)
	assert.Equal(t, "vmta-example-com", ip.VMTAName)
	assert.Equal(t, "server-1", ip.MailwizzServerRef)
	assert.Equal(t, "vps1", ip.NodeRef)
	assert.Equal(t, "sender@example.com", servers.fromMail)

	cfgText := channel.contents()
	assert.Contains(t, cfgText, "vmta-example-com")
	assert.Contains(t, cfgText, "sender@example.com")
	assert.True(t, strings.Contains(cfgText, "</pattern-list>"))
}

func TestDeriveVMTAName(t *testing.T) {
	assert.Equal(t, "vmta-example-com", deriveVMTAName("mail.example.com"))
	assert.Equal(t, "vmta-hub-travelers-com", deriveVMTAName("send.hub-travelers.com"))
	assert.Equal(t, "vmta-plainhost", deriveVMTAName("plainhost"))
}
