package blacklist

import (
	"context"
	"testing"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers LookupHost by exact reversed-octet query string,
// so a test can script exactly which (ip, zone) pairs come back listed.
type fakeResolver struct {
	listed map[string]bool
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if f.listed[host] {
		return []string{"127.0.0.2"}, nil
	}
	return nil, &net_NXDOMAIN{}
}

// net_NXDOMAIN stands in for the *net.DNSError NXDOMAIN case without
// importing net's private error plumbing; checkZone only inspects
// ctx.Err(), so any non-nil, non-context error is treated as clean.
type net_NXDOMAIN struct{}

func (e *net_NXDOMAIN) Error() string { return "no such host" }

type fakeIPs struct {
	byID map[string]*domain.IP
}

func (f *fakeIPs) Get(ctx context.Context, id string) (*domain.IP, error) {
	if ip, ok := f.byID[id]; ok {
		return ip, nil
	}
	return nil, apperr.New(apperr.NotFound, "ip not found")
}

func (f *fakeIPs) ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error) {
	var out []domain.IP
	for _, ip := range f.byID {
		if ip.Status == status {
			out = append(out, *ip)
		}
	}
	return out, nil
}

type fakeEvents struct {
	byID map[string]*domain.BlacklistEvent
	seq  int
}

func newFakeEvents() *fakeEvents { return &fakeEvents{byID: map[string]*domain.BlacklistEvent{}} }

func (f *fakeEvents) GetOpen(ctx context.Context, ipRef, zone string) (*domain.BlacklistEvent, error) {
	for _, e := range f.byID {
		if e.IPRef == ipRef && e.BlacklistName == zone && e.Open() {
			return e, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no open event")
}

func (f *fakeEvents) ListAllOpen(ctx context.Context) ([]domain.BlacklistEvent, error) {
	var out []domain.BlacklistEvent
	for _, e := range f.byID {
		if e.Open() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEvents) Open(ctx context.Context, e *domain.BlacklistEvent) error {
	f.seq++
	e.ID = "evt-" + string(rune('a'+f.seq))
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEvents) Close(ctx context.Context, id string, autoRecovered bool, standbyIPRef *string) error {
	e := f.byID[id]
	e.AutoRecovered = autoRecovered
	e.StandbyIPActivatedRef = standbyIPRef
	now := e.ListedAt
	e.DelistedAt = &now
	return nil
}

type fakeLifecycle struct {
	calls []string
}

func (f *fakeLifecycle) HandleBlacklistListing(ctx context.Context, ip *domain.IP, zones []string) (*domain.BlacklistEvent, error) {
	f.calls = append(f.calls, ip.ID)
	return &domain.BlacklistEvent{IPRef: ip.ID, BlacklistName: zones[0]}, nil
}

// TestSweepOpensEventAndNotifiesLifecycle exercises the forward half of
// C7: an ACTIVE IP resolves listed on one zone, a single open event is
// recorded, and the lifecycle responder is invoked exactly once for it.
func TestSweepOpensEventAndNotifiesLifecycle(t *testing.T) {
	ctx := context.Background()
	ip := &domain.IP{ID: "ip-1", TenantRef: "t1", Address: "198.51.100.7", Status: domain.IPActive}
	ips := &fakeIPs{byID: map[string]*domain.IP{ip.ID: ip}}
	events := newFakeEvents()
	lc := &fakeLifecycle{}

	reversed, err := reverseOctets(ip.Address)
	require.NoError(t, err)
	resolver := &fakeResolver{listed: map[string]bool{
		reversed + ".zen.spamhaus.org": true,
	}}

	svc := NewService(ips, events, lc, nil, resolver, []string{"zen.spamhaus.org", "bl.spamcop.net"})
	require.NoError(t, svc.Sweep(ctx))

	open, err := events.ListAllOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "zen.spamhaus.org", open[0].BlacklistName)
	assert.Equal(t, []string{"ip-1"}, lc.calls)

	// A second sweep with nothing changed must not open a duplicate event.
	require.NoError(t, svc.Sweep(ctx))
	open, err = events.ListAllOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

// TestSweepAutoRecoversCleanListing exercises the reverse half of C7:
// an already-open event whose zone now resolves clean is closed with
// auto_recovered=true and an info alert is emitted.
func TestSweepAutoRecoversCleanListing(t *testing.T) {
	ctx := context.Background()
	ip := &domain.IP{ID: "ip-1", TenantRef: "t1", Address: "198.51.100.7", Status: domain.IPActive}
	ips := &fakeIPs{byID: map[string]*domain.IP{ip.ID: ip}}
	events := newFakeEvents()
	events.byID["evt-1"] = &domain.BlacklistEvent{ID: "evt-1", IPRef: ip.ID, BlacklistName: "zen.spamhaus.org"}
	lc := &fakeLifecycle{}

	var infos []string
	sink := sinkFunc(func(ctx context.Context, severity alert.Severity, msg string) error {
		if severity == alert.Info {
			infos = append(infos, msg)
		}
		return nil
	})

	resolver := &fakeResolver{listed: map[string]bool{}}
	svc := NewService(ips, events, lc, sink, resolver, []string{"zen.spamhaus.org"})
	require.NoError(t, svc.Sweep(ctx))

	assert.True(t, events.byID["evt-1"].AutoRecovered)
	require.NotNil(t, events.byID["evt-1"].DelistedAt)
	assert.NotEmpty(t, infos)
	assert.Empty(t, lc.calls, "a clean ip with no new listing must not reach the lifecycle manager")
}

func TestReverseOctets(t *testing.T) {
	got, err := reverseOctets("198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, "7.100.51.198", got)

	_, err = reverseOctets("not-an-ip")
	assert.Error(t, err)
}

type sinkFunc func(ctx context.Context, severity alert.Severity, msg string) error

func (f sinkFunc) Send(ctx context.Context, severity alert.Severity, msg string) error {
	return f(ctx, severity, msg)
}
