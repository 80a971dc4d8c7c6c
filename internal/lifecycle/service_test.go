package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIPs is an in-memory IPRepository.
type fakeIPs struct {
	byID map[string]*domain.IP
}

func newFakeIPs(ips ...*domain.IP) *fakeIPs {
	m := map[string]*domain.IP{}
	for _, ip := range ips {
		m[ip.ID] = ip
	}
	return &fakeIPs{byID: m}
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

func (f *fakeIPs) ListQuarantineExpired(ctx context.Context) ([]domain.IP, error) {
	var out []domain.IP
	now := time.Now()
	for _, ip := range f.byID {
		if ip.Status.InQuarantineWindow() && ip.QuarantineUntil != nil && !ip.QuarantineUntil.After(now) {
			out = append(out, *ip)
		}
	}
	return out, nil
}

func (f *fakeIPs) ListStandby(ctx context.Context, tenantRef string) ([]domain.IP, error) {
	var out []domain.IP
	for _, ip := range f.byID {
		if ip.TenantRef == tenantRef && ip.Status == domain.IPStandby {
			out = append(out, *ip)
		}
	}
	return out, nil
}

func (f *fakeIPs) SetStatus(ctx context.Context, id string, status domain.IPStatus) error {
	f.byID[id].Status = status
	return nil
}

func (f *fakeIPs) SetQuarantine(ctx context.Context, id string, status domain.IPStatus, quarantineUntil interface{}) error {
	f.byID[id].Status = status
	if t, ok := quarantineUntil.(time.Time); ok {
		f.byID[id].QuarantineUntil = &t
	}
	return nil
}

func (f *fakeIPs) AddBlacklistMark(ctx context.Context, id, zone string) error {
	f.byID[id].BlacklistedOn = append(f.byID[id].BlacklistedOn, zone)
	return nil
}

// fakeBLEvents is an in-memory BlacklistEventRepository.
type fakeBLEvents struct {
	byID map[string]*domain.BlacklistEvent
	seq  int
}

func newFakeBLEvents() *fakeBLEvents {
	return &fakeBLEvents{byID: map[string]*domain.BlacklistEvent{}}
}

func (f *fakeBLEvents) GetOpen(ctx context.Context, ipRef, zone string) (*domain.BlacklistEvent, error) {
	for _, e := range f.byID {
		if e.IPRef == ipRef && e.BlacklistName == zone && e.Open() {
			return e, nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "no open event")
}

func (f *fakeBLEvents) Open(ctx context.Context, e *domain.BlacklistEvent) error {
	f.seq++
	e.ID = "evt-" + itoa(f.seq)
	e.ListedAt = time.Now()
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeBLEvents) SetStandbyActivated(ctx context.Context, id, standbyIPRef string) error {
	f.byID[id].StandbyIPActivatedRef = &standbyIPRef
	return nil
}

func (f *fakeBLEvents) Close(ctx context.Context, id string, autoRecovered bool, standbyIPRef *string) error {
	now := time.Now()
	f.byID[id].DelistedAt = &now
	f.byID[id].AutoRecovered = autoRecovered
	return nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestAllowedTransitionTable(t *testing.T) {
	cases := []struct {
		from, to domain.IPStatus
		want     bool
	}{
		{domain.IPActive, domain.IPRetiring, true},
		{domain.IPActive, domain.IPBlacklisted, true},
		{domain.IPActive, domain.IPWarming, false},
		{domain.IPRetiring, domain.IPResting, true},
		{domain.IPRetiring, domain.IPActive, false},
		{domain.IPResting, domain.IPWarming, true},
		{domain.IPResting, domain.IPStandby, true},
		{domain.IPResting, domain.IPActive, false},
		{domain.IPWarming, domain.IPActive, true},
		{domain.IPWarming, domain.IPBlacklisted, true},
		{domain.IPWarming, domain.IPResting, false},
		{domain.IPBlacklisted, domain.IPResting, true},
		{domain.IPBlacklisted, domain.IPStandby, true},
		{domain.IPBlacklisted, domain.IPActive, false},
		{domain.IPStandby, domain.IPWarming, true},
		{domain.IPStandby, domain.IPActive, true},
		{domain.IPStandby, domain.IPRetiring, false},
		{domain.IPQuarantined, domain.IPWarming, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Allowed(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTransitionToRestingSetsQuarantineWindow(t *testing.T) {
	ctx := context.Background()
	ip := &domain.IP{ID: "ip-1", Status: domain.IPRetiring}
	ips := newFakeIPs(ip)
	svc := NewService(ips, newFakeBLEvents(), nil, 0, nil)

	updated, err := svc.Transition(ctx, ip.ID, domain.IPResting)
	require.NoError(t, err)
	assert.Equal(t, domain.IPResting, updated.Status)
	require.NotNil(t, ip.QuarantineUntil)
	assert.WithinDuration(t, time.Now().Add(DefaultRestDays*24*time.Hour), *ip.QuarantineUntil, time.Minute)
}

func TestTransitionRejectsDisallowedPair(t *testing.T) {
	ctx := context.Background()
	ip := &domain.IP{ID: "ip-1", Status: domain.IPActive}
	ips := newFakeIPs(ip)
	svc := NewService(ips, newFakeBLEvents(), nil, 0, nil)

	_, err := svc.Transition(ctx, ip.ID, domain.IPWarming)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.InvalidState, appErr.Kind)
	assert.Equal(t, domain.IPActive, ip.Status, "no side effect on a rejected transition")
}

// TestBlacklistListingPromotesStandby exercises scenario 5: IP A (ACTIVE)
// is listed on zen.spamhaus.org; it becomes BLACKLISTED, a single open
// BlacklistEvent records B as the promoted standby, and B becomes ACTIVE.
func TestBlacklistListingPromotesStandby(t *testing.T) {
	ctx := context.Background()
	a := &domain.IP{ID: "ip-a", TenantRef: "t1", Address: "198.51.100.1", Status: domain.IPActive}
	b := &domain.IP{ID: "ip-b", TenantRef: "t1", Address: "198.51.100.2", Status: domain.IPStandby}
	ips := newFakeIPs(a, b)
	events := newFakeBLEvents()

	var critical []string
	sink := sinkFunc(func(ctx context.Context, severity alert.Severity, msg string) error {
		if severity == alert.Critical {
			critical = append(critical, msg)
		}
		return nil
	})
	svc := NewService(ips, events, sink, 0, nil)

	event, err := svc.HandleBlacklistListing(ctx, a, []string{"zen.spamhaus.org"})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, domain.IPBlacklisted, a.Status)
	assert.Equal(t, domain.IPActive, b.Status)
	assert.Contains(t, a.BlacklistedOn, "zen.spamhaus.org")
	require.NotNil(t, event.StandbyIPActivatedRef)
	assert.Equal(t, b.ID, *event.StandbyIPActivatedRef)
	assert.True(t, event.Open())

	openCount := 0
	for _, e := range events.byID {
		if e.IPRef == a.ID && e.BlacklistName == "zen.spamhaus.org" && e.Open() {
			openCount++
		}
	}
	assert.Equal(t, 1, openCount)
	assert.NotEmpty(t, critical)
}

func TestRotateMonthlyRetiresActiveToResting(t *testing.T) {
	ctx := context.Background()
	a := &domain.IP{ID: "ip-a", Status: domain.IPActive, StatusChangedAt: time.Now().Add(-48 * time.Hour)}
	ips := newFakeIPs(a)
	svc := NewService(ips, newFakeBLEvents(), nil, 0, nil)

	retired, err := svc.RotateMonthly(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.Address}, retired)
	assert.Equal(t, domain.IPResting, a.Status)
	require.NotNil(t, a.QuarantineUntil)
}

// sinkFunc adapts a plain function to alert.Sink.
type sinkFunc func(ctx context.Context, severity alert.Severity, msg string) error

func (f sinkFunc) Send(ctx context.Context, severity alert.Severity, msg string) error {
	return f(ctx, severity, msg)
}
