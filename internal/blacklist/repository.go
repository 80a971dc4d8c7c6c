package blacklist

import (
	"context"

	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/lifecycle"
)

// IPRepository is the subset of store.IPRepo the checker needs.
type IPRepository interface {
	Get(ctx context.Context, id string) (*domain.IP, error)
	ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error)
}

// EventRepository is the subset of store.BlacklistEventRepo the checker
// needs to open/close listings and re-probe the currently-open set.
type EventRepository interface {
	GetOpen(ctx context.Context, ipRef, zone string) (*domain.BlacklistEvent, error)
	ListAllOpen(ctx context.Context) ([]domain.BlacklistEvent, error)
	Open(ctx context.Context, e *domain.BlacklistEvent) error
	Close(ctx context.Context, id string, autoRecovered bool, standbyIPRef *string) error
}

// LifecycleResponder is the subset of lifecycle.Service the checker
// hands newly-listed IPs to.
type LifecycleResponder interface {
	HandleBlacklistListing(ctx context.Context, ip *domain.IP, zones []string) (*domain.BlacklistEvent, error)
}

var _ LifecycleResponder = (*lifecycle.Service)(nil)
