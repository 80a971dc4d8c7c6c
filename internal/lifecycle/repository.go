package lifecycle

import (
	"context"

	"github.com/coldroute/coldroute/internal/domain"
)

// IPRepository is the subset of store.IPRepo the lifecycle service needs.
type IPRepository interface {
	Get(ctx context.Context, id string) (*domain.IP, error)
	ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error)
	ListQuarantineExpired(ctx context.Context) ([]domain.IP, error)
	ListStandby(ctx context.Context, tenantRef string) ([]domain.IP, error)
	SetStatus(ctx context.Context, id string, status domain.IPStatus) error
	SetQuarantine(ctx context.Context, id string, status domain.IPStatus, quarantineUntil interface{}) error
	AddBlacklistMark(ctx context.Context, id, zone string) error
}

// BlacklistEventRepository is the subset of store.BlacklistEventRepo the
// lifecycle service needs to open listings and record standby activation.
type BlacklistEventRepository interface {
	GetOpen(ctx context.Context, ipRef, zone string) (*domain.BlacklistEvent, error)
	Open(ctx context.Context, e *domain.BlacklistEvent) error
	SetStandbyActivated(ctx context.Context, id, standbyIPRef string) error
	Close(ctx context.Context, id string, autoRecovered bool, standbyIPRef *string) error
}
