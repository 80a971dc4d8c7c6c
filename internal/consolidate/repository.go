package consolidate

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/domain"
)

// CounterStore is the per-IP per-day counter cache the consolidator
// increments on every WARMING-IP event and folds into durable stats daily.
type CounterStore interface {
	Increment(ctx context.Context, ipID string, date time.Time, field string, delta int64) error
	Read(ctx context.Context, ipID string, date time.Time) (domain.WarmupDailyStat, error)
	Delete(ctx context.Context, ipID string, date time.Time) error
}

// IPRepository is the subset of store.IPRepo the consolidator needs.
type IPRepository interface {
	ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error)
}

// PlanRepository is the subset of store.WarmupPlanRepo the consolidator
// needs to map an IP to the plan its stats are attributed to.
type PlanRepository interface {
	GetByIP(ctx context.Context, ipRef string) (*domain.WarmupPlan, error)
}

// StatRepository is the subset of store.WarmupDailyStatRepo the
// consolidator writes the folded counters into.
type StatRepository interface {
	Exists(ctx context.Context, planRef string, date time.Time) (bool, error)
	Upsert(ctx context.Context, planRef string, date time.Time, delta domain.WarmupDailyStat) error
}

// EventRepository is the subset of store.EventRepo the consolidator
// records every inbound mail event to, independent of warmup status.
type EventRepository interface {
	Record(ctx context.Context, e *domain.Event) error
}
