package warmup

import (
	"context"
	"time"

	"github.com/coldroute/coldroute/internal/campaignmgr"
	"github.com/coldroute/coldroute/internal/domain"
)

// PlanRepository is the subset of store.WarmupPlanRepo the engine needs.
type PlanRepository interface {
	GetByIP(ctx context.Context, ipRef string) (*domain.WarmupPlan, error)
	ListActive(ctx context.Context) ([]domain.WarmupPlan, error)
	Create(ctx context.Context, p *domain.WarmupPlan) error
	Delete(ctx context.Context, ipRef string) error
	Advance(ctx context.Context, id, phase string, currentDailyQuota int) error
	SetRates(ctx context.Context, id string, bounceRate7d, spamRate7d float64) error
	Pause(ctx context.Context, id string, until time.Time, emergency bool) error
	Resume(ctx context.Context, id string) error
}

// StatRepository is the subset of store.WarmupDailyStatRepo the engine
// needs to compute day numbers and rolling rates.
type StatRepository interface {
	CountDays(ctx context.Context, planRef string) (int, error)
	Last24h(ctx context.Context, planRef string) (domain.WarmupDailyStat, error)
	Last7d(ctx context.Context, planRef string) (domain.WarmupDailyStat, error)
}

// IPRepository is the subset of store.IPRepo the engine needs to move
// an IP between WARMING, ACTIVE, and QUARANTINED.
type IPRepository interface {
	Get(ctx context.Context, id string) (*domain.IP, error)
	SetStatus(ctx context.Context, id string, status domain.IPStatus) error
	SetQuarantine(ctx context.Context, id string, status domain.IPStatus, quarantineUntil interface{}) error
}

// ServerController is the subset of campaignmgr.Adapter the engine drives
// (quota + status of the delivery server backing a warming IP).
type ServerController interface {
	SyncWarmupQuota(ctx context.Context, serverRef string, dailyQuota int) error
	SetServerStatus(ctx context.Context, serverRef string, status campaignmgr.ServerStatus) error
}
