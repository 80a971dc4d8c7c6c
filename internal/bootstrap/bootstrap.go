// Package bootstrap assembles the shared collaborator graph used by both
// cmd/server (API + scheduler) and cmd/worker (scheduler only). Splitting
// this out keeps the two entrypoints from drifting out of sync the way the
// teacher's cmd/server and cmd/worker once did with their own ad hoc
// connection setup.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coldroute/coldroute/internal/alert"
	"github.com/coldroute/coldroute/internal/blacklist"
	"github.com/coldroute/coldroute/internal/campaignmgr"
	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/consolidate"
	"github.com/coldroute/coldroute/internal/domain"
	"github.com/coldroute/coldroute/internal/lifecycle"
	"github.com/coldroute/coldroute/internal/node"
	"github.com/coldroute/coldroute/internal/pkg/distlock"
	"github.com/coldroute/coldroute/internal/pkg/logger"
	"github.com/coldroute/coldroute/internal/provision"
	"github.com/coldroute/coldroute/internal/retryqueue"
	"github.com/coldroute/coldroute/internal/store"
	"github.com/coldroute/coldroute/internal/warmup"
	"github.com/coldroute/coldroute/internal/webhook"
)

// Wiring holds every collaborator a process might need. Fields populated
// from optional backends (Redis, configured nodes) may be nil; callers must
// treat nil as "not configured" rather than assume one is always present.
type Wiring struct {
	Config *config.Config

	DB  *sql.DB
	RDB *redis.Client

	AlertSink  alert.Sink
	CampaignDB *campaignmgr.Adapter

	NodeRegistry *node.Registry

	IPRepo      *store.IPRepo
	PlanRepo    *store.WarmupPlanRepo
	StatRepo    *store.WarmupDailyStatRepo
	BlEventRepo *store.BlacklistEventRepo
	EventRepo   *store.EventRepo

	Counters consolidate.CounterStore

	Warmup       *warmup.Service
	Lifecycle    *lifecycle.Service
	Provisioner  *provision.Service
	Consolidator *consolidate.Service
	Blacklist    *blacklist.Service

	RetryQueue *retryqueue.Queue
}

// newNodeChannel opens an SSH channel to one configured node. The node's
// CredentialHandle names a file holding the PEM-encoded private key; a node
// that can never authenticate is a startup-time configuration error, not a
// per-request one.
func newNodeChannel(n domain.NodeConfig) (node.Channel, error) {
	keyPEM, err := os.ReadFile(n.CredentialHandle)
	if err != nil {
		return nil, fmt.Errorf("read node %s credential: %w", n.NodeID, err)
	}
	return node.NewSSHChannel(n.Host, n.SSHPort, n.SSHUser, keyPEM)
}

// Build connects to every backend named by cfg and wires the full service
// graph. Optional backends degrade rather than fail: an unreachable Redis
// disables counters/locking, and no configured nodes disables provisioning
// and health probing, but the core lifecycle/warmup/blacklist services
// always come up as long as the core database is reachable.
func Build(cfg *config.Config) (*Wiring, error) {
	w := &Wiring{Config: cfg}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open core database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping core database: %w", err)
	}
	w.DB = db

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable at startup, counters/locks degraded", "error", err.Error())
		} else {
			w.RDB = rdb
		}
	}

	w.AlertSink = alert.NoopSink{}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		w.AlertSink = alert.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID, nil)
		alert.InstallCriticalSink(w.AlertSink)
	}

	w.CampaignDB = campaignmgr.New(cfg.CampaignDB)
	if w.CampaignDB.Degraded() {
		logger.Critical("campaign manager adapter started in degraded (no-op) mode")
	}

	if len(cfg.Nodes) > 0 {
		registry, err := node.NewRegistry(cfg.Nodes, newNodeChannel)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("build node registry: %w", err)
		}
		w.NodeRegistry = registry
	}

	w.IPRepo = store.NewIPRepo(db)
	w.PlanRepo = store.NewWarmupPlanRepo(db)
	w.StatRepo = store.NewWarmupDailyStatRepo(db)
	w.BlEventRepo = store.NewBlacklistEventRepo(db)
	w.EventRepo = store.NewEventRepo(db)

	if w.RDB != nil {
		w.Counters = consolidate.NewRedisCounters(w.RDB)
	}

	w.Warmup = warmup.NewService(w.PlanRepo, w.StatRepo, w.IPRepo, w.CampaignDB, w.AlertSink, warmup.Thresholds{
		EmergencyBounceRate: cfg.Warmup.EmergencyBounceRate,
		EmergencySpamRate:   cfg.Warmup.EmergencySpamRate,
		MaxBounceRate7d:     cfg.Warmup.MaxBounceRate7d,
		MaxSpamRate7d:       cfg.Warmup.MaxSpamRate7d,
	})

	w.Lifecycle = lifecycle.NewService(w.IPRepo, w.BlEventRepo, w.AlertSink, cfg.Warmup.RestDays, w.Warmup.CreatePlan)

	if w.NodeRegistry != nil {
		w.Provisioner = provision.NewService(w.IPRepo, w.NodeRegistry, w.CampaignDB)
	}

	if w.Counters != nil {
		w.Consolidator = consolidate.NewService(w.IPRepo, w.PlanRepo, w.StatRepo, w.EventRepo, w.Counters)
	}

	w.Blacklist = blacklist.NewService(w.IPRepo, w.BlEventRepo, w.Lifecycle, w.AlertSink, nil, cfg.RBL.Zones)

	var retryLock distlock.DistLock
	if w.RDB != nil {
		retryLock = distlock.NewLock(w.RDB, db, "coldroute:retryqueue", time.Minute)
	}
	w.RetryQueue = retryqueue.New("data/retry-queue.ndjson", nil, retryLock)

	return w, nil
}

// Close releases the database connection. Callers should defer this right
// after a successful Build.
func (w *Wiring) Close() {
	if w.DB != nil {
		w.DB.Close()
	}
	if w.CampaignDB != nil {
		w.CampaignDB.Close()
	}
}

// NodeHealthIface adapts NodeRegistry to webhook/metrics' NodeHealthChecker
// interface, returning a true nil (not a nil pointer wrapped in a non-nil
// interface) when no nodes are configured.
func (w *Wiring) NodeHealthIface() webhook.NodeHealthChecker {
	if w.NodeRegistry == nil {
		return nil
	}
	return w.NodeRegistry
}

// EventRecorder returns Consolidator as a webhook.EventRecorder, or a no-op
// that logs and drops when no counter backend is configured.
func (w *Wiring) EventRecorder() webhook.EventRecorder {
	if w.Consolidator == nil {
		return noopRecorder{}
	}
	return w.Consolidator
}

// ProvisionerIface returns Provisioner as a webhook.Provisioner, or a no-op
// that errors clearly when no node registry is configured.
func (w *Wiring) ProvisionerIface() webhook.Provisioner {
	if w.Provisioner == nil {
		return noopProvisioner{}
	}
	return w.Provisioner
}

type noopRecorder struct{}

func (noopRecorder) RecordEvent(ctx context.Context, ip *domain.IP, kind domain.EventKind, recipient, detail string) error {
	logger.Warn("event dropped: consolidator not configured", "recipient", recipient, "kind", string(kind))
	return nil
}

type noopProvisioner struct{}

func (noopProvisioner) Create(ctx context.Context, p provision.CreateParams) (*domain.IP, error) {
	return nil, fmt.Errorf("provisioning unavailable: no node registry configured")
}

func (noopProvisioner) Delete(ctx context.Context, ip *domain.IP, deprovision bool) error {
	return fmt.Errorf("provisioning unavailable: no node registry configured")
}
