package campaignmgr

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/pkg/logger"
)

// Adapter owns the pooled connection to the campaign manager's store plus
// the host-failover/circuit-breaker state. A nil db (degraded mode) makes
// every operation return apperr.ServiceUnavailable without touching the
// network again until the process restarts.
type Adapter struct {
	db      *sql.DB
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

// New opens a connection to cfg.Host; if that fails and cfg.Host matches
// the container-runtime alias, retries against cfg.FailoverHost. If both
// fail, New still returns a non-nil *Adapter in degraded mode rather than
// an error, per §4.2's "the system must continue" requirement.
func New(cfg config.CampaignDBConfig) *Adapter {
	a := &Adapter{
		timeout: cfg.Timeout(),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "campaignmgr-db",
			MaxRequests: 2,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("campaignmgr circuit breaker state change", "from", from.String(), "to", to.String())
			},
		}),
	}

	db, err := connect(cfg, cfg.Host)
	if err != nil {
		logger.Error("campaignmgr primary host unreachable", "host", cfg.Host, "error", err.Error())
		if isContainerRuntimeAlias(cfg.Host) && cfg.FailoverHost != "" {
			db, err = connect(cfg, cfg.FailoverHost)
			if err != nil {
				logger.Critical("campaignmgr failover host also unreachable; degrading to no-op", "failover_host", cfg.FailoverHost, "error", err.Error())
				return a
			}
			logger.Info("campaignmgr connected via failover host", "host", cfg.FailoverHost)
		} else {
			logger.Critical("campaignmgr degrading to no-op: no failover configured", "host", cfg.Host)
			return a
		}
	}
	a.db = db
	return a
}

func connect(cfg config.CampaignDBConfig, host string) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&connect_timeout=%d",
			cfg.User, cfg.Password, host, cfg.Port, cfg.Database, int(cfg.ConnectTimeout().Seconds()))
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// isContainerRuntimeAlias reports whether host is the well-known alias a
// container runtime resolves to its own gateway (Docker Desktop's
// host.docker.internal); on a plain Linux host this alias doesn't resolve,
// which is exactly the failure this check exists to catch.
func isContainerRuntimeAlias(host string) bool {
	return host == "host.docker.internal"
}

// Degraded reports whether the adapter could not reach either host and is
// running in no-op mode.
func (a *Adapter) Degraded() bool { return a.db == nil }

// withConn runs fn through the circuit breaker, translating a degraded
// adapter or breaker-open state into apperr.ServiceUnavailable.
func (a *Adapter) withConn(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	if a.db == nil {
		return apperr.New(apperr.ServiceUnavailable, "campaign manager adapter is degraded (no-op mode)")
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	_, err := a.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx, a.db)
	})
	if err != nil {
		if ae, ok := err.(*apperr.Error); ok {
			return ae
		}
		return apperr.Wrap(apperr.ServiceUnavailable, "campaign manager operation failed", err)
	}
	return nil
}

// Close releases the underlying connection pool, if any.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
