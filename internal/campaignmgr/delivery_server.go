package campaignmgr

import (
	"context"
	"database/sql"
	"math"

	"github.com/google/uuid"

	"github.com/coldroute/coldroute/internal/apperr"
)

// ServerStatus is the delivery_server.status column's allowed values.
type ServerStatus string

const (
	StatusActive   ServerStatus = "active"
	StatusInactive ServerStatus = "inactive"
	StatusInUse    ServerStatus = "in-use"
)

// BounceStats is the aggregate delivery outcome for a server over a
// lookback window, used by the warmup engine's safety evaluation.
type BounceStats struct {
	Sent       int64
	Delivered  int64
	Bounced    int64
	Complaints int64
	BounceRate float64
	SpamRate   float64
}

// CreateDeliveryServer inserts a new delivery-server row and returns its
// ref (the campaign manager's own primary key, surfaced as a string so
// callers never need to import this package's ID type).
func (a *Adapter) CreateDeliveryServer(ctx context.Context, name, hostname string, port int, fromEmail, fromName string, hourlyQuota, maxConnectionMessages int, customerRef string) (string, error) {
	ref := uuid.New().String()
	err := a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO delivery_server
				(server_id, name, hostname, port, protocol, type, from_email, from_name,
				 max_connection_messages, hourly_quota, daily_quota, monthly_quota,
				 hourly_usage, daily_usage, monthly_usage, status, date_added, last_updated)
			VALUES ($1, $2, $3, $4, 'smtp', 'swift_mailer', $5, $6, $7, $8,
				$8 * 16, $8 * 16 * 30, 0, 0, 0, $9, NOW(), NOW())
		`, ref, name, hostname, port, fromEmail, fromName, maxConnectionMessages, hourlyQuota, StatusInactive)
		return err
	})
	if err != nil {
		return "", err
	}
	if customerRef != "" {
		if err := a.AssignServersToCustomer(ctx, customerRef, []string{ref}); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

// DeleteDeliveryServer removes a delivery-server row and its customer
// assignments.
func (a *Adapter) DeleteDeliveryServer(ctx context.Context, serverRef string) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM delivery_server_to_customer WHERE server_id = $1`, serverRef); err != nil {
			return err
		}
		res, err := db.ExecContext(ctx, `DELETE FROM delivery_server WHERE server_id = $1`, serverRef)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.New(apperr.NotFound, "delivery server not found")
		}
		return nil
	})
}

// SetServerStatus updates a server's status column.
func (a *Adapter) SetServerStatus(ctx context.Context, serverRef string, status ServerStatus) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE delivery_server SET status = $1, last_updated = NOW() WHERE server_id = $2`,
			status, serverRef)
		return err
	})
}

// SetServerQuota sets the server's hourly_quota directly.
func (a *Adapter) SetServerQuota(ctx context.Context, serverRef string, hourlyQuota int) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE delivery_server SET hourly_quota = $1, last_updated = NOW() WHERE server_id = $2`,
			hourlyQuota, serverRef)
		return err
	})
}

// DailyToHourly computes the hourly quota for a daily send volume: 16
// active sending hours per day, with a 20% safety margin (§4.2, §4.5).
func DailyToHourly(dailyQuota int) int {
	hourly := int(math.Floor(float64(dailyQuota) / 16 * 0.8))
	if hourly < 1 {
		return 1
	}
	return hourly
}

// SyncWarmupQuota derives the hourly quota from a daily warmup quota and
// pushes it to the server.
func (a *Adapter) SyncWarmupQuota(ctx context.Context, serverRef string, dailyQuota int) error {
	return a.SetServerQuota(ctx, serverRef, DailyToHourly(dailyQuota))
}

// ResetDailyUsage zeroes one server's daily_usage counter.
func (a *Adapter) ResetDailyUsage(ctx context.Context, serverRef string) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`UPDATE delivery_server SET daily_usage = 0, last_updated = NOW() WHERE server_id = $1`, serverRef)
		return err
	})
}

// ResetAllDailyUsage zeroes daily_usage for every server (midnight reset job).
func (a *Adapter) ResetAllDailyUsage(ctx context.Context) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE delivery_server SET daily_usage = 0, last_updated = NOW()`)
		return err
	})
}

// GetBounceStats reads the aggregated send/bounce/complaint counters the
// campaign manager tracked for serverRef over the last `days` days.
// The campaign manager's campaign_delivery_log table is assumed to carry
// server_id, event and date_added columns; this query counts its rows.
func (a *Adapter) GetBounceStats(ctx context.Context, serverRef string, days int) (BounceStats, error) {
	var stats BounceStats
	err := a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(CASE WHEN event = 'sent' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN event = 'delivered' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN event = 'bounced' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN event = 'complained' THEN 1 ELSE 0 END), 0)
			FROM campaign_delivery_log
			WHERE server_id = $1 AND date_added >= NOW() - ($2 || ' days')::interval
		`, serverRef, days).Scan(&stats.Sent, &stats.Delivered, &stats.Bounced, &stats.Complaints)
	})
	if err != nil {
		return BounceStats{}, err
	}
	if stats.Sent > 0 {
		stats.BounceRate = float64(stats.Bounced) / float64(stats.Sent)
		stats.SpamRate = float64(stats.Complaints) / float64(stats.Sent)
	}
	return stats, nil
}
