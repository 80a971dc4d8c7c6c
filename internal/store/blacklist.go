package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

// BlacklistEventRepo tracks open/closed RBL listings per IP.
type BlacklistEventRepo struct{ db *sql.DB }

func NewBlacklistEventRepo(db *sql.DB) *BlacklistEventRepo { return &BlacklistEventRepo{db: db} }

const blacklistEventColumns = `
	id, tenant_ref, ip_ref, blacklist_name, listed_at, delisted_at,
	auto_recovered, standby_ip_activated_ref
`

func scanBlacklistEvent(row interface{ Scan(...interface{}) error }) (*domain.BlacklistEvent, error) {
	e := &domain.BlacklistEvent{}
	err := row.Scan(
		&e.ID, &e.TenantRef, &e.IPRef, &e.BlacklistName, &e.ListedAt, &e.DelistedAt,
		&e.AutoRecovered, &e.StandbyIPActivatedRef,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetOpen returns the open event for (ipRef, zone), or apperr.NotFound.
func (r *BlacklistEventRepo) GetOpen(ctx context.Context, ipRef, zone string) (*domain.BlacklistEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+blacklistEventColumns+` FROM blacklist_events
		WHERE ip_ref = $1 AND blacklist_name = $2 AND delisted_at IS NULL
	`, ipRef, zone)
	e, err := scanBlacklistEvent(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "no open blacklist event")
	}
	if err != nil {
		return nil, fmt.Errorf("get open blacklist event: %w", err)
	}
	return e, nil
}

// ListOpenByIP returns every currently-open listing for an IP.
func (r *BlacklistEventRepo) ListOpenByIP(ctx context.Context, ipRef string) ([]domain.BlacklistEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+blacklistEventColumns+` FROM blacklist_events
		WHERE ip_ref = $1 AND delisted_at IS NULL
	`, ipRef)
	if err != nil {
		return nil, fmt.Errorf("list open blacklist events: %w", err)
	}
	defer rows.Close()

	var out []domain.BlacklistEvent
	for rows.Next() {
		e, err := scanBlacklistEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blacklist event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ListAllOpen returns every currently-open listing across all IPs, for
// the blacklist checker's re-probe-and-recover sweep.
func (r *BlacklistEventRepo) ListAllOpen(ctx context.Context) ([]domain.BlacklistEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+blacklistEventColumns+` FROM blacklist_events WHERE delisted_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("list all open blacklist events: %w", err)
	}
	defer rows.Close()

	var out []domain.BlacklistEvent
	for rows.Next() {
		e, err := scanBlacklistEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blacklist event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Open records a new listing. Callers check GetOpen first to avoid
// duplicate open rows for the same (ip, zone) pair.
func (r *BlacklistEventRepo) Open(ctx context.Context, e *domain.BlacklistEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blacklist_events (id, tenant_ref, ip_ref, blacklist_name, listed_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, e.ID, e.TenantRef, e.IPRef, e.BlacklistName)
	if err != nil {
		return fmt.Errorf("open blacklist event: %w", err)
	}
	return nil
}

// SetStandbyActivated records which standby IP was promoted in response to
// this listing, without closing the event (the listing is still open; only
// the IP that replaced it is known at blacklist-response time).
func (r *BlacklistEventRepo) SetStandbyActivated(ctx context.Context, id, standbyIPRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE blacklist_events SET standby_ip_activated_ref = $1 WHERE id = $2
	`, standbyIPRef, id)
	if err != nil {
		return fmt.Errorf("set standby activated: %w", err)
	}
	return nil
}

// Close marks an open event delisted, optionally recording which standby
// IP was activated in its place.
func (r *BlacklistEventRepo) Close(ctx context.Context, id string, autoRecovered bool, standbyIPRef *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE blacklist_events
		SET delisted_at = NOW(), auto_recovered = $1, standby_ip_activated_ref = $2
		WHERE id = $3
	`, autoRecovered, standbyIPRef, id)
	if err != nil {
		return fmt.Errorf("close blacklist event: %w", err)
	}
	return nil
}
