package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/coldroute/coldroute/internal/domain"
)

// EventRepo is the audit trail of inbound mail events, written by
// consolidate.Service.RecordEvent; lifecycle transitions, provisioning
// actions and warmup pause/resume do not leave rows here.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Record(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, tenant_ref, ip_ref, kind, recipient, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, e.ID, e.TenantRef, e.IPRef, e.Kind, e.Recipient, e.Detail)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListByIP returns the most recent events for an IP, newest first.
func (r *EventRepo) ListByIP(ctx context.Context, ipRef string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_ref, ip_ref, kind, recipient, detail, occurred_at
		FROM events
		WHERE ip_ref = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, ipRef, limit)
	if err != nil {
		return nil, fmt.Errorf("list events by ip: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TenantRef, &e.IPRef, &e.Kind, &e.Recipient, &e.Detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListByTenant returns recent events across all of a tenant's IPs.
func (r *EventRepo) ListByTenant(ctx context.Context, tenantRef string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_ref, ip_ref, kind, recipient, detail, occurred_at
		FROM events
		WHERE tenant_ref = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, tenantRef, limit)
	if err != nil {
		return nil, fmt.Errorf("list events by tenant: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TenantRef, &e.IPRef, &e.Kind, &e.Recipient, &e.Detail, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
