package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

// WarmupPlanRepo persists one plan per warming IP.
type WarmupPlanRepo struct{ db *sql.DB }

func NewWarmupPlanRepo(db *sql.DB) *WarmupPlanRepo { return &WarmupPlanRepo{db: db} }

const warmupPlanColumns = `
	id, tenant_ref, ip_ref, phase, started_at, current_daily_quota,
	target_daily_quota, bounce_rate_7d, spam_rate_7d, paused, pause_until
`

func scanWarmupPlan(row interface{ Scan(...interface{}) error }) (*domain.WarmupPlan, error) {
	p := &domain.WarmupPlan{}
	err := row.Scan(
		&p.ID, &p.TenantRef, &p.IPRef, &p.Phase, &p.StartedAt, &p.CurrentDailyQuota,
		&p.TargetDailyQuota, &p.BounceRate7d, &p.SpamRate7d, &p.Paused, &p.PauseUntil,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *WarmupPlanRepo) GetByIP(ctx context.Context, ipRef string) (*domain.WarmupPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+warmupPlanColumns+` FROM warmup_plans WHERE ip_ref = $1`, ipRef)
	p, err := scanWarmupPlan(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "warmup plan not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get warmup plan: %w", err)
	}
	return p, nil
}

// ListActive returns every plan not yet completed or emergency-stopped, the
// set the daily tick iterates.
func (r *WarmupPlanRepo) ListActive(ctx context.Context) ([]domain.WarmupPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+warmupPlanColumns+` FROM warmup_plans
		WHERE phase NOT IN ('completed', 'emergency_stop')
		ORDER BY started_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active warmup plans: %w", err)
	}
	defer rows.Close()

	var out []domain.WarmupPlan
	for rows.Next() {
		p, err := scanWarmupPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warmup plan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *WarmupPlanRepo) Create(ctx context.Context, p *domain.WarmupPlan) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO warmup_plans
			(id, tenant_ref, ip_ref, phase, started_at, current_daily_quota,
			 target_daily_quota, bounce_rate_7d, spam_rate_7d, paused, pause_until)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6, 0, 0, false, NULL)
	`, p.ID, p.TenantRef, p.IPRef, p.Phase, p.CurrentDailyQuota, p.TargetDailyQuota)
	if err != nil {
		return fmt.Errorf("create warmup plan: %w", err)
	}
	return nil
}

func (r *WarmupPlanRepo) Delete(ctx context.Context, ipRef string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM warmup_plans WHERE ip_ref = $1`, ipRef)
	if err != nil {
		return fmt.Errorf("delete warmup plan: %w", err)
	}
	return nil
}

// Advance updates a plan's phase/quota after a daily tick computes the next
// day's values.
func (r *WarmupPlanRepo) Advance(ctx context.Context, id, phase string, currentDailyQuota int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE warmup_plans SET phase = $1, current_daily_quota = $2 WHERE id = $3
	`, phase, currentDailyQuota, id)
	if err != nil {
		return fmt.Errorf("advance warmup plan: %w", err)
	}
	return nil
}

// SetRates updates the rolling 7-day bounce/spam rates, recomputed each tick
// from warmup_daily_stats.
func (r *WarmupPlanRepo) SetRates(ctx context.Context, id string, bounceRate7d, spamRate7d float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE warmup_plans SET bounce_rate_7d = $1, spam_rate_7d = $2 WHERE id = $3
	`, bounceRate7d, spamRate7d, id)
	if err != nil {
		return fmt.Errorf("set warmup rates: %w", err)
	}
	return nil
}

// Pause marks the plan paused until the given time (or indefinitely, for
// the 30-day emergency stop, by also flipping phase to emergency_stop).
func (r *WarmupPlanRepo) Pause(ctx context.Context, id string, until time.Time, emergency bool) error {
	phase := ""
	if emergency {
		phase = domain.PhaseEmergencyStop
	}
	if phase != "" {
		_, err := r.db.ExecContext(ctx, `
			UPDATE warmup_plans SET paused = true, pause_until = $1, phase = $2 WHERE id = $3
		`, until, phase, id)
		if err != nil {
			return fmt.Errorf("pause warmup plan: %w", err)
		}
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE warmup_plans SET paused = true, pause_until = $1 WHERE id = $2
	`, until, id)
	if err != nil {
		return fmt.Errorf("pause warmup plan: %w", err)
	}
	return nil
}

// Resume clears the pause flag, used when pause_until has elapsed.
func (r *WarmupPlanRepo) Resume(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE warmup_plans SET paused = false, pause_until = NULL WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("resume warmup plan: %w", err)
	}
	return nil
}

// WarmupDailyStatRepo persists per-day send/engagement counters for a plan.
type WarmupDailyStatRepo struct{ db *sql.DB }

func NewWarmupDailyStatRepo(db *sql.DB) *WarmupDailyStatRepo { return &WarmupDailyStatRepo{db: db} }

// Upsert inserts or accumulates one day's counters. Called by the
// consolidator as events arrive, and by the webhook layer for bounce events.
func (r *WarmupDailyStatRepo) Upsert(ctx context.Context, planRef string, date time.Time, delta domain.WarmupDailyStat) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO warmup_daily_stats (plan_ref, date, sent, delivered, bounced, complaints, opens, clicks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (plan_ref, date) DO UPDATE SET
			sent       = warmup_daily_stats.sent       + EXCLUDED.sent,
			delivered  = warmup_daily_stats.delivered  + EXCLUDED.delivered,
			bounced    = warmup_daily_stats.bounced    + EXCLUDED.bounced,
			complaints = warmup_daily_stats.complaints + EXCLUDED.complaints,
			opens      = warmup_daily_stats.opens      + EXCLUDED.opens,
			clicks     = warmup_daily_stats.clicks     + EXCLUDED.clicks
	`, planRef, date, delta.Sent, delta.Delivered, delta.Bounced, delta.Complaints, delta.Opens, delta.Clicks)
	if err != nil {
		return fmt.Errorf("upsert warmup daily stat: %w", err)
	}
	return nil
}

// Exists reports whether a stats row already exists for (planRef, date),
// so the consolidator can skip a day it has already written (§4.10
// idempotency: re-running does not re-consolidate already-consolidated days).
func (r *WarmupDailyStatRepo) Exists(ctx context.Context, planRef string, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM warmup_daily_stats WHERE plan_ref = $1 AND date = $2)`,
		planRef, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check warmup daily stat exists: %w", err)
	}
	return exists, nil
}

// CountDays returns the number of distinct days with a stats row for the
// plan — the day-number rule is count(stats)+1, clamped to 71.
func (r *WarmupDailyStatRepo) CountDays(ctx context.Context, planRef string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM warmup_daily_stats WHERE plan_ref = $1`, planRef,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count warmup days: %w", err)
	}
	return n, nil
}

// Last24h returns the aggregated counters for the most recent day row
// (used for the 24h emergency safety check).
func (r *WarmupDailyStatRepo) Last24h(ctx context.Context, planRef string) (domain.WarmupDailyStat, error) {
	var s domain.WarmupDailyStat
	err := r.db.QueryRowContext(ctx, `
		SELECT plan_ref, date, sent, delivered, bounced, complaints, opens, clicks
		FROM warmup_daily_stats
		WHERE plan_ref = $1
		ORDER BY date DESC
		LIMIT 1
	`, planRef).Scan(&s.PlanRef, &s.Date, &s.Sent, &s.Delivered, &s.Bounced, &s.Complaints, &s.Opens, &s.Clicks)
	if err == sql.ErrNoRows {
		return domain.WarmupDailyStat{}, nil
	}
	if err != nil {
		return domain.WarmupDailyStat{}, fmt.Errorf("last 24h stat: %w", err)
	}
	return s, nil
}

// Last7d returns the sum of the last 7 days of stats rows.
func (r *WarmupDailyStatRepo) Last7d(ctx context.Context, planRef string) (domain.WarmupDailyStat, error) {
	s := domain.WarmupDailyStat{PlanRef: planRef}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(sent), 0), COALESCE(SUM(delivered), 0), COALESCE(SUM(bounced), 0),
			COALESCE(SUM(complaints), 0), COALESCE(SUM(opens), 0), COALESCE(SUM(clicks), 0)
		FROM (
			SELECT * FROM warmup_daily_stats
			WHERE plan_ref = $1
			ORDER BY date DESC
			LIMIT 7
		) recent
	`, planRef).Scan(&s.Sent, &s.Delivered, &s.Bounced, &s.Complaints, &s.Opens, &s.Clicks)
	if err != nil {
		return domain.WarmupDailyStat{}, fmt.Errorf("last 7d stat: %w", err)
	}
	return s, nil
}
