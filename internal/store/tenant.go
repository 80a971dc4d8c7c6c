package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

// TenantRepo reads tenant rows. Tenants are created out-of-band (outside
// the core), so this repo is deliberately read-only.
type TenantRepo struct{ db *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

func (r *TenantRepo) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, brand_domain, sending_domain_base, active
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Slug, &t.BrandDomain, &t.SendingDomainBase, &t.Active)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, brand_domain, sending_domain_base, active
		FROM tenants
		WHERE slug = $1
	`, slug).Scan(&t.ID, &t.Slug, &t.BrandDomain, &t.SendingDomainBase, &t.Active)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "tenant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return t, nil
}

func (r *TenantRepo) ListActive(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slug, brand_domain, sending_domain_base, active
		FROM tenants
		WHERE active = true
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Slug, &t.BrandDomain, &t.SendingDomainBase, &t.Active); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
