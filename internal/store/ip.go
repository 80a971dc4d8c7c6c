package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

// IPRepo implements CRUD and the lifecycle/provisioning queries against the
// ips table.
type IPRepo struct{ db *sql.DB }

func NewIPRepo(db *sql.DB) *IPRepo { return &IPRepo{db: db} }

const ipColumns = `
	id, tenant_ref, address, hostname, purpose, status, weight, vmta_name,
	pool_name, sender_email, node_ref, mailwizz_server_ref, quarantine_until,
	blacklisted_on, status_changed_at, created_at
`

func scanIP(row interface{ Scan(...interface{}) error }) (*domain.IP, error) {
	ip := &domain.IP{}
	var blacklistedOn pq.StringArray
	err := row.Scan(
		&ip.ID, &ip.TenantRef, &ip.Address, &ip.Hostname, &ip.Purpose, &ip.Status,
		&ip.Weight, &ip.VMTAName, &ip.PoolName, &ip.SenderEmail, &ip.NodeRef,
		&ip.MailwizzServerRef, &ip.QuarantineUntil, &blacklistedOn,
		&ip.StatusChangedAt, &ip.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ip.BlacklistedOn = []string(blacklistedOn)
	return ip, nil
}

func (r *IPRepo) Get(ctx context.Context, id string) (*domain.IP, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ipColumns+` FROM ips WHERE id = $1`, id)
	ip, err := scanIP(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "ip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ip: %w", err)
	}
	return ip, nil
}

func (r *IPRepo) GetByAddress(ctx context.Context, tenantRef, address string) (*domain.IP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE tenant_ref = $1 AND address = $2`,
		tenantRef, address)
	ip, err := scanIP(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "ip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ip by address: %w", err)
	}
	return ip, nil
}

// GetByAddressGlobal looks up an IP by address alone, ignoring tenant.
// Addresses are globally unique (§3), so this is the lookup inbound
// webhooks use: they carry a source IP but no tenant context.
func (r *IPRepo) GetByAddressGlobal(ctx context.Context, address string) (*domain.IP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE address = $1`, address)
	ip, err := scanIP(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "ip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ip by address (global): %w", err)
	}
	return ip, nil
}

// GetByVMTAName looks up an IP by its virtual-mta name, the other handle
// inbound webhooks (PowerMTA/MailWizz accounting events) carry instead of
// a bare source IP.
func (r *IPRepo) GetByVMTAName(ctx context.Context, vmtaName string) (*domain.IP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE vmta_name = $1`, vmtaName)
	ip, err := scanIP(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "ip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ip by vmta name: %w", err)
	}
	return ip, nil
}

func (r *IPRepo) GetBySenderEmail(ctx context.Context, senderEmail string) (*domain.IP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE sender_email = $1`, senderEmail)
	ip, err := scanIP(row)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "ip not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get ip by sender email: %w", err)
	}
	return ip, nil
}

// ListByStatus returns every IP in the given status, ordered oldest-first
// by status_changed_at (the order the monthly rotation job walks them in).
func (r *IPRepo) ListByStatus(ctx context.Context, status domain.IPStatus) ([]domain.IP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE status = $1 ORDER BY status_changed_at ASC`,
		status)
	if err != nil {
		return nil, fmt.Errorf("list ips by status: %w", err)
	}
	defer rows.Close()
	return scanIPRows(rows)
}

// ListQuarantineExpired returns RESTING/QUARANTINED IPs whose quarantine
// window has elapsed, for the daily quarantine-release job.
func (r *IPRepo) ListQuarantineExpired(ctx context.Context) ([]domain.IP, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ipColumns+` FROM ips
		WHERE status IN ('RESTING', 'QUARANTINED')
		  AND quarantine_until IS NOT NULL
		  AND quarantine_until <= NOW()
		ORDER BY quarantine_until ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list quarantine expired: %w", err)
	}
	defer rows.Close()
	return scanIPRows(rows)
}

// ListStandby returns STANDBY IPs for a tenant, used to pick a replacement
// when an ACTIVE IP is blacklisted.
func (r *IPRepo) ListStandby(ctx context.Context, tenantRef string) ([]domain.IP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ipColumns+` FROM ips WHERE tenant_ref = $1 AND status = 'STANDBY' ORDER BY created_at ASC`,
		tenantRef)
	if err != nil {
		return nil, fmt.Errorf("list standby ips: %w", err)
	}
	defer rows.Close()
	return scanIPRows(rows)
}

func scanIPRows(rows *sql.Rows) ([]domain.IP, error) {
	var out []domain.IP
	for rows.Next() {
		ip, err := scanIP(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ip: %w", err)
		}
		out = append(out, *ip)
	}
	return out, rows.Err()
}

// Create inserts a new IP row. Callers provide address/hostname/sender
// email/vmta_name already derived (provision.Create owns that derivation);
// this is a plain insert, no uniqueness pre-check (the DB's unique
// constraints on address/sender_email/vmta_name are the source of truth).
func (r *IPRepo) Create(ctx context.Context, ip *domain.IP) error {
	if ip.ID == "" {
		ip.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ips
			(id, tenant_ref, address, hostname, purpose, status, weight, vmta_name,
			 pool_name, sender_email, node_ref, mailwizz_server_ref, quarantine_until,
			 blacklisted_on, status_changed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`, ip.ID, ip.TenantRef, ip.Address, ip.Hostname, ip.Purpose, ip.Status, ip.Weight,
		ip.VMTAName, ip.PoolName, ip.SenderEmail, ip.NodeRef, ip.MailwizzServerRef,
		ip.QuarantineUntil, pq.Array(ip.BlacklistedOn))
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, "ip address or sender email already provisioned", err)
	}
	if err != nil {
		return fmt.Errorf("create ip: %w", err)
	}
	return nil
}

// Delete removes an IP row outright. Used only by the provisioner's
// Delete operation and its own rollback path.
func (r *IPRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ip: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "ip not found")
	}
	return nil
}

// SetStatus transitions the IP to a new status, stamping status_changed_at.
// The caller (lifecycle.Service) is responsible for validating the
// transition is allowed before calling this.
func (r *IPRepo) SetStatus(ctx context.Context, id string, status domain.IPStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ips SET status = $1, status_changed_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("set ip status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "ip not found")
	}
	return nil
}

// SetQuarantine sets status plus a quarantine_until timestamp in one write
// (RETIRING -> RESTING always carries a quarantine window).
func (r *IPRepo) SetQuarantine(ctx context.Context, id string, status domain.IPStatus, quarantineUntil interface{}) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ips SET status = $1, quarantine_until = $2, status_changed_at = NOW()
		WHERE id = $3
	`, status, quarantineUntil, id)
	if err != nil {
		return fmt.Errorf("set ip quarantine: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.NotFound, "ip not found")
	}
	return nil
}

// AddBlacklistMark appends zone to blacklisted_on if not already present.
func (r *IPRepo) AddBlacklistMark(ctx context.Context, id, zone string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ips SET blacklisted_on = array_append(blacklisted_on, $1)
		WHERE id = $2 AND NOT ($1 = ANY(blacklisted_on))
	`, zone, id)
	if err != nil {
		return fmt.Errorf("add blacklist mark: %w", err)
	}
	return nil
}

// RemoveBlacklistMark removes zone from blacklisted_on.
func (r *IPRepo) RemoveBlacklistMark(ctx context.Context, id, zone string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ips SET blacklisted_on = array_remove(blacklisted_on, $1)
		WHERE id = $2
	`, zone, id)
	if err != nil {
		return fmt.Errorf("remove blacklist mark: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
