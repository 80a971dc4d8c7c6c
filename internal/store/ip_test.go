package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldroute/coldroute/internal/apperr"
	"github.com/coldroute/coldroute/internal/domain"
)

func TestIPRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_ref", "address", "hostname", "purpose", "status", "weight",
		"vmta_name", "pool_name", "sender_email", "node_ref", "mailwizz_server_ref",
		"quarantine_until", "blacklisted_on", "status_changed_at", "created_at",
	}).AddRow(
		"ip-1", "tenant-1", "203.0.113.5", "mail1.example.com", "cold", "ACTIVE", 10,
		"vmta-ip-1", "pool-cold", "vmta-ip-1@example.com", "node-1", "server-1",
		nil, "{}", now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM ips WHERE id = \\$1").WithArgs("ip-1").WillReturnRows(rows)

	repo := NewIPRepo(db)
	ip, err := repo.Get(context.Background(), "ip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IPActive, ip.Status)
	assert.Equal(t, "203.0.113.5", ip.Address)
}

func TestIPRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM ips WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewIPRepo(db)
	_, err = repo.Get(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
