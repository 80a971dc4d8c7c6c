package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldroute/coldroute/internal/domain"
)

func TestWarmupDailyStatRepoCountDays(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM warmup_daily_stats WHERE plan_ref = \\$1").
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	repo := NewWarmupDailyStatRepo(db)
	n, err := repo.CountDays(context.Background(), "plan-1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestWarmupDailyStatRepoUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO warmup_daily_stats").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewWarmupDailyStatRepo(db)
	err = repo.Upsert(context.Background(), "plan-1", time.Now(), domain.WarmupDailyStat{Sent: 10, Delivered: 9, Bounced: 1})
	assert.NoError(t, err)
}
