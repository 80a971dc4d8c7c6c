package campaignmgr

import (
	"context"
	"database/sql"

	"github.com/coldroute/coldroute/internal/apperr"
)

// GetOption reads a single option value by key.
func (a *Adapter) GetOption(ctx context.Context, key string) (string, error) {
	var value string
	err := a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		err := db.QueryRowContext(ctx, `SELECT option_value FROM option WHERE option_name = $1`, key).Scan(&value)
		if err == sql.ErrNoRows {
			return apperr.New(apperr.NotFound, "option not found: "+key)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetOption upserts an option key/value pair.
func (a *Adapter) SetOption(ctx context.Context, key, value string) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO option (option_name, option_value)
			VALUES ($1, $2)
			ON CONFLICT (option_name) DO UPDATE SET option_value = EXCLUDED.option_value
		`, key, value)
		return err
	})
}
