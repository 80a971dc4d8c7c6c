// Package store is the Postgres persistence layer for the core schema:
// tenants, ips, warmup_plans, warmup_daily_stats, blacklist_events, and
// events. Each entity gets its own repo type wrapping a *sql.DB, following
// the same raw-SQL-over-database/sql shape the rest of this codebase has
// always used rather than an ORM.
//
// Repos return apperr-flavored errors (apperr.NotFound, ...) instead of
// sql.ErrNoRows directly, so callers above this package never need to
// import database/sql.
package store
