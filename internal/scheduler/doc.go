// Package scheduler runs the cadence jobs of §4.9: a fixed set of named
// jobs, each on its own schedule (fixed interval, daily-at-UTC-hour, or
// monthly), each guaranteed never to overlap itself — a job's next fire
// time is computed only after its previous run returns, mirroring the
// teacher's own ticker-goroutine-per-worker shape
// (internal/worker/campaign_scheduler.go) generalized to an arbitrary job
// table instead of one hardcoded poll loop.
package scheduler
