package scheduler

import "time"

// Schedule computes the next fire time strictly after `after`.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Every fires a fixed interval after the time passed to Next; the
// Scheduler passes the time the job's previous run returned.
type Every time.Duration

func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

// DailyAt fires once per UTC day at hour:minute.
type DailyAt struct {
	Hour   int
	Minute int
}

func (d DailyAt) Next(after time.Time) time.Time {
	u := after.UTC()
	next := time.Date(u.Year(), u.Month(), u.Day(), d.Hour, d.Minute, 0, 0, time.UTC)
	if !next.After(u) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// MonthlyAt fires once per UTC month on dayOfMonth at hour:00.
type MonthlyAt struct {
	DayOfMonth int
	Hour       int
}

func (m MonthlyAt) Next(after time.Time) time.Time {
	u := after.UTC()
	next := time.Date(u.Year(), u.Month(), m.DayOfMonth, m.Hour, 0, 0, 0, time.UTC)
	if !next.After(u) {
		next = time.Date(u.Year(), u.Month()+1, m.DayOfMonth, m.Hour, 0, 0, 0, time.UTC)
	}
	return next
}
