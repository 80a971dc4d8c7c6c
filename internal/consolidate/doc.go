// Package consolidate implements the event consolidator (§4.10): inbound
// delivery/bounce/open/click/complaint events are recorded as audit rows
// and, while the owning IP is WARMING, tallied into a Redis-backed
// per-IP-per-day counter hash. A daily job folds yesterday's counters into
// a durable WarmupDailyStat row and evicts the counter key, so the counter
// cache never grows past a day's worth of in-flight data per IP.
package consolidate
