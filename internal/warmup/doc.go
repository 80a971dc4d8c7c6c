// Package warmup implements the warmup engine (C5): the per-IP 70-day
// quota schedule, day-number computation, multi-horizon safety
// evaluation, and the daily/hourly jobs that advance plans and push
// quota into the campaign manager.
package warmup
