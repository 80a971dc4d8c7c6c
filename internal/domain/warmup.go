package domain

import "time"

// WarmupPlan tracks one IP's progress through the 70-day warmup schedule.
// Exactly one plan exists per warming IP; it is created on WARMING-entry
// and destroyed on completion or IP deletion.
type WarmupPlan struct {
	ID                string     `json:"id" db:"id"`
	TenantRef         string     `json:"tenant_ref" db:"tenant_ref"`
	IPRef             string     `json:"ip_ref" db:"ip_ref"`
	Phase             string     `json:"phase" db:"phase"` // "day_N", "completed", "emergency_stop"
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	CurrentDailyQuota int        `json:"current_daily_quota" db:"current_daily_quota"`
	TargetDailyQuota  int        `json:"target_daily_quota" db:"target_daily_quota"`
	BounceRate7d      float64    `json:"bounce_rate_7d" db:"bounce_rate_7d"`
	SpamRate7d        float64    `json:"spam_rate_7d" db:"spam_rate_7d"`
	Paused            bool       `json:"paused" db:"paused"`
	PauseUntil        *time.Time `json:"pause_until,omitempty" db:"pause_until"`
}

// WarmupDailyStat is one day's aggregated send/engagement counters for a
// warmup plan. Unique on (PlanRef, Date); append-once per day, upsert
// permitted by the consolidator.
type WarmupDailyStat struct {
	PlanRef    string    `json:"plan_ref" db:"plan_ref"`
	Date       time.Time `json:"date" db:"date"`
	Sent       int64     `json:"sent" db:"sent"`
	Delivered  int64     `json:"delivered" db:"delivered"`
	Bounced    int64     `json:"bounced" db:"bounced"`
	Complaints int64     `json:"complaints" db:"complaints"`
	Opens      int64     `json:"opens" db:"opens"`
	Clicks     int64     `json:"clicks" db:"clicks"`
}

// BounceRate returns bounced/sent, or 0 if Sent is 0.
func (s WarmupDailyStat) BounceRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Bounced) / float64(s.Sent)
}

// SpamRate returns complaints/sent, or 0 if Sent is 0.
func (s WarmupDailyStat) SpamRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Complaints) / float64(s.Sent)
}

const (
	PhaseCompleted      = "completed"
	PhaseEmergencyStop  = "emergency_stop"
)
