package domain

import "time"

// EventKind labels the category of an inbound mail event recorded for
// audit/analytics and (when the IP is warming) counted toward the day's
// warmup counters.
type EventKind string

const (
	EventDelivered    EventKind = "delivered"
	EventOpened       EventKind = "opened"
	EventClicked      EventKind = "clicked"
	EventBounced      EventKind = "bounced"
	EventComplained   EventKind = "complained"
	EventUnsubscribed EventKind = "unsubscribed"
	EventDeferred     EventKind = "deferred"
)

// Event is an audit-trail row: every inbound mail event recorded through
// consolidate.Service.RecordEvent leaves one of these so the webhook/API
// layer has something to read back; lifecycle transitions, provisioning
// actions and warmup pause/resume do not write Event rows. Event labels are
// recorded facts, not first-class IP states.
type Event struct {
	ID         string    `json:"id" db:"id"`
	TenantRef  string    `json:"tenant_ref" db:"tenant_ref"`
	IPRef      string    `json:"ip_ref,omitempty" db:"ip_ref"`
	Kind       string    `json:"kind" db:"kind"`
	Recipient  string    `json:"recipient,omitempty" db:"recipient"`
	Detail     string    `json:"detail,omitempty" db:"detail"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
