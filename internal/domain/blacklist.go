package domain

import "time"

// BlacklistEvent records one open or closed listing of an IP on an RBL
// zone. At most one open event (DelistedAt == nil) exists per (IPRef,
// BlacklistName) pair.
type BlacklistEvent struct {
	ID                     string     `json:"id" db:"id"`
	TenantRef              string     `json:"tenant_ref" db:"tenant_ref"`
	IPRef                  string     `json:"ip_ref" db:"ip_ref"`
	BlacklistName          string     `json:"blacklist_name" db:"blacklist_name"`
	ListedAt               time.Time  `json:"listed_at" db:"listed_at"`
	DelistedAt             *time.Time `json:"delisted_at,omitempty" db:"delisted_at"`
	AutoRecovered          bool       `json:"auto_recovered" db:"auto_recovered"`
	StandbyIPActivatedRef  *string    `json:"standby_ip_activated_ref,omitempty" db:"standby_ip_activated_ref"`
}

// Open reports whether this event has not yet been delisted.
func (e BlacklistEvent) Open() bool {
	return e.DelistedAt == nil
}
