package domain

import "time"

// IPStatus is the authoritative lifecycle state of a sending IP.
type IPStatus string

const (
	IPActive      IPStatus = "ACTIVE"
	IPRetiring    IPStatus = "RETIRING"
	IPResting     IPStatus = "RESTING"
	IPWarming     IPStatus = "WARMING"
	IPBlacklisted IPStatus = "BLACKLISTED"
	IPStandby     IPStatus = "STANDBY"
	IPQuarantined IPStatus = "QUARANTINED"
)

// IPPurpose classifies what an IP is used for.
type IPPurpose string

const (
	PurposeTransactional IPPurpose = "transactional"
	PurposeMarketing     IPPurpose = "marketing"
	PurposeCold          IPPurpose = "cold"
	PurposeStandby       IPPurpose = "standby"
)

// IP is one sending IP address, owned and tracked by the control plane.
// At most one IP may exist per SenderEmail, and at most one virtual-MTA
// per IP on its node.
type IP struct {
	ID                string     `json:"id" db:"id"`
	TenantRef         string     `json:"tenant_ref" db:"tenant_ref"`
	Address           string     `json:"address" db:"address"`
	Hostname          string     `json:"hostname" db:"hostname"`
	Purpose           IPPurpose  `json:"purpose" db:"purpose"`
	Status            IPStatus   `json:"status" db:"status"`
	Weight            int        `json:"weight" db:"weight"`
	VMTAName          string     `json:"vmta_name" db:"vmta_name"`
	PoolName          string     `json:"pool_name" db:"pool_name"`
	SenderEmail       string     `json:"sender_email" db:"sender_email"`
	NodeRef           string     `json:"node_ref" db:"node_ref"`
	MailwizzServerRef string     `json:"mailwizz_server_ref" db:"mailwizz_server_ref"`
	QuarantineUntil   *time.Time `json:"quarantine_until,omitempty" db:"quarantine_until"`
	BlacklistedOn     []string   `json:"blacklisted_on" db:"blacklisted_on"`
	StatusChangedAt   time.Time  `json:"status_changed_at" db:"status_changed_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// InQuarantineWindow reports whether the status requires a non-null
// QuarantineUntil per the IP invariant.
func (s IPStatus) InQuarantineWindow() bool {
	return s == IPResting || s == IPQuarantined
}

// WeightValid reports whether the weight falls within its allowed [0,100] range.
func (ip *IP) WeightValid() bool {
	return ip.Weight >= 0 && ip.Weight <= 100
}
