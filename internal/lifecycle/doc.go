// Package lifecycle implements the IP lifecycle manager (C4): the
// authoritative status state machine, blacklist response (standby
// activation), quarantine release, and monthly rotation.
//
// The service layer contains pure transition logic and depends on the
// Repository interface; it never imports database/sql or net/http
// directly, following the suppression service's layering.
package lifecycle
