// Package campaignmgr implements the campaign-manager adapter (C2): direct
// SQL CRUD over delivery-server records in the campaign manager's
// relational store, option key read/write, and customer<->server
// assignment, with connection pooling, host-failover, and a circuit
// breaker around every query on the live connection.
//
// Every operation degrades to a failure result rather than panicking: if
// both the configured host and its failover fail to connect, the adapter
// enters a permanent no-op state and every method returns
// apperr.ServiceUnavailable. The rest of the system must keep running when
// this collaborator is down (§4.2).
package campaignmgr
