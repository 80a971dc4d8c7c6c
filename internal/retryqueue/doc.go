// Package retryqueue implements the durable retry queue (C8): an
// append-only JSON-lines file of failed outbound POSTs, drained by
// retrying each survivor and writing the remainder back atomically.
package retryqueue
