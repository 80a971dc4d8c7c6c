// Package node implements the outbound MTA node client (C1): config-file
// block/pattern-list surgery over a secure remote channel, plus liveness,
// running-state, queue-depth, and graceful-reload checks over the node's
// management HTTP API.
//
// Mutations that accept externally sourced strings (sender emails, vmta
// names) are never interpolated into a shell command line: they travel to
// the remote host as file content over the channel, and the only commands
// ever run are fixed strings (cat, mv, true, pgrep, pmta reload) whose only
// interpolated parts are the operator-configured config file paths.
package node
