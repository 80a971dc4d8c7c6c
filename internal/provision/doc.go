// Package provision implements the provisioner (C6): atomic two-phase
// create/delete combining the node client (C1) and the campaign-manager
// adapter (C2), with rollback on partial failure.
package provision
