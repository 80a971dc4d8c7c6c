package campaignmgr

import (
	"context"
	"database/sql"
)

// CustomerServers is one customer's ref plus the delivery-server refs
// isolated to it.
type CustomerServers struct {
	CustomerRef string
	ServerRefs  []string
}

// ListCustomersWithServers returns every customer alongside the delivery
// servers assigned to it.
func (a *Adapter) ListCustomersWithServers(ctx context.Context) ([]CustomerServers, error) {
	var out []CustomerServers
	err := a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT customer_id FROM customer ORDER BY customer_id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		var customerIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			customerIDs = append(customerIDs, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range customerIDs {
			srvRows, err := db.QueryContext(ctx,
				`SELECT server_id FROM delivery_server_to_customer WHERE customer_id = $1`, id)
			if err != nil {
				return err
			}
			var refs []string
			for srvRows.Next() {
				var ref string
				if err := srvRows.Scan(&ref); err != nil {
					srvRows.Close()
					return err
				}
				refs = append(refs, ref)
			}
			srvRows.Close()
			if err := srvRows.Err(); err != nil {
				return err
			}
			out = append(out, CustomerServers{CustomerRef: id, ServerRefs: refs})
		}
		return nil
	})
	return out, err
}

// AssignServersToCustomer replaces customerRef's server assignments with
// serverRefs (delete-then-insert semantics, per §4.2).
func (a *Adapter) AssignServersToCustomer(ctx context.Context, customerRef string, serverRefs []string) error {
	return a.withConn(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM delivery_server_to_customer WHERE customer_id = $1`, customerRef); err != nil {
			return err
		}
		for _, ref := range serverRefs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO delivery_server_to_customer (customer_id, server_id) VALUES ($1, $2)`,
				customerRef, ref); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
