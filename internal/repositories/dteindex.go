package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
)

type dteIndex struct{}

// NewDteIndex creates the discovery index repository
func NewDteIndex() ports.DteIndexRepository {
	return &dteIndex{}
}

// UpsertMany indexes the records in one transaction. ON CONFLICT DO NOTHING
// on the uniqueness key makes re-indexing the same credential idempotent.
func (d *dteIndex) UpsertMany(ctx context.Context, conn db.Querier, records []domain.DteIndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	return conn.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, r := range records {
			_, err := tx.Exec(ctx,
				`INSERT INTO dte_index (product_id, role, event_id, event_type, event_time, dte_cid, issuer_did)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT ON CONSTRAINT dte_index_unique DO NOTHING`,
				r.ProductID, r.Role, r.EventID, r.EventType, r.EventTime, r.DteCID, r.IssuerDID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByProductIDs returns the newest records for any of the product id spellings
func (d *dteIndex) ListByProductIDs(ctx context.Context, conn db.Querier, productIDs []string, limit int) ([]domain.DteIndexRecord, error) {
	rows, err := conn.Query(ctx,
		`SELECT product_id, role, event_id, event_type, event_time, dte_cid, issuer_did
		   FROM dte_index
		  WHERE product_id = ANY($1)
		  ORDER BY event_time DESC NULLS LAST, id DESC
		  LIMIT $2`, productIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DteIndexRecord, 0)
	for rows.Next() {
		var r domain.DteIndexRecord
		if err := rows.Scan(&r.ProductID, &r.Role, &r.EventID, &r.EventType, &r.EventTime, &r.DteCID, &r.IssuerDID); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
