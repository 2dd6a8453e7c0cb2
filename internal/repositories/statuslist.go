package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
)

type statusList struct{}

// NewStatusList creates the revocation ledger repository
func NewStatusList() ports.StatusListRepository {
	return &statusList{}
}

// Ensure creates the issuer's status list record if missing
func (s *statusList) Ensure(ctx context.Context, conn db.Querier, issuerDID string) error {
	_, err := conn.Exec(ctx,
		`INSERT INTO status_lists (issuer_did) VALUES ($1) ON CONFLICT (issuer_did) DO NOTHING`,
		issuerDID)
	return err
}

func (s *statusList) GetByIssuer(ctx context.Context, conn db.Querier, issuerDID string) (*domain.StatusListRecord, error) {
	var record domain.StatusListRecord
	row := conn.QueryRow(ctx,
		`SELECT issuer_did, next_index, bits, current_cid, modified_at FROM status_lists WHERE issuer_did = $1`,
		issuerDID)
	var bits []byte
	if err := row.Scan(&record.IssuerDID, &record.NextIndex, &bits, &record.CurrentCID, &record.ModifiedAt); err != nil {
		return nil, err
	}
	record.Bits = bits
	return &record, nil
}

// AllocateIndex advances the counter and returns the previous value. The
// UPDATE ... RETURNING makes the advance atomic: two concurrent issuances
// can never receive the same index.
func (s *statusList) AllocateIndex(ctx context.Context, conn db.Querier, issuerDID string) (uint64, error) {
	row := conn.QueryRow(ctx,
		`UPDATE status_lists SET next_index = next_index + 1, modified_at = now()
		  WHERE issuer_did = $1 RETURNING next_index - 1`, issuerDID)
	var index int64
	if err := row.Scan(&index); err != nil {
		return 0, err
	}
	return uint64(index), nil
}

// SetBit sets the bit under a row lock and returns the resulting bitstring
func (s *statusList) SetBit(ctx context.Context, conn db.Querier, issuerDID string, index uint64) (domain.Bitstring, error) {
	var bits domain.Bitstring
	err := conn.BeginFunc(ctx, func(tx pgx.Tx) error {
		var (
			raw       []byte
			nextIndex int64
		)
		row := tx.QueryRow(ctx,
			`SELECT bits, next_index FROM status_lists WHERE issuer_did = $1 FOR UPDATE`, issuerDID)
		if err := row.Scan(&raw, &nextIndex); err != nil {
			return err
		}
		if index >= uint64(nextIndex) {
			return fmt.Errorf("index %d was never allocated for %s", index, issuerDID)
		}
		bits = domain.Bitstring(raw)
		bits.SetBit(index)
		_, err := tx.Exec(ctx,
			`UPDATE status_lists SET bits = $2, modified_at = now() WHERE issuer_did = $1`,
			issuerDID, []byte(bits))
		return err
	})
	if err != nil {
		return nil, err
	}
	return bits, nil
}

// UpdateCurrentCID moves the published snapshot pointer
func (s *statusList) UpdateCurrentCID(ctx context.Context, conn db.Querier, issuerDID, cid string) error {
	_, err := conn.Exec(ctx,
		`UPDATE status_lists SET current_cid = $2, modified_at = now() WHERE issuer_did = $1`,
		issuerDID, cid)
	return err
}
