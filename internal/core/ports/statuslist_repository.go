package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/db"
)

// StatusListRepository persists the per issuer revocation state. AllocateIndex
// must be atomic at the storage layer so no index is ever handed out twice.
type StatusListRepository interface {
	// Ensure creates the issuer's record if it does not exist yet
	Ensure(ctx context.Context, conn db.Querier, issuerDID string) error
	GetByIssuer(ctx context.Context, conn db.Querier, issuerDID string) (*domain.StatusListRecord, error)
	AllocateIndex(ctx context.Context, conn db.Querier, issuerDID string) (uint64, error)
	// SetBit sets the bit under a row lock and returns the resulting bitstring
	SetBit(ctx context.Context, conn db.Querier, issuerDID string, index uint64) (domain.Bitstring, error)
	UpdateCurrentCID(ctx context.Context, conn db.Querier, issuerDID, cid string) error
}
