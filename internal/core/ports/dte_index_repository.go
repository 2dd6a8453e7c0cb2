package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/db"
)

// DteIndexRepository maintains the discovery index. Upserts are idempotent
// on (productId, dteCid, eventId, role).
type DteIndexRepository interface {
	UpsertMany(ctx context.Context, conn db.Querier, records []domain.DteIndexRecord) error
	ListByProductIDs(ctx context.Context, conn db.Querier, productIDs []string, limit int) ([]domain.DteIndexRecord, error)
}
