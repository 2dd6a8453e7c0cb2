package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// GovernanceService gates who may publish traceability events against a
// manufacturer's products. Enforcement fails closed: a multi product
// submission is never partially accepted.
type GovernanceService interface {
	IsSupplierAllowed(supplierDID, manufacturerDID string, trustedSupplierDIDs []string) bool
	Enforce(ctx context.Context, supplierDID string, refs []domain.ProductReference) error
}
