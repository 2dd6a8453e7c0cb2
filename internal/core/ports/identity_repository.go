package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/db"
)

// IdentityRepository is the persistence boundary of the issuer trust
// registry. Append operations have set semantics and must be atomic at the
// storage layer: two concurrent adds both survive.
type IdentityRepository interface {
	Save(ctx context.Context, conn db.Querier, identity *domain.IssuerIdentity) error
	GetByDID(ctx context.Context, conn db.Querier, did string) (*domain.IssuerIdentity, error)
	GetByAuthorizedAccount(ctx context.Context, conn db.Querier, account domain.AuthorizedAccount) (*domain.IssuerIdentity, error)
	UpdateVerification(ctx context.Context, conn db.Querier, identity *domain.IssuerIdentity) error
	AddAuthorizedAccount(ctx context.Context, conn db.Querier, did string, account domain.AuthorizedAccount) error
	AddTrustedSupplier(ctx context.Context, conn db.Querier, did string, supplierDID string) error
	MergeMetadata(ctx context.Context, conn db.Querier, did string, patch domain.IssuerMetadataPatch) error
}
