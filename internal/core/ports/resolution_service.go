package ports

import (
	"context"
	"math/big"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// ResolutionService maps product identifiers to on ledger token identities
// and maintains the discovery index.
type ResolutionService interface {
	// LookupTokenID queries the ledger's subject identifier index with the
	// SHA-256 hash of the canonical id. Nil without error means no token.
	LookupTokenID(ctx context.Context, canonicalSubjectID string) (*big.Int, error)
	// ResolveManufacturer walks canonical id -> token -> issuer account ->
	// registry DID. Returns a NotFound kind error when any link is missing.
	ResolveManufacturer(ctx context.Context, productID string) (string, error)
	// DeriveLookupAliases returns the alternate spellings of a product id
	// that upstream systems may have indexed it under.
	DeriveLookupAliases(productID string) []string
	UpsertMany(ctx context.Context, records []domain.DteIndexRecord) error
	ListByProductID(ctx context.Context, productID string, limit int) ([]domain.DteIndexRecord, error)
}
