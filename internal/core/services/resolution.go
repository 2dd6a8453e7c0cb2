package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
	"github.com/fides-dpp/trust-engine/internal/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type resolution struct {
	// ledger may be nil when no contract is configured; ledger backed
	// lookups then fail with ErrConfigurationMissing.
	ledger   ports.TokenLedger
	identity ports.IdentityService
	repo     ports.DteIndexRepository
	storage  *db.Storage
}

// NewResolution creates the product resolution and discovery index service
func NewResolution(ledger ports.TokenLedger, identity ports.IdentityService, repo ports.DteIndexRepository, storage *db.Storage) ports.ResolutionService {
	return &resolution{
		ledger:   ledger,
		identity: identity,
		repo:     repo,
		storage:  storage,
	}
}

// LookupTokenID resolves a canonical subject id to its passport token via
// the ledger's hash index. Nil without error means no token is registered.
func (r *resolution) LookupTokenID(ctx context.Context, canonicalSubjectID string) (*big.Int, error) {
	if r.ledger == nil {
		return nil, fmt.Errorf("%w: token ledger", ErrConfigurationMissing)
	}
	if canonicalSubjectID == "" {
		return nil, fmt.Errorf("%w: empty subject id", ErrMalformedInput)
	}
	tokenID, err := r.ledger.FindTokenBySubjectHash(ctx, domain.SubjectIDHash(canonicalSubjectID))
	if err != nil {
		return nil, fmt.Errorf("%w: querying token ledger: %v", ErrStorageUnavailable, err)
	}
	return tokenID, nil
}

// ResolveManufacturer walks product id -> token -> issuing account ->
// registry DID. Product level resolution uses the class granularity, which
// is the id as given.
func (r *resolution) ResolveManufacturer(ctx context.Context, productID string) (string, error) {
	canonical, err := domain.CanonicalSubjectID(productID, domain.GranularityProductClass, "", "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	tokenID, err := r.LookupTokenID(ctx, canonical)
	if err != nil {
		return "", err
	}
	if tokenID == nil {
		return "", fmt.Errorf("%w: no passport for product %s", ErrTokenNotFound, productID)
	}
	account, err := r.ledger.PassportIssuer(ctx, tokenID)
	if err != nil {
		return "", fmt.Errorf("%w: reading passport issuer: %v", ErrStorageUnavailable, err)
	}
	issuer, err := r.identity.FindByAuthorizedAccount(ctx, domain.AuthorizedAccount{
		Address: account,
		Network: r.ledger.Network(),
	})
	if err != nil {
		return "", err
	}
	log.Debug(ctx, "manufacturer resolved", "product", productID, "token", tokenID.String(), "did", issuer.DID)
	return issuer.DID, nil
}

// DeriveLookupAliases returns the spellings a product id may have been
// indexed under. A namespaced id like "GTIN:0950110153001" is also known by
// its bare value.
func (r *resolution) DeriveLookupAliases(productID string) []string {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil
	}
	aliases := []string{productID}
	if prefix, bare, ok := strings.Cut(productID, ":"); ok && prefix != "" && bare != "" && !strings.Contains(bare, ":") {
		aliases = append(aliases, bare)
	}
	return aliases
}

// UpsertMany indexes discovery records; re-indexing is idempotent
func (r *resolution) UpsertMany(ctx context.Context, records []domain.DteIndexRecord) error {
	return r.repo.UpsertMany(ctx, r.storage.Pgx, records)
}

// ListByProductID returns the newest index records for the product id or any
// of its aliases.
func (r *resolution) ListByProductID(ctx context.Context, productID string, limit int) ([]domain.DteIndexRecord, error) {
	aliases := r.DeriveLookupAliases(productID)
	if len(aliases) == 0 {
		return nil, fmt.Errorf("%w: empty product id", ErrMalformedInput)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return r.repo.ListByProductIDs(ctx, r.storage.Pgx, aliases, limit)
}
