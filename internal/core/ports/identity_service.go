package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// VerifyResult is the outcome of a hosted DID document verification
type VerifyResult struct {
	Success bool                `json:"success"`
	Status  domain.IssuerStatus `json:"status"`
	Error   string              `json:"error,omitempty"`
}

// IdentityService manages the issuer trust registry
type IdentityService interface {
	// Register creates the registry entry for a domain. Idempotent: an
	// existing identity for the derived DID is returned untouched.
	Register(ctx context.Context, domainName, organizationName string) (*domain.IssuerIdentity, error)
	// Verify fetches the hosted DID document and compares its key material
	// against the stored public key. Network failures become a FAILED
	// status, never a propagated crash.
	Verify(ctx context.Context, did string) (VerifyResult, error)
	Get(ctx context.Context, did string) (*domain.IssuerIdentity, error)
	AddAuthorizedAccount(ctx context.Context, did string, account domain.AuthorizedAccount) error
	IsAccountAuthorized(ctx context.Context, did string, account domain.AuthorizedAccount) (bool, error)
	FindByAuthorizedAccount(ctx context.Context, account domain.AuthorizedAccount) (*domain.IssuerIdentity, error)
	UpdateMetadata(ctx context.Context, did string, patch domain.IssuerMetadataPatch) error
	AddTrustedSupplier(ctx context.Context, did, supplierDID string) error
	// GenerateDidDocument and GenerateAuthorizedAccountsDocument are pure
	// projections of stored state. They never perform I/O.
	GenerateDidDocument(identity *domain.IssuerIdentity) (*domain.DIDDocument, error)
	GenerateAuthorizedAccountsDocument(identity *domain.IssuerIdentity) *domain.AuthorizedAccountsDocument
}
