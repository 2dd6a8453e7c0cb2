package ports

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// RevocationService is the revocation ledger. A nil RevocationService
// collaborator means the feature is disabled and revocation checks are
// vacuously "not revoked"; callers must log that degradation.
type RevocationService interface {
	// AllocateIndex returns the next unused bit index for the issuer. The
	// advance is persisted before returning.
	AllocateIndex(ctx context.Context, issuerDID string) (uint64, error)
	// Revoke sets the bit and publishes a new immutable snapshot to the
	// blob store. A set bit is never cleared.
	Revoke(ctx context.Context, issuerDID string, index uint64) error
	IsRevoked(ctx context.Context, issuerDID string, index uint64) (bool, error)
	// CurrentSnapshot returns the issuer's latest published status list
	// credential, raw JSON as stored in the blob store.
	CurrentSnapshot(ctx context.Context, issuerDID string) ([]byte, error)
	// StatusEntry builds the credentialStatus claim for a freshly
	// allocated index.
	StatusEntry(issuerDID string, index uint64) *domain.CredentialStatus
}
