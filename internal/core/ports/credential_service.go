package ports

import (
	"context"
	"time"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// IssueCredentialRequest carries everything needed to issue a VC-JWT
type IssueCredentialRequest struct {
	IssuerDID         string
	Subject           string
	CredentialSubject map[string]any
	// Types beyond VerifiableCredential, e.g. DigitalTraceabilityEvent
	Types []string
	// ExtraContexts are appended after the base credentials context
	ExtraContexts []string
	// CredentialID overrides the generated urn:uuid id
	CredentialID string
	Expiration   *time.Time
	Schema       *domain.CredentialSchema
	// Revocable allocates a status list index when the revocation ledger
	// is available
	Revocable bool
}

// VerifyCredentialOptions selects the optional verification steps
type VerifyCredentialOptions struct {
	CheckTemporal   bool
	CheckRevocation bool
}

// CredentialService issues and verifies VC-JWTs
type CredentialService interface {
	Issue(ctx context.Context, req *IssueCredentialRequest) (string, error)
	// Decode is format only: no signature or semantic checks
	Decode(token string) (*domain.DecodedCredential, error)
	// Verify never returns a hard error for a semantically invalid
	// credential, only for input that cannot be parsed at all.
	Verify(ctx context.Context, token string, opts VerifyCredentialOptions) (*domain.VerificationResult, error)
}
