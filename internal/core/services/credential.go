package services

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/kms"
	"github.com/fides-dpp/trust-engine/internal/log"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

type credential struct {
	keyStore *kms.KMS
	identity ports.IdentityService
	// revocation may be nil; issuance then skips status entries and
	// verification treats every credential as not revoked.
	revocation ports.RevocationService
	publisher  pubsub.Publisher
}

// NewCredential creates the VC-JWT engine
func NewCredential(keyStore *kms.KMS, identity ports.IdentityService, revocation ports.RevocationService, publisher pubsub.Publisher) ports.CredentialService {
	return &credential{
		keyStore:   keyStore,
		identity:   identity,
		revocation: revocation,
		publisher:  publisher,
	}
}

// Issue signs a VC-JWT with the issuer's registered ed25519 key. Only
// verified issuers may issue, and only EdDSA signatures are produced;
// unsupported key material is rejected here rather than at verification time.
func (c *credential) Issue(ctx context.Context, req *ports.IssueCredentialRequest) (string, error) {
	if req.IssuerDID == "" {
		return "", fmt.Errorf("%w: issuer DID is required", ErrMalformedInput)
	}
	issuer, err := c.identity.Get(ctx, req.IssuerDID)
	if err != nil {
		return "", err
	}
	if issuer.Status != domain.IssuerStatusVerified {
		return "", fmt.Errorf("%w: %s has status %s", ErrIssuerNotVerified, issuer.DID, issuer.Status)
	}
	keyID, err := kms.ParseKeyID(issuer.KeyID)
	if err != nil {
		return "", fmt.Errorf("parsing key id for %s: %w", issuer.DID, err)
	}
	if keyID.Type != kms.KeyTypeEd25519 {
		return "", fmt.Errorf("%w: %s cannot sign %s", ErrUnsupportedKeyType, keyID.Type, domain.AlgEdDSA)
	}

	credID := req.CredentialID
	if credID == "" {
		credID = domain.URNUUIDScope + uuid.NewString()
	}
	now := time.Now().UTC()

	vc := domain.W3CCredential{
		Context:           append([]string{domain.ContextCredentials}, req.ExtraContexts...),
		Type:              append([]string{domain.TypeVerifiableCredential}, req.Types...),
		CredentialSubject: req.CredentialSubject,
		CredentialSchema:  req.Schema,
	}
	if req.Revocable {
		if c.revocation == nil {
			log.Warn(ctx, "revocation ledger disabled, issuing without status entry", "issuer", issuer.DID)
		} else {
			index, err := c.revocation.AllocateIndex(ctx, issuer.DID)
			if err != nil {
				return "", fmt.Errorf("allocating revocation index for %s: %w", issuer.DID, err)
			}
			vc.CredentialStatus = c.revocation.StatusEntry(issuer.DID, index)
		}
	}

	claims := domain.VcClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.DID,
			Subject:   req.Subject,
			ID:        credID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		VC: vc,
	}
	if req.Expiration != nil {
		claims.ExpiresAt = jwt.NewNumericDate(req.Expiration.UTC())
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = issuer.DID + "#key-1"
	signingInput, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("building signing input: %w", err)
	}
	signature, err := c.keyStore.Sign(ctx, keyID, []byte(signingInput))
	if err != nil {
		return "", fmt.Errorf("signing credential for %s: %w", issuer.DID, err)
	}
	signed := signingInput + "." + base64.RawURLEncoding.EncodeToString(signature)

	if c.publisher != nil {
		ev := pubsub.CredentialIssuedEvent{CredentialID: credID, IssuerDID: issuer.DID}
		if err := c.publisher.Publish(ctx, pubsub.EventCredentialIssued, &ev); err != nil {
			log.Error(ctx, "publishing credential issued event", err, "credential", credID)
		}
	}
	log.Debug(ctx, "credential issued", "credential", credID, "issuer", issuer.DID)
	return signed, nil
}

// Decode splits and base64 decodes a VC-JWT without any verification
func (c *credential) Decode(token string) (*domain.DecodedCredential, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: a JWT has three dot separated segments", ErrMalformedInput)
	}
	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding header: %v", ErrMalformedInput, err)
	}
	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrMalformedInput, err)
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding signature: %v", ErrMalformedInput, err)
	}

	decoded := &domain.DecodedCredential{
		Signature:    signature,
		SigningInput: parts[0] + "." + parts[1],
	}
	if err := json.Unmarshal(headerRaw, &decoded.Header); err != nil {
		return nil, fmt.Errorf("%w: parsing header: %v", ErrMalformedInput, err)
	}
	if err := json.Unmarshal(payloadRaw, &decoded.Payload); err != nil {
		return nil, fmt.Errorf("%w: parsing payload: %v", ErrMalformedInput, err)
	}
	return decoded, nil
}

// Verify runs the verification pipeline: signature against the registry key,
// issuer trust, temporal window and revocation status. Semantic problems
// accumulate in the result, only unparseable input is a hard error.
func (c *credential) Verify(ctx context.Context, token string, opts ports.VerifyCredentialOptions) (*domain.VerificationResult, error) {
	decoded, err := c.Decode(token)
	if err != nil {
		return nil, err
	}

	result := &domain.VerificationResult{
		Verified: true,
		Issuer:   decoded.Payload.Issuer,
		Payload:  &decoded.Payload,
	}
	if decoded.Payload.IssuedAt != nil {
		t := decoded.Payload.IssuedAt.Time
		result.IssuanceDate = &t
	}
	if decoded.Payload.ExpiresAt != nil {
		t := decoded.Payload.ExpiresAt.Time
		result.ExpirationDate = &t
	}

	if decoded.Header.Alg != domain.AlgEdDSA {
		result.AddError(fmt.Sprintf("unsupported signature algorithm %q", decoded.Header.Alg))
	}
	if decoded.Payload.Issuer == "" {
		result.AddError("credential has no issuer")
		return result, nil
	}

	issuer, err := c.identity.Get(ctx, decoded.Payload.Issuer)
	switch {
	case errors.Is(err, ErrIssuerNotFound):
		result.AddError(fmt.Sprintf("issuer %s is not registered", decoded.Payload.Issuer))
	case err != nil:
		return nil, err
	default:
		if issuer.Status != domain.IssuerStatusVerified {
			result.AddError(fmt.Sprintf("issuer %s is not verified (status %s)", issuer.DID, issuer.Status))
		}
		if decoded.Header.Alg == domain.AlgEdDSA &&
			!ed25519.Verify(issuer.PublicKey, []byte(decoded.SigningInput), decoded.Signature) {
			result.AddError("signature does not verify against the registered issuer key")
		}
	}

	if opts.CheckTemporal {
		now := time.Now()
		if decoded.Payload.NotBefore != nil && now.Before(decoded.Payload.NotBefore.Time) {
			result.AddError("credential is not yet valid")
		}
		if decoded.Payload.ExpiresAt != nil && now.After(decoded.Payload.ExpiresAt.Time) {
			result.AddError("credential has expired")
		}
	}

	if opts.CheckRevocation {
		c.checkRevocation(ctx, decoded, result)
	}
	return result, nil
}

func (c *credential) checkRevocation(ctx context.Context, decoded *domain.DecodedCredential, result *domain.VerificationResult) {
	status := decoded.Payload.VC.CredentialStatus
	if status == nil {
		return
	}
	if status.Type != domain.TypeStatusListEntry || status.StatusPurpose != domain.StatusPurposeRevocation {
		result.AddWarning(fmt.Sprintf("unsupported credential status type %q, revocation not checked", status.Type))
		return
	}
	if c.revocation == nil {
		log.Warn(ctx, "revocation ledger disabled, treating credential as not revoked", "issuer", decoded.Payload.Issuer)
		result.AddWarning("revocation ledger is disabled, status not checked")
		return
	}
	index, err := strconv.ParseUint(status.StatusListIndex, 10, 64)
	if err != nil {
		result.AddError(fmt.Sprintf("invalid status list index %q", status.StatusListIndex))
		return
	}
	revoked, err := c.revocation.IsRevoked(ctx, decoded.Payload.Issuer, index)
	if err != nil {
		result.AddError(fmt.Sprintf("revocation status unavailable: %v", err))
		return
	}
	if revoked {
		result.AddError("credential is revoked")
	}
}
