package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
	"github.com/fides-dpp/trust-engine/internal/kms"
	"github.com/fides-dpp/trust-engine/internal/log"
	client "github.com/fides-dpp/trust-engine/pkg/http"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

const pgUniqueViolation = "23505"

// IdentityConfig tunes the hosted document resolver
type IdentityConfig struct {
	// ResolverTimeout bounds one hosted document fetch
	ResolverTimeout time.Duration
	// ResolverScheme is https in production. Tests override it.
	ResolverScheme string
}

type identity struct {
	keyStore   *kms.KMS
	repo       ports.IdentityRepository
	storage    *db.Storage
	httpClient *client.Client
	publisher  pubsub.Publisher
	cfg        IdentityConfig
}

// NewIdentity creates the issuer trust registry service
func NewIdentity(keyStore *kms.KMS, repo ports.IdentityRepository, storage *db.Storage, httpClient *client.Client, publisher pubsub.Publisher, cfg IdentityConfig) ports.IdentityService {
	if cfg.ResolverScheme == "" {
		cfg.ResolverScheme = "https"
	}
	if cfg.ResolverTimeout == 0 {
		cfg.ResolverTimeout = 10 * time.Second
	}
	return &identity{
		keyStore:   keyStore,
		repo:       repo,
		storage:    storage,
		httpClient: httpClient,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// Register derives the did:web identifier for the domain, generates an
// ed25519 key pair in the key store and persists the PENDING identity.
// Registering an already known domain returns the existing identity untouched.
func (i *identity) Register(ctx context.Context, domainName, organizationName string) (*domain.IssuerIdentity, error) {
	did, err := domain.DIDFromDomain(domainName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	existing, err := i.repo.GetByDID(ctx, i.storage.Pgx, did)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading issuer %s: %w", did, err)
	}

	keyID, err := i.keyStore.CreateKey(ctx, kms.KeyTypeEd25519, did)
	if err != nil {
		return nil, fmt.Errorf("creating signing key for %s: %w", did, err)
	}
	publicKey, err := i.keyStore.PublicKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("reading public key for %s: %w", did, err)
	}

	issuer := &domain.IssuerIdentity{
		DID:       did,
		KeyID:     keyID.String(),
		PublicKey: publicKey,
		Status:    domain.IssuerStatusPending,
		Metadata: domain.IssuerMetadata{
			Domain:              domainName,
			OrganizationName:    organizationName,
			RegisteredAt:        time.Now().UTC(),
			TrustedSupplierDIDs: []string{},
			AuthorizedAccounts:  []domain.AuthorizedAccount{},
		},
	}
	if err := i.repo.Save(ctx, i.storage.Pgx, issuer); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// lost a registration race, the winner's entry is the identity
			return i.Get(ctx, did)
		}
		return nil, fmt.Errorf("saving issuer %s: %w", did, err)
	}

	log.Info(ctx, "issuer registered", "did", did, "domain", domainName)
	return i.Get(ctx, did)
}

// Verify fetches the hosted DID document and compares its verification key
// against the registered public key. Any fetch or content problem is
// recorded as a FAILED attempt with the reason, it never propagates.
func (i *identity) Verify(ctx context.Context, did string) (ports.VerifyResult, error) {
	issuer, err := i.repo.GetByDID(ctx, i.storage.Pgx, did)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.VerifyResult{Status: domain.IssuerStatusUnknown}, ErrIssuerNotFound
		}
		return ports.VerifyResult{}, fmt.Errorf("loading issuer %s: %w", did, err)
	}

	docURL, err := domain.WellKnownDocumentURL(did, i.cfg.ResolverScheme)
	if err != nil {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("deriving document location: %v", err))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, i.cfg.ResolverTimeout)
	defer cancel()
	body, contentType, err := i.httpClient.GetDocument(fetchCtx, docURL)
	if err != nil {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("fetching %s: %v", docURL, err))
	}
	if !validDocumentContentType(contentType) {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("unexpected content type %q for %s", contentType, docURL))
	}

	var doc domain.DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("parsing document at %s: %v", docURL, err))
	}
	if doc.ID != did {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("document id %q does not match %s", doc.ID, did))
	}
	hostedKey, err := doc.VerificationKey()
	if err != nil {
		return i.recordFailure(ctx, issuer, fmt.Sprintf("extracting verification key: %v", err))
	}
	if !bytes.Equal(hostedKey, issuer.PublicKey) {
		return i.recordFailure(ctx, issuer, "hosted verification key does not match the registered key")
	}

	now := time.Now().UTC()
	issuer.Status = domain.IssuerStatusVerified
	issuer.LastError = nil
	issuer.LastAttemptAt = &now
	if err := i.repo.UpdateVerification(ctx, i.storage.Pgx, issuer); err != nil {
		return ports.VerifyResult{}, fmt.Errorf("storing verification outcome for %s: %w", did, err)
	}

	i.notifyVerified(ctx, issuer)
	log.Info(ctx, "issuer verified", "did", did)
	return ports.VerifyResult{Success: true, Status: domain.IssuerStatusVerified}, nil
}

func (i *identity) recordFailure(ctx context.Context, issuer *domain.IssuerIdentity, reason string) (ports.VerifyResult, error) {
	now := time.Now().UTC()
	issuer.Status = domain.IssuerStatusFailed
	issuer.LastError = &reason
	issuer.LastAttemptAt = &now
	if err := i.repo.UpdateVerification(ctx, i.storage.Pgx, issuer); err != nil {
		return ports.VerifyResult{}, fmt.Errorf("storing verification outcome for %s: %w", issuer.DID, err)
	}
	i.notifyVerified(ctx, issuer)
	log.Warn(ctx, "issuer verification failed", "did", issuer.DID, "reason", reason)
	return ports.VerifyResult{Success: false, Status: domain.IssuerStatusFailed, Error: reason}, nil
}

func (i *identity) notifyVerified(ctx context.Context, issuer *domain.IssuerIdentity) {
	if i.publisher == nil {
		return
	}
	ev := pubsub.IssuerVerifiedEvent{IssuerDID: issuer.DID, Status: string(issuer.Status)}
	if err := i.publisher.Publish(ctx, pubsub.EventIssuerVerified, &ev); err != nil {
		log.Error(ctx, "publishing issuer verified event", err, "did", issuer.DID)
	}
}

func validDocumentContentType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return mediaType == domain.DIDDocumentMediaType || mediaType == "application/json"
}

// Get returns the identity or ErrIssuerNotFound
func (i *identity) Get(ctx context.Context, did string) (*domain.IssuerIdentity, error) {
	issuer, err := i.repo.GetByDID(ctx, i.storage.Pgx, did)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrIssuerNotFound, did)
		}
		return nil, fmt.Errorf("loading issuer %s: %w", did, err)
	}
	return issuer, nil
}

// AddAuthorizedAccount links a ledger account to the issuer with set
// semantics. Addresses are stored lowercase so lookups are case insensitive.
func (i *identity) AddAuthorizedAccount(ctx context.Context, did string, account domain.AuthorizedAccount) error {
	if account.Address == "" || account.Network == "" {
		return fmt.Errorf("%w: account address and network are required", ErrMalformedInput)
	}
	if _, err := i.Get(ctx, did); err != nil {
		return err
	}
	return i.repo.AddAuthorizedAccount(ctx, i.storage.Pgx, did, normalizeAccount(account))
}

// IsAccountAuthorized tells whether the account is linked to the issuer
func (i *identity) IsAccountAuthorized(ctx context.Context, did string, account domain.AuthorizedAccount) (bool, error) {
	issuer, err := i.Get(ctx, did)
	if err != nil {
		return false, err
	}
	return issuer.HasAuthorizedAccount(account), nil
}

// FindByAuthorizedAccount reverse looks up the issuer controlling an account
func (i *identity) FindByAuthorizedAccount(ctx context.Context, account domain.AuthorizedAccount) (*domain.IssuerIdentity, error) {
	issuer, err := i.repo.GetByAuthorizedAccount(ctx, i.storage.Pgx, normalizeAccount(account))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no issuer controls account %s on %s", ErrIssuerNotFound, account.Address, account.Network)
		}
		return nil, fmt.Errorf("looking up issuer by account: %w", err)
	}
	return issuer, nil
}

// UpdateMetadata shallow merges the patch into the stored metadata
func (i *identity) UpdateMetadata(ctx context.Context, did string, patch domain.IssuerMetadataPatch) error {
	if _, err := i.Get(ctx, did); err != nil {
		return err
	}
	return i.repo.MergeMetadata(ctx, i.storage.Pgx, did, patch)
}

// AddTrustedSupplier appends the supplier DID to the issuer's allowlist
func (i *identity) AddTrustedSupplier(ctx context.Context, did, supplierDID string) error {
	if !strings.HasPrefix(supplierDID, "did:") {
		return fmt.Errorf("%w: %q is not a DID", ErrMalformedInput, supplierDID)
	}
	if _, err := i.Get(ctx, did); err != nil {
		return err
	}
	return i.repo.AddTrustedSupplier(ctx, i.storage.Pgx, did, supplierDID)
}

// GenerateDidDocument projects the identity into its hosted DID document
func (i *identity) GenerateDidDocument(issuer *domain.IssuerIdentity) (*domain.DIDDocument, error) {
	return domain.BuildDIDDocument(issuer.DID, issuer.PublicKey)
}

// GenerateAuthorizedAccountsDocument projects the identity into the hosted
// authorized accounts document.
func (i *identity) GenerateAuthorizedAccountsDocument(issuer *domain.IssuerIdentity) *domain.AuthorizedAccountsDocument {
	accounts := issuer.Metadata.AuthorizedAccounts
	if accounts == nil {
		accounts = []domain.AuthorizedAccount{}
	}
	return &domain.AuthorizedAccountsDocument{
		DID:       issuer.DID,
		UpdatedAt: issuer.ModifiedAt.UTC(),
		Accounts:  accounts,
		Policy:    domain.AccountsPolicyAllowed,
	}
}

func normalizeAccount(account domain.AuthorizedAccount) domain.AuthorizedAccount {
	account.Address = strings.ToLower(account.Address)
	return account
}
