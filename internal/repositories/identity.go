package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
)

type identity struct{}

// NewIdentity creates the issuer registry repository
func NewIdentity() ports.IdentityRepository {
	return &identity{}
}

// Save creates a new issuer identity
func (i *identity) Save(ctx context.Context, conn db.Querier, identity *domain.IssuerIdentity) error {
	metadata, err := json.Marshal(identity.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling issuer metadata: %w", err)
	}
	_, err = conn.Exec(ctx,
		`INSERT INTO issuers (did, key_id, public_key, status, metadata) VALUES ($1, $2, $3, $4, $5)`,
		identity.DID, identity.KeyID, identity.PublicKey, identity.Status, metadata)
	return err
}

func (i *identity) GetByDID(ctx context.Context, conn db.Querier, did string) (*domain.IssuerIdentity, error) {
	row := conn.QueryRow(ctx,
		`SELECT did, key_id, public_key, status, metadata, last_error, last_attempt_at, created_at, modified_at
		   FROM issuers WHERE did = $1`, did)
	return scanIssuer(row)
}

func (i *identity) GetByAuthorizedAccount(ctx context.Context, conn db.Querier, account domain.AuthorizedAccount) (*domain.IssuerIdentity, error) {
	match, err := json.Marshal([]domain.AuthorizedAccount{account})
	if err != nil {
		return nil, err
	}
	row := conn.QueryRow(ctx,
		`SELECT did, key_id, public_key, status, metadata, last_error, last_attempt_at, created_at, modified_at
		   FROM issuers WHERE metadata -> 'authorizedAccounts' @> $1::jsonb LIMIT 1`, match)
	return scanIssuer(row)
}

// UpdateVerification stores the outcome of a verification attempt
func (i *identity) UpdateVerification(ctx context.Context, conn db.Querier, identity *domain.IssuerIdentity) error {
	_, err := conn.Exec(ctx,
		`UPDATE issuers SET status = $2, last_error = $3, last_attempt_at = $4, modified_at = now() WHERE did = $1`,
		identity.DID, identity.Status, identity.LastError, identity.LastAttemptAt)
	return err
}

// AddAuthorizedAccount appends the account with set semantics. The
// containment guard and the append run in one statement so concurrent adds
// both survive and duplicates never do.
func (i *identity) AddAuthorizedAccount(ctx context.Context, conn db.Querier, did string, account domain.AuthorizedAccount) error {
	entry, err := json.Marshal([]domain.AuthorizedAccount{account})
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`UPDATE issuers
		    SET metadata = jsonb_set(metadata, '{authorizedAccounts}',
		        COALESCE(metadata -> 'authorizedAccounts', '[]'::jsonb) || $2::jsonb),
		        modified_at = now()
		  WHERE did = $1
		    AND NOT COALESCE(metadata -> 'authorizedAccounts', '[]'::jsonb) @> $2::jsonb`,
		did, entry)
	return err
}

// AddTrustedSupplier appends a supplier DID with set semantics, atomically
func (i *identity) AddTrustedSupplier(ctx context.Context, conn db.Querier, did string, supplierDID string) error {
	entry, err := json.Marshal([]string{supplierDID})
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`UPDATE issuers
		    SET metadata = jsonb_set(metadata, '{trustedSupplierDids}',
		        COALESCE(metadata -> 'trustedSupplierDids', '[]'::jsonb) || $2::jsonb),
		        modified_at = now()
		  WHERE did = $1
		    AND NOT COALESCE(metadata -> 'trustedSupplierDids', '[]'::jsonb) @> $2::jsonb`,
		did, entry)
	return err
}

// MergeMetadata shallow merges the provided fields into the stored metadata
// without clobbering unrelated keys.
func (i *identity) MergeMetadata(ctx context.Context, conn db.Querier, did string, patch domain.IssuerMetadataPatch) error {
	fields := map[string]any{}
	if patch.OrganizationName != nil {
		fields["organizationName"] = *patch.OrganizationName
	}
	if patch.TrustedSupplierDIDs != nil {
		fields["trustedSupplierDids"] = *patch.TrustedSupplierDIDs
	}
	if len(fields) == 0 {
		return nil
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx,
		`UPDATE issuers SET metadata = metadata || $2::jsonb, modified_at = now() WHERE did = $1`,
		did, merged)
	return err
}

type row interface {
	Scan(dest ...interface{}) error
}

func scanIssuer(r row) (*domain.IssuerIdentity, error) {
	var (
		issuer   domain.IssuerIdentity
		metadata []byte
	)
	if err := r.Scan(
		&issuer.DID,
		&issuer.KeyID,
		&issuer.PublicKey,
		&issuer.Status,
		&metadata,
		&issuer.LastError,
		&issuer.LastAttemptAt,
		&issuer.CreatedAt,
		&issuer.ModifiedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &issuer.Metadata); err != nil {
		return nil, fmt.Errorf("parsing issuer metadata: %w", err)
	}
	return &issuer, nil
}
