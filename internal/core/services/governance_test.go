package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

func TestIsSupplierAllowed(t *testing.T) {
	env := newTestEngine(t)

	tests := []struct {
		name         string
		supplier     string
		manufacturer string
		trusted      []string
		want         bool
	}{
		{
			name:         "manufacturer publishing about its own product",
			supplier:     "did:web:manu.example.com",
			manufacturer: "did:web:manu.example.com",
			want:         true,
		},
		{
			name:         "allowlisted supplier",
			supplier:     "did:web:supplier.example.com",
			manufacturer: "did:web:manu.example.com",
			trusted:      []string{"did:web:other.example.com", "did:web:supplier.example.com"},
			want:         true,
		},
		{
			name:         "unknown supplier",
			supplier:     "did:web:supplier.example.com",
			manufacturer: "did:web:manu.example.com",
			trusted:      []string{"did:web:other.example.com"},
			want:         false,
		},
		{
			name:         "empty allowlist",
			supplier:     "did:web:supplier.example.com",
			manufacturer: "did:web:manu.example.com",
			want:         false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := env.governance.IsSupplierAllowed(tc.supplier, tc.manufacturer, tc.trusted)
			assert.Equal(t, tc.want, got)
		})
	}
}

// setupManufacturer registers a verified manufacturer whose ledger account
// minted a class level passport for the product.
func setupManufacturer(t *testing.T, env *testEngine, pathSegment, productID string, tokenID int64) *domain.IssuerIdentity {
	t.Helper()
	ctx := context.Background()

	manufacturer := env.registerVerified(t, pathSegment, "Manufacturer Org")
	account := domain.AuthorizedAccount{Address: "0xMaNu" + pathSegment, Network: env.ledger.Network()}
	require.NoError(t, env.identity.AddAuthorizedAccount(ctx, manufacturer.DID, account))
	env.ledger.registerPassport(productID, tokenID, account.Address)
	return manufacturer
}

func TestEnforceAllowsSelfPublication(t *testing.T) {
	env := newTestEngine(t)
	manufacturer := setupManufacturer(t, env, "manu", "GTIN:0950110153001", 1)

	err := env.governance.Enforce(context.Background(), manufacturer.DID, []domain.ProductReference{
		{ProductID: "GTIN:0950110153001", Role: domain.DteRoleOutput},
	})
	assert.NoError(t, err)
}

func TestEnforceAllowlistGatesExternalSuppliers(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	manufacturer := setupManufacturer(t, env, "manu", "GTIN:0950110153001", 1)
	supplier := env.registerVerified(t, "supplier", "Supplier Org")

	refs := []domain.ProductReference{{ProductID: "GTIN:0950110153001", Role: domain.DteRoleEpc}}

	err := env.governance.Enforce(ctx, supplier.DID, refs)
	var denied *NotAllowlistedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, supplier.DID, denied.SupplierDID)
	assert.Equal(t, manufacturer.DID, denied.ManufacturerDID)
	assert.Equal(t, "GTIN:0950110153001", denied.ProductID)

	// the manufacturer allowlisting the supplier flips the outcome
	require.NoError(t, env.identity.AddTrustedSupplier(ctx, manufacturer.DID, supplier.DID))
	assert.NoError(t, env.governance.Enforce(ctx, supplier.DID, refs))
}

func TestEnforceFailsClosedOnUnresolvableProduct(t *testing.T) {
	env := newTestEngine(t)
	supplier := env.registerVerified(t, "supplier", "Supplier Org")

	err := env.governance.Enforce(context.Background(), supplier.DID, []domain.ProductReference{
		{ProductID: "GTIN:never-minted", Role: domain.DteRoleOutput},
	})
	var unresolved *ProductResolutionError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "GTIN:never-minted", unresolved.ProductID)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEnforceChecksTrustRelevantRolesOnly(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	manufacturer := setupManufacturer(t, env, "manu", "GTIN:owned", 1)

	// the input role references someone else's product, no claim is made
	// about it, so only the output product is checked
	err := env.governance.Enforce(ctx, manufacturer.DID, []domain.ProductReference{
		{ProductID: "GTIN:owned", Role: domain.DteRoleOutput},
		{ProductID: "GTIN:foreign-unminted", Role: domain.DteRoleInput},
	})
	assert.NoError(t, err)

	// with no role information every product counts
	err = env.governance.Enforce(ctx, manufacturer.DID, []domain.ProductReference{
		{ProductID: "GTIN:foreign-unminted", Role: domain.DteRoleInput},
	})
	var unresolved *ProductResolutionError
	assert.ErrorAs(t, err, &unresolved)
}

func TestEnforceNeverPartiallyAccepts(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	manufacturerA := setupManufacturer(t, env, "a", "GTIN:product-a", 1)
	setupManufacturer(t, env, "b", "GTIN:product-b", 2)
	supplier := env.registerVerified(t, "supplier", "Supplier Org")

	require.NoError(t, env.identity.AddTrustedSupplier(ctx, manufacturerA.DID, supplier.DID))

	// allowed for product-a, not for product-b: the whole submission fails
	err := env.governance.Enforce(ctx, supplier.DID, []domain.ProductReference{
		{ProductID: "GTIN:product-a", Role: domain.DteRoleOutput},
		{ProductID: "GTIN:product-b", Role: domain.DteRoleOutput},
	})
	var denied *NotAllowlistedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "GTIN:product-b", denied.ProductID)
}
