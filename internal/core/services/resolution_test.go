package services

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

func TestLookupTokenID(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.ledger.registerPassport("GTIN:0950110153001", 7, "0xmanu")

	tokenID, err := env.resolution.LookupTokenID(ctx, "GTIN:0950110153001")
	require.NoError(t, err)
	require.NotNil(t, tokenID)
	assert.Equal(t, int64(7), tokenID.Int64())

	// unknown subject id is a nil token, not an error
	tokenID, err = env.resolution.LookupTokenID(ctx, "GTIN:unknown")
	require.NoError(t, err)
	assert.Nil(t, tokenID)

	_, err = env.resolution.LookupTokenID(ctx, "")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestLookupTokenIDAtFinerGranularity(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	canonical, err := domain.CanonicalSubjectID("GTIN:0950110153001", domain.GranularityBatch, "LOT-7", "")
	require.NoError(t, err)
	env.ledger.registerPassport(canonical, 9, "0xmanu")

	tokenID, err := env.resolution.LookupTokenID(ctx, canonical)
	require.NoError(t, err)
	require.NotNil(t, tokenID)
	assert.Equal(t, int64(9), tokenID.Int64())

	// the class level id is a different subject
	tokenID, err = env.resolution.LookupTokenID(ctx, "GTIN:0950110153001")
	require.NoError(t, err)
	assert.Nil(t, tokenID)
}

func TestLookupTokenIDWithoutLedger(t *testing.T) {
	env := newTestEngine(t)
	unwired := NewResolution(nil, env.identity, newFakeDteIndexRepo(), nil)

	_, err := unwired.LookupTokenID(context.Background(), "GTIN:0950110153001")
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestResolveManufacturer(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	manufacturer := setupManufacturer(t, env, "manu", "GTIN:0950110153001", 1)

	did, err := env.resolution.ResolveManufacturer(ctx, "GTIN:0950110153001")
	require.NoError(t, err)
	assert.Equal(t, manufacturer.DID, did)
}

func TestResolveManufacturerMissingLinks(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	// no passport on the ledger
	_, err := env.resolution.ResolveManufacturer(ctx, "GTIN:never-minted")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// passport exists but no registry entry controls the issuing account
	env.ledger.registerPassport("GTIN:orphaned", 2, "0xnobody")
	_, err = env.resolution.ResolveManufacturer(ctx, "GTIN:orphaned")
	assert.ErrorIs(t, err, ErrIssuerNotFound)
}

func TestDeriveLookupAliases(t *testing.T) {
	env := newTestEngine(t)

	tests := []struct {
		productID string
		want      []string
	}{
		{"GTIN:0950110153001", []string{"GTIN:0950110153001", "0950110153001"}},
		{"0950110153001", []string{"0950110153001"}},
		{"  GTIN:0950110153001  ", []string{"GTIN:0950110153001", "0950110153001"}},
		{"urn:epc:id:sgtin", []string{"urn:epc:id:sgtin"}},
		{"", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, env.resolution.DeriveLookupAliases(tc.productID), "product %q", tc.productID)
	}
}

func TestListByProductIDMatchesAliases(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	eventTime := time.Now().UTC()

	require.NoError(t, env.resolution.UpsertMany(ctx, []domain.DteIndexRecord{
		{ProductID: "0950110153001", Role: domain.DteRoleOutput, EventID: "evt-1", EventType: "commissioning", EventTime: &eventTime, DteCID: "cid-1", IssuerDID: "did:web:a"},
		{ProductID: "GTIN:other", Role: domain.DteRoleOutput, EventID: "evt-2", EventTime: &eventTime, DteCID: "cid-2", IssuerDID: "did:web:a"},
	}))

	// a namespaced query also matches records indexed under the bare id
	records, err := env.resolution.ListByProductID(ctx, "GTIN:0950110153001", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "evt-1", records[0].EventID)

	_, err = env.resolution.ListByProductID(ctx, "  ", 10)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestUpsertManyIsIdempotent(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	record := domain.DteIndexRecord{ProductID: "p-1", Role: domain.DteRoleOutput, EventID: "evt-1", DteCID: "cid-1", IssuerDID: "did:web:a"}
	require.NoError(t, env.resolution.UpsertMany(ctx, []domain.DteIndexRecord{record}))
	require.NoError(t, env.resolution.UpsertMany(ctx, []domain.DteIndexRecord{record}))

	records, err := env.resolution.ListByProductID(ctx, "p-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLookupTokenIDUsesSubjectHash(t *testing.T) {
	env := newTestEngine(t)

	// the ledger is keyed by hash, so an id differing in one rune misses
	env.ledger.registerPassport("GTIN:0950110153001", 3, "0xmanu")
	tokenID, err := env.resolution.LookupTokenID(context.Background(), "GTIN:0950110153002")
	require.NoError(t, err)
	assert.Nil(t, tokenID)

	hash := domain.SubjectIDHash("GTIN:0950110153001")
	stored, err := env.ledger.FindTokenBySubjectHash(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), stored)
}
