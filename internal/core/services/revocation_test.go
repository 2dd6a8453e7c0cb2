package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

func TestAllocateIndexIsMonotonicPerIssuer(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	for want := uint64(0); want < 5; want++ {
		got, err := env.revocation.AllocateIndex(ctx, "did:web:a.example.com")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// issuers have independent lists
	got, err := env.revocation.AllocateIndex(ctx, "did:web:b.example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestRevokePublishesSnapshot(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	issuerDID := "did:web:a.example.com"

	for i := 0; i < 3; i++ {
		_, err := env.revocation.AllocateIndex(ctx, issuerDID)
		require.NoError(t, err)
	}
	require.NoError(t, env.revocation.Revoke(ctx, issuerDID, 1))

	events := env.publisher.Published(pubsub.EventCredentialRevoked)
	require.Len(t, events, 1)
	ev := events[0].(*pubsub.CredentialRevokedEvent)
	assert.Equal(t, issuerDID, ev.IssuerDID)
	assert.Equal(t, uint64(1), ev.Index)

	// the snapshot in the blob store carries the bit
	cids := env.blobs.CIDs()
	require.Len(t, cids, 1)
	payload, err := env.blobs.Get(ctx, cids[0])
	require.NoError(t, err)

	var snapshot domain.StatusListCredential
	require.NoError(t, json.Unmarshal(payload, &snapshot))
	assert.Contains(t, snapshot.Type, domain.TypeStatusListCredential)
	assert.Equal(t, issuerDID, snapshot.Issuer)
	assert.Equal(t, domain.StatusPurposeRevocation, snapshot.CredentialSubject.StatusPurpose)

	bits, err := domain.DecodeBitstring(snapshot.CredentialSubject.EncodedList)
	require.NoError(t, err)
	assert.False(t, bits.Bit(0))
	assert.True(t, bits.Bit(1))
	assert.False(t, bits.Bit(2))
}

func TestIsRevokedReflectsRevocations(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	issuerDID := "did:web:a.example.com"

	index, err := env.revocation.AllocateIndex(ctx, issuerDID)
	require.NoError(t, err)

	revoked, err := env.revocation.IsRevoked(ctx, issuerDID, index)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, env.revocation.Revoke(ctx, issuerDID, index))

	// the cached copy was evicted on revoke, so the answer is immediate
	revoked, err = env.revocation.IsRevoked(ctx, issuerDID, index)
	require.NoError(t, err)
	assert.True(t, revoked)

	// revocation is idempotent and permanent
	require.NoError(t, env.revocation.Revoke(ctx, issuerDID, index))
	revoked, err = env.revocation.IsRevoked(ctx, issuerDID, index)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevokeRejectsUnallocatedIndex(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	issuerDID := "did:web:a.example.com"

	_, err := env.revocation.AllocateIndex(ctx, issuerDID)
	require.NoError(t, err)

	assert.Error(t, env.revocation.Revoke(ctx, issuerDID, 7))
}

func TestIsRevokedForUnknownIssuer(t *testing.T) {
	env := newTestEngine(t)

	revoked, err := env.revocation.IsRevoked(context.Background(), "did:web:nobody.example.com", 0)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCurrentSnapshot(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	issuerDID := "did:web:a.example.com"

	_, err := env.revocation.CurrentSnapshot(ctx, issuerDID)
	assert.ErrorIs(t, err, ErrIssuerNotFound)

	_, err = env.revocation.AllocateIndex(ctx, issuerDID)
	require.NoError(t, err)

	// before any revocation the snapshot is an all clear list
	payload, err := env.revocation.CurrentSnapshot(ctx, issuerDID)
	require.NoError(t, err)
	var snapshot domain.StatusListCredential
	require.NoError(t, json.Unmarshal(payload, &snapshot))
	bits, err := domain.DecodeBitstring(snapshot.CredentialSubject.EncodedList)
	require.NoError(t, err)
	assert.False(t, bits.Bit(0))

	require.NoError(t, env.revocation.Revoke(ctx, issuerDID, 0))
	payload, err = env.revocation.CurrentSnapshot(ctx, issuerDID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &snapshot))
	bits, err = domain.DecodeBitstring(snapshot.CredentialSubject.EncodedList)
	require.NoError(t, err)
	assert.True(t, bits.Bit(0))
}

func TestStatusEntryShape(t *testing.T) {
	env := newTestEngine(t)

	entry := env.revocation.StatusEntry("did:web:a.example.com", 42)
	assert.Equal(t, domain.TypeStatusListEntry, entry.Type)
	assert.Equal(t, domain.StatusPurposeRevocation, entry.StatusPurpose)
	assert.Equal(t, "42", entry.StatusListIndex)
	assert.Contains(t, entry.StatusListCredential, "/v1/credentials/status/")
	assert.Contains(t, entry.ID, "#42")
}
