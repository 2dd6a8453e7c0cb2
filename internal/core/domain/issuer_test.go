package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDIDFromDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		want    string
		wantErr bool
	}{
		{"plain domain", "example.com", "did:web:example.com", false},
		{"trailing slash", "example.com/", "did:web:example.com", false},
		{"whitespace", "  example.com ", "did:web:example.com", false},
		{"path segments", "example.com/suppliers/acme", "did:web:example.com:suppliers:acme", false},
		{"port is percent encoded", "localhost:8443", "did:web:localhost%3A8443", false},
		{"port with path", "localhost:8443/acme", "did:web:localhost%3A8443:acme", false},
		{"empty", "", "", true},
		{"space in host", "exa mple.com", "", true},
		{"leading dash", "-bad.com", "", true},
		{"empty path segment", "example.com//acme", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DIDFromDomain(tc.domain)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDomain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitDIDWebRoundtrip(t *testing.T) {
	for _, domainName := range []string{"example.com", "example.com/a/b", "localhost:8443", "localhost:8443/acme"} {
		did, err := DIDFromDomain(domainName)
		require.NoError(t, err)
		host, path, err := SplitDIDWeb(did)
		require.NoError(t, err)
		rebuilt := host
		for _, p := range path {
			rebuilt += "/" + p
		}
		assert.Equal(t, domainName, rebuilt)
	}

	_, _, err := SplitDIDWeb("did:key:z6Mk")
	assert.Error(t, err)
}

func TestWellKnownDocumentURL(t *testing.T) {
	url, err := WellKnownDocumentURL("did:web:example.com", "https")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/.well-known/did.json", url)

	url, err = WellKnownDocumentURL("did:web:localhost%3A8443:suppliers:acme", "http")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8443/suppliers/acme/did.json", url)
}

func TestAuthorizedAccountEqual(t *testing.T) {
	a := AuthorizedAccount{Address: "0xABCD", Network: "testnet"}
	assert.True(t, a.Equal(AuthorizedAccount{Address: "0xabcd", Network: "testnet"}))
	assert.False(t, a.Equal(AuthorizedAccount{Address: "0xabcd", Network: "mainnet"}))
	assert.False(t, a.Equal(AuthorizedAccount{Address: "0xabce", Network: "testnet"}))
}

func TestIssuerIdentityMembership(t *testing.T) {
	issuer := IssuerIdentity{
		Metadata: IssuerMetadata{
			TrustedSupplierDIDs: []string{"did:web:a.example.com"},
			AuthorizedAccounts:  []AuthorizedAccount{{Address: "0xabcd", Network: "testnet"}},
		},
	}
	assert.True(t, issuer.TrustsSupplier("did:web:a.example.com"))
	assert.False(t, issuer.TrustsSupplier("did:web:b.example.com"))
	assert.True(t, issuer.HasAuthorizedAccount(AuthorizedAccount{Address: "0xABCD", Network: "testnet"}))
	assert.False(t, issuer.HasAuthorizedAccount(AuthorizedAccount{Address: "0xabcd", Network: "mainnet"}))
}
