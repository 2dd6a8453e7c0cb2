package domain

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/multiformats/go-multibase"
)

// DID document constants
const (
	ContextDID            = "https://www.w3.org/ns/did/v1"
	ContextEd25519Suite   = "https://w3id.org/security/suites/ed25519-2020/v1"
	Ed25519KeyType        = "Ed25519VerificationKey2020"
	DIDDocumentMediaType  = "application/did+json"
	AccountsPolicyAllowed = "allowlist"
)

// multicodec prefix for an ed25519 public key
var ed25519Multicodec = []byte{0xed, 0x01}

// VerificationMethod is a DID document key entry
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// DIDDocument is the hosted representation of a did:web identity
type DIDDocument struct {
	Context            []string             `json:"@context"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
	AssertionMethod    []string             `json:"assertionMethod"`
}

// AuthorizedAccountsDocument is published alongside the DID document and is
// consulted by off-chain authorization checks before a ledger transaction
// under the DID is accepted.
type AuthorizedAccountsDocument struct {
	DID       string              `json:"did"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Accounts  []AuthorizedAccount `json:"accounts"`
	Policy    string              `json:"policy"`
}

// EncodeVerificationKey encodes an ed25519 public key in the
// publicKeyMultibase form (base58btc, multicodec prefixed).
func EncodeVerificationKey(publicKey []byte) (string, error) {
	return multibase.Encode(multibase.Base58BTC, append(ed25519Multicodec, publicKey...))
}

// DecodeVerificationKey reverses EncodeVerificationKey
func DecodeVerificationKey(encoded string) ([]byte, error) {
	_, data, err := multibase.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding publicKeyMultibase: %w", err)
	}
	if !bytes.HasPrefix(data, ed25519Multicodec) {
		return nil, errors.New("publicKeyMultibase is not an ed25519 key")
	}
	return data[len(ed25519Multicodec):], nil
}

// BuildDIDDocument projects an issuer identity into its hosted DID document.
// Pure function, performs no I/O.
func BuildDIDDocument(did string, publicKey []byte) (*DIDDocument, error) {
	encoded, err := EncodeVerificationKey(publicKey)
	if err != nil {
		return nil, err
	}
	keyID := did + "#key-1"
	return &DIDDocument{
		Context: []string{ContextDID, ContextEd25519Suite},
		ID:      did,
		VerificationMethod: []VerificationMethod{{
			ID:                 keyID,
			Type:               Ed25519KeyType,
			Controller:         did,
			PublicKeyMultibase: encoded,
		}},
		Authentication:  []string{keyID},
		AssertionMethod: []string{keyID},
	}, nil
}

// VerificationKey extracts the raw public key bytes of the first supported
// verification method in the document.
func (d *DIDDocument) VerificationKey() ([]byte, error) {
	for _, vm := range d.VerificationMethod {
		if vm.Type != Ed25519KeyType || vm.PublicKeyMultibase == "" {
			continue
		}
		return DecodeVerificationKey(vm.PublicKeyMultibase)
	}
	return nil, errors.New("document has no supported verification method")
}
