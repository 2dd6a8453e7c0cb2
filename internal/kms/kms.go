// Package kms manages signing key custody behind a provider registry. Keys
// never leave their provider; callers sign through the KMS.
package kms

import (
	"context"
	"errors"
	"fmt"
)

// KeyType is the signing scheme of a managed key
type KeyType string

// KeyTypeEd25519 is the only scheme accepted for VC-JWT issuance: its
// signatures are exactly the detached EdDSA form the JWT header declares.
const KeyTypeEd25519 KeyType = "ED25519"

// Errors
var (
	ErrKeyTypeConflict = errors.New("key type already registered")
	ErrUnknownKeyType  = errors.New("unknown key type")
	ErrKeyNotFound     = errors.New("key not found")
)

// KeyID identifies a key within its provider
type KeyID struct {
	Type KeyType
	ID   string
}

// String returns the flat form stored with an issuer identity
func (k KeyID) String() string {
	return string(k.Type) + "/" + k.ID
}

// ParseKeyID reverses KeyID.String
func ParseKeyID(s string) (KeyID, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return KeyID{Type: KeyType(s[:i]), ID: s[i+1:]}, nil
		}
	}
	return KeyID{}, fmt.Errorf("malformed key id %q", s)
}

// KeyProvider is the custody backend for one key type
type KeyProvider interface {
	// New generates a key for an owner (an issuer DID) and returns its id
	New(ctx context.Context, owner string) (KeyID, error)
	PublicKey(ctx context.Context, keyID KeyID) ([]byte, error)
	Sign(ctx context.Context, keyID KeyID, data []byte) ([]byte, error)
}

// KMS dispatches key operations to registered providers
type KMS struct {
	registries map[KeyType]KeyProvider
}

// NewKMS creates an empty KMS
func NewKMS() *KMS {
	return &KMS{registries: make(map[KeyType]KeyProvider)}
}

// RegisterKeyProvider adds a provider for a key type
func (k *KMS) RegisterKeyProvider(kt KeyType, p KeyProvider) error {
	if _, ok := k.registries[kt]; ok {
		return ErrKeyTypeConflict
	}
	k.registries[kt] = p
	return nil
}

// CreateKey generates a new key of the given type
func (k *KMS) CreateKey(ctx context.Context, kt KeyType, owner string) (KeyID, error) {
	p, ok := k.registries[kt]
	if !ok {
		return KeyID{}, ErrUnknownKeyType
	}
	return p.New(ctx, owner)
}

// PublicKey returns the public part of a managed key
func (k *KMS) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	p, ok := k.registries[keyID.Type]
	if !ok {
		return nil, ErrUnknownKeyType
	}
	return p.PublicKey(ctx, keyID)
}

// Sign signs data with a managed key
func (k *KMS) Sign(ctx context.Context, keyID KeyID, data []byte) ([]byte, error) {
	p, ok := k.registries[keyID.Type]
	if !ok {
		return nil, ErrUnknownKeyType
	}
	return p.Sign(ctx, keyID, data)
}
