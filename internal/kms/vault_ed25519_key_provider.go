package kms

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/mr-tron/base58"
)

// vaultEd25519KeyProvider keeps ed25519 keys in a vault KV v2 secrets
// engine. Vault is the encryption-at-rest boundary.
type vaultEd25519KeyProvider struct {
	keyType KeyType
	client  *vault.Client
	mount   string
}

// NewVaultClient opens a vault client for the given address and token
func NewVaultClient(address, token string) (*vault.Client, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = address
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(token)
	return client, nil
}

// NewVaultEd25519KeyProvider returns a vault backed ed25519 provider
func NewVaultEd25519KeyProvider(client *vault.Client, mount string) KeyProvider {
	return &vaultEd25519KeyProvider{
		keyType: KeyTypeEd25519,
		client:  client,
		mount:   mount,
	}
}

func (p *vaultEd25519KeyProvider) New(ctx context.Context, owner string) (KeyID, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyID{}, fmt.Errorf("generating ed25519 key: %w", err)
	}

	keyID := KeyID{Type: p.keyType, ID: base58.Encode(pub)}
	_, err = p.client.KVv2(p.mount).Put(ctx, p.secretPath(keyID), map[string]interface{}{
		"keyType":    string(p.keyType),
		"owner":      owner,
		"publicKey":  base64.StdEncoding.EncodeToString(pub),
		"privateKey": base64.StdEncoding.EncodeToString(priv),
	})
	if err != nil {
		return KeyID{}, fmt.Errorf("storing key in vault: %w", err)
	}
	return keyID, nil
}

func (p *vaultEd25519KeyProvider) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	secret, err := p.read(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return decodeField(secret, "publicKey")
}

func (p *vaultEd25519KeyProvider) Sign(ctx context.Context, keyID KeyID, data []byte) ([]byte, error) {
	secret, err := p.read(ctx, keyID)
	if err != nil {
		return nil, err
	}
	priv, err := decodeField(secret, "privateKey")
	if err != nil {
		return nil, err
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("stored key has wrong size %d", len(priv))
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), data), nil
}

func (p *vaultEd25519KeyProvider) read(ctx context.Context, keyID KeyID) (*vault.KVSecret, error) {
	secret, err := p.client.KVv2(p.mount).Get(ctx, p.secretPath(keyID))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("reading key from vault: %w", err)
	}
	return secret, nil
}

func (p *vaultEd25519KeyProvider) secretPath(keyID KeyID) string {
	return "keys/" + keyID.ID
}

func decodeField(secret *vault.KVSecret, field string) ([]byte, error) {
	raw, ok := secret.Data[field].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret is missing %s", field)
	}
	return base64.StdEncoding.DecodeString(raw)
}
