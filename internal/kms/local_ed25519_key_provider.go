package kms

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/chacha20poly1305"
)

// localEd25519KeyProvider keeps ed25519 keys in a local storage manager,
// sealed at rest with a passphrase derived cipher.
type localEd25519KeyProvider struct {
	keyType KeyType
	sealKey [32]byte
	storage StorageManager
}

// NewLocalEd25519KeyProvider returns a provider storing sealed ed25519 keys
// through the given storage manager.
func NewLocalEd25519KeyProvider(sealPassword string, storage StorageManager) KeyProvider {
	return &localEd25519KeyProvider{
		keyType: KeyTypeEd25519,
		sealKey: sha256.Sum256([]byte(sealPassword)),
		storage: storage,
	}
}

func (p *localEd25519KeyProvider) New(ctx context.Context, owner string) (KeyID, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyID{}, fmt.Errorf("generating ed25519 key: %w", err)
	}

	sealed, err := p.seal(priv)
	if err != nil {
		return KeyID{}, err
	}

	keyID := KeyID{Type: p.keyType, ID: base58.Encode(pub)}
	material := KeyMaterial{
		KeyType:          string(p.keyType),
		Owner:            owner,
		PublicKey:        base64.StdEncoding.EncodeToString(pub),
		SealedPrivateKey: sealed,
	}
	if err := p.storage.SaveKeyMaterial(ctx, keyID.ID, material); err != nil {
		return KeyID{}, err
	}
	return keyID, nil
}

func (p *localEd25519KeyProvider) PublicKey(ctx context.Context, keyID KeyID) ([]byte, error) {
	material, err := p.storage.Get(ctx, keyID.ID)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(material.PublicKey)
}

func (p *localEd25519KeyProvider) Sign(ctx context.Context, keyID KeyID, data []byte) ([]byte, error) {
	material, err := p.storage.Get(ctx, keyID.ID)
	if err != nil {
		return nil, err
	}
	priv, err := p.unseal(material.SealedPrivateKey)
	if err != nil {
		return nil, err
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("stored key has wrong size %d", len(priv))
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), data), nil
}

func (p *localEd25519KeyProvider) seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(p.sealKey[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (p *localEd25519KeyProvider) unseal(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decoding sealed key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(p.sealKey[:])
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed key too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
