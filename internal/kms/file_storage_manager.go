package kms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const keysFileName = "kms_keys.json"

// KeyMaterial is what a storage manager persists per key. The private key
// arrives already sealed.
type KeyMaterial struct {
	KeyType          string `json:"keyType"`
	Owner            string `json:"owner"`
	PublicKey        string `json:"publicKey"`
	SealedPrivateKey string `json:"sealedPrivateKey"`
}

// StorageManager persists key material for local providers
type StorageManager interface {
	SaveKeyMaterial(ctx context.Context, id string, material KeyMaterial) error
	Get(ctx context.Context, id string) (KeyMaterial, error)
}

// fileStorageManager keeps all key material in one JSON file. Suitable for a
// single instance deployment only; multi instance deployments must use the
// vault provider.
type fileStorageManager struct {
	path string
	mu   sync.Mutex
}

// NewFileStorageManager returns a file backed storage manager rooted at dir
func NewFileStorageManager(dir string) (StorageManager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key storage dir: %w", err)
	}
	return &fileStorageManager{path: filepath.Join(dir, keysFileName)}, nil
}

func (m *fileStorageManager) SaveKeyMaterial(_ context.Context, id string, material KeyMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.load()
	if err != nil {
		return err
	}
	keys[id] = material
	return m.store(keys)
}

func (m *fileStorageManager) Get(_ context.Context, id string) (KeyMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.load()
	if err != nil {
		return KeyMaterial{}, err
	}
	material, ok := keys[id]
	if !ok {
		return KeyMaterial{}, ErrKeyNotFound
	}
	return material, nil
}

func (m *fileStorageManager) load() (map[string]KeyMaterial, error) {
	content, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]KeyMaterial{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	keys := map[string]KeyMaterial{}
	if err := json.Unmarshal(content, &keys); err != nil {
		return nil, fmt.Errorf("parsing key file: %w", err)
	}
	return keys, nil
}

func (m *fileStorageManager) store(keys map[string]KeyMaterial) error {
	content, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, content, 0o600)
}
