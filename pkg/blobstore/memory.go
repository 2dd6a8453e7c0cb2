package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Memory is an in process blob store used in tests and single node setups
// without an IPFS daemon. Addresses are the hex SHA-256 of the payload.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in memory blob store
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores the payload under its content hash
func (m *Memory) Put(_ context.Context, payload []byte) (string, error) {
	sum := sha256.Sum256(payload)
	cid := hex.EncodeToString(sum[:])
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[cid] = append([]byte(nil), payload...)
	return cid, nil
}

// CIDs returns the addresses of every stored blob
func (m *Memory) CIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cids := make([]string, 0, len(m.blobs))
	for cid := range m.blobs {
		cids = append(cids, cid)
	}
	return cids
}

// Get returns the payload stored under cid
func (m *Memory) Get(_ context.Context, cid string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.blobs[cid]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", cid)
	}
	return append([]byte(nil), payload...), nil
}
