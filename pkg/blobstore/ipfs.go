// Package blobstore provides the minimal content addressable put/get
// interface the engine consumes. Pinning policy and replication belong to
// the IPFS node, not to this client.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// IPFS is a blob store backed by the IPFS HTTP API
type IPFS struct {
	sh           *shell.Shell
	fetchTimeout time.Duration
}

// NewIPFS returns an IPFS backed blob store. fetchTimeout bounds Get calls.
func NewIPFS(apiURL string, fetchTimeout time.Duration) *IPFS {
	return &IPFS{
		sh:           shell.NewShell(apiURL),
		fetchTimeout: fetchTimeout,
	}
}

// Put adds and pins the payload, returning its content address
func (s *IPFS) Put(_ context.Context, payload []byte) (string, error) {
	cid, err := s.sh.Add(bytes.NewReader(payload), shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("adding blob to ipfs: %w", err)
	}
	return cid, nil
}

// Get fetches a blob by its content address with a bounded timeout
func (s *IPFS) Get(ctx context.Context, cid string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	rc, err := s.sh.Request("cat", cid).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching blob %s: %w", cid, err)
	}
	defer func() { _ = rc.Close() }()
	if rc.Error != nil {
		return nil, fmt.Errorf("fetching blob %s: %w", cid, rc.Error)
	}
	return io.ReadAll(rc.Output)
}
