package ports

import (
	"context"
	"math/big"
)

// BlobStore is the minimal content addressable storage interface the engine
// consumes. Replication and pinning are the store's concern.
type BlobStore interface {
	// Put stores the payload and returns its content address
	Put(ctx context.Context, payload []byte) (cid string, err error)
	Get(ctx context.Context, cid string) ([]byte, error)
}

// TokenLedger reads the passport token contract. Off-chain wallet signature
// verification is the ledger collaborator's concern, not this core's; the
// registry only records which accounts are authorized under a DID.
type TokenLedger interface {
	// FindTokenBySubjectHash resolves the token registered under the
	// subject id hash. Nil without error means no token is registered.
	FindTokenBySubjectHash(ctx context.Context, subjectHash [32]byte) (*big.Int, error)
	// PassportIssuer returns the ledger account that issued the passport
	PassportIssuer(ctx context.Context, tokenID *big.Int) (string, error)
	// Network is the tag authorized accounts on this ledger carry
	Network() string
}
