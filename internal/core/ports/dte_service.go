package ports

import (
	"context"
	"time"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// SubmitDteRequest is an externally authored traceability event credential
// submission.
type SubmitDteRequest struct {
	SupplierDID       string
	EventID           string
	EventType         string
	EventTime         time.Time
	Products          []domain.ProductReference
	CredentialSubject map[string]any
	Expiration        *time.Time
}

// SubmitDteResult returns the issued credential and where it was stored
type SubmitDteResult struct {
	JWT string `json:"jwt"`
	CID string `json:"cid"`
}

// DteService accepts traceability event submissions: governance first, then
// issuance, blob storage and discovery indexing.
type DteService interface {
	Submit(ctx context.Context, req *SubmitDteRequest) (*SubmitDteResult, error)
}
