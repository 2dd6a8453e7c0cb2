package services

import (
	"context"
	"fmt"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/log"
)

type dte struct {
	governance  ports.GovernanceService
	credentials ports.CredentialService
	resolution  ports.ResolutionService
	blobs       ports.BlobStore
}

// NewDte creates the traceability event submission service
func NewDte(governance ports.GovernanceService, credentials ports.CredentialService, resolution ports.ResolutionService, blobs ports.BlobStore) ports.DteService {
	return &dte{
		governance:  governance,
		credentials: credentials,
		resolution:  resolution,
		blobs:       blobs,
	}
}

// Submit accepts an externally authored traceability event. Governance runs
// before any state changes; after it passes the event is issued as a VC-JWT
// signed by the supplier, stored in the blob store and indexed for
// discovery.
func (d *dte) Submit(ctx context.Context, req *ports.SubmitDteRequest) (*ports.SubmitDteResult, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	if err := d.governance.Enforce(ctx, req.SupplierDID, req.Products); err != nil {
		return nil, err
	}

	jwtStr, err := d.credentials.Issue(ctx, &ports.IssueCredentialRequest{
		IssuerDID:         req.SupplierDID,
		Types:             []string{domain.TypeTraceabilityEvent},
		CredentialSubject: buildEventSubject(req),
		Expiration:        req.Expiration,
		Revocable:         true,
	})
	if err != nil {
		return nil, err
	}

	cid, err := d.blobs.Put(ctx, []byte(jwtStr))
	if err != nil {
		return nil, fmt.Errorf("%w: storing event credential: %v", ErrStorageUnavailable, err)
	}

	eventTime := req.EventTime
	records := make([]domain.DteIndexRecord, 0, len(req.Products))
	for _, ref := range req.Products {
		records = append(records, domain.DteIndexRecord{
			ProductID: ref.ProductID,
			Role:      ref.Role,
			EventID:   req.EventID,
			EventType: req.EventType,
			EventTime: &eventTime,
			DteCID:    cid,
			IssuerDID: req.SupplierDID,
		})
	}
	if err := d.resolution.UpsertMany(ctx, records); err != nil {
		return nil, fmt.Errorf("indexing event %s: %w", req.EventID, err)
	}

	log.Info(ctx, "traceability event accepted", "event", req.EventID, "supplier", req.SupplierDID, "cid", cid, "products", len(records))
	return &ports.SubmitDteResult{JWT: jwtStr, CID: cid}, nil
}

func validateSubmit(req *ports.SubmitDteRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: empty submission", ErrMalformedInput)
	case req.SupplierDID == "":
		return fmt.Errorf("%w: supplier DID is required", ErrMalformedInput)
	case req.EventID == "":
		return fmt.Errorf("%w: event id is required", ErrMalformedInput)
	case len(req.Products) == 0:
		return fmt.Errorf("%w: at least one product reference is required", ErrMalformedInput)
	case req.EventTime.IsZero():
		return fmt.Errorf("%w: event time is required", ErrMalformedInput)
	}
	for _, ref := range req.Products {
		if ref.ProductID == "" {
			return fmt.Errorf("%w: product reference without id", ErrMalformedInput)
		}
	}
	return nil
}

// buildEventSubject merges the submission envelope into the credential
// subject without clobbering caller supplied claims.
func buildEventSubject(req *ports.SubmitDteRequest) map[string]any {
	subject := make(map[string]any, len(req.CredentialSubject)+4)
	for k, v := range req.CredentialSubject {
		subject[k] = v
	}
	if _, ok := subject["eventId"]; !ok {
		subject["eventId"] = req.EventID
	}
	if _, ok := subject["eventType"]; !ok && req.EventType != "" {
		subject["eventType"] = req.EventType
	}
	if _, ok := subject["eventTime"]; !ok {
		subject["eventTime"] = req.EventTime.UTC()
	}
	if _, ok := subject["products"]; !ok {
		subject["products"] = req.Products
	}
	return subject
}
