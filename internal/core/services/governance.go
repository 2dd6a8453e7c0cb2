package services

import (
	"context"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/log"
)

type governance struct {
	identity   ports.IdentityService
	resolution ports.ResolutionService
}

// NewGovernance creates the cross party allowlist gate
func NewGovernance(identity ports.IdentityService, resolution ports.ResolutionService) ports.GovernanceService {
	return &governance{identity: identity, resolution: resolution}
}

// IsSupplierAllowed is the pure allowlist rule: a manufacturer always trusts
// itself, anyone else must be on the manufacturer's list.
func (g *governance) IsSupplierAllowed(supplierDID, manufacturerDID string, trustedSupplierDIDs []string) bool {
	if supplierDID == manufacturerDID {
		return true
	}
	for _, did := range trustedSupplierDIDs {
		if did == supplierDID {
			return true
		}
	}
	return false
}

// Enforce checks the supplier against the manufacturer of every distinct
// trust relevant product in the submission. Products whose manufacturer
// cannot be resolved fail the whole submission; a multi product event is
// never partially accepted.
func (g *governance) Enforce(ctx context.Context, supplierDID string, refs []domain.ProductReference) error {
	productIDs := distinctProductIDs(refs, true)
	if len(productIDs) == 0 {
		// no role information narrows the check, so every product counts
		productIDs = distinctProductIDs(refs, false)
	}

	for _, productID := range productIDs {
		manufacturerDID, err := g.resolution.ResolveManufacturer(ctx, productID)
		if err != nil {
			return &ProductResolutionError{ProductID: productID, Err: err}
		}
		if supplierDID == manufacturerDID {
			continue
		}
		manufacturer, err := g.identity.Get(ctx, manufacturerDID)
		if err != nil {
			return &ProductResolutionError{ProductID: productID, Err: err}
		}
		if !g.IsSupplierAllowed(supplierDID, manufacturerDID, manufacturer.Metadata.TrustedSupplierDIDs) {
			log.Warn(ctx, "supplier not allowlisted", "supplier", supplierDID, "manufacturer", manufacturerDID, "product", productID)
			return &NotAllowlistedError{
				SupplierDID:     supplierDID,
				ManufacturerDID: manufacturerDID,
				ProductID:       productID,
			}
		}
	}
	return nil
}

// distinctProductIDs keeps submission order so the first failing product in
// an error is deterministic.
func distinctProductIDs(refs []domain.ProductReference, trustRelevantOnly bool) []string {
	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ProductID == "" {
			continue
		}
		if trustRelevantOnly && !ref.Role.TrustRelevant() {
			continue
		}
		if _, ok := seen[ref.ProductID]; ok {
			continue
		}
		seen[ref.ProductID] = struct{}{}
		ids = append(ids, ref.ProductID)
	}
	return ids
}
