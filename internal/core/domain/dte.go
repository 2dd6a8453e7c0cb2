package domain

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// DteRole is the role a product identifier plays in a traceability event
type DteRole string

// Known roles. Output, parent and epc identify products the event makes
// claims about, so those are the ones that matter for cross party trust.
const (
	DteRoleOutput DteRole = "output"
	DteRoleInput  DteRole = "input"
	DteRoleEpc    DteRole = "epc"
	DteRoleParent DteRole = "parent"
)

// TrustRelevant reports whether the role binds the event to a manufacturer's
// product record, requiring an allowlist check.
func (r DteRole) TrustRelevant() bool {
	switch r {
	case DteRoleOutput, DteRoleParent, DteRoleEpc:
		return true
	default:
		return false
	}
}

// ProductReference ties a product identifier to its role within a submission
type ProductReference struct {
	ProductID string  `json:"productId"`
	Role      DteRole `json:"role"`
}

// DteIndexRecord is one discovery index row. The uniqueness key is
// (ProductID, DteCID, EventID, Role); re-indexing the same credential is a
// no-op.
type DteIndexRecord struct {
	ProductID string
	Role      DteRole
	EventID   string
	EventType string
	EventTime *time.Time
	DteCID    string
	IssuerDID string
}

// Granularity is the level a passport identifies a product at
type Granularity string

// Granularity levels, mirroring the on chain passport record
const (
	GranularityProductClass Granularity = "ProductClass"
	GranularityBatch        Granularity = "Batch"
	GranularityItem         Granularity = "Item"
)

// ErrMissingQualifier is returned when a granularity needs a batch or serial
// number that was not supplied.
var ErrMissingQualifier = errors.New("missing batch or serial qualifier")

// CanonicalSubjectID derives the deterministic product identifier at the
// requested granularity. The same inputs always yield the same string, which
// is also the pre-image hashed for the on ledger lookup.
func CanonicalSubjectID(productID string, granularity Granularity, batchNumber, serialNumber string) (string, error) {
	if productID == "" {
		return "", errors.New("productId is required")
	}
	switch granularity {
	case GranularityProductClass:
		return productID, nil
	case GranularityBatch:
		if batchNumber == "" {
			return "", fmt.Errorf("%w: batchNumber", ErrMissingQualifier)
		}
		return productID + "#" + batchNumber, nil
	case GranularityItem:
		if serialNumber == "" {
			return "", fmt.Errorf("%w: serialNumber", ErrMissingQualifier)
		}
		return productID + "#" + serialNumber, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", granularity)
	}
}

// SubjectIDHash is the SHA-256 of the canonical subject id, the key the
// ledger indexes passports under.
func SubjectIDHash(canonicalID string) [32]byte {
	return sha256.Sum256([]byte(canonicalID))
}
