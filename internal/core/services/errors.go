package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine services. Expected validation
// outcomes are modelled as error kinds; hard failures (unreachable storage)
// propagate wrapped.
var (
	// ErrIssuerNotFound - no registry entry exists for the DID
	ErrIssuerNotFound = errors.New("issuer not found")
	// ErrTokenNotFound - the ledger has no token for the subject id
	ErrTokenNotFound = errors.New("token not found")
	// ErrMalformedInput - rejected before any I/O
	ErrMalformedInput = errors.New("malformed input")
	// ErrStorageUnavailable - a backing store could not be reached
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConfigurationMissing - a required backend is not configured
	ErrConfigurationMissing = errors.New("required backend not configured")
	// ErrRevoked - the credential's status list bit is set
	ErrRevoked = errors.New("credential revoked")
	// ErrUnsupportedKeyType - the issuer key cannot produce the declared signature form
	ErrUnsupportedKeyType = errors.New("unsupported signing key type")
	// ErrIssuerNotVerified - the issuer exists but has not passed hosted verification
	ErrIssuerNotVerified = errors.New("issuer is not verified")
)

// NotAllowlistedError rejects an externally authored submission, naming the
// first product the supplier may not publish against. It always fails the
// whole submission.
type NotAllowlistedError struct {
	SupplierDID     string
	ManufacturerDID string
	ProductID       string
}

// Error satisfies the error interface
func (e *NotAllowlistedError) Error() string {
	return fmt.Sprintf("supplier %s is not allowlisted by %s for product %s",
		e.SupplierDID, e.ManufacturerDID, e.ProductID)
}

// ProductResolutionError signals that a product referenced by a submission
// could not be resolved to a manufacturer. Governance fails closed on it.
type ProductResolutionError struct {
	ProductID string
	Err       error
}

// Error satisfies the error interface
func (e *ProductResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve manufacturer for product %s: %v", e.ProductID, e.Err)
}

// Unwrap exposes the underlying cause
func (e *ProductResolutionError) Unwrap() error {
	return e.Err
}
