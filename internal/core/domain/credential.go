package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifiable credential constants
const (
	ContextCredentials       = "https://www.w3.org/2018/credentials/v1"
	TypeVerifiableCredential = "VerifiableCredential"
	TypeTraceabilityEvent    = "DigitalTraceabilityEvent"

	JWTType      = "JWT"
	AlgEdDSA     = "EdDSA"
	SchemaType   = "JsonSchema"
	URNUUIDScope = "urn:uuid:"
)

// CredentialSchema references the schema of the credential subject plus an
// optional hash of the schema bytes.
type CredentialSchema struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Hash string `json:"hash,omitempty"`
}

// CredentialStatus points at the revocation status list entry for a credential
type CredentialStatus struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	StatusPurpose        string `json:"statusPurpose"`
	StatusListIndex      string `json:"statusListIndex"`
	StatusListCredential string `json:"statusListCredential"`
}

// W3CCredential is the `vc` claim of a VC-JWT
type W3CCredential struct {
	Context           []string          `json:"@context"`
	Type              []string          `json:"type"`
	CredentialSubject map[string]any    `json:"credentialSubject"`
	CredentialSchema  *CredentialSchema `json:"credentialSchema,omitempty"`
	CredentialStatus  *CredentialStatus `json:"credentialStatus,omitempty"`
}

// VcClaims is the full VC-JWT payload
type VcClaims struct {
	jwt.RegisteredClaims
	VC W3CCredential `json:"vc"`
}

// JWTHeader is the decoded protected header of a VC-JWT
type JWTHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid,omitempty"`
}

// DecodedCredential is the format-only decoded form of a VC-JWT. The
// signature has not been checked.
type DecodedCredential struct {
	Header    JWTHeader
	Payload   VcClaims
	Signature []byte
	// SigningInput is the dot-joined first two segments, the message the
	// signature covers.
	SigningInput string
}

// VerificationResult is the outcome of credential verification. Errors make
// the credential invalid, warnings do not.
type VerificationResult struct {
	Verified       bool       `json:"verified"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuanceDate   *time.Time `json:"issuanceDate,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	Payload        *VcClaims  `json:"payload,omitempty"`
}

// AddError marks the result failed with a human readable reason
func (r *VerificationResult) AddError(msg string) {
	r.Verified = false
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a non fatal observation
func (r *VerificationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
