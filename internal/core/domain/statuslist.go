package domain

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"time"
)

// Status list constants
const (
	ContextStatusList        = "https://www.w3.org/ns/credentials/status/v1"
	TypeStatusListCredential = "BitstringStatusListCredential"
	TypeStatusList           = "BitstringStatusList"
	TypeStatusListEntry      = "BitstringStatusListEntry"
	StatusPurposeRevocation  = "revocation"
)

// Bitstring is a per issuer revocation bitmap, one bit per issued credential
// index. Bit 0 is the most significant bit of the first byte. A set bit is
// never cleared.
type Bitstring []byte

// SetBit marks index as revoked, growing the bitstring if needed
func (b *Bitstring) SetBit(index uint64) {
	byteIdx := index / 8
	if uint64(len(*b)) <= byteIdx {
		grown := make([]byte, byteIdx+1)
		copy(grown, *b)
		*b = grown
	}
	(*b)[byteIdx] |= 0x80 >> (index % 8)
}

// Bit reports whether index is revoked. Indices beyond the stored length are not set.
func (b Bitstring) Bit(index uint64) bool {
	byteIdx := index / 8
	if uint64(len(b)) <= byteIdx {
		return false
	}
	return b[byteIdx]&(0x80>>(index%8)) != 0
}

// Encode compresses the bitstring with gzip and encodes it base64url without padding
func (b Bitstring) Encode() (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return "", fmt.Errorf("compressing bitstring: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing bitstring: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBitstring reverses Bitstring.Encode
func DecodeBitstring(encoded string) (Bitstring, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding bitstring: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decompressing bitstring: %w", err)
	}
	defer func() { _ = zr.Close() }()
	bits, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing bitstring: %w", err)
	}
	return bits, nil
}

// StatusListRecord is the per issuer revocation ledger state. Indices are
// handed out once and never reused.
type StatusListRecord struct {
	IssuerDID  string
	NextIndex  uint64
	Bits       Bitstring
	CurrentCID *string
	ModifiedAt time.Time
}

// StatusListSubject is the credentialSubject of a published status list snapshot
type StatusListSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose"`
	EncodedList   string `json:"encodedList"`
}

// StatusListCredential is the immutable snapshot published to the blob store
type StatusListCredential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	CredentialSubject StatusListSubject `json:"credentialSubject"`
}

// BuildStatusListCredential assembles the snapshot for an issuer's current bitstring
func BuildStatusListCredential(issuerDID string, bits Bitstring, at time.Time) (*StatusListCredential, error) {
	encoded, err := bits.Encode()
	if err != nil {
		return nil, err
	}
	return &StatusListCredential{
		Context:      []string{ContextCredentials, ContextStatusList},
		ID:           issuerDID + "#revocation",
		Type:         []string{TypeVerifiableCredential, TypeStatusListCredential},
		Issuer:       issuerDID,
		IssuanceDate: at.UTC(),
		CredentialSubject: StatusListSubject{
			ID:            issuerDID + "#revocation-list",
			Type:          TypeStatusList,
			StatusPurpose: StatusPurposeRevocation,
			EncodedList:   encoded,
		},
	}, nil
}
