package domain

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// IssuerStatus represents the verification state of an issuer identity
type IssuerStatus string

// Issuer statuses. UNKNOWN is a query outcome for a DID with no local
// record, it is never stored.
const (
	IssuerStatusUnknown  IssuerStatus = "UNKNOWN"
	IssuerStatusPending  IssuerStatus = "PENDING"
	IssuerStatusVerified IssuerStatus = "VERIFIED"
	IssuerStatusFailed   IssuerStatus = "FAILED"
)

// DIDWebPrefix is the did method prefix handled by the registry
const DIDWebPrefix = "did:web:"

var hostRegexp = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?(:[0-9]{1,5})?$`)

// ErrInvalidDomain is returned when a domain cannot be turned into a did:web identifier
var ErrInvalidDomain = errors.New("invalid domain syntax")

// AuthorizedAccount is a ledger account allowed to transact under an issuer DID
type AuthorizedAccount struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// Equal compares two accounts. Addresses are case-insensitive, network tags are not.
func (a AuthorizedAccount) Equal(other AuthorizedAccount) bool {
	return strings.EqualFold(a.Address, other.Address) && a.Network == other.Network
}

// IssuerMetadata holds the mutable descriptive state of an issuer
type IssuerMetadata struct {
	Domain              string              `json:"domain"`
	OrganizationName    string              `json:"organizationName"`
	RegisteredAt        time.Time           `json:"registeredAt"`
	TrustedSupplierDIDs []string            `json:"trustedSupplierDids"`
	AuthorizedAccounts  []AuthorizedAccount `json:"authorizedAccounts"`
}

// IssuerMetadataPatch carries a partial metadata update. Nil fields are left untouched.
type IssuerMetadataPatch struct {
	OrganizationName    *string   `json:"organizationName,omitempty"`
	TrustedSupplierDIDs *[]string `json:"trustedSupplierDids,omitempty"`
}

// IssuerIdentity is the registry entry for a DID. There is exactly one per
// DID and its public key never changes after registration.
type IssuerIdentity struct {
	DID           string
	KeyID         string
	PublicKey     []byte
	Status        IssuerStatus
	Metadata      IssuerMetadata
	LastError     *string
	LastAttemptAt *time.Time
	CreatedAt     time.Time
	ModifiedAt    time.Time
}

// HasAuthorizedAccount tells whether the account is already in the issuer's list
func (i *IssuerIdentity) HasAuthorizedAccount(account AuthorizedAccount) bool {
	for _, a := range i.Metadata.AuthorizedAccounts {
		if a.Equal(account) {
			return true
		}
	}
	return false
}

// TrustsSupplier tells whether the given DID is in the issuer's trusted supplier list
func (i *IssuerIdentity) TrustsSupplier(did string) bool {
	for _, s := range i.Metadata.TrustedSupplierDIDs {
		if s == did {
			return true
		}
	}
	return false
}

// DIDFromDomain derives the did:web identifier for a domain, optionally
// followed by path segments ("example.com/supplier/acme"). A port colon is
// percent encoded as the did:web method requires.
func DIDFromDomain(domain string) (string, error) {
	domain = strings.Trim(strings.TrimSpace(domain), "/")
	if domain == "" {
		return "", ErrInvalidDomain
	}
	parts := strings.Split(domain, "/")
	host := parts[0]
	if !hostRegexp.MatchString(host) {
		return "", fmt.Errorf("%w: %s", ErrInvalidDomain, host)
	}
	segments := []string{strings.ReplaceAll(host, ":", "%3A")}
	for _, p := range parts[1:] {
		if p == "" {
			return "", fmt.Errorf("%w: empty path segment", ErrInvalidDomain)
		}
		segments = append(segments, url.PathEscape(p))
	}
	return DIDWebPrefix + strings.Join(segments, ":"), nil
}

// SplitDIDWeb returns the host and path segments encoded in a did:web identifier
func SplitDIDWeb(did string) (host string, path []string, err error) {
	if !strings.HasPrefix(did, DIDWebPrefix) {
		return "", nil, fmt.Errorf("unsupported did method: %s", did)
	}
	segments := strings.Split(strings.TrimPrefix(did, DIDWebPrefix), ":")
	host = strings.ReplaceAll(segments[0], "%3A", ":")
	if host == "" || !hostRegexp.MatchString(host) {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidDomain, segments[0])
	}
	for _, s := range segments[1:] {
		seg, err := url.PathUnescape(s)
		if err != nil || seg == "" {
			return "", nil, fmt.Errorf("%w: bad path segment %q", ErrInvalidDomain, s)
		}
		path = append(path, seg)
	}
	return host, path, nil
}

// WellKnownDocumentURL returns the URL where the DID document for a did:web
// identifier must be hosted. Scheme is https outside of tests.
func WellKnownDocumentURL(did, scheme string) (string, error) {
	host, path, err := SplitDIDWeb(did)
	if err != nil {
		return "", err
	}
	if len(path) == 0 {
		return fmt.Sprintf("%s://%s/.well-known/did.json", scheme, host), nil
	}
	return fmt.Sprintf("%s://%s/%s/did.json", scheme, host, strings.Join(path, "/")), nil
}
