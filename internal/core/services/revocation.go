package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
	"github.com/fides-dpp/trust-engine/internal/log"
	"github.com/fides-dpp/trust-engine/pkg/cache"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

type statusListService struct {
	repo      ports.StatusListRepository
	storage   *db.Storage
	blobs     ports.BlobStore
	cache     cache.Cache
	publisher pubsub.Publisher
	baseURL   string
	// cacheTTL bounds how stale a revocation answer may be
	cacheTTL time.Duration
}

// NewStatusList creates the revocation ledger service. baseURL is the public
// URL of this server, used to build credentialStatus entries.
func NewStatusList(repo ports.StatusListRepository, storage *db.Storage, blobs ports.BlobStore, c cache.Cache, publisher pubsub.Publisher, baseURL string, cacheTTL time.Duration) ports.RevocationService {
	return &statusListService{
		repo:      repo,
		storage:   storage,
		blobs:     blobs,
		cache:     c,
		publisher: publisher,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		cacheTTL:  cacheTTL,
	}
}

// AllocateIndex hands out the next free bit index for the issuer. The
// storage layer advance is atomic, so concurrent issuances never collide.
func (s *statusListService) AllocateIndex(ctx context.Context, issuerDID string) (uint64, error) {
	if err := s.repo.Ensure(ctx, s.storage.Pgx, issuerDID); err != nil {
		return 0, fmt.Errorf("ensuring status list for %s: %w", issuerDID, err)
	}
	index, err := s.repo.AllocateIndex(ctx, s.storage.Pgx, issuerDID)
	if err != nil {
		return 0, fmt.Errorf("allocating status index for %s: %w", issuerDID, err)
	}
	return index, nil
}

// Revoke sets the bit and publishes a fresh snapshot to the blob store.
// Revoking an already revoked index republishes the same snapshot, which is
// harmless. A set bit is never cleared.
func (s *statusListService) Revoke(ctx context.Context, issuerDID string, index uint64) error {
	bits, err := s.repo.SetBit(ctx, s.storage.Pgx, issuerDID, index)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: no status list for %s", ErrIssuerNotFound, issuerDID)
		}
		return fmt.Errorf("setting revocation bit: %w", err)
	}

	snapshot, err := domain.BuildStatusListCredential(issuerDID, bits, time.Now())
	if err != nil {
		return fmt.Errorf("building status list snapshot: %w", err)
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshalling status list snapshot: %w", err)
	}
	cid, err := s.blobs.Put(ctx, payload)
	if err != nil {
		return fmt.Errorf("%w: publishing status list snapshot: %v", ErrStorageUnavailable, err)
	}
	if err := s.repo.UpdateCurrentCID(ctx, s.storage.Pgx, issuerDID, cid); err != nil {
		return fmt.Errorf("storing snapshot pointer for %s: %w", issuerDID, err)
	}

	if err := s.cache.Delete(ctx, s.cacheKey(issuerDID)); err != nil {
		log.Warn(ctx, "evicting cached status list", "issuer", issuerDID, "err", err)
	}
	if s.publisher != nil {
		ev := pubsub.CredentialRevokedEvent{IssuerDID: issuerDID, Index: index}
		if err := s.publisher.Publish(ctx, pubsub.EventCredentialRevoked, &ev); err != nil {
			log.Error(ctx, "publishing credential revoked event", err, "issuer", issuerDID)
		}
	}
	log.Info(ctx, "credential revoked", "issuer", issuerDID, "index", index, "cid", cid)
	return nil
}

// IsRevoked tests the bit against the issuer's current published snapshot.
// The decoded bitstring is cached for a bounded TTL, so an answer may lag a
// concurrent revocation by at most that long.
func (s *statusListService) IsRevoked(ctx context.Context, issuerDID string, index uint64) (bool, error) {
	var encoded string
	if !s.cache.Get(ctx, s.cacheKey(issuerDID), &encoded) {
		record, err := s.repo.GetByIssuer(ctx, s.storage.Pgx, issuerDID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// issuer never allocated an index, nothing can be revoked
				return false, nil
			}
			return false, fmt.Errorf("loading status list for %s: %w", issuerDID, err)
		}
		if record.CurrentCID == nil {
			return false, nil
		}
		payload, err := s.blobs.Get(ctx, *record.CurrentCID)
		if err != nil {
			return false, fmt.Errorf("%w: fetching status list snapshot %s: %v", ErrStorageUnavailable, *record.CurrentCID, err)
		}
		var snapshot domain.StatusListCredential
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return false, fmt.Errorf("parsing status list snapshot %s: %w", *record.CurrentCID, err)
		}
		encoded = snapshot.CredentialSubject.EncodedList
		if err := s.cache.Set(ctx, s.cacheKey(issuerDID), encoded, s.cacheTTL); err != nil {
			log.Warn(ctx, "caching status list", "issuer", issuerDID, "err", err)
		}
	}

	bits, err := domain.DecodeBitstring(encoded)
	if err != nil {
		return false, fmt.Errorf("decoding status list for %s: %w", issuerDID, err)
	}
	return bits.Bit(index), nil
}

// CurrentSnapshot returns the latest published status list credential
func (s *statusListService) CurrentSnapshot(ctx context.Context, issuerDID string) ([]byte, error) {
	record, err := s.repo.GetByIssuer(ctx, s.storage.Pgx, issuerDID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no status list for %s", ErrIssuerNotFound, issuerDID)
		}
		return nil, fmt.Errorf("loading status list for %s: %w", issuerDID, err)
	}
	if record.CurrentCID == nil {
		// nothing revoked yet, serve an all clear snapshot
		snapshot, err := domain.BuildStatusListCredential(issuerDID, record.Bits, time.Now())
		if err != nil {
			return nil, err
		}
		return json.Marshal(snapshot)
	}
	payload, err := s.blobs.Get(ctx, *record.CurrentCID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching status list snapshot %s: %v", ErrStorageUnavailable, *record.CurrentCID, err)
	}
	return payload, nil
}

// StatusEntry builds the credentialStatus claim pointing at this server's
// status endpoints.
func (s *statusListService) StatusEntry(issuerDID string, index uint64) *domain.CredentialStatus {
	listURL := fmt.Sprintf("%s/v1/credentials/status/%s", s.baseURL, url.PathEscape(issuerDID))
	return &domain.CredentialStatus{
		ID:                   fmt.Sprintf("%s#%d", listURL, index),
		Type:                 domain.TypeStatusListEntry,
		StatusPurpose:        domain.StatusPurposeRevocation,
		StatusListIndex:      strconv.FormatUint(index, 10),
		StatusListCredential: listURL,
	}
}

func (s *statusListService) cacheKey(issuerDID string) string {
	return "statuslist:" + issuerDID
}
