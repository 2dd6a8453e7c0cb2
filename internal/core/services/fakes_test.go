package services

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/require"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
	"github.com/fides-dpp/trust-engine/internal/kms"
	"github.com/fides-dpp/trust-engine/pkg/blobstore"
	"github.com/fides-dpp/trust-engine/pkg/cache"
	client "github.com/fides-dpp/trust-engine/pkg/http"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

// fakeIdentityRepo is an in memory issuer registry with the same set
// semantics the SQL repository has.
type fakeIdentityRepo struct {
	mu      sync.Mutex
	issuers map[string]domain.IssuerIdentity
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{issuers: make(map[string]domain.IssuerIdentity)}
}

func (f *fakeIdentityRepo) Save(_ context.Context, _ db.Querier, identity *domain.IssuerIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *identity
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.ModifiedAt = now
	f.issuers[identity.DID] = stored
	return nil
}

func (f *fakeIdentityRepo) GetByDID(_ context.Context, _ db.Querier, did string) (*domain.IssuerIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issuers[did]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (f *fakeIdentityRepo) GetByAuthorizedAccount(_ context.Context, _ db.Querier, account domain.AuthorizedAccount) (*domain.IssuerIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.issuers {
		for _, a := range stored.Metadata.AuthorizedAccounts {
			if a.Equal(account) {
				found := stored
				return &found, nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeIdentityRepo) UpdateVerification(_ context.Context, _ db.Querier, identity *domain.IssuerIdentity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issuers[identity.DID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = identity.Status
	stored.LastError = identity.LastError
	stored.LastAttemptAt = identity.LastAttemptAt
	stored.ModifiedAt = time.Now().UTC()
	f.issuers[identity.DID] = stored
	return nil
}

func (f *fakeIdentityRepo) AddAuthorizedAccount(_ context.Context, _ db.Querier, did string, account domain.AuthorizedAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issuers[did]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, a := range stored.Metadata.AuthorizedAccounts {
		if a.Equal(account) {
			return nil
		}
	}
	stored.Metadata.AuthorizedAccounts = append(stored.Metadata.AuthorizedAccounts, account)
	stored.ModifiedAt = time.Now().UTC()
	f.issuers[did] = stored
	return nil
}

func (f *fakeIdentityRepo) AddTrustedSupplier(_ context.Context, _ db.Querier, did string, supplierDID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issuers[did]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, s := range stored.Metadata.TrustedSupplierDIDs {
		if s == supplierDID {
			return nil
		}
	}
	stored.Metadata.TrustedSupplierDIDs = append(stored.Metadata.TrustedSupplierDIDs, supplierDID)
	stored.ModifiedAt = time.Now().UTC()
	f.issuers[did] = stored
	return nil
}

func (f *fakeIdentityRepo) MergeMetadata(_ context.Context, _ db.Querier, did string, patch domain.IssuerMetadataPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.issuers[did]
	if !ok {
		return pgx.ErrNoRows
	}
	if patch.OrganizationName != nil {
		stored.Metadata.OrganizationName = *patch.OrganizationName
	}
	if patch.TrustedSupplierDIDs != nil {
		stored.Metadata.TrustedSupplierDIDs = *patch.TrustedSupplierDIDs
	}
	stored.ModifiedAt = time.Now().UTC()
	f.issuers[did] = stored
	return nil
}

// fakeStatusListRepo mirrors the SQL status list repository in memory
type fakeStatusListRepo struct {
	mu      sync.Mutex
	records map[string]*domain.StatusListRecord
}

func newFakeStatusListRepo() *fakeStatusListRepo {
	return &fakeStatusListRepo{records: make(map[string]*domain.StatusListRecord)}
}

func (f *fakeStatusListRepo) Ensure(_ context.Context, _ db.Querier, issuerDID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[issuerDID]; !ok {
		f.records[issuerDID] = &domain.StatusListRecord{IssuerDID: issuerDID}
	}
	return nil
}

func (f *fakeStatusListRepo) GetByIssuer(_ context.Context, _ db.Querier, issuerDID string) (*domain.StatusListRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[issuerDID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *record
	copied.Bits = append(domain.Bitstring(nil), record.Bits...)
	return &copied, nil
}

func (f *fakeStatusListRepo) AllocateIndex(_ context.Context, _ db.Querier, issuerDID string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[issuerDID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	index := record.NextIndex
	record.NextIndex++
	return index, nil
}

func (f *fakeStatusListRepo) SetBit(_ context.Context, _ db.Querier, issuerDID string, index uint64) (domain.Bitstring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[issuerDID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if index >= record.NextIndex {
		return nil, pgx.ErrNoRows
	}
	record.Bits.SetBit(index)
	return append(domain.Bitstring(nil), record.Bits...), nil
}

func (f *fakeStatusListRepo) UpdateCurrentCID(_ context.Context, _ db.Querier, issuerDID, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[issuerDID]
	if !ok {
		return pgx.ErrNoRows
	}
	record.CurrentCID = &cid
	return nil
}

// fakeDteIndexRepo keeps discovery records in memory with the uniqueness
// key semantics of the SQL table.
type fakeDteIndexRepo struct {
	mu      sync.Mutex
	records []domain.DteIndexRecord
}

func newFakeDteIndexRepo() *fakeDteIndexRepo {
	return &fakeDteIndexRepo{}
}

func (f *fakeDteIndexRepo) UpsertMany(_ context.Context, _ db.Querier, records []domain.DteIndexRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		if f.exists(r) {
			continue
		}
		f.records = append(f.records, r)
	}
	return nil
}

func (f *fakeDteIndexRepo) exists(r domain.DteIndexRecord) bool {
	for _, existing := range f.records {
		if existing.ProductID == r.ProductID && existing.DteCID == r.DteCID &&
			existing.EventID == r.EventID && existing.Role == r.Role {
			return true
		}
	}
	return false
}

func (f *fakeDteIndexRepo) ListByProductIDs(_ context.Context, _ db.Querier, productIDs []string, limit int) ([]domain.DteIndexRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := make([]domain.DteIndexRecord, 0)
	for _, r := range f.records {
		for _, id := range productIDs {
			if r.ProductID == id {
				matches = append(matches, r)
				break
			}
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// fakeLedger is an in memory passport token contract
type fakeLedger struct {
	mu      sync.Mutex
	tokens  map[[32]byte]*big.Int
	issuers map[string]string
	network string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		tokens:  make(map[[32]byte]*big.Int),
		issuers: make(map[string]string),
		network: "testnet",
	}
}

// registerPassport mints a class level passport for the product
func (f *fakeLedger) registerPassport(productID string, tokenID int64, issuerAccount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := big.NewInt(tokenID)
	f.tokens[domain.SubjectIDHash(productID)] = token
	f.issuers[token.String()] = issuerAccount
}

func (f *fakeLedger) FindTokenBySubjectHash(_ context.Context, subjectHash [32]byte) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[subjectHash]
	if !ok {
		return nil, nil
	}
	return new(big.Int).Set(token), nil
}

func (f *fakeLedger) PassportIssuer(_ context.Context, tokenID *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issuers[tokenID.String()], nil
}

func (f *fakeLedger) Network() string {
	return f.network
}

// testEngine wires every service against in memory collaborators plus an
// httptest server hosting DID documents.
type testEngine struct {
	identity   ports.IdentityService
	credential ports.CredentialService
	revocation ports.RevocationService
	resolution ports.ResolutionService
	governance ports.GovernanceService
	dte        ports.DteService

	identityRepo *fakeIdentityRepo
	ledger       *fakeLedger
	blobs        *blobstore.Memory
	publisher    *pubsub.Mock

	docServer *httptest.Server
	docs      map[string][]byte
	docMu     sync.Mutex
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	env := &testEngine{
		identityRepo: newFakeIdentityRepo(),
		ledger:       newFakeLedger(),
		blobs:        blobstore.NewMemory(),
		publisher:    pubsub.NewMock(),
		docs:         make(map[string][]byte),
	}
	env.docServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.docMu.Lock()
		body, ok := env.docs[r.URL.Path]
		env.docMu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", domain.DIDDocumentMediaType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(env.docServer.Close)

	storageManager, err := kms.NewFileStorageManager(t.TempDir())
	require.NoError(t, err)
	keyStore := kms.NewKMS()
	require.NoError(t, keyStore.RegisterKeyProvider(kms.KeyTypeEd25519,
		kms.NewLocalEd25519KeyProvider("test-seal-password", storageManager)))

	storage := &db.Storage{}
	env.identity = NewIdentity(keyStore, env.identityRepo, storage, client.DefaultHTTPClientWithRetry, env.publisher, IdentityConfig{
		ResolverTimeout: 5 * time.Second,
		ResolverScheme:  "http",
	})
	env.revocation = NewStatusList(newFakeStatusListRepo(), storage, env.blobs, cache.NewMemoryCache(), env.publisher, "http://localhost:3001", time.Minute)
	env.credential = NewCredential(keyStore, env.identity, env.revocation, env.publisher)
	env.resolution = NewResolution(env.ledger, env.identity, newFakeDteIndexRepo(), storage)
	env.governance = NewGovernance(env.identity, env.resolution)
	env.dte = NewDte(env.governance, env.credential, env.resolution, env.blobs)
	return env
}

// host returns the httptest server's host:port, the domain issuers register under
func (e *testEngine) host() string {
	return strings.TrimPrefix(e.docServer.URL, "http://")
}

// hostDocument serves the identity's DID document at its well known path
func (e *testEngine) hostDocument(t *testing.T, issuer *domain.IssuerIdentity, docPath string) {
	t.Helper()
	doc, err := e.identity.GenerateDidDocument(issuer)
	require.NoError(t, err)
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	e.docMu.Lock()
	e.docs[docPath] = body
	e.docMu.Unlock()
}

// registerVerified registers a domain under the test server and walks it
// through hosted verification. pathSegment may be empty for a root identity.
func (e *testEngine) registerVerified(t *testing.T, pathSegment, orgName string) *domain.IssuerIdentity {
	t.Helper()
	ctx := context.Background()

	domainName := e.host()
	docPath := "/.well-known/did.json"
	if pathSegment != "" {
		domainName += "/" + pathSegment
		docPath = "/" + pathSegment + "/did.json"
	}
	issuer, err := e.identity.Register(ctx, domainName, orgName)
	require.NoError(t, err)
	e.hostDocument(t, issuer, docPath)

	result, err := e.identity.Verify(ctx, issuer.DID)
	require.NoError(t, err)
	require.True(t, result.Success, "verification failed: %s", result.Error)

	verified, err := e.identity.Get(ctx, issuer.DID)
	require.NoError(t, err)
	return verified
}
