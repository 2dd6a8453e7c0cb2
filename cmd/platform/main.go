package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"

	"github.com/fides-dpp/trust-engine/internal/api"
	"github.com/fides-dpp/trust-engine/internal/config"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/core/services"
	"github.com/fides-dpp/trust-engine/internal/db"
	"github.com/fides-dpp/trust-engine/internal/health"
	"github.com/fides-dpp/trust-engine/internal/kms"
	"github.com/fides-dpp/trust-engine/internal/log"
	"github.com/fides-dpp/trust-engine/internal/redis"
	"github.com/fides-dpp/trust-engine/internal/repositories"
	"github.com/fides-dpp/trust-engine/pkg/blobstore"
	"github.com/fides-dpp/trust-engine/pkg/blockchain/eth"
	"github.com/fides-dpp/trust-engine/pkg/cache"
	client "github.com/fides-dpp/trust-engine/pkg/http"
	"github.com/fides-dpp/trust-engine/pkg/pubsub"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", err)
		return
	}

	// Context with log
	ctx := log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	if err := cfg.Sanitize(ctx); err != nil {
		log.Error(ctx, "there are errors in the configuration", err)
		return
	}

	storage, err := db.NewStorage(cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "cannot connect to database", err)
		return
	}
	defer func() { _ = storage.Close() }()

	cacheClient, err := cache.NewCacheClient(ctx, *cfg)
	if err != nil {
		log.Error(ctx, "cannot initialize cache", err)
		return
	}

	keyStore, err := newKeyStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "cannot initialize key store", err)
		return
	}

	monitors := health.Monitors{
		"postgres": storage.Ping,
	}

	var publisher pubsub.Publisher = pubsub.NewMock()
	if cfg.Cache.Provider == config.CacheProviderRedis {
		rdb, err := redis.Open(ctx, cfg.Cache.Url)
		if err != nil {
			log.Error(ctx, "cannot connect to redis", err, "host", cfg.Cache.Url)
			return
		}
		publisher = pubsub.NewRedis(rdb)
		monitors["redis"] = func(ctx context.Context) error {
			return redis.Status(ctx, rdb)
		}
	}

	var blobs ports.BlobStore = blobstore.NewMemory()
	if cfg.Blobstore.IPFSApiUrl != "" {
		blobs = blobstore.NewIPFS(cfg.Blobstore.IPFSApiUrl, cfg.Blobstore.FetchTimeout)
	}

	var ledger ports.TokenLedger
	if cfg.Ledger.URL != "" {
		ledger, err = eth.NewClient(cfg.Ledger.URL, cfg.Ledger.ContractAddress, cfg.Ledger.Network, cfg.Ledger.RPCResponseTimeout)
		if err != nil {
			log.Error(ctx, "cannot connect to the token ledger", err, "url", cfg.Ledger.URL)
			return
		}
	} else {
		log.Warn(ctx, "no token ledger configured, product resolution is disabled")
	}

	identityService := services.NewIdentity(keyStore, repositories.NewIdentity(), storage, client.DefaultHTTPClientWithRetry, publisher, services.IdentityConfig{
		ResolverTimeout: cfg.Resolver.Timeout,
		ResolverScheme:  "https",
	})

	var revocationService ports.RevocationService
	if cfg.StatusList.Enabled {
		revocationService = services.NewStatusList(repositories.NewStatusList(), storage, blobs, cacheClient, publisher, cfg.ServerUrl, cfg.StatusList.CacheTTL)
	} else {
		log.Warn(ctx, "status list disabled, credentials are issued without revocation support")
	}

	credentialService := services.NewCredential(keyStore, identityService, revocationService, publisher)
	resolutionService := services.NewResolution(ledger, identityService, repositories.NewDteIndex(), storage)
	governanceService := services.NewGovernance(identityService, resolutionService)
	dteService := services.NewDte(governanceService, credentialService, resolutionService, blobs)

	serverHealth := health.New(monitors)
	serverHealth.Run(ctx, health.DefaultPingPeriod)

	mux := chi.NewRouter()
	mux.Use(
		chiMiddleware.RequestID,
		log.ChiMiddleware(ctx),
		chiMiddleware.Recoverer,
		cors.Handler(cors.Options{AllowedOrigins: []string{"*"}}),
		chiMiddleware.NoCache,
	)
	api.NewServer(cfg, identityService, credentialService, revocationService, resolutionService, dteService, serverHealth).Routes(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: mux,
	}
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info(ctx, fmt.Sprintf("server started on port:%d", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil {
			log.Error(ctx, "starting http server", err)
		}
	}()

	<-quit
	log.Info(ctx, "Shutting down")
	if err := server.Shutdown(ctx); err != nil {
		log.Error(ctx, "shutting down http server", err)
	}
}

func newKeyStore(ctx context.Context, cfg *config.Configuration) (*kms.KMS, error) {
	var provider kms.KeyProvider
	switch cfg.KeyStore.Provider {
	case config.KeyStoreProviderVault:
		vaultCli, err := kms.NewVaultClient(cfg.KeyStore.VaultAddress, cfg.KeyStore.VaultToken)
		if err != nil {
			return nil, fmt.Errorf("cannot init vault client: %w", err)
		}
		provider = kms.NewVaultEd25519KeyProvider(vaultCli, cfg.KeyStore.VaultSecretsEngine)
	default:
		storageManager, err := kms.NewFileStorageManager(cfg.KeyStore.LocalStoragePath)
		if err != nil {
			return nil, fmt.Errorf("cannot init local key storage: %w", err)
		}
		provider = kms.NewLocalEd25519KeyProvider(cfg.KeyStore.LocalSealPassword, storageManager)
	}

	keyStore := kms.NewKMS()
	if err := keyStore.RegisterKeyProvider(kms.KeyTypeEd25519, provider); err != nil {
		return nil, err
	}
	log.Info(ctx, "key store initialized", "provider", cfg.KeyStore.Provider)
	return keyStore, nil
}
