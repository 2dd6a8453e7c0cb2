package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fides-dpp/trust-engine/internal/log"
)

// Cache providers
const (
	CacheProviderRedis  = "redis"
	CacheProviderValKey = "valkey"
	CacheProviderMemory = "memory"
)

// Key store providers
const (
	KeyStoreProviderLocal = "local"
	KeyStoreProviderVault = "vault"
)

// Configuration holds the project configuration
type Configuration struct {
	ServerUrl  string
	ServerPort int
	Database   Database   `mapstructure:"Database"`
	Cache      Cache      `mapstructure:"Cache"`
	KeyStore   KeyStore   `mapstructure:"KeyStore"`
	Log        Log        `mapstructure:"Log"`
	Blobstore  Blobstore  `mapstructure:"Blobstore"`
	Ledger     Ledger     `mapstructure:"Ledger"`
	StatusList StatusList `mapstructure:"StatusList"`
	Resolver   Resolver   `mapstructure:"Resolver"`
}

// Database has the database configuration
// URL: The database connection string
type Database struct {
	URL string `mapstructure:"Url" tip:"The Datasource name locator"`
}

// Cache configuration
type Cache struct {
	Provider string `mapstructure:"Provider" tip:"Cache provider: redis, valkey or memory"`
	Url      string `mapstructure:"Url" tip:"Cache server url"`
}

// KeyStore defines the signing key custody configuration
type KeyStore struct {
	Provider           string `mapstructure:"Provider" tip:"Key store provider: local or vault"`
	LocalStoragePath   string `mapstructure:"LocalStoragePath" tip:"Directory holding the sealed local key file"`
	LocalSealPassword  string `mapstructure:"LocalSealPassword" tip:"Passphrase sealing local private keys at rest"`
	VaultAddress       string `mapstructure:"VaultAddress" tip:"Vault server address"`
	VaultToken         string `mapstructure:"VaultToken" tip:"Vault token"`
	VaultSecretsEngine string `mapstructure:"VaultSecretsEngine" tip:"Vault KV v2 mount path"`
}

// Blobstore holds the content addressable store configuration
type Blobstore struct {
	IPFSApiUrl     string        `mapstructure:"IpfsApiUrl" tip:"IPFS node API url"`
	IPFSGatewayUrl string        `mapstructure:"IpfsGatewayUrl" tip:"IPFS gateway url"`
	FetchTimeout   time.Duration `mapstructure:"FetchTimeout" tip:"Timeout fetching a blob"`
}

// Ledger holds the passport token ledger connection configuration
type Ledger struct {
	URL                string        `mapstructure:"Url" tip:"Ledger RPC url"`
	ContractAddress    string        `mapstructure:"ContractAddress" tip:"Passport contract address"`
	Network            string        `mapstructure:"Network" tip:"Network tag stored with authorized accounts"`
	RPCResponseTimeout time.Duration `mapstructure:"RpcResponseTimeout" tip:"RPC response timeout"`
}

// StatusList configures the revocation status list feature
type StatusList struct {
	Enabled  bool          `mapstructure:"Enabled" tip:"Enable the revocation status list"`
	CacheTTL time.Duration `mapstructure:"CacheTTL" tip:"Bounded staleness window for status list reads"`
}

// Resolver configures outbound DID document resolution
type Resolver struct {
	Timeout time.Duration `mapstructure:"Timeout" tip:"Timeout fetching hosted DID documents"`
}

// Log holds runtime log configuration
//
// Level: the minimum level to log (-4: Debug, 0: Info, 4: Warning, 8: Error)
// Mode: the output format (1: JSON, 2: Text)
type Log struct {
	Level int `mapstructure:"Level" tip:"Minimum level to log: (-4:Debug, 0:Info, 4:Warning, 8:Error)"`
	Mode  int `mapstructure:"Mode" tip:"Log format (1: JSON, 2:Structured text)"`
}

// Sanitize performs basic checks and sanitizations in the configuration.
// Returns nil if the config is acceptable, an error otherwise.
func (c *Configuration) Sanitize(ctx context.Context) error {
	sUrl, err := c.validateServerUrl()
	if err != nil {
		return fmt.Errorf("serverUrl is not a valid URL <%s>: %w", c.ServerUrl, err)
	}
	c.ServerUrl = sUrl

	switch c.Cache.Provider {
	case CacheProviderRedis, CacheProviderValKey, CacheProviderMemory:
	default:
		return fmt.Errorf("unknown cache provider <%s>", c.Cache.Provider)
	}

	switch c.KeyStore.Provider {
	case KeyStoreProviderLocal:
		if c.KeyStore.LocalSealPassword == "" {
			return fmt.Errorf("a seal password is required for the local key store")
		}
	case KeyStoreProviderVault:
		if c.KeyStore.VaultAddress == "" || c.KeyStore.VaultToken == "" {
			return fmt.Errorf("vault address and token are required for the vault key store")
		}
	default:
		return fmt.Errorf("unknown key store provider <%s>", c.KeyStore.Provider)
	}

	if c.StatusList.Enabled && c.Blobstore.IPFSApiUrl == "" {
		return fmt.Errorf("the status list requires a blobstore. DPP_IPFS_API_URL is missing")
	}

	if c.StatusList.CacheTTL == 0 {
		c.StatusList.CacheTTL = defaultStatusListTTL
	}
	if c.Resolver.Timeout == 0 {
		c.Resolver.Timeout = defaultResolverTimeout
	}
	if c.Blobstore.FetchTimeout == 0 {
		c.Blobstore.FetchTimeout = defaultBlobFetchTimeout
	}

	return nil
}

const (
	defaultStatusListTTL    = 60 * time.Second
	defaultResolverTimeout  = 10 * time.Second
	defaultBlobFetchTimeout = 30 * time.Second
)

func (c *Configuration) validateServerUrl() (string, error) {
	sUrl, err := url.ParseRequestURI(c.ServerUrl)
	if err != nil {
		return c.ServerUrl, err
	}
	if sUrl.Scheme == "" {
		return c.ServerUrl, fmt.Errorf("server URL must be an absolute URL")
	}
	sUrl.RawQuery = ""
	return strings.Trim(strings.Trim(sUrl.String(), "/"), "?"), nil
}

// Load loads the configuration from a file and the environment
func Load(fileName string) (*Configuration, error) {
	bindEnv()
	pathFlag := viper.GetString("config")
	if _, err := os.Stat(pathFlag); err == nil {
		ext := filepath.Ext(pathFlag)
		if len(ext) > 1 {
			ext = ext[1:]
		}
		name := strings.Split(filepath.Base(pathFlag), ".")[0]
		viper.AddConfigPath(".")
		viper.SetConfigName(name)
		viper.SetConfigType(ext)
	} else {
		viper.AddConfigPath(getWorkingDirectory())
		viper.SetConfigType("toml")
		if fileName == "" {
			viper.SetConfigName("config")
		} else {
			viper.SetConfigName(fileName)
		}
	}

	config := &Configuration{
		Database: Database{},
		Cache: Cache{
			Provider: CacheProviderMemory,
		},
		KeyStore: KeyStore{
			Provider: KeyStoreProviderLocal,
		},
		Log: Log{
			Level: log.LevelDebug,
			Mode:  log.OutputText,
		},
	}
	ctx := context.Background()
	if err := viper.ReadInConfig(); err != nil {
		log.Info(ctx, "config file not loaded, relying on environment", "err", err)
	}

	if err := viper.Unmarshal(config); err != nil {
		log.Error(ctx, "error unmarshalling configuration", err)
	}
	checkEnvVars(ctx, config)
	return config, nil
}

func bindEnv() {
	viper.SetEnvPrefix("DPP")
	_ = viper.BindEnv("ServerUrl", "DPP_SERVER_URL")
	_ = viper.BindEnv("ServerPort", "DPP_SERVER_PORT")

	_ = viper.BindEnv("Database.Url", "DPP_DATABASE_URL")

	_ = viper.BindEnv("Log.Level", "DPP_LOG_LEVEL")
	_ = viper.BindEnv("Log.Mode", "DPP_LOG_MODE")

	_ = viper.BindEnv("Cache.Provider", "DPP_CACHE_PROVIDER")
	_ = viper.BindEnv("Cache.Url", "DPP_CACHE_URL")

	_ = viper.BindEnv("KeyStore.Provider", "DPP_KEY_STORE_PROVIDER")
	_ = viper.BindEnv("KeyStore.LocalStoragePath", "DPP_KEY_STORE_LOCAL_STORAGE_PATH")
	_ = viper.BindEnv("KeyStore.LocalSealPassword", "DPP_KEY_STORE_LOCAL_SEAL_PASSWORD")
	_ = viper.BindEnv("KeyStore.VaultAddress", "DPP_KEY_STORE_VAULT_ADDRESS")
	_ = viper.BindEnv("KeyStore.VaultToken", "DPP_KEY_STORE_VAULT_TOKEN")
	_ = viper.BindEnv("KeyStore.VaultSecretsEngine", "DPP_KEY_STORE_VAULT_SECRETS_ENGINE")

	_ = viper.BindEnv("Blobstore.IpfsApiUrl", "DPP_IPFS_API_URL")
	_ = viper.BindEnv("Blobstore.IpfsGatewayUrl", "DPP_IPFS_GATEWAY_URL")
	_ = viper.BindEnv("Blobstore.FetchTimeout", "DPP_IPFS_FETCH_TIMEOUT")

	_ = viper.BindEnv("Ledger.Url", "DPP_LEDGER_URL")
	_ = viper.BindEnv("Ledger.ContractAddress", "DPP_LEDGER_CONTRACT_ADDRESS")
	_ = viper.BindEnv("Ledger.Network", "DPP_LEDGER_NETWORK")
	_ = viper.BindEnv("Ledger.RpcResponseTimeout", "DPP_LEDGER_RPC_RESPONSE_TIMEOUT")

	_ = viper.BindEnv("StatusList.Enabled", "DPP_STATUS_LIST_ENABLED")
	_ = viper.BindEnv("StatusList.CacheTTL", "DPP_STATUS_LIST_CACHE_TTL")

	_ = viper.BindEnv("Resolver.Timeout", "DPP_RESOLVER_TIMEOUT")

	viper.AutomaticEnv()
}

func checkEnvVars(ctx context.Context, cfg *Configuration) {
	if cfg.ServerUrl == "" {
		log.Info(ctx, "DPP_SERVER_URL value is missing")
	}

	if cfg.ServerPort == 0 {
		log.Info(ctx, "DPP_SERVER_PORT value is missing")
	}

	if cfg.Database.URL == "" {
		log.Info(ctx, "DPP_DATABASE_URL value is missing")
	}

	if cfg.Cache.Provider != CacheProviderMemory && cfg.Cache.Url == "" {
		log.Info(ctx, "DPP_CACHE_URL value is missing")
	}

	if cfg.Ledger.URL == "" {
		log.Info(ctx, "DPP_LEDGER_URL value is missing. Token resolution is disabled")
	}

	if cfg.Ledger.ContractAddress == "" {
		log.Info(ctx, "DPP_LEDGER_CONTRACT_ADDRESS value is missing. Token resolution is disabled")
	}

	if !cfg.StatusList.Enabled {
		log.Info(ctx, "DPP_STATUS_LIST_ENABLED is false. Credentials will verify without revocation checks")
	}
}

func getWorkingDirectory() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(b), "../..") + "/"
}
