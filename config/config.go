package config

import (
	"crypto/ecdsa"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calehh/impact-app/types"
	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	DefaultListenAddr = "127.0.0.1:8080"
	EnvPrefix         = "IMPACT"

	BlobBackendLevelDB = "leveldb"
	BlobBackendGCS     = "gcs"

	AdminKeyFileName = "admin_priv_key"
)

type LedgerConfig struct {
	RpcUrl          string        `mapstructure:"rpc_url"`
	RegistryAddress string        `mapstructure:"registry_address"`
	AdminKey        string        `mapstructure:"admin_key"`
	AdminKeyFile    string        `mapstructure:"admin_key_file"`
	ChainId         int64         `mapstructure:"chain_id"`
	GasLimit        uint64        `mapstructure:"gas_limit"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
}

type AdminConfig struct {
	Secret     string        `mapstructure:"secret"`
	SessionKey string        `mapstructure:"session_key"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type StorageConfig struct {
	DBPath        string `mapstructure:"db_path"`
	BlobBackend   string `mapstructure:"blob_backend"`
	BlobDir       string `mapstructure:"blob_dir"`
	Bucket        string `mapstructure:"bucket"`
	CredsFile     string `mapstructure:"credentials_file"`
	PublicBaseUrl string `mapstructure:"public_base_url"`
	MaxProofBytes int64  `mapstructure:"max_proof_bytes"`
}

type ServerConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	TaskCapacity int    `mapstructure:"task_capacity"`
}

type Config struct {
	Home     string        `mapstructure:"-"`
	LogLevel string        `mapstructure:"log_level"`
	Server   ServerConfig  `mapstructure:"server"`
	Storage  StorageConfig `mapstructure:"storage"`
	Ledger   LedgerConfig  `mapstructure:"ledger"`
	Admin    AdminConfig   `mapstructure:"admin"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.impact")
	}
	return &Config{
		Home:     home,
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			ListenAddr:   DefaultListenAddr,
			TaskCapacity: 1024,
		},
		Storage: StorageConfig{
			DBPath:        "data/impact.db",
			BlobBackend:   BlobBackendLevelDB,
			BlobDir:       "data/proofs",
			PublicBaseUrl: "http://" + DefaultListenAddr + "/blobs",
			MaxProofBytes: 10 << 20,
		},
		Ledger: LedgerConfig{
			AdminKeyFile:   "config/" + AdminKeyFileName,
			ConfirmTimeout: 2 * time.Minute,
		},
		Admin: AdminConfig{
			SessionTTL: 12 * time.Hour,
		},
	}
}

func (c *Config) ConfigFile() string {
	return filepath.Join(c.Home, "config", "config.toml")
}

// ResolvePath makes p absolute relative to the home directory.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

// SetDefaults registers every key with v so that environment overrides are
// honoured by Unmarshal even when the key is absent from the file.
func SetDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.task_capacity", c.Server.TaskCapacity)
	v.SetDefault("storage.db_path", c.Storage.DBPath)
	v.SetDefault("storage.blob_backend", c.Storage.BlobBackend)
	v.SetDefault("storage.blob_dir", c.Storage.BlobDir)
	v.SetDefault("storage.bucket", c.Storage.Bucket)
	v.SetDefault("storage.credentials_file", c.Storage.CredsFile)
	v.SetDefault("storage.public_base_url", c.Storage.PublicBaseUrl)
	v.SetDefault("storage.max_proof_bytes", c.Storage.MaxProofBytes)
	v.SetDefault("ledger.rpc_url", c.Ledger.RpcUrl)
	v.SetDefault("ledger.registry_address", c.Ledger.RegistryAddress)
	v.SetDefault("ledger.admin_key", c.Ledger.AdminKey)
	v.SetDefault("ledger.admin_key_file", c.Ledger.AdminKeyFile)
	v.SetDefault("ledger.chain_id", c.Ledger.ChainId)
	v.SetDefault("ledger.gas_limit", c.Ledger.GasLimit)
	v.SetDefault("ledger.confirm_timeout", c.Ledger.ConfirmTimeout)
	v.SetDefault("admin.secret", c.Admin.Secret)
	v.SetDefault("admin.session_key", c.Admin.SessionKey)
	v.SetDefault("admin.session_ttl", c.Admin.SessionTTL)
}

// Load reads <home>/config/config.toml when present and applies IMPACT_*
// environment overrides.
func Load(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	SetDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(cfg.ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, types.NewError(types.CodeConfig, err, "reading %s", cfg.ConfigFile())
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.NewError(types.CodeConfig, err, "decoding config")
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ValidateBasic() error {
	if c.Server.ListenAddr == "" {
		return types.Configf("server.listen_addr is required")
	}
	if c.Server.TaskCapacity <= 0 {
		return types.Configf("server.task_capacity must be positive")
	}
	if c.Storage.DBPath == "" {
		return types.Configf("storage.db_path is required")
	}
	if c.Storage.MaxProofBytes <= 0 {
		return types.Configf("storage.max_proof_bytes must be positive")
	}
	switch c.Storage.BlobBackend {
	case BlobBackendLevelDB:
		if c.Storage.BlobDir == "" {
			return types.Configf("storage.blob_dir is required for the leveldb backend")
		}
		if c.Storage.PublicBaseUrl == "" {
			return types.Configf("storage.public_base_url is required for the leveldb backend")
		}
	case BlobBackendGCS:
		if c.Storage.Bucket == "" {
			return types.Configf("storage.bucket is required for the gcs backend")
		}
	default:
		return types.Configf("unknown storage.blob_backend %q", c.Storage.BlobBackend)
	}
	return nil
}

// Validate reports the first missing or malformed ledger setting.
func (l *LedgerConfig) Validate() error {
	if l.RpcUrl == "" {
		return types.Configf("ledger.rpc_url is required")
	}
	if l.RegistryAddress == "" {
		return types.Configf("ledger.registry_address is required")
	}
	if !common.IsHexAddress(l.RegistryAddress) {
		return types.Configf("ledger.registry_address %q is not a hex address", l.RegistryAddress)
	}
	if l.AdminKey == "" && l.AdminKeyFile == "" {
		return types.Configf("ledger.admin_key or ledger.admin_key_file is required")
	}
	if l.ConfirmTimeout <= 0 {
		return types.Configf("ledger.confirm_timeout must be positive")
	}
	return nil
}

// LoadAdminKey returns the administrative signing key. An inline key takes
// precedence over the key file; relative file paths resolve against home.
func (l *LedgerConfig) LoadAdminKey(home string) (*ecdsa.PrivateKey, error) {
	raw := l.AdminKey
	if raw == "" {
		if l.AdminKeyFile == "" {
			return nil, types.Configf("no admin key configured")
		}
		p := l.AdminKeyFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(home, p)
		}
		dat, err := os.ReadFile(p)
		if err != nil {
			return nil, types.NewError(types.CodeConfig, err, "reading admin key file")
		}
		raw = string(dat)
	}
	key, err := eth_crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, types.NewError(types.CodeConfig, err, "parsing admin key")
	}
	return key, nil
}

// SessionKeyBytes decodes admin.session_key. An empty key yields nil.
func (a *AdminConfig) SessionKeyBytes() ([]byte, error) {
	if a.SessionKey == "" {
		return nil, nil
	}
	k, err := hex.DecodeString(strings.TrimPrefix(a.SessionKey, "0x"))
	if err != nil {
		return nil, types.NewError(types.CodeConfig, err, "decoding admin.session_key")
	}
	if len(k) < 32 {
		return nil, types.Configf("admin.session_key must be at least 32 bytes")
	}
	return k, nil
}

// InitializeAdminKey generates a signing key under <home>/config and returns
// its address.
func InitializeAdminKey(home string) (address string, err error) {
	if err = os.MkdirAll(filepath.Join(home, "config"), DefaultDirPerm); err != nil {
		return "", errors.Wrap(err, "creating config dir")
	}
	priv, err := eth_crypto.GenerateKey()
	if err != nil {
		return "", errors.Wrap(err, "generating key")
	}
	key := hex.EncodeToString(eth_crypto.FromECDSA(priv))
	if err = os.WriteFile(filepath.Join(home, "config", AdminKeyFileName), []byte(key), 0o600); err != nil {
		return "", errors.Wrap(err, "writing admin key")
	}
	address = eth_crypto.PubkeyToAddress(priv.PublicKey).Hex()
	return
}
