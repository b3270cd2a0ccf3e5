package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Auth     AuthConfig     `yaml:"auth"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Seeds    SeedConfig     `yaml:"seeds"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig message server configuration. Events are disabled when URL is empty.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// AuthConfig authentication secrets
type AuthConfig struct {
	// WithdrawSecret is the shared secret the request-intake collaborator
	// signs withdrawal payloads with (HMAC-SHA256 over timestamp + body).
	WithdrawSecret string `yaml:"withdrawSecret"`
	// TimestampSkewSeconds bounds how old or new a signed timestamp may be.
	TimestampSkewSeconds int `yaml:"timestampSkewSeconds"`
	// JWTSecret signs operator bearer tokens.
	JWTSecret string `yaml:"jwtSecret"`
	// TOTPSecret, when set, requires a valid X-OTP-Code header on
	// withdrawal state transitions.
	TOTPSecret string `yaml:"totpSecret"`
}

// IndexerConfig chain indexer tuning
type IndexerConfig struct {
	BackfillBlocks          uint64 `yaml:"backfillBlocks"`
	StaleAfterMinutes       int    `yaml:"staleAfterMinutes"`
	ProbeTimeoutSeconds     int    `yaml:"probeTimeoutSeconds"`
	ReceiptWaitSeconds      int    `yaml:"receiptWaitSeconds"`
	ReceiptPollMilliseconds int    `yaml:"receiptPollMilliseconds"`
}

// SeedConfig bootstrap records inserted when the corresponding tables are empty
type SeedConfig struct {
	Endpoints []EndpointSeed `yaml:"endpoints"`
	Assets    []AssetSeed    `yaml:"assets"`
	Wallets   []WalletSeed   `yaml:"wallets"`
}

// EndpointSeed one RPC candidate
type EndpointSeed struct {
	Network   string `yaml:"network"`
	URL       string `yaml:"url"`
	Priority  int    `yaml:"priority"`
	IsDefault bool   `yaml:"isDefault"`
}

// AssetSeed one (currency, network) asset configuration
type AssetSeed struct {
	Currency        string `yaml:"currency"`
	Network         string `yaml:"network"`
	ContractAddress string `yaml:"contractAddress"`
	IsNative        bool   `yaml:"isNative"`
	Decimals        int32  `yaml:"decimals"`
}

// WalletSeed one custodial payout wallet
type WalletSeed struct {
	Address    string `yaml:"address"`
	Network    string `yaml:"network"`
	Currency   string `yaml:"currency"`
	PrivateKey string `yaml:"privateKey"`
}

// Load reads and parses the configuration file. Secret-bearing fields
// support ${ENV_VAR} expansion.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	if cfg.Auth.WithdrawSecret == "" {
		return nil, fmt.Errorf("auth.withdrawSecret is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwtSecret is required")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Auth.TimestampSkewSeconds == 0 {
		c.Auth.TimestampSkewSeconds = 300
	}
	if c.Indexer.BackfillBlocks == 0 {
		c.Indexer.BackfillBlocks = 1000
	}
	if c.Indexer.StaleAfterMinutes == 0 {
		c.Indexer.StaleAfterMinutes = 60
	}
	if c.Indexer.ProbeTimeoutSeconds == 0 {
		c.Indexer.ProbeTimeoutSeconds = 10
	}
	if c.Indexer.ReceiptWaitSeconds == 0 {
		c.Indexer.ReceiptWaitSeconds = 30
	}
	if c.Indexer.ReceiptPollMilliseconds == 0 {
		c.Indexer.ReceiptPollMilliseconds = 500
	}
	if c.NATS.Timeout == 0 {
		c.NATS.Timeout = 5
	}
	if c.NATS.ReconnectWait == 0 {
		c.NATS.ReconnectWait = 2
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
}

// StaleAfter returns the checkpoint staleness interval.
func (c *IndexerConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// ProbeTimeout returns the endpoint liveness probe timeout.
func (c *IndexerConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// ReceiptWait returns how long the executor waits for a settlement receipt.
func (c *IndexerConfig) ReceiptWait() time.Duration {
	return time.Duration(c.ReceiptWaitSeconds) * time.Second
}

// ReceiptPoll returns the receipt polling interval.
func (c *IndexerConfig) ReceiptPoll() time.Duration {
	return time.Duration(c.ReceiptPollMilliseconds) * time.Millisecond
}
