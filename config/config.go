package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Solana  SolanaConfig  `mapstructure:"solana"`
	Fee     FeeConfig     `mapstructure:"fee"`
	Session SessionConfig `mapstructure:"session"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`     // debug, release, test
	BaseURL string `mapstructure:"base_url"` // externally reachable URL embedded in request URIs
}

// Addr returns the listen address string.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SolanaConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	Commitment string `mapstructure:"commitment"` // processed, confirmed, finalized
}

// FeeConfig describes the optional platform fee. An empty wallet disables it.
type FeeConfig struct {
	Wallet string `mapstructure:"wallet"`
	Amount string `mapstructure:"amount"` // decimal, whole units of Asset
	Asset  string `mapstructure:"asset"`
}

type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// VerifyConfig tunes the settlement scan. The tolerance constants and the
// history limit are empirical, so they stay configurable.
type VerifyConfig struct {
	HistoryLimit   int           `mapstructure:"history_limit"`
	ToleranceFloor uint64        `mapstructure:"tolerance_floor"` // lamports
	ToleranceRatio float64       `mapstructure:"tolerance_ratio"`
	RPCTimeout     time.Duration `mapstructure:"rpc_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SPG (Solana Pay Gateway).
// Nested keys use underscore: SPG_SOLANA_RPC_URL, SPG_FEE_WALLET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("fee.wallet", "")
	v.SetDefault("fee.amount", "1.0")
	v.SetDefault("fee.asset", "USDC")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.sweep_interval", "5m")
	v.SetDefault("verify.history_limit", 20)
	v.SetDefault("verify.tolerance_floor", 5000)
	v.SetDefault("verify.tolerance_ratio", 0.01)
	v.SetDefault("verify.rpc_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SPG_SOLANA_RPC_URL -> solana.rpc_url
	v.SetEnvPrefix("SPG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
