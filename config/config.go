package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
)

// GenesisConfig describes the chain's initial state.
type GenesisConfig struct {
	ChainID string            `json:"chain_id"`
	Alloc   map[string]uint64 `json:"alloc"` // pubkey hex → initial balance
	Params  core.Params       `json:"params"`
}

// PublisherConfig selects the external sinks dice events are forwarded to.
// Empty fields disable the corresponding sink.
type PublisherConfig struct {
	KafkaBrokers []string `json:"kafka_brokers" env:"DICE_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `json:"kafka_topic"   env:"DICE_KAFKA_TOPIC"`
	RedisAddr    string   `json:"redis_addr"    env:"DICE_REDIS_ADDR"`
	RedisChannel string   `json:"redis_channel" env:"DICE_REDIS_CHANNEL"`
}

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id"  env:"DICE_NODE_ID"`
	Env     string `json:"env"      env:"DICE_ENV"`
	DataDir string `json:"data_dir" env:"DICE_DATA_DIR"`
	RPCPort int    `json:"rpc_port" env:"DICE_RPC_PORT"`
	// Empty disables bearer auth on the RPC server.
	RPCAuthToken string `json:"rpc_auth_token" env:"DICE_RPC_AUTH_TOKEN"`
	// 0 disables the metrics server.
	MetricsPort int `json:"metrics_port"  env:"DICE_METRICS_PORT"`
	BlockTimeMs int `json:"block_time_ms" env:"DICE_BLOCK_TIME_MS"`
	// Max transactions per block; 0 → 500.
	MaxBlockTxs int `json:"max_block_txs" env:"DICE_MAX_BLOCK_TXS"`
	// Authorised proposer pubkey hexes.
	Validators []string        `json:"validators" env:"DICE_VALIDATORS" envSeparator:","`
	Publisher  PublisherConfig `json:"publisher"`
	Genesis    GenesisConfig   `json:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		Env:         "local",
		DataDir:     "./data",
		RPCPort:     8545,
		MetricsPort: 9100,
		BlockTimeMs: 1000,
		MaxBlockTxs: 500,
		Publisher: PublisherConfig{
			KafkaTopic:   "dice-events",
			RedisChannel: "dice-events",
		},
		Genesis: GenesisConfig{
			ChainID: "dicechain-dev",
			Alloc:   map[string]uint64{},
			Params:  core.DefaultParams(),
		},
	}
}

// Load reads a JSON config file from path and applies DICE_* environment
// overrides. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if c.Genesis.ChainID == "" {
		return errors.New("genesis.chain_id required")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port out of range: %d", c.RPCPort)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port out of range: %d", c.MetricsPort)
	}
	if c.BlockTimeMs <= 0 {
		return fmt.Errorf("block_time_ms must be > 0, got %d", c.BlockTimeMs)
	}
	if len(c.Publisher.KafkaBrokers) > 0 && c.Publisher.KafkaTopic == "" {
		return errors.New("publisher.kafka_topic required when kafka_brokers is set")
	}
	if c.Publisher.RedisAddr != "" && c.Publisher.RedisChannel == "" {
		return errors.New("publisher.redis_channel required when redis_addr is set")
	}
	if err := c.Genesis.Params.Validate(); err != nil {
		return fmt.Errorf("genesis.params: %w", err)
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
