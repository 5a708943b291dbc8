package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/internal/testutil"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "dicechain-dev", cfg.Genesis.ChainID)
	assert.Equal(t, core.DefaultParams(), cfg.Genesis.Params)
	assert.Equal(t, 8545, cfg.RPCPort)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := config.DefaultConfig()
	cfg.RPCPort = 9000
	cfg.Genesis.ChainID = "from-file"
	cfg.Genesis.Params.RefundTimeout = 50
	require.NoError(t, config.Save(cfg, path))

	t.Setenv("DICE_RPC_PORT", "9100")
	t.Setenv("DICE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DICE_VALIDATORS", "aa,bb")

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, got.RPCPort, "env wins over file")
	assert.Equal(t, "from-file", got.Genesis.ChainID)
	assert.Equal(t, int64(50), got.Genesis.Params.RefundTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, got.Publisher.KafkaBrokers)
	assert.Equal(t, "dice-events", got.Publisher.KafkaTopic)
	assert.Equal(t, []string{"aa", "bb"}, got.Validators)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = config.Load(bad)
	assert.Error(t, err)

	t.Setenv("DICE_RPC_PORT", "not-a-number")
	_, err = config.Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"no chain id":      func(c *config.Config) { c.Genesis.ChainID = "" },
		"rpc port":         func(c *config.Config) { c.RPCPort = 70000 },
		"metrics port":     func(c *config.Config) { c.MetricsPort = -1 },
		"block time":       func(c *config.Config) { c.BlockTimeMs = 0 },
		"kafka no topic":   func(c *config.Config) { c.Publisher.KafkaBrokers = []string{"k:9092"}; c.Publisher.KafkaTopic = "" },
		"redis no channel": func(c *config.Config) { c.Publisher.RedisAddr = "r:6379"; c.Publisher.RedisChannel = "" },
		"bad params":       func(c *config.Config) { c.Genesis.Params.RefundTimeout = 0 },
	}
	for name, mutate := range cases {
		cfg := config.DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
	assert.NoError(t, config.DefaultConfig().Validate())
}

func TestGenesisBlock(t *testing.T) {
	priv, err := crypto.KeyFromSeed(make([]byte, 32))
	require.NoError(t, err)
	holder := priv.Public()

	cfg := config.DefaultConfig()
	cfg.Genesis.Alloc = map[string]uint64{holder.Hex(): 1_000}
	state := testutil.NewStateDB()

	block, err := config.CreateGenesisBlock(cfg, state, priv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), block.Header.Height)
	assert.True(t, config.IsGenesisHash(block.Header.PrevHash))
	assert.Equal(t, crypto.Hash([]byte(cfg.Genesis.ChainID)), block.Header.TxRoot)
	require.NoError(t, block.Verify(holder))

	acc, err := state.GetAccount(holder.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), acc.Balance)
	assert.Equal(t, state.ComputeRoot(), block.Header.StateRoot)

	vault, err := core.BankrollVaultAddress(holder.Hex())
	require.NoError(t, err)
	cfg.Genesis.Alloc = map[string]uint64{vault: 1}
	_, err = config.CreateGenesisBlock(cfg, testutil.NewStateDB(), priv)
	assert.Error(t, err, "derived addresses cannot be funded at genesis")
}
