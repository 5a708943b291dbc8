package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
)

// GenesisHash is a canonical all-zeros previous hash for the genesis block.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// CreateGenesisBlock builds and signs block #0 from the config's Alloc map.
// It also sets initial account balances in state and commits.
func CreateGenesisBlock(cfg *Config, state core.State, proposerPriv crypto.PrivateKey) (*core.Block, error) {
	proposerPub := proposerPriv.Public()

	addrs := make([]string, 0, len(cfg.Genesis.Alloc))
	for addr := range cfg.Genesis.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		// Only keyed accounts may be funded; vault balances must be backed by
		// a bankroll or bet record.
		key, err := crypto.CanonicalPubKey(addr)
		if err != nil {
			return nil, fmt.Errorf("genesis alloc %q: %w", addr, err)
		}
		acc := &core.Account{
			Address: key,
			Balance: cfg.Genesis.Alloc[addr],
		}
		if err := state.SetAccount(acc); err != nil {
			return nil, err
		}
	}

	stateRoot := state.ComputeRoot()
	if err := state.Commit(); err != nil {
		return nil, err
	}

	block := core.NewBlock(0, GenesisHash, proposerPub.Hex(), nil)
	block.Header.StateRoot = stateRoot
	// TxRoot of the empty genesis block identifies the chain.
	block.Header.TxRoot = crypto.Hash([]byte(cfg.Genesis.ChainID))
	block.Sign(proposerPriv)
	return block, nil
}

// IsGenesisHash returns true if the hash is the canonical genesis prev-hash.
func IsGenesisHash(h string) bool {
	return strings.Count(h, "0") == len(h) && len(h) == 64
}
