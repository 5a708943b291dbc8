// Package consensus implements Proof-of-Authority block production.
// Validators propose blocks in round-robin order. Each block is signed by
// the proposer; other nodes verify the signature before accepting the block.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
)

const defaultMaxBlockTxs = 500

// ErrNotProposer is returned by ProduceBlock when another validator owns the
// next height.
var ErrNotProposer = errors.New("not the proposer for this round")

// PoA is the Proof-of-Authority consensus engine.
type PoA struct {
	cfg     *config.Config
	bc      *core.Blockchain
	state   core.State
	mempool *core.Mempool
	exec    *vm.Executor
	emitter *events.Emitter
	privKey crypto.PrivateKey
	pubKey  crypto.PublicKey
	log     *zap.Logger
}

// New creates a PoA engine for the local validator identified by privKey.
func New(
	cfg *config.Config,
	bc *core.Blockchain,
	state core.State,
	mempool *core.Mempool,
	exec *vm.Executor,
	emitter *events.Emitter,
	privKey crypto.PrivateKey,
	log *zap.Logger,
) *PoA {
	if log == nil {
		log = zap.NewNop()
	}
	return &PoA{
		cfg:     cfg,
		bc:      bc,
		state:   state,
		mempool: mempool,
		exec:    exec,
		emitter: emitter,
		privKey: privKey,
		pubKey:  privKey.Public(),
		log:     log.Named("consensus"),
	}
}

// IsProposer reports whether this node should propose the next block.
func (p *PoA) IsProposer() bool {
	if len(p.cfg.Validators) == 0 {
		return false
	}
	nextHeight := p.bc.Height() + 1
	idx := int(nextHeight) % len(p.cfg.Validators)
	return p.cfg.Validators[idx] == p.pubKey.Hex()
}

// ProduceBlock builds, executes, signs and commits the next block. Pending
// transactions that fail execution are left out of the block and dropped
// from the mempool; an empty block is still produced so the slot clock
// advances.
func (p *PoA) ProduceBlock() (*core.Block, error) {
	if !p.IsProposer() {
		return nil, ErrNotProposer
	}

	limit := p.cfg.MaxBlockTxs
	if limit <= 0 {
		limit = defaultMaxBlockTxs
	}
	candidates := p.mempool.Pending(limit)

	tip := p.bc.Tip()
	var prevHash string
	var nextHeight int64
	if tip == nil {
		prevHash = config.GenesisHash
		nextHeight = 1
	} else {
		prevHash = tip.Hash
		nextHeight = tip.Header.Height + 1
	}

	block := core.NewBlock(nextHeight, prevHash, p.pubKey.Hex(), candidates)
	snap, err := p.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	applied, failed := p.exec.ApplyTxs(block, candidates)
	block.SetTransactions(applied)

	// The root comes from the write buffer, which is flushed only once the
	// block is stored.
	block.Header.StateRoot = p.state.ComputeRoot()
	block.Sign(p.privKey)

	if err := p.bc.AddBlock(block); err != nil {
		p.abort(block, snap)
		return nil, fmt.Errorf("add block: %w", err)
	}

	// Flush state only after the block is safely stored.
	if err := p.state.Commit(); err != nil {
		p.log.Fatal("block stored but state commit failed",
			zap.Int64("height", block.Header.Height), zap.Error(err))
	}

	// Emit after Sign() so block.Hash is set correctly.
	if p.emitter != nil {
		p.emitter.Emit(events.Event{
			Type:        events.EventBlockCommit,
			BlockHeight: block.Header.Height,
			Data: map[string]any{
				"hash":   block.Hash,
				"txs":    len(applied),
				"failed": len(failed),
			},
		})
	}

	ids := make([]string, 0, len(candidates))
	for _, tx := range applied {
		ids = append(ids, tx.ID)
	}
	p.mempool.MarkCommitted(ids)

	dropped := make([]string, 0, len(failed))
	for _, f := range failed {
		dropped = append(dropped, f.Tx.ID)
		p.log.Info("dropped tx",
			zap.String("tx", f.Tx.ID),
			zap.String("type", string(f.Tx.Type)),
			zap.String("reason", vm.Reason(f.Err)),
			zap.Error(f.Err))
	}
	p.mempool.Remove(dropped)

	return block, nil
}

// abort discards the effects of a block that could not be stored. Its
// transactions stay in the mempool for the next attempt.
func (p *PoA) abort(block *core.Block, snap int) {
	if err := p.state.RevertToSnapshot(snap); err != nil {
		p.log.Fatal("revert of unstored block failed",
			zap.Int64("height", block.Header.Height), zap.Error(err))
	}
	if p.emitter != nil {
		p.emitter.Emit(events.Event{Type: events.EventBlockAbort, BlockHeight: block.Header.Height})
	}
}

// ValidateBlock checks that block was proposed by the expected validator.
func (p *PoA) ValidateBlock(block *core.Block) error {
	if len(p.cfg.Validators) == 0 {
		return errors.New("no validators configured")
	}
	idx := int(block.Header.Height) % len(p.cfg.Validators)
	expected := p.cfg.Validators[idx]
	if block.Header.Proposer != expected {
		return fmt.Errorf("wrong proposer: got %s want %s", block.Header.Proposer, expected)
	}

	pub, err := crypto.PubKeyFromHex(block.Header.Proposer)
	if err != nil {
		return fmt.Errorf("invalid proposer pubkey: %w", err)
	}
	if block.ComputeHash() != block.Hash {
		return errors.New("block hash does not match header")
	}
	if err := block.Verify(pub); err != nil {
		return fmt.Errorf("block signature invalid: %w", err)
	}
	if core.ComputeTxRoot(block.Transactions) != block.Header.TxRoot {
		return errors.New("tx_root does not match transactions")
	}

	// Validate previous hash linkage
	tip := p.bc.Tip()
	if tip == nil {
		if !config.IsGenesisHash(block.Header.PrevHash) {
			return errors.New("first block must reference genesis prev-hash")
		}
	} else {
		if block.Header.PrevHash != tip.Hash {
			return fmt.Errorf("prev_hash mismatch: got %s want %s", block.Header.PrevHash, tip.Hash)
		}
		if block.Header.Height != tip.Header.Height+1 {
			return fmt.Errorf("height mismatch: got %d want %d", block.Header.Height, tip.Header.Height+1)
		}
	}
	return nil
}

// Run starts the block-production loop with the given interval. It blocks
// until ctx is cancelled.
func (p *PoA) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.log.Info("block production started",
		zap.String("validator", p.pubKey.Hex()), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !p.IsProposer() {
				continue
			}
			block, err := p.ProduceBlock()
			if err != nil {
				p.log.Error("produce block", zap.Error(err))
				continue
			}
			p.log.Debug("block committed",
				zap.Int64("height", block.Header.Height),
				zap.String("hash", block.Hash),
				zap.Int("txs", len(block.Transactions)))
		}
	}
}
