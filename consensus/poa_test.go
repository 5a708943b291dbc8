package consensus_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/consensus"
	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/internal/testutil"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"

	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
)

const chainID = "dicechain-test"

type fixture struct {
	poa         *consensus.PoA
	bc          *core.Blockchain
	state       *storage.StateDB
	mempool     *core.Mempool
	alice       *wallet.Wallet
	blockEvents []events.Event
}

func newFixture(t *testing.T, validators ...string) *fixture {
	t.Helper()
	return newFixtureWithStore(t, testutil.NewMemBlockStore(), validators...)
}

func newFixtureWithStore(t *testing.T, store core.BlockStore, validators ...string) *fixture {
	t.Helper()
	priv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	alice := wallet.New(priv)

	cfg := config.DefaultConfig()
	cfg.Genesis.ChainID = chainID
	cfg.Genesis.Alloc = map[string]uint64{alice.PubKey(): 1_000_000}
	cfg.Validators = append([]string{alice.PubKey()}, validators...)

	f := &fixture{
		bc:      core.NewBlockchain(store),
		state:   testutil.NewStateDB(),
		mempool: core.NewMempool(chainID),
		alice:   alice,
	}
	require.NoError(t, f.bc.Init())
	genesis, err := config.CreateGenesisBlock(cfg, f.state, priv)
	require.NoError(t, err)
	require.NoError(t, f.bc.AddBlock(genesis))

	emitter := events.NewEmitter(nil)
	emitter.SubscribeAll([]events.EventType{events.EventBlockCommit, events.EventBlockAbort}, func(ev events.Event) {
		f.blockEvents = append(f.blockEvents, ev)
	})
	exec := vm.NewExecutor(f.state, cfg.Genesis.Params, emitter, nil)
	f.poa = consensus.New(cfg, f.bc, f.state, f.mempool, exec, emitter, priv, nil)
	return f
}

func TestProduceBlockDropsFailedTxs(t *testing.T) {
	f := newFixture(t)
	bob := "b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0"

	ok, err := f.alice.Transfer(chainID, bob, 100, 0, 5_000)
	require.NoError(t, err)
	overdraft, err := f.alice.Transfer(chainID, bob, 10_000_000, 1, 5_000)
	require.NoError(t, err)
	require.NoError(t, f.mempool.Add(ok))
	require.NoError(t, f.mempool.Add(overdraft))

	block, err := f.poa.ProduceBlock()
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, ok.ID, block.Transactions[0].ID)
	assert.Equal(t, core.ComputeTxRoot(block.Transactions), block.Header.TxRoot)
	assert.Equal(t, int64(1), f.bc.Height())
	assert.Zero(t, f.mempool.Size())
	assert.ErrorIs(t, f.mempool.Add(ok), core.ErrTxCommitted)

	acc, err := f.state.GetAccount(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), acc.Balance)
	assert.Equal(t, f.state.ComputeRoot(), block.Header.StateRoot)

	require.Len(t, f.blockEvents, 1)
	assert.Equal(t, 1, f.blockEvents[0].Data["txs"])
	assert.Equal(t, 1, f.blockEvents[0].Data["failed"])
}

func TestProduceEmptyBlockAdvancesSlot(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		block, err := f.poa.ProduceBlock()
		require.NoError(t, err)
		assert.Empty(t, block.Transactions)
	}
	assert.Equal(t, int64(3), f.bc.Height())
}

func TestValidateBlock(t *testing.T) {
	f := newFixture(t)
	next := func() *core.Block {
		b := core.NewBlock(f.bc.Height()+1, f.bc.Tip().Hash, f.alice.PubKey(), nil)
		b.Sign(f.alice.PrivKey())
		return b
	}
	require.NoError(t, f.poa.ValidateBlock(next()))

	tampered := next()
	tampered.Header.Timestamp++
	assert.Error(t, f.poa.ValidateBlock(tampered))

	badRoot := next()
	badRoot.Header.TxRoot = "00"
	badRoot.Sign(f.alice.PrivKey())
	assert.Error(t, f.poa.ValidateBlock(badRoot))

	orphan := next()
	orphan.Header.PrevHash = "ff"
	orphan.Sign(f.alice.PrivKey())
	assert.Error(t, f.poa.ValidateBlock(orphan))

	stranger, err := wallet.Generate()
	require.NoError(t, err)
	forged := next()
	forged.Sign(stranger.PrivKey())
	assert.Error(t, f.poa.ValidateBlock(forged))

	produced, err := f.poa.ProduceBlock()
	require.NoError(t, err)
	assert.Error(t, f.poa.ValidateBlock(produced), "already at this height")
}

func TestNotProposer(t *testing.T) {
	w, err := wallet.Generate()
	require.NoError(t, err)
	// Two validators: height 1 belongs to the second.
	f := newFixture(t, w.PubKey())
	assert.False(t, f.poa.IsProposer())
	_, err = f.poa.ProduceBlock()
	assert.ErrorIs(t, err, consensus.ErrNotProposer)
}

// failingStore refuses the next failures block commits.
type failingStore struct {
	core.BlockStore
	failures int
}

func (s *failingStore) CommitBlock(block *core.Block) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	return s.BlockStore.CommitBlock(block)
}

func TestUnstoredBlockLeavesNoTrace(t *testing.T) {
	store := &failingStore{BlockStore: testutil.NewMemBlockStore()}
	f := newFixtureWithStore(t, store)
	bob := "b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0"
	root := f.state.ComputeRoot()

	tx, err := f.alice.Transfer(chainID, bob, 100, 0, 5_000)
	require.NoError(t, err)
	require.NoError(t, f.mempool.Add(tx))

	store.failures = 1
	_, err = f.poa.ProduceBlock()
	require.Error(t, err)
	assert.Equal(t, int64(0), f.bc.Height())
	assert.Equal(t, root, f.state.ComputeRoot(), "state is back to the committed tip")
	acc, err := f.state.GetAccount(f.alice.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), acc.Balance)
	assert.Zero(t, acc.Nonce)
	assert.Equal(t, 1, f.mempool.Size(), "the transaction waits for the next block")
	require.Len(t, f.blockEvents, 1)
	assert.Equal(t, events.EventBlockAbort, f.blockEvents[0].Type)

	block, err := f.poa.ProduceBlock()
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, tx.ID, block.Transactions[0].ID)
	acc, err = f.state.GetAccount(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), acc.Balance)
	acc, err = f.state.GetAccount(f.alice.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000-100-5_000), acc.Balance)
	assert.Equal(t, uint64(1), acc.Nonce)
}
