package economy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/internal/testutil"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"
)

const chainID = "dicechain-test"

func setup(t *testing.T) (*storage.StateDB, *vm.Executor, *wallet.Wallet, *[]events.Event) {
	t.Helper()
	state := testutil.NewStateDB()
	w, err := wallet.Generate()
	require.NoError(t, err)
	require.NoError(t, state.SetAccount(&core.Account{Address: w.PubKey(), Balance: 100_000}))

	var seen []events.Event
	em := events.NewEmitter(nil)
	em.SubscribeAll([]events.EventType{events.EventTokenTransfer, events.EventTxFailed}, func(ev events.Event) {
		seen = append(seen, ev)
	})
	return state, vm.NewExecutor(state, core.DefaultParams(), em, nil), w, &seen
}

func balance(t *testing.T, s core.State, addr string) uint64 {
	t.Helper()
	acc, err := s.GetAccount(addr)
	require.NoError(t, err)
	return acc.Balance
}

func TestTokenTransfer(t *testing.T) {
	state, exec, alice, seen := setup(t)
	bob, err := wallet.Generate()
	require.NoError(t, err)
	block := core.NewBlock(1, "prev", alice.PubKey(), nil)

	tx, err := alice.Transfer(chainID, bob.PubKey(), 40_000, 0, 5_000)
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteTx(block, tx))

	assert.Equal(t, uint64(55_000), balance(t, state, alice.PubKey()))
	assert.Equal(t, uint64(40_000), balance(t, state, bob.PubKey()))
	require.Len(t, *seen, 1)
	assert.Equal(t, events.EventTokenTransfer, (*seen)[0].Type)

	// Replaying the same nonce fails.
	assert.Error(t, exec.ExecuteTx(block, tx))
}

func TestTransferRejections(t *testing.T) {
	state, exec, alice, seen := setup(t)
	block := core.NewBlock(1, "prev", alice.PubKey(), nil)
	vault, err := core.BankrollVaultAddress(alice.PubKey())
	require.NoError(t, err)

	tx, err := alice.Transfer(chainID, vault, 1, 0, 5_000)
	require.NoError(t, err)
	assert.ErrorIs(t, exec.ExecuteTx(block, tx), core.ErrUnauthorized)

	bob, err := wallet.Generate()
	require.NoError(t, err)
	tx, err = alice.Transfer(chainID, bob.PubKey(), 1_000_000, 0, 5_000)
	require.NoError(t, err)
	assert.ErrorIs(t, exec.ExecuteTx(block, tx), core.ErrInsufficientFunds)

	tx, err = alice.Transfer(chainID, "beef", 1, 0, 5_000)
	require.NoError(t, err)
	assert.Error(t, exec.ExecuteTx(block, tx), "recipient is not a public key")

	tx, err = alice.Transfer(chainID, bob.PubKey(), 1, 0, 4_999)
	require.NoError(t, err)
	assert.Error(t, exec.ExecuteTx(block, tx), "fee below the signature fee")

	// Failed transactions roll back the fee and nonce too.
	assert.Equal(t, uint64(100_000), balance(t, state, alice.PubKey()))
	acc, err := state.GetAccount(alice.PubKey())
	require.NoError(t, err)
	assert.Zero(t, acc.Nonce)

	require.Len(t, *seen, 4)
	assert.Equal(t, "unauthorized", (*seen)[0].Data["reason"])
	assert.Equal(t, "insufficient funds", (*seen)[1].Data["reason"])
	assert.Equal(t, "other", (*seen)[2].Data["reason"])
	assert.Equal(t, "other", (*seen)[3].Data["reason"])
}

func TestTransferCanonicalizesRecipient(t *testing.T) {
	state, exec, alice, seen := setup(t)
	bob, err := wallet.Generate()
	require.NoError(t, err)
	block := core.NewBlock(1, "prev", alice.PubKey(), nil)

	tx, err := alice.Transfer(chainID, strings.ToUpper(bob.PubKey()), 10_000, 0, 5_000)
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteTx(block, tx))

	assert.Equal(t, uint64(10_000), balance(t, state, bob.PubKey()))
	assert.Zero(t, balance(t, state, strings.ToUpper(bob.PubKey())))
	require.Len(t, *seen, 1)
	assert.Equal(t, bob.PubKey(), (*seen)[0].Data["to"])

	// The received funds are spendable by the recipient's key.
	back, err := bob.Transfer(chainID, alice.PubKey(), 1, 0, 5_000)
	require.NoError(t, err)
	require.NoError(t, exec.ExecuteTx(block, back))
	assert.Equal(t, uint64(4_999), balance(t, state, bob.PubKey()))
}
