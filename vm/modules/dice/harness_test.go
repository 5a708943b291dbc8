package dice

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/internal/testutil"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"
)

const (
	testChainID = "dicechain-test"
	unit        = uint64(1_000_000_000)
	startFunds  = 1_000 * unit
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()

type harness struct {
	t        *testing.T
	state    *storage.StateDB
	exec     *vm.Executor
	params   core.Params
	height   int64
	events   []events.Event
	house    *wallet.Wallet
	player   *wallet.Wallet
	stranger *wallet.Wallet
}

func testWallet(t *testing.T, b byte) *wallet.Wallet {
	t.Helper()
	priv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return wallet.New(priv)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		state:    testutil.NewStateDB(),
		params:   core.DefaultParams(),
		height:   1,
		house:    testWallet(t, 1),
		player:   testWallet(t, 2),
		stranger: testWallet(t, 3),
	}
	emitter := events.NewEmitter(nil)
	watched := []events.EventType{events.EventTxFailed, events.EventTokenTransfer}
	watched = append(watched, events.DiceEvents...)
	emitter.SubscribeAll(watched, func(ev events.Event) { h.events = append(h.events, ev) })
	h.exec = vm.NewExecutor(h.state, h.params, emitter, nil)
	for _, w := range []*wallet.Wallet{h.house, h.player, h.stranger} {
		require.NoError(t, h.state.SetAccount(&core.Account{Address: w.PubKey(), Balance: startFunds}))
	}
	return h
}

func (h *harness) block() *core.Block {
	b := core.NewBlock(h.height, "prev", h.house.PubKey(), nil)
	b.Header.Timestamp = h.now()
	return b
}

func (h *harness) now() int64 { return baseTime + h.height*int64(time.Second) }

// advance moves the slot clock forward by n blocks.
func (h *harness) advance(n int64) { h.height += n }

func (h *harness) run(tx *core.Transaction) error {
	return h.exec.ExecuteTx(h.block(), tx)
}

func (h *harness) nonce(w *wallet.Wallet) uint64 {
	acc, err := h.state.GetAccount(w.PubKey())
	require.NoError(h.t, err)
	return acc.Nonce
}

func (h *harness) balance(addr string) uint64 {
	acc, err := h.state.GetAccount(addr)
	require.NoError(h.t, err)
	return acc.Balance
}

func (h *harness) fee() uint64 { return h.params.SignatureFee }

func (h *harness) bankrollVault() string {
	v, err := core.BankrollVaultAddress(h.house.PubKey())
	require.NoError(h.t, err)
	return v
}

func (h *harness) initBankroll(amount uint64) {
	tx, err := h.house.BankrollInit(testChainID, amount, h.nonce(h.house), h.fee())
	require.NoError(h.t, err)
	require.NoError(h.t, h.run(tx))
}

func (h *harness) placeTx(seed core.Seed, p uint8, amount uint64) *core.Transaction {
	tx, err := h.player.PlaceBet(testChainID, h.house.PubKey(), seed, p, amount, h.nonce(h.player), h.fee())
	require.NoError(h.t, err)
	return tx
}

func (h *harness) place(seed core.Seed, p uint8, amount uint64) *core.Bet {
	require.NoError(h.t, h.run(h.placeTx(seed, p, amount)))
	return h.bet(seed)
}

func (h *harness) betID(seed core.Seed) string {
	id, _, err := core.BetAddresses(h.house.PubKey(), h.player.PubKey(), seed)
	require.NoError(h.t, err)
	return id
}

func (h *harness) bet(seed core.Seed) *core.Bet {
	bet, err := h.state.GetBet(h.betID(seed))
	require.NoError(h.t, err)
	return bet
}

func (h *harness) resolveTx(by *wallet.Wallet, bet *core.Bet, att core.SigVerification) *core.Transaction {
	tx, err := by.ResolveBet(testChainID, bet, att, h.nonce(by), h.fee())
	require.NoError(h.t, err)
	return tx
}

func (h *harness) resolve(bet *core.Bet) error {
	tx, err := h.house.Resolve(testChainID, bet, h.nonce(h.house), h.fee())
	require.NoError(h.t, err)
	return h.run(tx)
}

func (h *harness) refund(by *wallet.Wallet, seed core.Seed) error {
	tx, err := by.RefundBet(testChainID, h.house.PubKey(), h.player.PubKey(), seed, h.nonce(by), h.fee())
	require.NoError(h.t, err)
	return h.run(tx)
}

// seedFor searches for a seed whose bet, placed at the current slot, rolls a
// win (won=true) or a loss for the house's deterministic signature.
func (h *harness) seedFor(won bool, p uint8, amount uint64) core.Seed {
	for i := uint64(0); i < 1000; i++ {
		var seed core.Seed
		binary.LittleEndian.PutUint64(seed[:], i)
		binary.LittleEndian.PutUint64(seed[8:], uint64(h.height))
		if _, err := h.state.GetBetReceipt(h.betID(seed)); err == nil {
			continue
		}
		if _, err := h.state.GetBet(h.betID(seed)); err == nil {
			continue
		}
		bet := &core.Bet{
			House:       h.house.PubKey(),
			Player:      h.player.PubKey(),
			Seed:        seed,
			Probability: p,
			Amount:      amount,
			Slot:        h.height,
			CreatedAt:   h.now(),
		}
		msg, err := bet.Message()
		require.NoError(h.t, err)
		roll := Roll(crypto.SignBytes(h.house.PrivKey(), msg))
		if (roll < p) == won {
			return seed
		}
	}
	h.t.Fatalf("no seed found for won=%v p=%d", won, p)
	return core.Seed{}
}

// total sums every balance the game can touch.
func (h *harness) total(extra ...string) uint64 {
	sum := h.balance(h.house.PubKey()) + h.balance(h.player.PubKey()) +
		h.balance(h.stranger.PubKey()) + h.balance(h.bankrollVault())
	for _, a := range extra {
		sum += h.balance(a)
	}
	return sum
}

func (h *harness) lastEvent(typ events.EventType) events.Event {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == typ {
			return h.events[i]
		}
	}
	h.t.Fatalf("no %s event", typ)
	return events.Event{}
}
