package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/config"
	"github.com/fyusuf-a/2026-q1-turbin3/consensus"
	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/indexer"
	"github.com/fyusuf-a/2026-q1-turbin3/internal/testutil"
	"github.com/fyusuf-a/2026-q1-turbin3/rpc"
	"github.com/fyusuf-a/2026-q1-turbin3/storage"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/wallet"

	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/dice"
	_ "github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
)

const (
	chainID   = "dicechain-test"
	authToken = "s3cret"
	unit      = uint64(1_000_000_000)
)

// node is a single-validator chain served over HTTP.
type node struct {
	poa     *consensus.PoA
	handler *rpc.Handler
	client  *rpc.Client
	house   *wallet.Wallet
	player  *wallet.Wallet
}

func seededWallet(t *testing.T, b byte) *wallet.Wallet {
	t.Helper()
	priv, err := crypto.KeyFromSeed(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return wallet.New(priv)
}

func startNode(t *testing.T) *node {
	t.Helper()
	house := seededWallet(t, 1)
	player := seededWallet(t, 2)

	cfg := config.DefaultConfig()
	cfg.Genesis.ChainID = chainID
	cfg.Genesis.Alloc = map[string]uint64{house.PubKey(): 1_000 * unit, player.PubKey(): 10 * unit}
	cfg.Validators = []string{house.PubKey()}

	db := testutil.NewMemDB()
	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	require.NoError(t, bc.Init())
	genesis, err := config.CreateGenesisBlock(cfg, state, house.PrivKey())
	require.NoError(t, err)
	require.NoError(t, bc.AddBlock(genesis))

	emitter := events.NewEmitter(nil)
	idx := indexer.New(db, emitter, nil)
	mempool := core.NewMempool(chainID)
	exec := vm.NewExecutor(state, cfg.Genesis.Params, emitter, nil)
	poa := consensus.New(cfg, bc, state, mempool, exec, emitter, house.PrivKey(), nil)

	handler := rpc.NewHandler(bc, mempool, state.Committed(), idx, cfg.Genesis.Params, chainID)
	srv := rpc.NewServer("127.0.0.1:0", handler, authToken, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return &node{
		poa:     poa,
		handler: handler,
		client:  rpc.NewClient("http://"+srv.Addr(), authToken),
		house:   house,
		player:  player,
	}
}

// commit produces the next block and requires it to include n transactions.
func (n *node) commit(t *testing.T, txs int) {
	t.Helper()
	block, err := n.poa.ProduceBlock()
	require.NoError(t, err)
	require.Len(t, block.Transactions, txs)
}

func (n *node) nonce(t *testing.T, w *wallet.Wallet) uint64 {
	t.Helper()
	bal, err := n.client.Balance(context.Background(), w.PubKey())
	require.NoError(t, err)
	return bal.Nonce
}

func dispatch(h *rpc.Handler, method string, params any) rpc.Response {
	raw, _ := json.Marshal(params)
	return h.Dispatch(rpc.Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestDispatchErrors(t *testing.T) {
	n := startNode(t)

	resp := dispatch(n.handler, "noSuchMethod", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)

	resp = dispatch(n.handler, "getBalance", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp = dispatch(n.handler, "getBet", map[string]string{"house": n.house.PubKey()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp = dispatch(n.handler, "getBet", map[string]string{"id": "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)

	resp = dispatch(n.handler, "getBankroll", map[string]string{"house": n.house.PubKey()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeNotFound, resp.Error.Code)

	resp = dispatch(n.handler, "getBetsByPlayer", map[string]string{"player": n.player.PubKey()})
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{}, resp.Result)

	tx, err := n.player.Transfer("other-chain", n.house.PubKey(), 1, 0, 5_000)
	require.NoError(t, err)
	resp = dispatch(n.handler, "sendTx", tx)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)
}

func TestServerAuth(t *testing.T) {
	n := startNode(t)

	anon := rpc.NewClient(n.client.BaseURL, "")
	_, err := anon.BlockHeight(context.Background())
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeUnauthorized, rpcErr.Code)

	res, err := http.Get(n.client.BaseURL)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	h, err := n.client.BlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), h)
}

func TestBetLifecycleOverRPC(t *testing.T) {
	ctx := context.Background()
	n := startNode(t)
	c := n.client

	params, err := c.Params(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultParams(), params)
	fee := params.SignatureFee

	tx, err := n.house.BankrollInit(chainID, 100*unit, n.nonce(t, n.house), fee)
	require.NoError(t, err)
	id, err := c.SendTx(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, id)

	_, err = c.SendTx(ctx, tx)
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeTxRejected, rpcErr.Code)
	n.commit(t, 1)

	br, err := c.Bankroll(ctx, n.house.PubKey())
	require.NoError(t, err)
	assert.Equal(t, 100*unit, br.Balance)
	assert.Equal(t, n.house.PubKey(), br.Owner)

	seed := core.Seed{0xca, 0xfe}
	wager := unit / 100
	tx, err = n.player.PlaceBet(chainID, n.house.PubKey(), seed, 50, wager, n.nonce(t, n.player), fee)
	require.NoError(t, err)
	_, err = c.SendTx(ctx, tx)
	require.NoError(t, err)
	// A second bet with the same seed is accepted by the pool but dropped
	// from the block.
	dup, err := n.player.PlaceBet(chainID, n.house.PubKey(), seed, 50, wager, n.nonce(t, n.player)+1, fee)
	require.NoError(t, err)
	_, err = c.SendTx(ctx, dup)
	require.NoError(t, err)
	n.commit(t, 1)

	mp := dispatch(n.handler, "getMempoolSize", nil)
	assert.Equal(t, 0, mp.Result)

	bet, err := c.Bet(ctx, n.house.PubKey(), n.player.PubKey(), seed)
	require.NoError(t, err)
	assert.Equal(t, core.BetOpen, bet.Status)
	assert.Equal(t, wager, bet.Amount)
	byID, err := c.BetByID(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet, byID)

	ids, err := c.BetsByPlayer(ctx, n.player.PubKey())
	require.NoError(t, err)
	assert.Equal(t, []string{bet.ID}, ids)
	ids, err = c.BetsByHouse(ctx, n.house.PubKey())
	require.NoError(t, err)
	assert.Equal(t, []string{bet.ID}, ids)

	before, err := c.Balance(ctx, n.player.PubKey())
	require.NoError(t, err)
	tx, err = n.house.Resolve(chainID, bet, n.nonce(t, n.house), fee)
	require.NoError(t, err)
	_, err = c.SendTx(ctx, tx)
	require.NoError(t, err)
	n.commit(t, 1)

	_, err = c.Bet(ctx, n.house.PubKey(), n.player.PubKey(), seed)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.CodeNotFound, rpcErr.Code)

	rcpt, err := c.BetReceipt(ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BetResolved, rcpt.Status)
	assert.Equal(t, rcpt.Roll < 50, rcpt.Won)

	after, err := c.Balance(ctx, n.player.PubKey())
	require.NoError(t, err)
	if rcpt.Won {
		assert.Equal(t, uint64(19_850_000), rcpt.Payout)
		assert.Equal(t, before.Balance+rcpt.Payout, after.Balance)
	} else {
		assert.Equal(t, before.Balance, after.Balance)
	}

	height, err := c.BlockHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), height)
	slot, err := c.Slot(ctx)
	require.NoError(t, err)
	assert.Equal(t, height, slot)
}
