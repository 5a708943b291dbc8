package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/indexer"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.StateReader
	indexer *indexer.Indexer
	params  core.Params
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler. state should expose committed data only,
// such as storage.StateDB.Committed.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.StateReader, idx *indexer.Indexer, params core.Params, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, params: params, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())

	case "getSlot":
		return okResponse(req.ID, h.bc.Slot())

	case "getBlock":
		return h.getBlock(req)

	case "getBalance":
		return h.getBalance(req)

	case "getBankroll":
		return h.getBankroll(req)

	case "getBet":
		return h.getBet(req)

	case "getBetReceipt":
		return h.getBetReceipt(req)

	case "getBetsByPlayer":
		return h.getBetsBy(req, "player", h.indexer.GetBetsByPlayer)

	case "getBetsByHouse":
		return h.getBetsBy(req, "house", h.indexer.GetBetsByHouse)

	case "getParams":
		return okResponse(req.ID, h.params)

	case "sendTx":
		return h.sendTx(req)

	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// stateError maps a state lookup failure onto a JSON-RPC error.
func stateError(id any, err error) Response {
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(id, CodeNotFound, err.Error())
	}
	return errResponse(id, CodeInternalError, err.Error())
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Height != nil {
		block, err = h.bc.GetBlockByHeight(*params.Height)
	} else {
		block = h.bc.Tip()
	}
	if err != nil {
		return stateError(req.ID, err)
	}
	if block == nil {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, BalanceResult{Address: params.Address, Balance: acc.Balance, Nonce: acc.Nonce})
}

func (h *Handler) getBankroll(req Request) Response {
	var params struct {
		House string `json:"house"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.House == "" {
		return errResponse(req.ID, CodeInvalidParams, "house is required")
	}
	br, err := h.state.GetBankroll(params.House)
	if err != nil {
		return stateError(req.ID, err)
	}
	vault, err := h.state.GetAccount(br.Vault)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, BankrollResult{Bankroll: *br, Balance: vault.Balance})
}

// betParams identifies a bet either by ID or by its (house, player, seed)
// triple.
type betParams struct {
	ID     string `json:"id"`
	House  string `json:"house"`
	Player string `json:"player"`
	Seed   string `json:"seed"`
}

func (p betParams) betID() (string, error) {
	if p.ID != "" {
		return p.ID, nil
	}
	if p.House == "" || p.Player == "" || p.Seed == "" {
		return "", errors.New("id or house, player and seed are required")
	}
	seed, err := core.ParseSeed(p.Seed)
	if err != nil {
		return "", err
	}
	id, _, err := core.BetAddresses(p.House, p.Player, seed)
	return id, err
}

func (h *Handler) getBet(req Request) Response {
	var params betParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := params.betID()
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	bet, err := h.state.GetBet(id)
	if err != nil {
		return stateError(req.ID, err)
	}
	return okResponse(req.ID, bet)
}

func (h *Handler) getBetReceipt(req Request) Response {
	var params betParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	id, err := params.betID()
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	rcpt, err := h.state.GetBetReceipt(id)
	if err != nil {
		return stateError(req.ID, err)
	}
	return okResponse(req.ID, rcpt)
}

func (h *Handler) getBetsBy(req Request, field string, lookup func(string) ([]string, error)) Response {
	var params map[string]string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	key := params[field]
	if key == "" {
		return errResponse(req.ID, CodeInvalidParams, field+" is required")
	}
	ids, err := lookup(key)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if ids == nil {
		ids = []string{}
	}
	return okResponse(req.ID, ids)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeTxRejected, err.Error())
	}
	return okResponse(req.ID, SendTxResult{TxID: tx.ID})
}
