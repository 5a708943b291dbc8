package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
)

// Client is a JSON-RPC 2.0 client for a node.
type Client struct {
	BaseURL   string
	AuthToken string
	HTTP      *http.Client
}

// NewClient returns a Client for the node at base, e.g. "http://127.0.0.1:8545".
func NewClient(base, authToken string) *Client {
	return &Client{
		BaseURL:   base,
		AuthToken: authToken,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Call invokes method with params and decodes the result into out. A JSON-RPC
// error is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	id := uuid.NewString()
	body, err := json.Marshal(Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("%s: http %d", method, res.StatusCode)
	}

	var resp struct {
		ID     any             `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if got, _ := resp.ID.(string); got != id {
		return fmt.Errorf("%s: response id %v does not match request %s", method, resp.ID, id)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}

// BlockHeight returns the current tip height.
func (c *Client) BlockHeight(ctx context.Context) (int64, error) {
	var h int64
	err := c.Call(ctx, "getBlockHeight", nil, &h)
	return h, err
}

// Slot returns the ledger clock used for refund timeouts.
func (c *Client) Slot(ctx context.Context) (int64, error) {
	var s int64
	err := c.Call(ctx, "getSlot", nil, &s)
	return s, err
}

// Balance returns the balance and nonce of address.
func (c *Client) Balance(ctx context.Context, address string) (BalanceResult, error) {
	var out BalanceResult
	err := c.Call(ctx, "getBalance", map[string]string{"address": address}, &out)
	return out, err
}

// Params returns the chain params the node enforces.
func (c *Client) Params(ctx context.Context) (core.Params, error) {
	var out core.Params
	err := c.Call(ctx, "getParams", nil, &out)
	return out, err
}

// Bankroll returns house's bankroll and its balance.
func (c *Client) Bankroll(ctx context.Context, house string) (BankrollResult, error) {
	var out BankrollResult
	err := c.Call(ctx, "getBankroll", map[string]string{"house": house}, &out)
	return out, err
}

// Bet returns the open bet for (house, player, seed).
func (c *Client) Bet(ctx context.Context, house, player string, seed core.Seed) (*core.Bet, error) {
	var out core.Bet
	if err := c.Call(ctx, "getBet", betParams{House: house, Player: player, Seed: seed.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BetByID returns an open bet by its ID.
func (c *Client) BetByID(ctx context.Context, id string) (*core.Bet, error) {
	var out core.Bet
	if err := c.Call(ctx, "getBet", betParams{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BetReceipt returns the receipt of a closed bet.
func (c *Client) BetReceipt(ctx context.Context, id string) (*core.BetReceipt, error) {
	var out core.BetReceipt
	if err := c.Call(ctx, "getBetReceipt", betParams{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BetsByPlayer lists the IDs of bets placed by player.
func (c *Client) BetsByPlayer(ctx context.Context, player string) ([]string, error) {
	var out []string
	err := c.Call(ctx, "getBetsByPlayer", map[string]string{"player": player}, &out)
	return out, err
}

// BetsByHouse lists the IDs of bets placed against house.
func (c *Client) BetsByHouse(ctx context.Context, house string) ([]string, error) {
	var out []string
	err := c.Call(ctx, "getBetsByHouse", map[string]string{"house": house}, &out)
	return out, err
}

// SendTx submits a signed transaction and returns its ID.
func (c *Client) SendTx(ctx context.Context, tx *core.Transaction) (string, error) {
	var out SendTxResult
	if err := c.Call(ctx, "sendTx", tx, &out); err != nil {
		return "", err
	}
	return out.TxID, nil
}
