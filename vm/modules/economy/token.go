// Package economy implements the native token transfer.
package economy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

// Move debits amount from one account and credits it to another. It is the
// transfer primitive every module uses; it fails with core.ErrInsufficientFunds
// and leaves state untouched when from cannot cover amount.
func Move(state core.State, from, to string, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	src, err := state.GetAccount(from)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s has %d, need %d", core.ErrInsufficientFunds, from, src.Balance, amount)
	}
	dst, err := state.GetAccount(to)
	if err != nil {
		return err
	}
	if dst.Balance+amount < dst.Balance {
		return fmt.Errorf("balance overflow for %s", to)
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := state.SetAccount(src); err != nil {
		return err
	}
	return state.SetAccount(dst)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode transfer payload: %w", err)
	}
	if p.Amount == 0 {
		return errors.New("transfer amount must be > 0")
	}
	if p.To == "" {
		return errors.New("transfer to address required")
	}
	// Vault balances must only change through the dice module.
	if crypto.IsDerivedAddress(p.To) {
		return fmt.Errorf("%w: %s is a program-owned vault", core.ErrUnauthorized, p.To)
	}
	to, err := crypto.CanonicalPubKey(p.To)
	if err != nil {
		return fmt.Errorf("transfer recipient: %w", err)
	}
	p.To = to

	if err := Move(ctx.State, ctx.Tx.From, p.To, p.Amount); err != nil {
		return err
	}

	ctx.Emit(events.EventTokenTransfer, map[string]any{
		"from":   ctx.Tx.From,
		"to":     p.To,
		"amount": p.Amount,
	})
	return nil
}
