package dice

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
)

func loadBankroll(state core.State, house string) (*core.Bankroll, error) {
	br, err := state.GetBankroll(house)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: house %s", core.ErrBankrollNotFound, house)
	}
	if err != nil {
		return nil, fmt.Errorf("bankroll %s: %w", house, err)
	}
	return br, nil
}

func bankrollBalance(state core.State, br *core.Bankroll) (uint64, error) {
	acc, err := state.GetAccount(br.Vault)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// credit moves amount from an account into the bankroll.
func credit(state core.State, br *core.Bankroll, from string, amount uint64) error {
	return economy.Move(state, from, br.Vault, amount)
}

// debit pays amount out of the bankroll. It never drives the bankroll
// negative: a shortfall fails with core.ErrInsufficientLiquidity.
func debit(state core.State, br *core.Bankroll, to string, amount uint64) error {
	bal, err := bankrollBalance(state, br)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("%w: bankroll %s holds %d, need %d", core.ErrInsufficientLiquidity, br.Owner, bal, amount)
	}
	return economy.Move(state, br.Vault, to, amount)
}

func decodeBankrollPayload(payload json.RawMessage, typ core.TxType) (core.BankrollPayload, error) {
	var p core.BankrollPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	if p.Amount == 0 {
		return p, errors.New("amount must be > 0")
	}
	return p, nil
}

func handleBankrollInit(ctx *vm.Context, payload json.RawMessage) error {
	p, err := decodeBankrollPayload(payload, core.TxBankrollInit)
	if err != nil {
		return err
	}
	house := ctx.Tx.From

	if _, err := ctx.State.GetBankroll(house); err == nil {
		return fmt.Errorf("%w: house %s", core.ErrBankrollExists, house)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking bankroll %s: %w", house, err)
	}

	vault, err := core.BankrollVaultAddress(house)
	if err != nil {
		return err
	}
	br := &core.Bankroll{Owner: house, Vault: vault, CreatedAt: ctx.Now()}
	if err := credit(ctx.State, br, house, p.Amount); err != nil {
		return err
	}
	if err := ctx.State.SetBankroll(br); err != nil {
		return err
	}

	ctx.Emit(events.EventBankrollInit, map[string]any{
		"house":   house,
		"vault":   vault,
		"amount":  p.Amount,
		"balance": p.Amount,
	})
	return nil
}

func handleBankrollDeposit(ctx *vm.Context, payload json.RawMessage) error {
	p, err := decodeBankrollPayload(payload, core.TxBankrollDeposit)
	if err != nil {
		return err
	}
	br, err := loadBankroll(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := credit(ctx.State, br, br.Owner, p.Amount); err != nil {
		return err
	}
	return emitFund(ctx, br, "deposit", p.Amount)
}

// handleBankrollWithdraw lets the house take liquidity back. Escrowed wagers
// live in per-bet vaults, so they can never be withdrawn this way.
func handleBankrollWithdraw(ctx *vm.Context, payload json.RawMessage) error {
	p, err := decodeBankrollPayload(payload, core.TxBankrollWithdraw)
	if err != nil {
		return err
	}
	br, err := loadBankroll(ctx.State, ctx.Tx.From)
	if err != nil {
		return err
	}
	if err := debit(ctx.State, br, br.Owner, p.Amount); err != nil {
		return err
	}
	return emitFund(ctx, br, "withdraw", p.Amount)
}

func emitFund(ctx *vm.Context, br *core.Bankroll, direction string, amount uint64) error {
	bal, err := bankrollBalance(ctx.State, br)
	if err != nil {
		return err
	}
	ctx.Emit(events.EventBankrollFund, map[string]any{
		"house":     br.Owner,
		"direction": direction,
		"amount":    amount,
		"balance":   bal,
	})
	return nil
}
