// Package dice implements the provably fair dice game.
//
// A house funds a bankroll. A player escrows a wager in a per-bet vault and
// picks a win threshold p in [1,99]. The house signs the bet's canonical
// message with its ed25519 key; that signature, verified on-chain, is hashed
// into a roll in [0,99] and the player wins iff roll < p. ed25519 signatures
// are deterministic, so the house cannot grind outcomes once the bet is
// placed, and anyone holding the signature can recompute the roll. If the
// house never resolves, the player refunds the wager after the timeout.
package dice

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
	"github.com/fyusuf-a/2026-q1-turbin3/crypto"
	"github.com/fyusuf-a/2026-q1-turbin3/events"
	"github.com/fyusuf-a/2026-q1-turbin3/vm"
	"github.com/fyusuf-a/2026-q1-turbin3/vm/modules/economy"
)

func init() {
	vm.Register(core.TxBankrollInit, handleBankrollInit)
	vm.Register(core.TxBankrollDeposit, handleBankrollDeposit)
	vm.Register(core.TxBankrollWithdraw, handleBankrollWithdraw)
	vm.Register(core.TxPlaceBet, handlePlaceBet)
	vm.Register(core.TxResolveBet, handleResolveBet)
	vm.Register(core.TxRefundBet, handleRefundBet)
}

func canonicalKey(field, h string) (string, error) {
	key, err := crypto.CanonicalPubKey(h)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

func handlePlaceBet(ctx *vm.Context, payload json.RawMessage) error {
	var p core.PlaceBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode place_bet payload: %w", err)
	}
	if p.Probability < ctx.Params.MinProbability || p.Probability > ctx.Params.MaxProbability {
		return fmt.Errorf("%w: %d not in [%d,%d]", core.ErrInvalidProbability,
			p.Probability, ctx.Params.MinProbability, ctx.Params.MaxProbability)
	}
	if p.Amount == 0 {
		return fmt.Errorf("%w: amount must be > 0", core.ErrInvalidWager)
	}
	house, err := canonicalKey("house", p.House)
	if err != nil {
		return err
	}
	player := ctx.Tx.From
	if _, err := loadBankroll(ctx.State, house); err != nil {
		return err
	}

	id, vault, err := core.BetAddresses(house, player, p.Seed)
	if err != nil {
		return err
	}
	if _, err := ctx.State.GetBet(id); err == nil {
		return fmt.Errorf("%w: bet %s is open", core.ErrDuplicateSeed, id)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking bet %s: %w", id, err)
	}
	if _, err := ctx.State.GetBetReceipt(id); err == nil {
		return fmt.Errorf("%w: bet %s already settled", core.ErrDuplicateSeed, id)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking receipt %s: %w", id, err)
	}

	if err := economy.Move(ctx.State, player, vault, p.Amount); err != nil {
		return err
	}
	bet := &core.Bet{
		ID:          id,
		House:       house,
		Player:      player,
		Seed:        p.Seed,
		Probability: p.Probability,
		Amount:      p.Amount,
		Slot:        ctx.Slot(),
		CreatedAt:   ctx.Now(),
		Vault:       vault,
		Status:      core.BetOpen,
	}
	if err := ctx.State.SetBet(bet); err != nil {
		return err
	}

	ctx.Emit(events.EventBetPlaced, map[string]any{
		"bet_id":      id,
		"house":       house,
		"player":      player,
		"seed":        p.Seed.String(),
		"probability": p.Probability,
		"amount":      p.Amount,
		"slot":        bet.Slot,
	})
	return nil
}

// loadOpenBet returns the open bet for (house, player, seed). A bet that has
// already been settled fails with core.ErrBetAlreadyClosed.
func loadOpenBet(state core.State, house, player string, seed core.Seed) (*core.Bet, error) {
	house, err := canonicalKey("house", house)
	if err != nil {
		return nil, err
	}
	player, err = canonicalKey("player", player)
	if err != nil {
		return nil, err
	}
	id, _, err := core.BetAddresses(house, player, seed)
	if err != nil {
		return nil, err
	}
	bet, err := state.GetBet(id)
	if err == nil {
		return bet, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("bet %s: %w", id, err)
	}
	rcpt, rerr := state.GetBetReceipt(id)
	if rerr == nil {
		return nil, fmt.Errorf("%w: bet %s was %s at slot %d", core.ErrBetAlreadyClosed, id, rcpt.Status, rcpt.ClosedSlot)
	}
	if !errors.Is(rerr, core.ErrNotFound) {
		return nil, fmt.Errorf("receipt %s: %w", id, rerr)
	}
	return nil, fmt.Errorf("%w: %s", core.ErrBetNotFound, id)
}

func handleResolveBet(ctx *vm.Context, payload json.RawMessage) error {
	var p core.ResolveBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode resolve_bet payload: %w", err)
	}
	bet, err := loadOpenBet(ctx.State, p.House, p.Player, p.Seed)
	if err != nil {
		return err
	}
	sig, err := verifyAttestation(ctx, bet, p.Signature)
	if err != nil {
		return err
	}

	s, err := Settle(bet.Amount, bet.Probability, Roll(sig), ctx.Params.HouseEdgeBps)
	if err != nil {
		return err
	}
	br, err := loadBankroll(ctx.State, bet.House)
	if err != nil {
		return err
	}
	if s.Won {
		// Debit first: a short bankroll aborts before the escrow moves.
		if err := debit(ctx.State, br, bet.Player, s.FromBankroll); err != nil {
			return err
		}
		if err := economy.Move(ctx.State, bet.Vault, bet.Player, bet.Amount); err != nil {
			return err
		}
	} else {
		if err := credit(ctx.State, br, bet.Vault, s.ToBankroll); err != nil {
			return err
		}
	}

	rcpt := &core.BetReceipt{
		Status:    core.BetResolved,
		Roll:      s.Roll,
		Won:       s.Won,
		Payout:    s.Payout,
		Signature: p.Signature,
	}
	if err := closeBet(ctx, bet, rcpt); err != nil {
		return err
	}

	ctx.Emit(events.EventBetResolved, map[string]any{
		"bet_id":        bet.ID,
		"house":         bet.House,
		"player":        bet.Player,
		"probability":   bet.Probability,
		"amount":        bet.Amount,
		"roll":          s.Roll,
		"won":           s.Won,
		"payout":        s.Payout,
		"from_bankroll": s.FromBankroll,
		"to_bankroll":   s.ToBankroll,
	})
	return nil
}

func handleRefundBet(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RefundBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode refund_bet payload: %w", err)
	}
	bet, err := loadOpenBet(ctx.State, p.House, p.Player, p.Seed)
	if err != nil {
		return err
	}
	if elapsed := ctx.Slot() - bet.Slot; elapsed < ctx.Params.RefundTimeout {
		return fmt.Errorf("%w: %d of %d slots elapsed", core.ErrBetNotExpired, elapsed, ctx.Params.RefundTimeout)
	}
	if err := economy.Move(ctx.State, bet.Vault, bet.Player, bet.Amount); err != nil {
		return err
	}
	if err := closeBet(ctx, bet, &core.BetReceipt{Status: core.BetRefunded, Payout: bet.Amount}); err != nil {
		return err
	}

	ctx.Emit(events.EventBetRefunded, map[string]any{
		"bet_id": bet.ID,
		"house":  bet.House,
		"player": bet.Player,
		"amount": bet.Amount,
	})
	return nil
}

// closeBet sweeps any residue in the vault to the player, deletes the vault
// and the bet, and writes the receipt. rcpt arrives with its outcome fields
// set; identity fields are filled in here.
func closeBet(ctx *vm.Context, bet *core.Bet, rcpt *core.BetReceipt) error {
	vault, err := ctx.State.GetAccount(bet.Vault)
	if err != nil {
		return err
	}
	if err := economy.Move(ctx.State, bet.Vault, bet.Player, vault.Balance); err != nil {
		return err
	}
	if err := ctx.State.DeleteAccount(bet.Vault); err != nil {
		return err
	}
	if err := ctx.State.DeleteBet(bet.ID); err != nil {
		return err
	}

	rcpt.ID = bet.ID
	rcpt.House = bet.House
	rcpt.Player = bet.Player
	rcpt.Seed = bet.Seed
	rcpt.Probability = bet.Probability
	rcpt.Amount = bet.Amount
	rcpt.ClosedBy = ctx.Tx.From
	rcpt.ClosedSlot = ctx.Slot()
	return ctx.State.SetBetReceipt(rcpt)
}
