package dice

import (
	"fmt"
	"math/bits"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
)

// Settlement describes how a resolved bet moves funds.
type Settlement struct {
	Roll uint8
	Won  bool
	// Payout is the total returned to the player: the escrowed wager plus
	// FromBankroll on a win, zero on a loss.
	Payout uint64
	// FromBankroll is the profit the house pays on a win.
	FromBankroll uint64
	// ToBankroll is the forfeited wager on a loss.
	ToBankroll uint64
}

// Settle computes the settlement of a wager of amount at win threshold
// probability for the given roll. A win pays
//
//	amount + amount * (100-p) * (10000-edge) / (p * 10000)
//
// rounded down: fair odds on the profit, minus the house edge. At p=50 and a
// 150 bps edge the player receives 1.985x the wager. The edge is taken from
// the profit only, so this is not the flat amount*(100-edge%)/p multiplier:
// both give 1.985x at p=50, but at p=1 this pays 98.515x where the flat
// multiplier would pay 98.5x. The product is formed in
// 128 bits; a result that does not fit in a uint64 fails with
// core.ErrPayoutOverflow.
func Settle(amount uint64, probability, roll uint8, edgeBps uint64) (Settlement, error) {
	if probability < 1 || probability >= RollRange {
		return Settlement{}, fmt.Errorf("%w: %d", core.ErrInvalidProbability, probability)
	}
	if roll >= RollRange {
		return Settlement{}, fmt.Errorf("roll %d out of range", roll)
	}
	if edgeBps >= core.BasisPoints {
		return Settlement{}, fmt.Errorf("%w: house edge %d bps", core.ErrPayoutOverflow, edgeBps)
	}

	s := Settlement{Roll: roll, Won: roll < probability}
	if !s.Won {
		s.ToBankroll = amount
		return s, nil
	}

	num := uint64(RollRange-probability) * (core.BasisPoints - edgeBps)
	den := uint64(probability) * core.BasisPoints
	hi, lo := bits.Mul64(amount, num)
	if hi >= den {
		return Settlement{}, fmt.Errorf("%w: profit on %d at p=%d", core.ErrPayoutOverflow, amount, probability)
	}
	profit, _ := bits.Div64(hi, lo, den)
	payout, carry := bits.Add64(amount, profit, 0)
	if carry != 0 {
		return Settlement{}, fmt.Errorf("%w: payout on %d at p=%d", core.ErrPayoutOverflow, amount, probability)
	}
	s.Payout = payout
	s.FromBankroll = profit
	return s, nil
}
