package core

import "fmt"

// Params are the chain's policy constants. They live in genesis so operators
// can tune them without touching handler code.
type Params struct {
	HouseEdgeBps   uint64 `json:"house_edge_bps"`  // basis points kept by the house on a win
	SignatureFee   uint64 `json:"signature_fee"`   // minimum fee per transaction, burned
	RefundTimeout  int64  `json:"refund_timeout"`  // slots before an open bet becomes refundable
	MinProbability uint8  `json:"min_probability"` // inclusive
	MaxProbability uint8  `json:"max_probability"` // inclusive
}

// BasisPoints is the fixed-point denominator for HouseEdgeBps.
const BasisPoints = 10_000

// DefaultParams returns the production policy: 1.5% edge, 5000 fee, 1000 slots.
func DefaultParams() Params {
	return Params{
		HouseEdgeBps:   150,
		SignatureFee:   5_000,
		RefundTimeout:  1_000,
		MinProbability: 1,
		MaxProbability: 99,
	}
}

// Validate rejects parameter sets that would break the payout formula.
func (p Params) Validate() error {
	if p.HouseEdgeBps >= BasisPoints {
		return fmt.Errorf("house_edge_bps must be < %d, got %d", BasisPoints, p.HouseEdgeBps)
	}
	if p.RefundTimeout <= 0 {
		return fmt.Errorf("refund_timeout must be > 0, got %d", p.RefundTimeout)
	}
	if p.MinProbability < 1 || p.MaxProbability > 99 || p.MinProbability > p.MaxProbability {
		return fmt.Errorf("probability range [%d,%d] must lie within [1,99]", p.MinProbability, p.MaxProbability)
	}
	return nil
}
