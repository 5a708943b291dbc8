package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// unitExp is the number of decimal places in one whole unit: 1 unit = 1e9
// base units.
const unitExp = 9

// parseAmount converts a whole-unit amount such as "1.5" into base units.
func parseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %s", s)
	}
	base := d.Shift(unitExp)
	if !base.Equal(base.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", s, unitExp)
	}
	v, err := strconv.ParseUint(base.Truncate(0).String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %s out of range", s)
	}
	return v, nil
}

// formatAmount renders base units as whole units.
func formatAmount(v uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -unitExp).String()
}
