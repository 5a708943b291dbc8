package dice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyusuf-a/2026-q1-turbin3/core"
)

func TestSettleWin(t *testing.T) {
	cases := []struct {
		name   string
		amount uint64
		p      uint8
		edge   uint64
		payout uint64
	}{
		{"even odds", 10_000_000, 50, 150, 19_850_000},
		{"long shot", 10_000_000, 1, 150, 985_150_000},
		{"near certain", 10_000_000, 99, 150, 10_099_494},
		{"profit rounds to zero", 1, 50, 150, 1},
		{"no edge pays fair odds", 100, 25, 0, 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Settle(tc.amount, tc.p, 0, tc.edge)
			require.NoError(t, err)
			assert.True(t, s.Won)
			assert.Equal(t, tc.payout, s.Payout)
			assert.Equal(t, tc.payout-tc.amount, s.FromBankroll)
			assert.Zero(t, s.ToBankroll)
		})
	}
}

func TestSettleThreshold(t *testing.T) {
	win, err := Settle(1000, 50, 49, 150)
	require.NoError(t, err)
	assert.True(t, win.Won)

	loss, err := Settle(1000, 50, 50, 150)
	require.NoError(t, err)
	assert.False(t, loss.Won)
	assert.Equal(t, uint64(1000), loss.ToBankroll)
	assert.Zero(t, loss.Payout)
	assert.Zero(t, loss.FromBankroll)

	loss, err = Settle(1000, 1, 1, 150)
	require.NoError(t, err)
	assert.False(t, loss.Won)

	win, err = Settle(1000, 99, 98, 150)
	require.NoError(t, err)
	assert.True(t, win.Won)
}

func TestSettleRejectsBadInput(t *testing.T) {
	_, err := Settle(1000, 0, 0, 150)
	assert.ErrorIs(t, err, core.ErrInvalidProbability)
	_, err = Settle(1000, 100, 0, 150)
	assert.ErrorIs(t, err, core.ErrInvalidProbability)
	_, err = Settle(1000, 50, 100, 150)
	assert.Error(t, err)
}

func TestSettleOverflow(t *testing.T) {
	_, err := Settle(math.MaxUint64, 1, 0, 150)
	assert.ErrorIs(t, err, core.ErrPayoutOverflow)

	_, err = Settle(math.MaxUint64, 99, 0, 150)
	assert.ErrorIs(t, err, core.ErrPayoutOverflow)

	s, err := Settle(math.MaxUint64/2, 50, 0, 150)
	require.NoError(t, err)
	assert.Greater(t, s.Payout, uint64(math.MaxUint64/2))

	// A losing roll never overflows.
	s, err = Settle(math.MaxUint64, 1, 50, 150)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), s.ToBankroll)
}
