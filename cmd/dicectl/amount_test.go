package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]uint64{
		"1":           1_000_000_000,
		"0.01":        10_000_000,
		"100":         100_000_000_000,
		"0.000000001": 1,
		"1.5":         1_500_000_000,
	}
	for in, want := range cases {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000000001", "99999999999999999999"} {
		_, err := parseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1", formatAmount(1_000_000_000))
	assert.Equal(t, "0.01985", formatAmount(19_850_000))
	assert.Equal(t, "0", formatAmount(0))
	assert.Equal(t, "18446744073.709551615", formatAmount(^uint64(0)))
}
