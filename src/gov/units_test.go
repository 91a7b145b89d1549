package gov

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundTrip(t *testing.T) {
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, "1", FormatEther(oneEther))

	back, err := ParseEther(FormatEther(oneEther))
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(oneEther))

	// beyond uint64
	huge, _ := new(big.Int).SetString("123456789012345678901234567890123", 10)
	s := FormatUnits(huge, 18)
	assert.Equal(t, "123456789012345.678901234567890123", s)
	back, err = ParseUnits(s, 18)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(huge))
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", FormatUnits(nil, 18))
	assert.Equal(t, "0", FormatUnits(big.NewInt(0), 18))
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500), 3))
	assert.Equal(t, "0.000000000000000001", FormatUnits(big.NewInt(1), 18))
	assert.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
}

func TestParseUnitsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0.0000000000000000001", "1.2.3"} {
		_, err := ParseEther(in)
		assert.Error(t, err, in)
	}
	v, err := ParseUnits(" 2.25 ", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(225), v.Int64())
}

func TestNewAmount(t *testing.T) {
	a := NewAmount(big.NewInt(2500), 3)
	assert.Equal(t, Amount{Raw: "2500", Formatted: "2.5"}, a)
	assert.Equal(t, Amount{Raw: "0", Formatted: "0"}, NewAmount(nil, 18))
}
