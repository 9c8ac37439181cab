package hashmath

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHashKeyBounds(t *testing.T) {
	_, err := NewHashKey(big.NewInt(-1))
	require.Error(t, err)

	_, err = NewHashKey(new(big.Int).Add(MaxHashKey, big.NewInt(1)))
	require.Error(t, err)

	hk, err := NewHashKey(big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "0", hk.String())
}

func TestPctWidthHalfKeyspace(t *testing.T) {
	half := new(big.Int).Rsh(keyspaceWidth, 1)
	pct := PctWidth(half)
	expected := decimal.NewFromFloat(0.5)
	assert.True(t, SoftCmp(pct, expected) == 0, "expected %s ≈ %s", pct, expected)
}

func TestPctWidthFullKeyspace(t *testing.T) {
	pct := PctWidth(keyspaceWidth)
	assert.True(t, SoftCmp(pct, decimal.NewFromInt(1)) == 0)
}

func TestSoftCmpFuzzyEqualityLaw(t *testing.T) {
	a := decimal.NewFromFloat(0.3333333333)
	b := a.Add(decimal.New(1, -10)) // differs by 10^-10, within tolerance
	assert.Equal(t, 0, SoftCmp(a, b))

	c := a.Add(decimal.New(5, -9)) // differs well beyond tolerance
	assert.Equal(t, -1, SoftCmp(a, c))
	assert.Equal(t, 1, SoftCmp(c, a))
}

func TestOffsetFromPctRoundTrip(t *testing.T) {
	third := decimal.NewFromFloat(1.0).Div(decimal.NewFromInt(3)).Truncate(PCTComparisonScale)
	offset := OffsetFromPct(third)
	// offset should be roughly a third of the keyspace
	lower := new(big.Int).Div(keyspaceWidth, big.NewInt(4))
	upper := new(big.Int).Div(keyspaceWidth, big.NewInt(2))
	assert.True(t, offset.Cmp(lower) > 0)
	assert.True(t, offset.Cmp(upper) < 0)
}

func TestWidthInclusive(t *testing.T) {
	start := Zero()
	end, err := start.Add(9)
	require.NoError(t, err)
	w := Width(start, end)
	assert.Equal(t, big.NewInt(10), w)
}
