// Package hashmath implements 128-bit hash-keyspace arithmetic and the
// fixed-scale percentage semantics used to compare shard widths.
package hashmath

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PCTComparisonScale is the decimal scale used for keyspace percentages.
// SoftCmp treats two pctWidth values as fuzzy-equal when they differ by less
// than one unit at the next-coarser scale, 10^-(PCTComparisonScale-1).
const PCTComparisonScale = 10

var (
	// keyspaceWidth is 2^128, the size of the Kinesis hash keyspace.
	keyspaceWidth = new(big.Int).Lsh(big.NewInt(1), 128)

	// MaxHashKey is 2^128 - 1, the largest legal hash key value.
	MaxHashKey = new(big.Int).Sub(keyspaceWidth, big.NewInt(1))

	keyspaceWidthDecimal = decimal.NewFromBigInt(keyspaceWidth, 0)
)

// HashKey is an unsigned 128-bit integer in [0, 2^128 - 1].
type HashKey struct {
	v *big.Int
}

// Zero is the lowest legal hash key.
func Zero() HashKey { return HashKey{v: big.NewInt(0)} }

// Max is the highest legal hash key, 2^128 - 1.
func Max() HashKey { return HashKey{v: new(big.Int).Set(MaxHashKey)} }

// NewHashKey validates and wraps an arbitrary-precision integer as a HashKey.
func NewHashKey(v *big.Int) (HashKey, error) {
	if v.Sign() < 0 || v.Cmp(MaxHashKey) > 0 {
		return HashKey{}, fmt.Errorf("hashmath: value %s outside [0, 2^128-1]", v.String())
	}
	return HashKey{v: new(big.Int).Set(v)}, nil
}

// MustParse parses a decimal string into a HashKey, panicking on failure.
// Intended for literal hash keys in tests and adapters converting from the
// stream control plane's decimal-string shard boundaries.
func MustParse(s string) HashKey {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("hashmath: invalid hash key literal %q", s))
	}
	hk, err := NewHashKey(v)
	if err != nil {
		panic(err)
	}
	return hk
}

// String renders the key as a base-10 string, the wire format used by the
// stream control plane's shard hash-key-range fields.
func (h HashKey) String() string {
	if h.v == nil {
		return "0"
	}
	return h.v.String()
}

// Big returns the underlying big.Int. The returned value must not be
// mutated; callers that need to mutate should Set from it.
func (h HashKey) Big() *big.Int {
	if h.v == nil {
		return big.NewInt(0)
	}
	return h.v
}

// Cmp compares two hash keys: -1, 0, or 1.
func (h HashKey) Cmp(o HashKey) int {
	return h.Big().Cmp(o.Big())
}

// Add returns h + n, clamped to error if it would exceed MaxHashKey.
func (h HashKey) Add(n int64) (HashKey, error) {
	sum := new(big.Int).Add(h.Big(), big.NewInt(n))
	return NewHashKey(sum)
}

// Sub returns h - n.
func (h HashKey) Sub(n int64) (HashKey, error) {
	diff := new(big.Int).Sub(h.Big(), big.NewInt(n))
	return NewHashKey(diff)
}

// AddBig returns h + n for an arbitrary-precision offset, as produced by
// OffsetFromPct when converting a keyspace share into a split point.
func (h HashKey) AddBig(n *big.Int) (HashKey, error) {
	sum := new(big.Int).Add(h.Big(), n)
	return NewHashKey(sum)
}

// SubBig returns h - n for an arbitrary-precision offset.
func (h HashKey) SubBig(n *big.Int) (HashKey, error) {
	diff := new(big.Int).Sub(h.Big(), n)
	return NewHashKey(diff)
}

// Width returns the inclusive width of the range [start, end]: end-start+1.
func Width(start, end HashKey) *big.Int {
	w := new(big.Int).Sub(end.Big(), start.Big())
	w.Add(w, big.NewInt(1))
	return w
}

// PctWidth returns width / 2^128 as a decimal truncated (rounded toward
// zero) to PCTComparisonScale digits. Digits past that scale are dropped
// rather than rounded half-down, so the result can be one unit at that scale
// below the half-down value.
func PctWidth(width *big.Int) decimal.Decimal {
	num := decimal.NewFromBigInt(width, 0)
	return num.DivRound(keyspaceWidthDecimal, PCTComparisonScale+2).
		RoundDown(PCTComparisonScale).
		Truncate(PCTComparisonScale)
}

// TargetShare returns 1/n as a decimal rounded the same way PctWidth rounds
// actual shard widths, so a shard's pctWidth can be compared directly
// against the per-shard target share a rebalance pass is converging on.
func TargetShare(n int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return one.DivRound(decimal.NewFromInt(int64(n)), PCTComparisonScale+2).
		RoundDown(PCTComparisonScale).
		Truncate(PCTComparisonScale)
}

// OffsetFromPct returns the hash-unit offset corresponding to a keyspace
// percentage, i.e. pct * 2^128, rounded down to an integer offset.
func OffsetFromPct(pct decimal.Decimal) *big.Int {
	offset := pct.Mul(keyspaceWidthDecimal)
	return offset.Truncate(0).BigInt()
}

// SoftCmp implements the fuzzy-equality comparison law: two percentages are
// equal if their absolute difference is smaller than one unit at scale
// PCT_COMPARISON_SCALE-1, i.e. 10^-9 (the "one unit at
// 10^(-PCT_COMPARISON_SCALE+1)" rule).
// Otherwise it returns the sign of (a - b).
func SoftCmp(a, b decimal.Decimal) int {
	diff := a.Sub(b).Abs()
	if diff.LessThan(tolerance) {
		return 0
	}
	if a.GreaterThan(b) {
		return 1
	}
	return -1
}

// tolerance is 10^-(PCT_COMPARISON_SCALE-1) = 10^-9.
var tolerance = decimal.New(1, -(PCTComparisonScale - 1))
