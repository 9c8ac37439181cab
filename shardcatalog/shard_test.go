package shardcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinesis-scaling-utils/hashmath"
)

func mustShardInfo(t *testing.T, id string, start, end int64) ShardInfo {
	t.Helper()
	s := Shard{ID: id, StartHash: hk(start), EndHash: hk(end), Status: StatusOpen}
	info, err := NewShardInfo(s)
	require.NoError(t, err)
	return info
}

func hk(n int64) hashmath.HashKey {
	z := hashmath.Zero()
	if n == 0 {
		return z
	}
	v, err := z.Add(n)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNewOpenShardSetValidCoverage(t *testing.T) {
	half := halfMax(t)
	s1 := mustShardInfo(t, "s1", 0, half)
	upper, err := hk(half).Add(1)
	require.NoError(t, err)
	s2raw := Shard{ID: "s2", StartHash: upper, EndHash: hashmath.Max(), Status: StatusOpen}
	s2, err := NewShardInfo(s2raw)
	require.NoError(t, err)

	set, err := NewOpenShardSet([]ShardInfo{s2, s1})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	asc := set.Ascending()
	assert.Equal(t, "s1", asc[0].ID)
	assert.Equal(t, "s2", asc[1].ID)

	desc := set.Descending()
	assert.Equal(t, "s2", desc[0].ID)
	assert.Equal(t, "s2", set.HighestShardID())
}

func halfMax(t *testing.T) int64 {
	t.Helper()
	// an arbitrary interior boundary well within int64 range, used only to
	// build a simple two-shard fixture for these unit tests.
	return 1_000_000_000
}

func TestNewOpenShardSetRejectsGap(t *testing.T) {
	s1 := mustShardInfo(t, "s1", 0, 99)
	s2 := mustShardInfo(t, "s2", 101, 999999)
	_, err := NewOpenShardSet([]ShardInfo{s1, s2})
	require.Error(t, err)
}

func TestNewOpenShardSetRejectsOverlap(t *testing.T) {
	s1 := mustShardInfo(t, "s1", 0, 100)
	s2 := mustShardInfo(t, "s2", 90, 999999)
	_, err := NewOpenShardSet([]ShardInfo{s1, s2})
	require.Error(t, err)
}

func TestNewAdjacentPairRejectsNonAdjacent(t *testing.T) {
	s1 := mustShardInfo(t, "s1", 0, 100)
	s2 := mustShardInfo(t, "s2", 105, 200)
	_, err := NewAdjacentPair(s1, s2)
	require.Error(t, err)
}

func TestDeriveOpenShardsPrunesClosedParents(t *testing.T) {
	raw := []Shard{
		{ID: "parent", StartHash: hk(0), EndHash: hk(100), Status: StatusClosed},
		{ID: "child-a", StartHash: hk(0), EndHash: hk(50), ParentID: "parent", Status: StatusOpen},
		{ID: "child-b", StartHash: hk(51), EndHash: hk(100), ParentID: "parent", Status: StatusOpen},
	}
	open, err := DeriveOpenShards(raw)
	require.NoError(t, err)
	require.Len(t, open, 2)
	ids := map[string]bool{}
	for _, s := range open {
		ids[s.ID] = true
	}
	assert.True(t, ids["child-a"])
	assert.True(t, ids["child-b"])
	assert.False(t, ids["parent"])
}

func TestDeriveOpenShardsHandlesMerge(t *testing.T) {
	raw := []Shard{
		{ID: "a", StartHash: hk(0), EndHash: hk(49), Status: StatusClosed},
		{ID: "b", StartHash: hk(50), EndHash: hk(99), Status: StatusClosed},
		{ID: "merged", StartHash: hk(0), EndHash: hk(99), ParentID: "a", AdjacentParentID: "b", Status: StatusOpen},
	}
	open, err := DeriveOpenShards(raw)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "merged", open[0].ID)
}
