// Package shardcatalog enumerates, classifies, and orders the shards of a
// Kinesis stream by start-hash, deriving the open-shard set from a raw shard
// listing the way the stream control plane returns it.
package shardcatalog

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/hashmath"
)

// Status classifies a shard as open (writable/readable, no listed children)
// or closed (superseded by a split or merge).
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
)

// Shard is one contiguous hash-keyspace range of a stream, as reported by
// the control plane's list-shards call.
type Shard struct {
	ID               string
	StartHash        hashmath.HashKey
	EndHash          hashmath.HashKey
	ParentID         string
	AdjacentParentID string
	Status           Status
}

// ShardInfo decorates a Shard with its derived width and keyspace share.
type ShardInfo struct {
	Shard
	Width    *big.Int
	PctWidth decimal.Decimal
}

// NewShardInfo computes Width and PctWidth for a shard; returns an error if
// the shard's range is inverted (start > end), which violates the data
// model's invariant.
func NewShardInfo(s Shard) (ShardInfo, error) {
	if s.StartHash.Cmp(s.EndHash) > 0 {
		return ShardInfo{}, fmt.Errorf("shardcatalog: shard %s has startHash > endHash", s.ID)
	}
	width := hashmath.Width(s.StartHash, s.EndHash)
	return ShardInfo{
		Shard:    s,
		Width:    width,
		PctWidth: hashmath.PctWidth(width),
	}, nil
}

// AdjacentPair is two ShardInfos where higher.StartHash = lower.EndHash + 1,
// constructed during a topology plan step and consumed by a merge.
type AdjacentPair struct {
	Lower  ShardInfo
	Higher ShardInfo
}

// NewAdjacentPair validates and constructs an AdjacentPair.
func NewAdjacentPair(lower, higher ShardInfo) (AdjacentPair, error) {
	want, err := lower.EndHash.Add(1)
	if err != nil {
		return AdjacentPair{}, fmt.Errorf("shardcatalog: lower shard %s is at keyspace maximum", lower.ID)
	}
	if higher.StartHash.Cmp(want) != 0 {
		return AdjacentPair{}, fmt.Errorf("shardcatalog: shards %s and %s are not adjacent", lower.ID, higher.ID)
	}
	return AdjacentPair{Lower: lower, Higher: higher}, nil
}

// OpenShardSet is an ordered sequence of ShardInfos covering the keyspace,
// sorted ascending by StartHash. It is a pure value: construction validates
// coverage and adjacency rather than mutating a shared container in place.
type OpenShardSet struct {
	shards []ShardInfo
}

// NewOpenShardSet sorts the given shards ascending by StartHash and
// validates that they form full, disjoint coverage of the keyspace.
func NewOpenShardSet(shards []ShardInfo) (OpenShardSet, error) {
	sorted := make([]ShardInfo, len(shards))
	copy(sorted, shards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartHash.Cmp(sorted[j].StartHash) < 0
	})

	if len(sorted) == 0 {
		return OpenShardSet{}, fmt.Errorf("shardcatalog: empty open-shard set")
	}
	if sorted[0].StartHash.Cmp(hashmath.Zero()) != 0 {
		return OpenShardSet{}, fmt.Errorf("shardcatalog: open shard set does not start at 0 (starts at %s)", sorted[0].StartHash)
	}
	for i := 1; i < len(sorted); i++ {
		want, err := sorted[i-1].EndHash.Add(1)
		if err != nil {
			return OpenShardSet{}, fmt.Errorf("shardcatalog: shard %s overflows keyspace", sorted[i-1].ID)
		}
		if sorted[i].StartHash.Cmp(want) != 0 {
			return OpenShardSet{}, fmt.Errorf(
				"shardcatalog: gap or overlap between shard %s (end %s) and shard %s (start %s)",
				sorted[i-1].ID, sorted[i-1].EndHash, sorted[i].ID, sorted[i].StartHash)
		}
	}
	last := sorted[len(sorted)-1]
	if last.EndHash.Cmp(hashmath.Max()) != 0 {
		return OpenShardSet{}, fmt.Errorf("shardcatalog: open shard set does not end at 2^128-1 (ends at %s)", last.EndHash)
	}

	return OpenShardSet{shards: sorted}, nil
}

// Ascending returns the shards sorted ascending by StartHash.
func (s OpenShardSet) Ascending() []ShardInfo {
	out := make([]ShardInfo, len(s.shards))
	copy(out, s.shards)
	return out
}

// Descending returns the shards sorted descending by StartHash — the order
// TopologyEngine's rebalance pass pushes onto its LIFO stack so that pops
// deliver ascending-StartHash shards (the "left-leaning" bias).
func (s OpenShardSet) Descending() []ShardInfo {
	asc := s.Ascending()
	out := make([]ShardInfo, len(asc))
	for i, si := range asc {
		out[len(asc)-1-i] = si
	}
	return out
}

// Len reports the current open shard cardinality.
func (s OpenShardSet) Len() int { return len(s.shards) }

// HighestShardID returns the ID of the shard with the greatest StartHash, or
// "" for an empty set. Catalog refreshes in this repository list shards
// with an empty afterShardID and do not use this value as a bound.
func (s OpenShardSet) HighestShardID() string {
	if len(s.shards) == 0 {
		return ""
	}
	return s.shards[len(s.shards)-1].ID
}

// DeriveOpenShards classifies a raw listing into the open subset: a shard is
// open iff it is listed and no other listed shard declares it as its
// ParentID or AdjacentParentID. Closed parents are pruned while walking the
// listing, per spec §4.2 "Open-shard derivation".
func DeriveOpenShards(all []Shard) ([]ShardInfo, error) {
	closedParents := make(map[string]bool, len(all))
	for _, s := range all {
		if s.ParentID != "" {
			closedParents[s.ParentID] = true
		}
		if s.AdjacentParentID != "" {
			closedParents[s.AdjacentParentID] = true
		}
	}

	open := make([]ShardInfo, 0, len(all))
	for _, s := range all {
		if closedParents[s.ID] {
			continue
		}
		info, err := NewShardInfo(s)
		if err != nil {
			return nil, err
		}
		open = append(open, info)
	}
	return open, nil
}
