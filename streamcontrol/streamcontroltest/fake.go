// Package streamcontroltest provides an in-memory streamcontrol.Client fake
// for exercising TopologyEngine, Scaler, and StreamMonitor without a live or
// mocked AWS SDK client.
package streamcontroltest

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"kinesis-scaling-utils/hashmath"
	"kinesis-scaling-utils/shardcatalog"
	"kinesis-scaling-utils/streamcontrol"
)

// FakeClient models a single stream's shard topology in memory, applying
// splits/merges the way the real control plane would: closing the inputs
// and opening new children, always leaving the keyspace fully covered.
type FakeClient struct {
	mu sync.Mutex

	StreamName string
	shards     map[string]shardcatalog.Shard
	nextID     int

	// UpdateShardCountErr, when set, is returned by every UpdateShardCount
	// call, letting tests force the Scaler's split/merge fallback path.
	UpdateShardCountErr error

	// Mutations records every split/merge call, in order, for assertions
	// about the one-in-flight and ordering invariants. UpdateShardCount
	// calls are not recorded.
	Mutations []string
}

// NewFakeClient seeds a single-shard stream spanning the whole keyspace.
func NewFakeClient(streamName string) *FakeClient {
	f := &FakeClient{
		StreamName: streamName,
		shards:     make(map[string]shardcatalog.Shard),
		nextID:     1,
	}
	f.shards["shardId-000000000000"] = shardcatalog.Shard{
		ID:        "shardId-000000000000",
		StartHash: hashmath.Zero(),
		EndHash:   hashmath.Max(),
		Status:    shardcatalog.StatusOpen,
	}
	return f
}

func (f *FakeClient) newShardID() string {
	id := fmt.Sprintf("shardId-%012d", f.nextID)
	f.nextID++
	return id
}

func (f *FakeClient) DescribeStream(ctx context.Context, streamName string) (streamcontrol.StreamDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.shards {
		if s.Status == shardcatalog.StatusOpen {
			count++
		}
	}
	return streamcontrol.StreamDescription{StreamName: streamName, Status: streamcontrol.StatusActive, ShardCount: count}, nil
}

func (f *FakeClient) ListShards(ctx context.Context, streamName string, afterShardID string) ([]shardcatalog.Shard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]shardcatalog.Shard, 0, len(f.shards))
	for _, s := range f.shards {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *FakeClient) GetShardByID(ctx context.Context, streamName, shardID string) (shardcatalog.Shard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shards[shardID]
	if !ok {
		return shardcatalog.Shard{}, streamcontrol.ErrShardNotFound
	}
	return s, nil
}

func (f *FakeClient) SplitShard(ctx context.Context, streamName, shardID string, targetHash string, waitForActive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, ok := f.shards[shardID]
	if !ok || parent.Status != shardcatalog.StatusOpen {
		return fmt.Errorf("streamcontrol/fake: shard %s not open", shardID)
	}
	target, ok := new(big.Int).SetString(targetHash, 10)
	if !ok {
		return fmt.Errorf("streamcontrol/fake: invalid target hash %q", targetHash)
	}
	targetKey, err := hashmath.NewHashKey(target)
	if err != nil {
		return err
	}
	if targetKey.Cmp(parent.StartHash) <= 0 || targetKey.Cmp(parent.EndHash) > 0 {
		return fmt.Errorf("streamcontrol/fake: split point outside shard %s range", shardID)
	}

	lowerEnd, err := targetKey.Sub(1)
	if err != nil {
		return err
	}

	parent.Status = shardcatalog.StatusClosed
	f.shards[shardID] = parent

	lowerID := f.newShardID()
	higherID := f.newShardID()
	f.shards[lowerID] = shardcatalog.Shard{ID: lowerID, StartHash: parent.StartHash, EndHash: lowerEnd, ParentID: shardID, Status: shardcatalog.StatusOpen}
	f.shards[higherID] = shardcatalog.Shard{ID: higherID, StartHash: targetKey, EndHash: parent.EndHash, ParentID: shardID, Status: shardcatalog.StatusOpen}

	f.Mutations = append(f.Mutations, fmt.Sprintf("split(%s -> %s, %s)", shardID, lowerID, higherID))
	return nil
}

func (f *FakeClient) MergeShards(ctx context.Context, streamName, lowerShardID, higherShardID string, waitForActive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lower, ok := f.shards[lowerShardID]
	if !ok || lower.Status != shardcatalog.StatusOpen {
		return fmt.Errorf("streamcontrol/fake: shard %s not open", lowerShardID)
	}
	higher, ok := f.shards[higherShardID]
	if !ok || higher.Status != shardcatalog.StatusOpen {
		return fmt.Errorf("streamcontrol/fake: shard %s not open", higherShardID)
	}
	want, err := lower.EndHash.Add(1)
	if err != nil {
		return err
	}
	if higher.StartHash.Cmp(want) != 0 {
		return fmt.Errorf("streamcontrol/fake: shards %s and %s are not adjacent", lowerShardID, higherShardID)
	}

	lower.Status = shardcatalog.StatusClosed
	higher.Status = shardcatalog.StatusClosed
	f.shards[lowerShardID] = lower
	f.shards[higherShardID] = higher

	mergedID := f.newShardID()
	f.shards[mergedID] = shardcatalog.Shard{
		ID: mergedID, StartHash: lower.StartHash, EndHash: higher.EndHash,
		ParentID: lowerShardID, AdjacentParentID: higherShardID, Status: shardcatalog.StatusOpen,
	}

	f.Mutations = append(f.Mutations, fmt.Sprintf("merge(%s, %s -> %s)", lowerShardID, higherShardID, mergedID))
	return nil
}

func (f *FakeClient) UpdateShardCount(ctx context.Context, streamName string, targetCount int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateShardCountErr != nil {
		return f.UpdateShardCountErr
	}
	return fmt.Errorf("streamcontrol/fake: UpdateShardCount not modeled, %w", streamcontrol.ErrNotSupported)
}

func (f *FakeClient) WaitForStatus(ctx context.Context, streamName string, status streamcontrol.StreamStatus) error {
	return nil
}

func (f *FakeClient) GetOpenShardCount(ctx context.Context, streamName string) (int, error) {
	desc, err := f.DescribeStream(ctx, streamName)
	return desc.ShardCount, err
}

// OpenShardSet snapshots the current open shards as a shardcatalog.OpenShardSet.
func (f *FakeClient) OpenShardSet() (shardcatalog.OpenShardSet, error) {
	raw, err := f.ListShards(context.Background(), f.StreamName, "")
	if err != nil {
		return shardcatalog.OpenShardSet{}, err
	}
	open, err := shardcatalog.DeriveOpenShards(raw)
	if err != nil {
		return shardcatalog.OpenShardSet{}, err
	}
	return shardcatalog.NewOpenShardSet(open)
}
