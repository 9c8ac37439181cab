package topology

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/hashmath"
	"kinesis-scaling-utils/shardcatalog"
)

// simulateExecutor is a pure, in-memory StepExecutor: it never touches a
// control plane. Synthetic shard IDs let Plan run the full rebalance
// algorithm and report the resulting shard count and operation list without
// a live or fake streamcontrol.Client, per the plan/execute split.
type simulateExecutor struct {
	next int
}

func (e *simulateExecutor) nextID(prefix string) string {
	e.next++
	return fmt.Sprintf("planned-%s-%d", prefix, e.next)
}

func (e *simulateExecutor) Split(_ context.Context, shard shardcatalog.ShardInfo, targetHash hashmath.HashKey) (shardcatalog.ShardInfo, shardcatalog.ShardInfo, error) {
	lowerEnd, err := targetHash.Sub(1)
	if err != nil {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, err
	}
	lower, err := shardcatalog.NewShardInfo(shardcatalog.Shard{
		ID: e.nextID("lo"), StartHash: shard.StartHash, EndHash: lowerEnd,
		ParentID: shard.ID, Status: shardcatalog.StatusOpen,
	})
	if err != nil {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, err
	}
	higher, err := shardcatalog.NewShardInfo(shardcatalog.Shard{
		ID: e.nextID("hi"), StartHash: targetHash, EndHash: shard.EndHash,
		ParentID: shard.ID, Status: shardcatalog.StatusOpen,
	})
	if err != nil {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, err
	}
	return lower, higher, nil
}

func (e *simulateExecutor) Merge(_ context.Context, lower, higher shardcatalog.ShardInfo) (shardcatalog.ShardInfo, error) {
	if _, err := shardcatalog.NewAdjacentPair(lower, higher); err != nil {
		return shardcatalog.ShardInfo{}, err
	}
	return shardcatalog.NewShardInfo(shardcatalog.Shard{
		ID: e.nextID("merged"), StartHash: lower.StartHash, EndHash: higher.EndHash,
		ParentID: lower.ID, AdjacentParentID: higher.ID, Status: shardcatalog.StatusOpen,
	})
}

// Plan runs the rebalance algorithm purely in memory and returns the
// operations it would issue and the resulting open-shard set, without
// calling any control plane. Callers use this to preview a ScalingReport
// before Engine.Rebalance actually mutates the stream.
func Plan(openSet shardcatalog.OpenShardSet, targetCount int) (Result, []shardcatalog.ShardInfo, error) {
	outcome, target, proceed := classify(openSet, targetCount)
	if !proceed {
		return Result{Outcome: outcome}, openSet.Ascending(), nil
	}

	exec := &simulateExecutor{}
	ops, completed, err := runRebalance(context.Background(), exec, openSet.Descending(), target)
	if err != nil {
		return Result{}, nil, err
	}
	if len(ops) == 0 {
		return Result{Outcome: OutcomeNoActionRequired}, completed, nil
	}
	return Result{Outcome: OutcomeOk, Operations: ops}, completed, nil
}

// classify applies the checks shared by Plan and Engine.Rebalance (target
// equal to the current count; scale-down from a single shard), returning the
// per-shard target share to converge on and whether the caller should
// proceed at all. Min/max shard caps are not checked here; the Scaler
// applies them before calling either.
func classify(openSet shardcatalog.OpenShardSet, targetCount int) (Outcome, decimal.Decimal, bool) {
	current := openSet.Len()
	if targetCount == current {
		return OutcomeNoActionRequired, decimal.Zero, false
	}
	if targetCount < current && current == 1 {
		return OutcomeAlreadyOneShard, decimal.Zero, false
	}
	return OutcomeOk, hashmath.TargetShare(targetCount), true
}
