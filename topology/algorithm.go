package topology

import (
	"context"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/hashmath"
	"kinesis-scaling-utils/shardcatalog"
)

// StepExecutor performs one split or merge, returning the resulting open
// shard(s). The stack algorithm in runRebalance is written entirely against
// this interface so the exact same decision logic drives both the pure
// in-memory simulation (simulateExecutor, used in tests and for report-only
// previews) and the live Engine (engine.go), which talks to a real
// streamcontrol.Client and re-resolves shard IDs after each mutation.
type StepExecutor interface {
	Split(ctx context.Context, shard shardcatalog.ShardInfo, targetHash hashmath.HashKey) (lower, higher shardcatalog.ShardInfo, err error)
	Merge(ctx context.Context, lower, higher shardcatalog.ShardInfo) (merged shardcatalog.ShardInfo, err error)
}

// runRebalance is the stack-based rebalance pass from spec §4.1. stack must
// arrive sorted descending by start hash (shardcatalog.OpenShardSet.Descending)
// so that repeated pop-from-end delivers shards in ascending order. target is
// the desired per-shard keyspace share (1/targetCount).
func runRebalance(ctx context.Context, exec StepExecutor, stack []shardcatalog.ShardInfo, target decimal.Decimal) ([]Operation, []shardcatalog.ShardInfo, error) {
	var ops []Operation
	var completed []shardcatalog.ShardInfo

	pop := func() (shardcatalog.ShardInfo, bool) {
		if len(stack) == 0 {
			return shardcatalog.ShardInfo{}, false
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, true
	}
	push := func(s shardcatalog.ShardInfo) {
		stack = append(stack, s)
	}

	for {
		s, ok := pop()
		if !ok {
			break
		}

		switch hashmath.SoftCmp(s.PctWidth, target) {
		case 0:
			completed = append(completed, s)

		case 1:
			// s is wider than the target share: split it.
			targetHash, err := s.StartHash.AddBig(hashmath.OffsetFromPct(target))
			if err != nil {
				return nil, nil, err
			}
			lower, higher, err := exec.Split(ctx, s, targetHash)
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, Operation{Kind: OpSplit, ShardID: s.ID, TargetHash: targetHash.String()})
			completed = append(completed, lower)
			push(higher)

		default:
			// s is narrower than the target share: try to top it up from its
			// right-hand neighbor.
			h, ok := pop()
			if !ok {
				// Nothing left to merge with; this fragment stays under-share.
				completed = append(completed, s)
				continue
			}

			combined := s.PctWidth.Add(h.PctWidth)
			switch hashmath.SoftCmp(combined, target) {
			case 1:
				remainder := target.Sub(s.PctWidth)
				splitHash, err := h.StartHash.AddBig(hashmath.OffsetFromPct(remainder))
				if err != nil {
					return nil, nil, err
				}
				hLower, hHigher, err := exec.Split(ctx, h, splitHash)
				if err != nil {
					return nil, nil, err
				}
				ops = append(ops, Operation{Kind: OpSplit, ShardID: h.ID, TargetHash: splitHash.String()})
				push(hHigher)

				merged, err := exec.Merge(ctx, s, hLower)
				if err != nil {
					return nil, nil, err
				}
				ops = append(ops, Operation{Kind: OpMerge, LowerShardID: s.ID, HigherID: hLower.ID})
				completed = append(completed, merged)

			default:
				merged, err := exec.Merge(ctx, s, h)
				if err != nil {
					return nil, nil, err
				}
				ops = append(ops, Operation{Kind: OpMerge, LowerShardID: s.ID, HigherID: h.ID})
				push(merged)
			}
		}
	}

	return ops, completed, nil
}
