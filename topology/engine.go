package topology

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/hashmath"
	"kinesis-scaling-utils/shardcatalog"
	"kinesis-scaling-utils/streamcontrol"
)

// Engine drives the rebalance algorithm against a live streamcontrol.Client,
// one mutation at a time, waiting for ACTIVE between each and re-resolving
// real shard IDs from the control plane after every split or merge — the
// open-shard set is never held across a mutation, per the data model notes.
type Engine struct {
	Client     streamcontrol.Client
	StreamName string
}

// NewEngine builds an Engine for a single stream.
func NewEngine(client streamcontrol.Client, streamName string) *Engine {
	return &Engine{Client: client, StreamName: streamName}
}

// Rebalance converges the stream's current open-shard set to targetCount
// shards, applying spec §4.1's stack algorithm and executing every split and
// merge it emits against the live client.
func (e *Engine) Rebalance(ctx context.Context, openSet shardcatalog.OpenShardSet, targetCount int) (Result, error) {
	outcome, target, proceed := classify(openSet, targetCount)
	if !proceed {
		return Result{Outcome: outcome}, nil
	}

	exec := &liveExecutor{client: e.Client, streamName: e.StreamName}
	ops, _, err := runRebalance(ctx, exec, openSet.Descending(), target)
	if err != nil {
		return Result{Operations: ops}, err
	}
	if len(ops) == 0 {
		return Result{Outcome: OutcomeNoActionRequired}, nil
	}
	return Result{Outcome: OutcomeOk, Operations: ops}, nil
}

// liveExecutor implements StepExecutor against a real streamcontrol.Client.
// Kinesis does not return the children's shard IDs from SplitShard or
// MergeShards, so each step re-lists shards and resolves children by
// ParentID/AdjacentParentID, matching the data model's derivation rule in
// shardcatalog.DeriveOpenShards.
type liveExecutor struct {
	client     streamcontrol.Client
	streamName string
}

func (e *liveExecutor) Split(ctx context.Context, shard shardcatalog.ShardInfo, targetHash hashmath.HashKey) (shardcatalog.ShardInfo, shardcatalog.ShardInfo, error) {
	logrus.WithFields(logrus.Fields{
		"stream": e.streamName,
		"shard":  shard.ID,
		"at":     targetHash.String(),
	}).Info("topology: splitting shard")

	if err := e.client.SplitShard(ctx, e.streamName, shard.ID, targetHash.String(), true); err != nil {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, err
	}

	children, err := e.childrenOf(ctx, shard.ID)
	if err != nil {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, err
	}
	if len(children) != 2 {
		return shardcatalog.ShardInfo{}, shardcatalog.ShardInfo{}, fmt.Errorf("topology: expected 2 children of split shard %s, found %d", shard.ID, len(children))
	}
	if children[0].StartHash.Cmp(children[1].StartHash) > 0 {
		children[0], children[1] = children[1], children[0]
	}
	return children[0], children[1], nil
}

func (e *liveExecutor) Merge(ctx context.Context, lower, higher shardcatalog.ShardInfo) (shardcatalog.ShardInfo, error) {
	logrus.WithFields(logrus.Fields{
		"stream": e.streamName,
		"lower":  lower.ID,
		"higher": higher.ID,
	}).Info("topology: merging shards")

	if err := e.client.MergeShards(ctx, e.streamName, lower.ID, higher.ID, true); err != nil {
		return shardcatalog.ShardInfo{}, err
	}

	children, err := e.childrenOf(ctx, lower.ID)
	if err != nil {
		return shardcatalog.ShardInfo{}, err
	}
	for _, c := range children {
		if c.AdjacentParentID == higher.ID {
			return c, nil
		}
	}
	return shardcatalog.ShardInfo{}, fmt.Errorf("topology: could not resolve merge result of %s, %s", lower.ID, higher.ID)
}

func (e *liveExecutor) childrenOf(ctx context.Context, parentID string) ([]shardcatalog.ShardInfo, error) {
	raw, err := e.client.ListShards(ctx, e.streamName, "")
	if err != nil {
		return nil, err
	}
	var out []shardcatalog.ShardInfo
	for _, s := range raw {
		if s.ParentID == parentID || s.AdjacentParentID == parentID {
			info, err := shardcatalog.NewShardInfo(s)
			if err != nil {
				return nil, err
			}
			out = append(out, info)
		}
	}
	return out, nil
}
