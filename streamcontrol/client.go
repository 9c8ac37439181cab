// Package streamcontrol is a thin capability over the Kinesis control plane:
// describe, list shards, split, merge, update-shard-count, wait-for-active,
// all wrapped with the retry/backoff policy from spec §4.2.
package streamcontrol

import (
	"context"

	"kinesis-scaling-utils/shardcatalog"
)

// StreamStatus mirrors the control plane's stream lifecycle states relevant
// to waitForStatus.
type StreamStatus string

const (
	StatusCreating StreamStatus = "CREATING"
	StatusUpdating StreamStatus = "UPDATING"
	StatusDeleting StreamStatus = "DELETING"
	StatusActive   StreamStatus = "ACTIVE"
)

// Client is the capability surface TopologyEngine, Scaler, and StreamMonitor
// depend on. It is injected at construction — never resolved via a
// process-wide lookup — so tests can substitute a fake.
type Client interface {
	// DescribeStream returns the stream's current status and shard count hint.
	DescribeStream(ctx context.Context, streamName string) (StreamDescription, error)

	// ListShards enumerates raw shards, paginating internally until the
	// control plane stops returning a next token (per spec's Open Question:
	// pagination terminates strictly on absence of nextToken).
	ListShards(ctx context.Context, streamName string, afterShardID string) ([]shardcatalog.Shard, error)

	// GetShardByID fetches a single shard's descriptor, or ErrShardNotFound.
	GetShardByID(ctx context.Context, streamName, shardID string) (shardcatalog.Shard, error)

	// SplitShard splits shardID at targetHash. If waitForActive, blocks
	// until the stream returns to ACTIVE before returning.
	SplitShard(ctx context.Context, streamName, shardID string, targetHash string, waitForActive bool) error

	// MergeShards merges two hash-adjacent open shards. If waitForActive,
	// blocks until the stream returns to ACTIVE before returning.
	MergeShards(ctx context.Context, streamName, lowerShardID, higherShardID string, waitForActive bool) error

	// UpdateShardCount invokes the atomic resize operation. Returns
	// ErrNotSupported-wrapping errors (invalid argument / limit exceeded) so
	// callers can fall back to the split/merge planner.
	UpdateShardCount(ctx context.Context, streamName string, targetCount int32) error

	// WaitForStatus polls DescribeStream until it reports the given status.
	WaitForStatus(ctx context.Context, streamName string, status StreamStatus) error

	// GetOpenShardCount is a convenience wrapper over ListShards +
	// shardcatalog.DeriveOpenShards.
	GetOpenShardCount(ctx context.Context, streamName string) (int, error)
}

// StreamDescription is the subset of DescribeStream's output this system
// depends on.
type StreamDescription struct {
	StreamName string
	Status     StreamStatus
	ShardCount int
}
