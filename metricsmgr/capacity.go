// Package metricsmgr computes each stream's current provisioned capacity
// from its open-shard count and measures actual utilisation against that
// capacity over a trailing window, via Amazon CloudWatch.
package metricsmgr

// OperationCaps are the fixed per-shard throughput limits Kinesis enforces,
// independent of any account or stream configuration.
type OperationCaps struct {
	BytesPerSec   int64
	RecordsPerSec int64
}

var (
	// PutCaps is the per-shard PutRecord(s) limit: 1 MiB/s and 1,000 rec/s.
	PutCaps = OperationCaps{BytesPerSec: 1_048_576, RecordsPerSec: 1_000}

	// GetCaps is the per-shard GetRecords limit: 2 MiB/s and 2,000 rec/s.
	GetCaps = OperationCaps{BytesPerSec: 2_097_152, RecordsPerSec: 2_000}
)

// Operation distinguishes the two capacity-bearing API surfaces a stream's
// shard count bounds.
type Operation int

const (
	OperationPut Operation = iota
	OperationGet
)

func (o Operation) caps() OperationCaps {
	if o == OperationGet {
		return GetCaps
	}
	return PutCaps
}

// StreamCapacity is a stream's total provisioned capacity for one operation,
// derived purely from its open-shard count.
type StreamCapacity struct {
	Operation     Operation
	ShardCount    int
	BytesPerSec   int64
	RecordsPerSec int64
}

// CapacityFor computes a stream's total capacity for an operation.
func CapacityFor(op Operation, shardCount int) StreamCapacity {
	caps := op.caps()
	return StreamCapacity{
		Operation:     op,
		ShardCount:    shardCount,
		BytesPerSec:   caps.BytesPerSec * int64(shardCount),
		RecordsPerSec: caps.RecordsPerSec * int64(shardCount),
	}
}
