// Package topology implements the shard-topology scaling engine: it plans
// and executes the sequence of split/merge operations that converges an
// open-shard set to a target cardinality with near-uniform keyspace share,
// per spec §4.1.
package topology

import "fmt"

// OpKind distinguishes the two mutations the engine ever issues, plus the
// atomic resize used by the direct API path.
type OpKind int

const (
	OpSplit OpKind = iota
	OpMerge
	OpUpdateShardCount
)

// Operation is one step of an executed (or simulated) rebalance: either a
// split of a single shard, a merge of an adjacent pair, or an atomic
// update-shard-count call.
type Operation struct {
	Kind         OpKind
	ShardID      string // split target
	TargetHash   string // split target's new starting hash key
	LowerShardID string // merge inputs
	HigherID     string
	TargetCount  int32 // update-shard-count target
}

func (o Operation) String() string {
	switch o.Kind {
	case OpSplit:
		return fmt.Sprintf("split(%s @ %s)", o.ShardID, o.TargetHash)
	case OpMerge:
		return fmt.Sprintf("merge(%s, %s)", o.LowerShardID, o.HigherID)
	case OpUpdateShardCount:
		return fmt.Sprintf("updateShardCount(%d)", o.TargetCount)
	default:
		return "unknown-op"
	}
}

// Outcome classifies how a rebalance attempt concluded, independent of the
// ScalingReport vocabulary in package scaler (which adds ReportOnly/Error
// framing on top of this).
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeNoActionRequired
	OutcomeAlreadyAtMinimum
	OutcomeAlreadyAtMaximum
	OutcomeAlreadyOneShard
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "Ok"
	case OutcomeNoActionRequired:
		return "NoActionRequired"
	case OutcomeAlreadyAtMinimum:
		return "AlreadyAtMinimum"
	case OutcomeAlreadyAtMaximum:
		return "AlreadyAtMaximum"
	case OutcomeAlreadyOneShard:
		return "AlreadyOneShard"
	default:
		return "Unknown"
	}
}

// Result is the outcome of a single rebalance attempt: the operations
// issued (empty for no-op outcomes) and the terminal classification.
type Result struct {
	Outcome    Outcome
	Operations []Operation
}
