package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/metricsmgr"
)

// DirectionConfig is a per-direction (scale-up or scale-down) block of a
// stream's policy: the threshold that votes this direction, the trailing
// window that vote must hold for, the cooldown between actions in this
// direction, how much to scale by, and where to notify.
type DirectionConfig struct {
	ThresholdPct decimal.Decimal // percent, e.g. 75 means 75%
	AfterMins    int
	CoolOffMins  int

	// Exactly one of ScaleCount or ScalePct carries effect; ScaleCount
	// dominates when both are set.
	ScaleCount *int
	ScalePct   *decimal.Decimal

	NotificationTarget string
}

// Policy carries the per-stream thresholds and timing knobs a StreamMonitor
// evaluates on each cycle.
type Policy struct {
	StreamName string
	Region     string

	// ScaleOnOperations restricts voting to a subset of {PUT, GET}. A nil or
	// empty set means both operations are in scope.
	ScaleOnOperations map[metricsmgr.Operation]bool

	ScaleUp   DirectionConfig
	ScaleDown DirectionConfig

	MinShards *int
	MaxShards *int

	CycleInterval          time.Duration
	RefreshShardsAfterMins int
}

// InScope reports whether op is one of the operations this policy votes on.
func (p Policy) InScope(op metricsmgr.Operation) bool {
	if len(p.ScaleOnOperations) == 0 {
		return true
	}
	return p.ScaleOnOperations[op]
}

// Window returns the sample-series length, in minutes, a cycle must
// observe: the longer of the two directions' afterMins.
func (p Policy) Window() int {
	w := p.ScaleUp.AfterMins
	if p.ScaleDown.AfterMins > w {
		w = p.ScaleDown.AfterMins
	}
	if w <= 0 {
		w = 1
	}
	return w
}
