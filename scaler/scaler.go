package scaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/shardcatalog"
	"kinesis-scaling-utils/streamcontrol"
	"kinesis-scaling-utils/topology"
)

// Scaler is the public scaling API for a single stream: scale up, scale
// down, or resize to an absolute count, bounded by MinShards/MaxShards.
// Constructed per-stream by the caller (controller, CLI) — never a process
// singleton.
type Scaler struct {
	Client     streamcontrol.Client
	StreamName string
	MinShards  *int
	MaxShards  *int
}

// New builds a Scaler for one stream.
func New(client streamcontrol.Client, streamName string, minShards, maxShards *int) *Scaler {
	return &Scaler{Client: client, StreamName: streamName, MinShards: minShards, MaxShards: maxShards}
}

// Resize converges the stream to targetCount open shards, clamped to
// MinShards/MaxShards. It first tries Kinesis's own atomic UpdateShardCount
// call, which counts as one operation when it succeeds; if that call is
// rejected as not usable for this request (streamcontrol.ErrNotSupported) it
// falls back to the rebalance engine's split/merge sequence, the only path
// that guarantees an exact, uniform-share result. Any other UpdateShardCount
// error ends the attempt with EndStatusError.
func (s *Scaler) Resize(ctx context.Context, targetCount int) (ScalingReport, error) {
	current, err := s.Client.GetOpenShardCount(ctx, s.StreamName)
	if err != nil {
		return ScalingReport{}, err
	}

	clamped, capStatus := s.clamp(targetCount, current)
	report := ScalingReport{StreamName: s.StreamName, FromCount: current, ToCount: clamped, Direction: direction(current, clamped)}

	if capStatus != "" {
		report.EndStatus = capStatus
		return report, nil
	}
	if clamped == current {
		report.EndStatus = EndStatusNoActionRequired
		return report, nil
	}

	logrus.WithFields(logrus.Fields{
		"stream": s.StreamName,
		"from":   current,
		"to":     clamped,
	}).Info("scaler: resizing stream")

	if err := s.Client.UpdateShardCount(ctx, s.StreamName, int32(clamped)); err == nil {
		report.EndStatus = EndStatusOk
		report.Operations = opStrings([]topology.Operation{{Kind: topology.OpUpdateShardCount, TargetCount: int32(clamped)}})
		return report, nil
	} else if !errors.Is(err, streamcontrol.ErrNotSupported) {
		report.EndStatus = EndStatusError
		report.Err = err.Error()
		return report, err
	} else {
		logrus.WithError(err).Warn("scaler: UpdateShardCount rejected, falling back to rebalance engine")
	}

	open, err := s.currentOpenShardSet(ctx)
	if err != nil {
		report.EndStatus = EndStatusError
		report.Err = err.Error()
		return report, err
	}

	engine := topology.NewEngine(s.Client, s.StreamName)
	result, err := engine.Rebalance(ctx, open, clamped)
	if err != nil {
		report.EndStatus = EndStatusError
		report.Err = err.Error()
		return report, err
	}

	report.EndStatus = fromOutcome(result.Outcome)
	report.Operations = opStrings(result.Operations)
	return report, nil
}

// Preview runs the rebalance algorithm entirely in memory against the
// stream's current open-shard set and reports what Resize would do, without
// issuing any mutating call. Used by the CLI's report subcommand.
func (s *Scaler) Preview(ctx context.Context, targetCount int) (ScalingReport, error) {
	current, err := s.Client.GetOpenShardCount(ctx, s.StreamName)
	if err != nil {
		return ScalingReport{}, err
	}
	clamped, capStatus := s.clamp(targetCount, current)
	report := ScalingReport{StreamName: s.StreamName, FromCount: current, ToCount: clamped, Direction: direction(current, clamped)}
	if capStatus != "" {
		report.EndStatus = capStatus
		return report, nil
	}

	open, err := s.currentOpenShardSet(ctx)
	if err != nil {
		report.EndStatus = EndStatusError
		report.Err = err.Error()
		return report, err
	}
	result, _, err := topology.Plan(open, clamped)
	if err != nil {
		report.EndStatus = EndStatusError
		report.Err = err.Error()
		return report, err
	}

	report.EndStatus = EndStatusReportOnly
	report.Operations = opStrings(result.Operations)
	return report, nil
}

// ScaleUp increases the shard count by delta (a non-negative absolute count).
func (s *Scaler) ScaleUp(ctx context.Context, delta int) (ScalingReport, error) {
	current, err := s.Client.GetOpenShardCount(ctx, s.StreamName)
	if err != nil {
		return ScalingReport{}, err
	}
	return s.Resize(ctx, current+delta)
}

// ScaleDown decreases the shard count by delta.
func (s *Scaler) ScaleDown(ctx context.Context, delta int) (ScalingReport, error) {
	current, err := s.Client.GetOpenShardCount(ctx, s.StreamName)
	if err != nil {
		return ScalingReport{}, err
	}
	return s.Resize(ctx, current-delta)
}

// ScaleByPercent resizes relative to the current count by a percentage. When
// asDelta is true, pct is interpreted as an incremental share of the current
// count (target = current * (1 + pct) for scale up, current * (1 - pct) for
// scale down); when false, pct is an absolute factor (target = current *
// pct). StreamMonitor calls it in factor form with a policy's `scalePct`;
// cmd/kscale has no percent option, so nothing in this repository calls the
// delta form.
func (s *Scaler) ScaleByPercent(ctx context.Context, pct decimal.Decimal, up bool, asDelta bool) (ScalingReport, error) {
	current, err := s.Client.GetOpenShardCount(ctx, s.StreamName)
	if err != nil {
		return ScalingReport{}, err
	}

	curDec := decimal.NewFromInt(int64(current))
	var targetDec decimal.Decimal
	switch {
	case asDelta && up:
		targetDec = curDec.Mul(decimal.NewFromInt(1).Add(pct))
	case asDelta && !up:
		targetDec = curDec.Mul(decimal.NewFromInt(1).Sub(pct))
	default:
		// Factor form: pct already expresses the target as a fraction of
		// current (2.0 doubles, 0.75 shrinks to three-quarters) regardless
		// of direction.
		targetDec = curDec.Mul(pct)
	}

	target := int(targetDec.Ceil().IntPart())
	if target < 1 {
		target = 1
	}
	return s.Resize(ctx, target)
}

// clamp applies MinShards/MaxShards to a requested target count, returning
// a non-empty EndStatus when the clamp itself is the whole story (the
// request was already at, or moving further past, a configured cap).
func (s *Scaler) clamp(target, current int) (int, EndStatus) {
	if s.MinShards != nil && target < *s.MinShards {
		if current == *s.MinShards {
			return current, EndStatusAlreadyAtMinimum
		}
		target = *s.MinShards
	}
	if s.MaxShards != nil && target > *s.MaxShards {
		if current == *s.MaxShards {
			return current, EndStatusAlreadyAtMaximum
		}
		target = *s.MaxShards
	}
	if target < 1 {
		if current == 1 {
			return current, EndStatusAlreadyOneShard
		}
		target = 1
	}
	return target, ""
}

func (s *Scaler) currentOpenShardSet(ctx context.Context) (shardcatalog.OpenShardSet, error) {
	raw, err := s.Client.ListShards(ctx, s.StreamName, "")
	if err != nil {
		return shardcatalog.OpenShardSet{}, fmt.Errorf("scaler: listing shards for %s: %w", s.StreamName, err)
	}
	open, err := shardcatalog.DeriveOpenShards(raw)
	if err != nil {
		return shardcatalog.OpenShardSet{}, err
	}
	return shardcatalog.NewOpenShardSet(open)
}

func direction(from, to int) ScaleDirection {
	switch {
	case to > from:
		return DirectionUp
	case to < from:
		return DirectionDown
	default:
		return DirectionNone
	}
}
