package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/metricsmgr"
	"kinesis-scaling-utils/notify"
	"kinesis-scaling-utils/scaler"
	"kinesis-scaling-utils/streamcontrol"
)

// Clock abstracts time.Now so cooldown and cache-refresh logic can be
// driven deterministically in tests instead of sleeping in wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// StreamMonitor runs one stream's scaling control loop: sample, vote,
// cooldown-gate, scale.
type StreamMonitor struct {
	Client  streamcontrol.Client
	Metrics *metricsmgr.Manager
	Scaler  *scaler.Scaler
	Notify  notify.Sink
	Policy  Policy
	Clock   Clock

	// cachedShardCount/cacheRefreshedAt hold the last-known open-shard
	// count the cycle derives capacity from. It is only re-derived from
	// the control plane at the Policy's refreshShardsAfterMins boundary,
	// not on every cycle, so a manual external resize is picked up on a
	// schedule rather than masked by a stale read racing a fresh one.
	cachedShardCount int
	cacheRefreshedAt time.Time

	// lastScaleUp/lastScaleDown are independent per-direction cooldown
	// gates: a scale-up's cooldown never blocks a scale-down, and vice
	// versa.
	lastScaleUp   time.Time
	lastScaleDown time.Time
}

// NewStreamMonitor builds a StreamMonitor with the production clock.
func NewStreamMonitor(client streamcontrol.Client, metrics *metricsmgr.Manager, sc *scaler.Scaler, sink notify.Sink, policy Policy) *StreamMonitor {
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &StreamMonitor{Client: client, Metrics: metrics, Scaler: sc, Notify: sink, Policy: policy, Clock: RealClock{}}
}

// Cycle runs one evaluation: refresh cached capacity if its window has
// elapsed, sample the per-minute utilisation series for every in-scope
// operation, vote, cooldown-gate, and scale if the vote and cooldown allow
// it. Returns a nil report on a NoChange vote or a deferral within
// cooldown; otherwise returns the Scaler's report, including outcomes where
// a cap left the shard count unchanged.
func (m *StreamMonitor) Cycle(ctx context.Context) (*scaler.ScalingReport, error) {
	now := m.Clock.Now()

	if err := m.ensureCapacity(ctx, now); err != nil {
		return nil, err
	}

	putCapacity := metricsmgr.CapacityFor(metricsmgr.OperationPut, m.cachedShardCount)
	getCapacity := metricsmgr.CapacityFor(metricsmgr.OperationGet, m.cachedShardCount)

	w := m.Policy.Window()
	metricEnd := now
	metricStart := now.Add(-time.Duration(w) * time.Minute)

	putInScope := m.Policy.InScope(metricsmgr.OperationPut)
	getInScope := m.Policy.InScope(metricsmgr.OperationGet)

	var putVote, getVote Vote
	if putInScope {
		series, err := m.Metrics.QueryUtilisationSeries(ctx, m.Policy.StreamName, metricsmgr.OperationPut, metricStart, metricEnd)
		if err != nil {
			return nil, err
		}
		putVote = voteForOperation(series, putCapacity, metricEnd, w, m.Policy.ScaleUp, m.Policy.ScaleDown)
	}
	if getInScope {
		series, err := m.Metrics.QueryUtilisationSeries(ctx, m.Policy.StreamName, metricsmgr.OperationGet, metricStart, metricEnd)
		if err != nil {
			return nil, err
		}
		getVote = voteForOperation(series, getCapacity, metricEnd, w, m.Policy.ScaleUp, m.Policy.ScaleDown)
	}

	var vote Vote
	switch {
	case putInScope && getInScope:
		vote = Combine(putVote, getVote)
	case putInScope:
		vote = putVote
	case getInScope:
		vote = getVote
	default:
		vote = VoteNoChange
	}

	if vote == VoteNoChange {
		return nil, nil
	}

	dirCfg := m.Policy.ScaleUp
	lastScaled := m.lastScaleUp
	if vote == VoteScaleDown {
		dirCfg = m.Policy.ScaleDown
		lastScaled = m.lastScaleDown
	}

	coolOff := time.Duration(dirCfg.CoolOffMins) * time.Minute
	if !lastScaled.IsZero() && now.Sub(lastScaled) < coolOff {
		logrus.WithFields(logrus.Fields{
			"stream": m.Policy.StreamName,
			"vote":   vote,
			"since":  now.Sub(lastScaled),
		}).Debug("monitor: skipping vote, cooldown in effect")
		return nil, nil
	}

	report, err := m.scale(ctx, vote, dirCfg)
	if err != nil {
		return nil, err
	}

	switch report.EndStatus {
	case scaler.EndStatusOk:
		if vote == VoteScaleUp {
			m.lastScaleUp = now
		} else {
			m.lastScaleDown = now
		}
		report.NotificationTarget = dirCfg.NotificationTarget
	case scaler.EndStatusAlreadyAtMinimum, scaler.EndStatusAlreadyAtMaximum, scaler.EndStatusAlreadyOneShard:
		// No cooldown timestamp update: the cap, not a completed action,
		// is what happened this cycle.
	}
	return &report, nil
}

// scale dispatches to the Scaler using whichever of ScaleCount or ScalePct
// the direction's config carries — ScaleCount dominates when both are set.
// A direction with neither configured falls back to a one-shard step.
func (m *StreamMonitor) scale(ctx context.Context, vote Vote, dirCfg DirectionConfig) (scaler.ScalingReport, error) {
	up := vote == VoteScaleUp

	if dirCfg.ScaleCount != nil {
		if up {
			return m.Scaler.ScaleUp(ctx, *dirCfg.ScaleCount)
		}
		return m.Scaler.ScaleDown(ctx, *dirCfg.ScaleCount)
	}
	if dirCfg.ScalePct != nil {
		factor := dirCfg.ScalePct.Div(hundred)
		return m.Scaler.ScaleByPercent(ctx, factor, up, false)
	}
	if up {
		return m.Scaler.ScaleUp(ctx, 1)
	}
	return m.Scaler.ScaleDown(ctx, 1)
}

// ensureCapacity reloads the cached shard count (and therefore capacity)
// from the control plane once the policy's refreshShardsAfterMins window
// has elapsed since the last reload, and notifies on a reload that
// supersedes a prior one.
func (m *StreamMonitor) ensureCapacity(ctx context.Context, now time.Time) error {
	refreshEvery := time.Duration(m.Policy.RefreshShardsAfterMins) * time.Minute
	if !m.cacheRefreshedAt.IsZero() && now.Sub(m.cacheRefreshedAt) < refreshEvery {
		return nil
	}

	shardCount, err := m.Client.GetOpenShardCount(ctx, m.Policy.StreamName)
	if err != nil {
		return err
	}

	isReload := !m.cacheRefreshedAt.IsZero()
	m.cachedShardCount = shardCount
	m.cacheRefreshedAt = now

	if isReload {
		logrus.WithFields(logrus.Fields{
			"stream":     m.Policy.StreamName,
			"shardCount": shardCount,
		}).Info("monitor: refreshed shard capacity")
		if m.Notify != nil {
			subject := fmt.Sprintf("%s Autoscaling - Capacity Refreshed", m.Policy.StreamName)
			message := fmt.Sprintf("%s: capacity refreshed to %d shards", m.Policy.StreamName, shardCount)
			if err := m.Notify.Publish(ctx, subject, message); err != nil {
				logrus.WithError(err).Warn("monitor: capacity-refresh notification failed")
			}
		}
	}
	return nil
}

// Run drives Cycle on every tick received from ticks until ctx is
// cancelled. Successful reports (including no-op ones) are sent to reports
// if non-nil and the channel has capacity; a full channel never blocks the
// loop, it just drops the report after logging it. A cycle error is both
// logged and forwarded to fatal (non-blocking) so a supervising Controller
// can decide whether to stop every other stream's monitor.
func (m *StreamMonitor) Run(ctx context.Context, ticks <-chan time.Time, reports chan<- *scaler.ScalingReport, fatal chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			report, err := m.Cycle(ctx)
			if err != nil {
				logrus.WithError(err).WithField("stream", m.Policy.StreamName).Error("monitor: cycle failed")
				if fatal != nil {
					select {
					case fatal <- fmt.Errorf("stream %s: %w", m.Policy.StreamName, err):
					default:
					}
				}
				continue
			}
			if report == nil {
				continue
			}
			logrus.WithField("stream", m.Policy.StreamName).Info(report.Render())
			if reports == nil {
				continue
			}
			select {
			case reports <- report:
			default:
				logrus.WithField("stream", m.Policy.StreamName).Warn("monitor: report channel full, dropping")
			}
		}
	}
}
