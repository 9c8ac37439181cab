package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinesis-scaling-utils/metricsmgr"
	"kinesis-scaling-utils/scaler"
	"kinesis-scaling-utils/streamcontrol/streamcontroltest"
)

type fixedMetricsClient struct {
	values map[metricsmgr.MetricName]float64
}

func (f *fixedMetricsClient) QueryMetric(ctx context.Context, streamName string, metric metricsmgr.MetricName, start, end time.Time) ([]metricsmgr.Sample, error) {
	v := f.values[metric]
	var samples []metricsmgr.Sample
	for ts := start.Truncate(time.Minute).Add(time.Minute); !ts.After(end); ts = ts.Add(time.Minute) {
		samples = append(samples, metricsmgr.Sample{Timestamp: ts, Value: v})
	}
	return samples, nil
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func testPolicy() Policy {
	return Policy{
		StreamName: "orders",
		ScaleUp: DirectionConfig{
			ThresholdPct: decimal.NewFromInt(75),
			AfterMins:    1,
			CoolOffMins:  5,
		},
		ScaleDown: DirectionConfig{
			ThresholdPct: decimal.NewFromInt(25),
			AfterMins:    1,
			CoolOffMins:  5,
		},
		CycleInterval:          time.Minute,
		RefreshShardsAfterMins: 10,
	}
}

// newMonitorWithRates builds a StreamMonitor whose fixed metrics client
// reports putBytesPerSec/putRecordsPerSec for PUT and
// getBytesPerSec/getRecordsPerSec for GET, on every one-minute datapoint.
func newMonitorWithRates(t *testing.T, putBytesPerSec, putRecordsPerSec, getBytesPerSec, getRecordsPerSec float64) (*StreamMonitor, *streamcontroltest.FakeClient, *fakeClock) {
	t.Helper()
	fake := streamcontroltest.NewFakeClient("orders")
	values := map[metricsmgr.MetricName]float64{
		metricsmgr.MetricPutRecordBytes:    putBytesPerSec,
		metricsmgr.MetricPutRecordSuccess:  putRecordsPerSec,
		metricsmgr.MetricGetRecordsBytes:   getBytesPerSec,
		metricsmgr.MetricGetRecordsSuccess: getRecordsPerSec,
	}
	metrics := metricsmgr.NewManager(&fixedMetricsClient{values: values})
	sc := scaler.New(fake, "orders", nil, nil)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}

	mon := NewStreamMonitor(fake, metrics, sc, nil, testPolicy())
	mon.Clock = clock
	return mon, fake, clock
}

func newMonitor(t *testing.T, bytesPerSec, recordsPerSec float64) (*StreamMonitor, *streamcontroltest.FakeClient, *fakeClock) {
	return newMonitorWithRates(t, bytesPerSec, recordsPerSec, bytesPerSec, recordsPerSec)
}

func TestCycleScalesUpWhenHot(t *testing.T) {
	mon, _, _ := newMonitor(t, 1_000_000, 10) // bytes saturated, records idle
	report, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, scaler.DirectionUp, report.Direction)
}

func TestCycleNoChangeWithinBand(t *testing.T) {
	mon, _, _ := newMonitor(t, 500_000, 500) // mid-band on both axes
	report, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestCycleScaleDownWhenBothOperationsCold(t *testing.T) {
	mon, _, _ := newMonitor(t, 10, 10)
	_, err := mon.Scaler.Resize(context.Background(), 4)
	require.NoError(t, err)

	report, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, scaler.DirectionDown, report.Direction)
}

// TestCycleScaleDownWhenOnlyOneOperationCold locks in the corrected vote
// matrix: PUT voting NoChange and GET voting ScaleDown still ends in a
// final ScaleDown, matching the scale-down side of the combine contract.
func TestCycleScaleDownWhenOnlyOneOperationCold(t *testing.T) {
	mon, _, _ := newMonitorWithRates(t, 500_000, 500, 100_000, 100)
	_, err := mon.Scaler.Resize(context.Background(), 2)
	require.NoError(t, err)

	report, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, scaler.DirectionDown, report.Direction)
	assert.Equal(t, scaler.EndStatusOk, report.EndStatus)
}

func TestCycleHonorsPerDirectionCooldown(t *testing.T) {
	mon, _, clock := newMonitor(t, 1_000_000, 10)
	first, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	clock.t = clock.t.Add(time.Minute) // within the 5-minute scale-up cooldown
	second, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, second, "second cycle should be suppressed by the scale-up cooldown")
}

func TestCycleScaleUpCooldownNeverBlocksScaleDown(t *testing.T) {
	mon, _, clock := newMonitor(t, 1_000_000, 10)
	up, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, up)
	require.Equal(t, scaler.DirectionUp, up.Direction)

	clock.t = clock.t.Add(time.Minute)
	mon.Metrics = metricsmgr.NewManager(&fixedMetricsClient{values: map[metricsmgr.MetricName]float64{
		metricsmgr.MetricPutRecordBytes:    10,
		metricsmgr.MetricPutRecordSuccess:  10,
		metricsmgr.MetricGetRecordsBytes:   10,
		metricsmgr.MetricGetRecordsSuccess: 10,
	}})
	down, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, down, "a prior scale-up's cooldown must never defer a scale-down")
	assert.Equal(t, scaler.DirectionDown, down.Direction)
}

func TestCycleRefreshesCachedCapacityAtBoundary(t *testing.T) {
	mon, fake, clock := newMonitor(t, 500_000, 500) // mid-band: no scaling action
	_, err := mon.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mon.cachedShardCount)

	_, err = mon.Scaler.Resize(context.Background(), 3) // external/manual resize the monitor hasn't seen yet
	require.NoError(t, err)
	liveCount, err := fake.GetOpenShardCount(context.Background(), "orders")
	require.NoError(t, err)
	require.Equal(t, 3, liveCount)

	clock.t = clock.t.Add(5 * time.Minute) // still inside the 10-minute refresh window
	_, err = mon.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mon.cachedShardCount, "capacity must not reload before refreshShardsAfterMins elapses")

	clock.t = clock.t.Add(6 * time.Minute) // now past the boundary
	_, err = mon.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, mon.cachedShardCount, "capacity reloads once refreshShardsAfterMins has elapsed")
}

func TestCombineVoteMatrix(t *testing.T) {
	assert.Equal(t, VoteScaleUp, Combine(VoteScaleUp, VoteNoChange))
	assert.Equal(t, VoteScaleUp, Combine(VoteNoChange, VoteScaleUp))
	assert.Equal(t, VoteScaleDown, Combine(VoteScaleDown, VoteScaleDown))
	assert.Equal(t, VoteScaleDown, Combine(VoteScaleDown, VoteNoChange))
	assert.Equal(t, VoteScaleDown, Combine(VoteNoChange, VoteScaleDown))
	assert.Equal(t, VoteScaleUp, Combine(VoteScaleDown, VoteScaleUp), "scale up wins over a conflicting scale down vote")
}
