package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinesis-scaling-utils/metricsmgr"
	"kinesis-scaling-utils/monitor"
	"kinesis-scaling-utils/scaler"
	"kinesis-scaling-utils/streamcontrol"
	"kinesis-scaling-utils/streamcontrol/streamcontroltest"
)

func decimalPct(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type idleMetricsClient struct{}

func (idleMetricsClient) QueryMetric(ctx context.Context, streamName string, metric metricsmgr.MetricName, start, end time.Time) ([]metricsmgr.Sample, error) {
	return nil, nil
}

type failingClient struct {
	*streamcontroltest.FakeClient
}

func (f *failingClient) GetOpenShardCount(ctx context.Context, streamName string) (int, error) {
	return 0, errors.New("control plane unreachable")
}

var _ streamcontrol.Client = (*failingClient)(nil)

func testPolicy(streamName string) monitor.Policy {
	return monitor.Policy{
		StreamName: streamName,
		ScaleUp: monitor.DirectionConfig{
			ThresholdPct: decimalPct(75),
			AfterMins:    1,
		},
		ScaleDown: monitor.DirectionConfig{
			ThresholdPct: decimalPct(25),
			AfterMins:    1,
		},
		CycleInterval:          20 * time.Millisecond,
		RefreshShardsAfterMins: 10,
	}
}

func buildMonitor(t *testing.T, client streamcontrol.Client, streamName string) *monitor.StreamMonitor {
	t.Helper()
	metrics := metricsmgr.NewManager(idleMetricsClient{})
	sc := scaler.New(client, streamName, nil, nil)
	return monitor.NewStreamMonitor(client, metrics, sc, nil, testPolicy(streamName))
}

func TestControllerStopsAllWorkersOnFatalByDefault(t *testing.T) {
	healthy := buildMonitor(t, streamcontroltest.NewFakeClient("healthy"), "healthy")
	broken := buildMonitor(t, &failingClient{FakeClient: streamcontroltest.NewFakeClient("broken")}, "broken")

	c := New([]*monitor.StreamMonitor{healthy, broken}, nil, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestControllerSuppressesAbortWhenConfigured(t *testing.T) {
	broken := buildMonitor(t, &failingClient{FakeClient: streamcontroltest.NewFakeClient("broken")}, "broken")
	c := New([]*monitor.StreamMonitor{broken}, nil, true)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Run(ctx)
	assert.NoError(t, err)
}

func TestScalingSubjectFormatsDirection(t *testing.T) {
	assert.Equal(t, "orders Autoscaling - Scale Down", scalingSubject("orders", scaler.DirectionDown))
	assert.Equal(t, "orders Autoscaling - Scale Up", scalingSubject("orders", scaler.DirectionUp))
}

type capturingSink struct {
	subjects []string
}

func (c *capturingSink) Publish(ctx context.Context, subject, message string) error {
	c.subjects = append(c.subjects, subject)
	return nil
}

func TestDrainReportsPublishesCorrectSubject(t *testing.T) {
	sink := &capturingSink{}
	c := &Controller{Notify: sink}

	reports := make(chan *scaler.ScalingReport, 1)
	reports <- &scaler.ScalingReport{StreamName: "orders", Direction: scaler.DirectionDown, EndStatus: scaler.EndStatusOk}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c.drainReports(ctx, reports)

	require.Len(t, sink.subjects, 1)
	assert.Contains(t, sink.subjects[0], "Scale Down")
}
