package metricsmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetricsClient struct {
	perMinute map[MetricName]float64
}

func (f *fakeMetricsClient) QueryMetric(ctx context.Context, streamName string, metric MetricName, start, end time.Time) ([]Sample, error) {
	v, ok := f.perMinute[metric]
	if !ok {
		return nil, nil
	}
	var samples []Sample
	for ts := start.Truncate(time.Minute); !ts.After(end); ts = ts.Add(time.Minute) {
		samples = append(samples, Sample{Timestamp: ts, Value: v})
	}
	return samples, nil
}

func TestQueryUtilisationSeriesSumsMetricsSharingADimension(t *testing.T) {
	fake := &fakeMetricsClient{perMinute: map[MetricName]float64{
		MetricPutRecordBytes:    300_000,
		MetricPutRecordsBytes:   300_000,
		MetricPutRecordSuccess:  200,
		MetricPutRecordsRecords: 300,
	}}
	mgr := NewManager(fake)

	start := time.Unix(0, 0)
	end := start.Add(2 * time.Minute)
	series, err := mgr.QueryUtilisationSeries(context.Background(), "orders", OperationPut, start, end)
	require.NoError(t, err)

	require.Len(t, series.Bytes, 3)
	require.Len(t, series.Records, 3)
	for _, v := range series.Bytes {
		assert.InDelta(t, 600_000, v, 0.001)
	}
	for _, v := range series.Records {
		assert.InDelta(t, 500, v, 0.001)
	}
}

func TestQueryUtilisationSeriesGetUsesSuccessNotRecordsMetric(t *testing.T) {
	fake := &fakeMetricsClient{perMinute: map[MetricName]float64{
		MetricGetRecordsBytes:   1_000_000,
		MetricGetRecordsSuccess: 800,
	}}
	mgr := NewManager(fake)

	start := time.Unix(0, 0)
	end := start.Add(time.Minute)
	series, err := mgr.QueryUtilisationSeries(context.Background(), "orders", OperationGet, start, end)
	require.NoError(t, err)

	for _, v := range series.Bytes {
		assert.InDelta(t, 1_000_000, v, 0.001)
	}
	for _, v := range series.Records {
		assert.InDelta(t, 800, v, 0.001)
	}
}

func TestCapacityForScalesWithShardCount(t *testing.T) {
	c := CapacityFor(OperationGet, 3)
	assert.Equal(t, int64(3*2_097_152), c.BytesPerSec)
	assert.Equal(t, int64(3*2_000), c.RecordsPerSec)
}
