package metricsmgr

import (
	"context"
	"time"
)

// DimensionSeries holds one operation's per-minute aggregated rate, keyed
// by the minute the datapoint falls in, for each of the two dimensions a
// governing-metric selection chooses between. Every metric template
// sharing a dimension has already been summed into the same bucket when
// two metrics report against the same timestamp.
type DimensionSeries struct {
	Operation Operation
	Bytes     map[time.Time]float64
	Records   map[time.Time]float64
}

// Manager queries CloudWatch for a stream's per-operation metric templates
// and returns the aggregated series as raw rates; relating them to the
// stream's shard-derived capacity (CapacityFor) is done by the caller.
type Manager struct {
	Client MetricsClient
}

// NewManager builds a Manager over a MetricsClient.
func NewManager(client MetricsClient) *Manager {
	return &Manager{Client: client}
}

// QueryUtilisationSeries executes every metric template for op over
// [start, end], summing same-timestamp datapoints that share a dimension
// into a single per-minute series per dimension.
func (m *Manager) QueryUtilisationSeries(ctx context.Context, streamName string, op Operation, start, end time.Time) (DimensionSeries, error) {
	series := DimensionSeries{Operation: op, Bytes: map[time.Time]float64{}, Records: map[time.Time]float64{}}
	for _, tmpl := range templatesFor(op) {
		samples, err := m.Client.QueryMetric(ctx, streamName, tmpl.Name, start, end)
		if err != nil {
			return DimensionSeries{}, err
		}
		bucket := series.Bytes
		if tmpl.Dimension == DimensionRecords {
			bucket = series.Records
		}
		for _, s := range samples {
			bucket[s.Timestamp.Truncate(time.Minute)] += s.Value
		}
	}
	return series, nil
}
