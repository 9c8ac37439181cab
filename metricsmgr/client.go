package metricsmgr

import (
	"context"
	"time"
)

// MetricName is one of the CloudWatch Kinesis metrics the manager queries
// and aggregates into a per-operation utilisation series.
type MetricName string

const (
	MetricPutRecordBytes    MetricName = "PutRecord.Bytes"
	MetricPutRecordsBytes   MetricName = "PutRecords.Bytes"
	MetricPutRecordSuccess  MetricName = "PutRecord.Success"
	MetricPutRecordsRecords MetricName = "PutRecords.Records"
	MetricGetRecordsBytes   MetricName = "GetRecords.Bytes"
	MetricGetRecordsSuccess MetricName = "GetRecords.Success"
)

// Dimension distinguishes the two axes a governing-metric selection chooses
// between: total bytes moved vs. total records moved.
type Dimension int

const (
	DimensionBytes Dimension = iota
	DimensionRecords
)

// metricTemplate names one CloudWatch metric and which dimension its
// datapoints belong to.
type metricTemplate struct {
	Name      MetricName
	Dimension Dimension
}

// putTemplates/getTemplates are the metric names queried for each
// operation; multiple templates sharing a dimension are summed together by
// timestamp into that dimension's series.
var (
	putTemplates = []metricTemplate{
		{MetricPutRecordBytes, DimensionBytes},
		{MetricPutRecordsBytes, DimensionBytes},
		{MetricPutRecordSuccess, DimensionRecords},
		{MetricPutRecordsRecords, DimensionRecords},
	}
	getTemplates = []metricTemplate{
		{MetricGetRecordsBytes, DimensionBytes},
		{MetricGetRecordsSuccess, DimensionRecords},
	}
)

func templatesFor(op Operation) []metricTemplate {
	if op == OperationGet {
		return getTemplates
	}
	return putTemplates
}

// Sample is one minute's worth of a CloudWatch SUM statistic, already
// expressed as a per-second rate (the raw sum divided by the 60s period).
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// MetricsClient fetches one named metric's per-minute datapoints over
// [start, end]. Implemented by CloudWatchAdapter against the real API and by
// a fake in tests — callers never depend on the AWS SDK's own types.
type MetricsClient interface {
	QueryMetric(ctx context.Context, streamName string, metric MetricName, start, end time.Time) ([]Sample, error)
}
