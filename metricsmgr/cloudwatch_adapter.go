package metricsmgr

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// metricPeriodSeconds is the CloudWatch query granularity; every sample
// this adapter returns is a per-second rate over this period.
const metricPeriodSeconds = 60

// CloudWatchAPI is the subset of *cloudwatch.Client this adapter uses.
type CloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, in *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchAdapter implements MetricsClient against the AWS/Kinesis metric
// namespace via aws-sdk-go-v2/service/cloudwatch.
type CloudWatchAdapter struct {
	api CloudWatchAPI
}

// NewCloudWatchAdapter builds a MetricsClient over a CloudWatch client.
func NewCloudWatchAdapter(api CloudWatchAPI) *CloudWatchAdapter {
	return &CloudWatchAdapter{api: api}
}

func (c *CloudWatchAdapter) QueryMetric(ctx context.Context, streamName string, metric MetricName, start, end time.Time) ([]Sample, error) {
	resp, err := c.api.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/Kinesis"),
		MetricName: aws.String(string(metric)),
		Dimensions: []types.Dimension{
			{Name: aws.String("StreamName"), Value: aws.String(streamName)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(metricPeriodSeconds),
		Statistics: []types.Statistic{types.StatisticSum},
	})
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(resp.Datapoints))
	for _, dp := range resp.Datapoints {
		samples = append(samples, Sample{
			Timestamp: aws.ToTime(dp.Timestamp),
			Value:     aws.ToFloat64(dp.Sum) / metricPeriodSeconds,
		})
	}
	return samples, nil
}
