package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"

	"kinesis-scaling-utils/scaler"
	"kinesis-scaling-utils/streamcontrol"
)

func buildScaler(ctx context.Context, flags *rootFlags) (*scaler.Scaler, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if flags.region != "" {
		opts = append(opts, awsconfig.WithRegion(flags.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := kinesis.NewFromConfig(cfg, func(o *kinesis.Options) {
		if flags.kinesisEndpoint != "" {
			o.BaseEndpoint = aws.String(flags.kinesisEndpoint)
		}
	})

	adapter := streamcontrol.NewKinesisAdapter(client, streamcontrol.DefaultRetryPolicy())

	var minShards, maxShards *int
	if flags.minShards > 0 {
		minShards = &flags.minShards
	}
	if flags.maxShards > 0 {
		maxShards = &flags.maxShards
	}

	return scaler.New(adapter, flags.streamName, minShards, maxShards), nil
}
