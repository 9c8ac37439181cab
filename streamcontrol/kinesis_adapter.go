package streamcontrol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/hashmath"
	"kinesis-scaling-utils/shardcatalog"
)

// KinesisAPI is the subset of *kinesis.Client this adapter depends on,
// narrowed so fakes in tests don't need to satisfy the full SDK client.
type KinesisAPI interface {
	DescribeStreamSummary(ctx context.Context, in *kinesis.DescribeStreamSummaryInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamSummaryOutput, error)
	ListShards(ctx context.Context, in *kinesis.ListShardsInput, optFns ...func(*kinesis.Options)) (*kinesis.ListShardsOutput, error)
	SplitShard(ctx context.Context, in *kinesis.SplitShardInput, optFns ...func(*kinesis.Options)) (*kinesis.SplitShardOutput, error)
	MergeShards(ctx context.Context, in *kinesis.MergeShardsInput, optFns ...func(*kinesis.Options)) (*kinesis.MergeShardsOutput, error)
	UpdateShardCount(ctx context.Context, in *kinesis.UpdateShardCountInput, optFns ...func(*kinesis.Options)) (*kinesis.UpdateShardCountOutput, error)
}

// KinesisAdapter implements Client against the real Kinesis control plane
// via aws-sdk-go-v2/service/kinesis, with the spec §4.2 retry/backoff policy
// applied around every mutating or listing call.
type KinesisAdapter struct {
	api    KinesisAPI
	policy RetryPolicy
}

// NewKinesisAdapter builds an adapter over an aws-sdk-go-v2 Kinesis client.
// Pass DefaultRetryPolicy() unless a test needs different numeric knobs.
func NewKinesisAdapter(api KinesisAPI, policy RetryPolicy) *KinesisAdapter {
	return &KinesisAdapter{api: api, policy: policy}
}

func (k *KinesisAdapter) DescribeStream(ctx context.Context, streamName string) (StreamDescription, error) {
	var out StreamDescription
	err := withRetry(ctx, k.policy, "DescribeStreamSummary", func() error {
		resp, err := k.api.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{
			StreamName: aws.String(streamName),
		})
		if err != nil {
			return wrapSDKError(err)
		}
		out = StreamDescription{
			StreamName: streamName,
			Status:     StreamStatus(resp.StreamDescriptionSummary.StreamStatus),
			ShardCount: int(aws.ToInt32(resp.StreamDescriptionSummary.OpenShardCount)),
		}
		return nil
	})
	return out, err
}

func (k *KinesisAdapter) ListShards(ctx context.Context, streamName string, afterShardID string) ([]shardcatalog.Shard, error) {
	var all []shardcatalog.Shard
	var nextToken *string

	for {
		in := &kinesis.ListShardsInput{NextToken: nextToken}
		if nextToken == nil {
			in.StreamName = aws.String(streamName)
			if afterShardID != "" {
				in.ExclusiveStartShardId = aws.String(afterShardID)
			}
		}

		var page *kinesis.ListShardsOutput
		err := withRetry(ctx, k.policy, "ListShards", func() error {
			resp, err := k.api.ListShards(ctx, in)
			if err != nil {
				return wrapSDKError(err)
			}
			page = resp
			return nil
		})
		if err != nil {
			return nil, err
		}

		for _, s := range page.Shards {
			all = append(all, toShard(s))
		}

		// Terminate strictly on absence of NextToken (spec's Open Question
		// resolution): historically this API mixed a "has more" flag with
		// the token; we trust the token alone.
		if page.NextToken == nil || strings.TrimSpace(aws.ToString(page.NextToken)) == "" {
			break
		}
		nextToken = page.NextToken
	}

	return all, nil
}

func (k *KinesisAdapter) GetShardByID(ctx context.Context, streamName, shardID string) (shardcatalog.Shard, error) {
	shards, err := k.ListShards(ctx, streamName, "")
	if err != nil {
		return shardcatalog.Shard{}, err
	}
	for _, s := range shards {
		if s.ID == shardID {
			return s, nil
		}
	}
	return shardcatalog.Shard{}, fmt.Errorf("%w: %s", ErrShardNotFound, shardID)
}

func (k *KinesisAdapter) SplitShard(ctx context.Context, streamName, shardID string, targetHash string, waitForActive bool) error {
	err := withRetry(ctx, k.policy, "SplitShard", func() error {
		_, err := k.api.SplitShard(ctx, &kinesis.SplitShardInput{
			StreamName:          aws.String(streamName),
			ShardToSplit:        aws.String(shardID),
			NewStartingHashKey:  aws.String(targetHash),
		})
		return wrapSDKError(err)
	})
	if err != nil {
		return err
	}
	if waitForActive {
		return k.WaitForStatus(ctx, streamName, StatusActive)
	}
	return nil
}

func (k *KinesisAdapter) MergeShards(ctx context.Context, streamName, lowerShardID, higherShardID string, waitForActive bool) error {
	err := withRetry(ctx, k.policy, "MergeShards", func() error {
		_, err := k.api.MergeShards(ctx, &kinesis.MergeShardsInput{
			StreamName:           aws.String(streamName),
			ShardToMerge:         aws.String(lowerShardID),
			AdjacentShardToMerge: aws.String(higherShardID),
		})
		return wrapSDKError(err)
	})
	if err != nil {
		return err
	}
	if waitForActive {
		return k.WaitForStatus(ctx, streamName, StatusActive)
	}
	return nil
}

func (k *KinesisAdapter) UpdateShardCount(ctx context.Context, streamName string, targetCount int32) error {
	return withRetry(ctx, k.policy, "UpdateShardCount", func() error {
		_, err := k.api.UpdateShardCount(ctx, &kinesis.UpdateShardCountInput{
			StreamName:       aws.String(streamName),
			TargetShardCount: aws.Int32(targetCount),
			ScalingType:      types.ScalingTypeUniformScaling,
		})
		err = wrapSDKError(err)
		if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrThrottled) {
			return fmt.Errorf("%w: %w", ErrNotSupported, err)
		}
		return err
	})
}

func (k *KinesisAdapter) WaitForStatus(ctx context.Context, streamName string, status StreamStatus) error {
	wait := 20 * time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		desc, err := k.DescribeStream(ctx, streamName)
		if err != nil {
			return err
		}
		if desc.Status == status {
			return nil
		}
		logrus.WithFields(logrus.Fields{
			"stream": streamName,
			"status": desc.Status,
			"want":   status,
		}).Debug("streamcontrol: waiting for stream status")
		wait = time.Second
	}
}

func (k *KinesisAdapter) GetOpenShardCount(ctx context.Context, streamName string) (int, error) {
	raw, err := k.ListShards(ctx, streamName, "")
	if err != nil {
		return 0, err
	}
	open, err := shardcatalog.DeriveOpenShards(raw)
	if err != nil {
		return 0, err
	}
	return len(open), nil
}

func toShard(s types.Shard) shardcatalog.Shard {
	out := shardcatalog.Shard{
		ID:        aws.ToString(s.ShardId),
		StartHash: parseHashKeyOrZero(aws.ToString(s.HashKeyRange.StartingHashKey)),
		EndHash:   parseHashKeyOrZero(aws.ToString(s.HashKeyRange.EndingHashKey)),
		Status:    shardcatalog.StatusOpen,
	}
	if s.ParentShardId != nil {
		out.ParentID = aws.ToString(s.ParentShardId)
	}
	if s.AdjacentParentShardId != nil {
		out.AdjacentParentID = aws.ToString(s.AdjacentParentShardId)
	}
	return out
}

// wrapSDKError classifies an aws-sdk-go-v2/smithy error into this package's
// sentinel kinds so withRetry and upstream callers never need to import the
// SDK's own error types.
func wrapSDKError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceInUseException":
			return fmt.Errorf("%w: %s", ErrShardMutating, apiErr.ErrorMessage())
		case "LimitExceededException", "ProvisionedThroughputExceededException":
			return fmt.Errorf("%w: %s", ErrThrottled, apiErr.ErrorMessage())
		case "InvalidArgumentException":
			return fmt.Errorf("%w: %s", ErrInvalidArgument, apiErr.ErrorMessage())
		case "MissingRequiredParameterException", "InvalidParameterCombinationException":
			return fmt.Errorf("%w: %s", ErrMissingParameter, apiErr.ErrorMessage())
		case "ResourceNotFoundException":
			return fmt.Errorf("%w: %s", ErrShardNotFound, apiErr.ErrorMessage())
		}
	}
	return err
}

func parseHashKeyOrZero(s string) hashmath.HashKey {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		logrus.WithField("value", s).Warn("streamcontrol: unparsable hash key, treating as zero")
		return hashmath.Zero()
	}
	hk, err := hashmath.NewHashKey(v)
	if err != nil {
		logrus.WithField("value", s).Warn("streamcontrol: hash key out of range, clamping to zero")
		return hashmath.Zero()
	}
	return hk
}
