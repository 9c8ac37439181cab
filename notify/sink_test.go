package notify

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSinkNeverErrors(t *testing.T) {
	var s Sink = LogSink{}
	assert.NoError(t, s.Publish(context.Background(), "orders scaled", "orders: Ok 2 -> 4 shards"))
}

type fakeSNSAPI struct {
	lastInput *sns.PublishInput
}

func (f *fakeSNSAPI) Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.lastInput = in
	return &sns.PublishOutput{}, nil
}

func TestSNSSinkPublishesToConfiguredTopic(t *testing.T) {
	fake := &fakeSNSAPI{}
	sink := NewSNSSink(fake, "arn:aws:sns:us-east-1:123456789012:scaling-events")

	require.NoError(t, sink.Publish(context.Background(), "orders scaled", "orders: Ok 2 -> 4 shards"))
	require.NotNil(t, fake.lastInput)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:scaling-events", *fake.lastInput.TopicArn)
	assert.Equal(t, "orders scaled", *fake.lastInput.Subject)
}
