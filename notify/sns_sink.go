package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the subset of *sns.Client this sink uses.
type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink publishes notifications to a single SNS topic.
type SNSSink struct {
	api      SNSAPI
	topicARN string
}

// NewSNSSink builds a Sink backed by an SNS topic.
func NewSNSSink(api SNSAPI, topicARN string) *SNSSink {
	return &SNSSink{api: api, topicARN: topicARN}
}

func (s *SNSSink) Publish(ctx context.Context, subject, message string) error {
	_, err := s.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	return err
}
