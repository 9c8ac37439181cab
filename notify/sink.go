// Package notify publishes scaling events to an operator-facing channel,
// decoupled from the controller so the failure of a notification never
// blocks a scaling decision.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sink delivers a scaling event notification. Implementations must not
// block the caller indefinitely; the controller treats a Sink failure as
// non-fatal and only logs it.
type Sink interface {
	Publish(ctx context.Context, subject, message string) error
}

// LogSink is the fallback Sink: it writes the notification to the
// structured logger instead of an external channel, used when no SNS topic
// is configured.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, subject, message string) error {
	logrus.WithField("subject", subject).Info(message)
	return nil
}
