// Package controller supervises one worker per configured stream policy:
// each worker runs a monitor.StreamMonitor on its own ticker, and the
// controller itself polls ambient host diagnostics and decides whether a
// worker's failure should bring the whole process down.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/hostmetrics"
	"kinesis-scaling-utils/monitor"
	"kinesis-scaling-utils/notify"
	"kinesis-scaling-utils/scaler"
)

// HealthPollInterval is how often the supervisor loop samples host
// diagnostics and logs worker liveness.
const HealthPollInterval = time.Minute

// Controller runs a fixed-size worker pool, one goroutine per stream
// policy, and supervises them for the process lifetime.
type Controller struct {
	Monitors []*monitor.StreamMonitor
	Notify   notify.Sink

	// TargetSinks optionally routes a report's NotificationTarget (a
	// policy direction's notificationTarget, e.g. a distinct SNS topic
	// ARN) to a dedicated Sink. A target with no entry here falls back to
	// Notify.
	TargetSinks map[string]notify.Sink

	// SuppressAbortOnFatal, when true, logs a worker's fatal error instead
	// of stopping every other worker and returning it to the caller.
	SuppressAbortOnFatal bool
}

// New builds a Controller over a fixed set of stream monitors.
func New(monitors []*monitor.StreamMonitor, sink notify.Sink, suppressAbortOnFatal bool) *Controller {
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &Controller{Monitors: monitors, Notify: sink, SuppressAbortOnFatal: suppressAbortOnFatal}
}

// Run starts one worker per stream monitor plus the supervisor loop, and
// blocks until ctx is cancelled or a worker fails fatally with
// SuppressAbortOnFatal false.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports := make(chan *scaler.ScalingReport, len(c.Monitors)*4)
	fatal := make(chan error, len(c.Monitors))

	var wg sync.WaitGroup
	tickers := make([]*time.Ticker, 0, len(c.Monitors))
	for _, m := range c.Monitors {
		interval := m.Policy.CycleInterval
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		tickers = append(tickers, ticker)

		wg.Add(1)
		go func(m *monitor.StreamMonitor, ticker *time.Ticker) {
			defer wg.Done()
			m.Run(ctx, ticker.C, reports, fatal)
		}(m, ticker)
	}
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.supervise(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.drainReports(ctx, reports)
	}()

	select {
	case <-ctx.Done():
		wg.Wait()
		return nil
	case err := <-fatal:
		if c.SuppressAbortOnFatal {
			logrus.WithError(err).Warn("controller: worker failed fatally, suppressing abort per configuration")
			// Keep running: re-arm a drain so future fatals don't block
			// the channel, and fall through to wait for ctx cancellation.
			go drainFatal(ctx, fatal)
			<-ctx.Done()
			wg.Wait()
			return nil
		}
		logrus.WithError(err).Error("controller: worker failed fatally, stopping all workers")
		cancel()
		wg.Wait()
		return err
	}
}

func drainFatal(ctx context.Context, fatal <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-fatal:
			logrus.WithError(err).Warn("controller: worker failed fatally, suppressing abort per configuration")
		}
	}
}

func (c *Controller) drainReports(ctx context.Context, reports <-chan *scaler.ScalingReport) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-reports:
			if r == nil {
				continue
			}
			sink := c.Notify
			if s, ok := c.TargetSinks[r.NotificationTarget]; ok && r.NotificationTarget != "" {
				sink = s
			}
			if err := sink.Publish(ctx, scalingSubject(r.StreamName, r.Direction), r.Render()); err != nil {
				logrus.WithError(err).Warn("controller: notification publish failed")
			}
		}
	}
}

// directionLabel renders a ScaleDirection the way the notification subject
// line expects it: "Up" or "Down". A report that moved no shards (a cap or a
// no-op resize) carries DirectionNone, which has no entry here and is
// rendered as its raw value.
var directionLabel = map[scaler.ScaleDirection]string{
	scaler.DirectionUp:   "Up",
	scaler.DirectionDown: "Down",
}

// scalingSubject renders the notification subject line: "<Service>
// Autoscaling - Scale {Up|Down}".
func scalingSubject(streamName string, direction scaler.ScaleDirection) string {
	label, ok := directionLabel[direction]
	if !ok {
		label = string(direction)
	}
	return fmt.Sprintf("%s Autoscaling - Scale %s", streamName, label)
}

// supervise polls ambient host diagnostics on HealthPollInterval purely for
// operational logging; it never feeds a scaling decision.
func (c *Controller) supervise(ctx context.Context) {
	ticker := time.NewTicker(HealthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := hostmetrics.Sample(ctx)
			if err != nil {
				logrus.WithError(err).Debug("controller: host metrics sample failed")
				continue
			}
			logrus.WithFields(logrus.Fields{
				"cpuPercent": snap.CPUPercent,
				"memPercent": snap.MemoryPercent,
				"workers":    len(c.Monitors),
			}).Debug("controller: health poll")
		}
	}
}
