// Command autoscaler-daemon runs the continuous per-stream scaling control
// loop: it loads a policy document, builds one StreamMonitor per policy, and
// runs them under a Controller for the life of the process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"

	"kinesis-scaling-utils/config"
	"kinesis-scaling-utils/controller"
	"kinesis-scaling-utils/metricsmgr"
	"kinesis-scaling-utils/monitor"
	"kinesis-scaling-utils/notify"
	"kinesis-scaling-utils/scaler"
	"kinesis-scaling-utils/streamcontrol"
)

func main() {
	configFileURL := flag.String("config-file-url", "", "policy document location: s3://, http(s)://, or a filesystem path")
	suppressAbort := flag.Bool("suppress-abort-on-fatal", false, "keep other streams' workers running after one fails fatally")
	snsTopicARN := flag.String("sns-topic-arn", "", "SNS topic to publish scaling notifications to (falls back to logging)")
	region := flag.String("region", "", "AWS region override")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *configFileURL == "" {
		fmt.Fprintln(os.Stderr, "-config-file-url is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []func(*awsconfig.LoadOptions) error
	if *region != "" {
		opts = append(opts, awsconfig.WithRegion(*region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logrus.WithError(err).Fatal("daemon: loading AWS config")
	}

	kinesisClient := kinesis.NewFromConfig(cfg)
	cloudwatchClient := cloudwatch.NewFromConfig(cfg)
	s3Client := s3.NewFromConfig(cfg)

	loader := config.NewLoader(s3Client)
	policies, err := loader.Load(ctx, *configFileURL)
	if err != nil {
		logrus.WithError(err).Fatal("daemon: loading policy configuration")
	}
	if len(policies) == 0 {
		logrus.Fatal("daemon: policy configuration has no streams")
	}

	var sink notify.Sink = notify.LogSink{}
	if *snsTopicARN != "" {
		sink = notify.NewSNSSink(sns.NewFromConfig(cfg), *snsTopicARN)
	}

	adapter := streamcontrol.NewKinesisAdapter(kinesisClient, streamcontrol.DefaultRetryPolicy())
	metricsClient := metricsmgr.NewCloudWatchAdapter(cloudwatchClient)
	metricsManager := metricsmgr.NewManager(metricsClient)

	monitors := make([]*monitor.StreamMonitor, 0, len(policies))
	for _, p := range policies {
		mp, err := p.ToMonitorPolicy()
		if err != nil {
			logrus.WithError(err).Fatalf("daemon: converting policy for stream %s", p.StreamName)
		}
		sc := scaler.New(adapter, p.StreamName, p.MinShards, p.MaxShards)
		monitors = append(monitors, monitor.NewStreamMonitor(adapter, metricsManager, sc, sink, mp))
	}

	ctrl := controller.New(monitors, sink, *suppressAbort)
	if err := ctrl.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("daemon: controller stopped with error")
	}
}
