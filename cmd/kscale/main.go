// Command kscale issues one-off scaling actions against a Kinesis stream:
// scale up, scale down, resize to an exact shard count, or print a
// report-only preview of what a resize would do.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	region            string
	kinesisEndpoint   string
	streamName        string
	minShards         int
	maxShards         int
	waitForCompletion bool
	jsonOutput        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "kscale",
		Short: "Scale the shard topology of an Amazon Kinesis stream",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.streamName == "" {
				return fmt.Errorf("--stream-name is required")
			}
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.region, "region", "", "AWS region (defaults to the environment/shared config)")
	root.PersistentFlags().StringVar(&flags.kinesisEndpoint, "kinesis-endpoint", "", "override Kinesis service endpoint (for local testing)")
	root.PersistentFlags().StringVar(&flags.streamName, "stream-name", "", "Kinesis stream to act on")
	root.PersistentFlags().IntVar(&flags.minShards, "min-shards", 0, "minimum shard count floor (0 disables)")
	root.PersistentFlags().IntVar(&flags.maxShards, "max-shards", 0, "maximum shard count ceiling (0 disables)")
	root.PersistentFlags().BoolVar(&flags.waitForCompletion, "wait-for-completion", true, "has no effect: every split and merge waits for the stream to return to ACTIVE")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "print the scaling report as JSON instead of text")

	root.AddCommand(newScaleUpCmd(flags))
	root.AddCommand(newScaleDownCmd(flags))
	root.AddCommand(newResizeCmd(flags))
	root.AddCommand(newReportCmd(flags))
	return root
}
