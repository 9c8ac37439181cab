package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kinesis-scaling-utils/scaler"
)

func newScaleUpCmd(flags *rootFlags) *cobra.Command {
	var by int
	cmd := &cobra.Command{
		Use:   "scale-up",
		Short: "Increase a stream's shard count by a fixed amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildScaler(cmd.Context(), flags)
			if err != nil {
				return err
			}
			report, err := s.ScaleUp(cmd.Context(), by)
			return renderAndCheck(cmd, flags, report, err)
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "number of shards to add")
	return cmd
}

func newScaleDownCmd(flags *rootFlags) *cobra.Command {
	var by int
	cmd := &cobra.Command{
		Use:   "scale-down",
		Short: "Decrease a stream's shard count by a fixed amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildScaler(cmd.Context(), flags)
			if err != nil {
				return err
			}
			report, err := s.ScaleDown(cmd.Context(), by)
			return renderAndCheck(cmd, flags, report, err)
		},
	}
	cmd.Flags().IntVar(&by, "by", 1, "number of shards to remove")
	return cmd
}

func newResizeCmd(flags *rootFlags) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Resize a stream to an exact open-shard count",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildScaler(cmd.Context(), flags)
			if err != nil {
				return err
			}
			report, err := s.Resize(cmd.Context(), target)
			return renderAndCheck(cmd, flags, report, err)
		},
	}
	cmd.Flags().IntVar(&target, "target-shards", 0, "desired open-shard count")
	cmd.MarkFlagRequired("target-shards")
	return cmd
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Preview the operations a resize would issue, without mutating anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildScaler(cmd.Context(), flags)
			if err != nil {
				return err
			}
			report, err := s.Preview(cmd.Context(), target)
			return renderAndCheck(cmd, flags, report, err)
		},
	}
	cmd.Flags().IntVar(&target, "target-shards", 0, "shard count to preview a resize against")
	cmd.MarkFlagRequired("target-shards")
	return cmd
}

func renderAndCheck(cmd *cobra.Command, flags *rootFlags, report scaler.ScalingReport, err error) error {
	if err != nil {
		return err
	}
	if flags.jsonOutput {
		out, jerr := report.JSON()
		if jerr != nil {
			return jerr
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), report.Render())
	}
	if report.EndStatus == scaler.EndStatusError {
		return fmt.Errorf("scaling failed: %s", report.Err)
	}
	return nil
}
