// Package scaler exposes the public scaling API: scale up, scale down, or
// resize a stream's shard count, bounded by policy minimums and maximums,
// reporting the outcome as a structured ScalingReport rather than raising an
// exception for the routine "nothing to do" and "at a cap" cases.
package scaler

import (
	"encoding/json"
	"fmt"
	"time"

	"kinesis-scaling-utils/topology"
)

// EndStatus is the terminal classification of a scaling attempt. It extends
// topology.Outcome with the two states only the Scaler layer can produce:
// ReportOnly (no mutation was attempted) and Error (the attempt failed).
type EndStatus string

const (
	EndStatusReportOnly       EndStatus = "ReportOnly"
	EndStatusNoActionRequired EndStatus = "NoActionRequired"
	EndStatusAlreadyAtMinimum EndStatus = "AlreadyAtMinimum"
	EndStatusAlreadyAtMaximum EndStatus = "AlreadyAtMaximum"
	EndStatusAlreadyOneShard  EndStatus = "AlreadyOneShard"
	EndStatusError            EndStatus = "Error"
	EndStatusOk               EndStatus = "Ok"
)

func fromOutcome(o topology.Outcome) EndStatus {
	switch o {
	case topology.OutcomeOk:
		return EndStatusOk
	case topology.OutcomeNoActionRequired:
		return EndStatusNoActionRequired
	case topology.OutcomeAlreadyAtMinimum:
		return EndStatusAlreadyAtMinimum
	case topology.OutcomeAlreadyAtMaximum:
		return EndStatusAlreadyAtMaximum
	case topology.OutcomeAlreadyOneShard:
		return EndStatusAlreadyOneShard
	default:
		return EndStatusError
	}
}

// ScaleDirection records which way a requested resize moved the shard count.
type ScaleDirection string

const (
	DirectionUp   ScaleDirection = "up"
	DirectionDown ScaleDirection = "down"
	DirectionNone ScaleDirection = "none"
)

// ScalingReport is the result of one scaling attempt: a value callers render
// or serialize, never an exception the caller must catch.
type ScalingReport struct {
	StreamName string         `json:"streamName"`
	Direction  ScaleDirection `json:"direction"`
	FromCount  int            `json:"fromCount"`
	ToCount    int            `json:"toCount"`
	EndStatus  EndStatus      `json:"endStatus"`
	Operations []string       `json:"operations,omitempty"`
	Err        string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`

	// NotificationTarget carries the policy direction's configured
	// notification target (e.g. an SNS topic ARN) forward so a listener
	// downstream of the Scaler can route the notification without
	// depending on monitor.Policy directly.
	NotificationTarget string `json:"notificationTarget,omitempty"`
}

// Render formats the report the way the CLI prints it to stdout.
func (r ScalingReport) Render() string {
	if r.Err != "" {
		return fmt.Sprintf("%s: FAILED (%s): %s", r.StreamName, r.EndStatus, r.Err)
	}
	if len(r.Operations) == 0 {
		return fmt.Sprintf("%s: %s (%d shards, no change)", r.StreamName, r.EndStatus, r.FromCount)
	}
	return fmt.Sprintf("%s: %s %d -> %d shards via %d operation(s) [%s]",
		r.StreamName, r.Direction, r.FromCount, r.ToCount, len(r.Operations), r.EndStatus)
}

// JSON renders the report as an indented JSON document, for callers that
// pipe output to another tool instead of a terminal.
func (r ScalingReport) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func opStrings(ops []topology.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}
