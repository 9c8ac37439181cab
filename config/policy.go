package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/metricsmgr"
	"kinesis-scaling-utils/monitor"
)

// InvalidConfiguration reports a single policy's validation failure, naming
// the stream and field so operators can fix the document quickly.
type InvalidConfiguration struct {
	StreamName string
	Field      string
	Reason     string
}

func (e *InvalidConfiguration) Error() string {
	return fmt.Sprintf("config: stream %q: %s: %s", e.StreamName, e.Field, e.Reason)
}

// DirectionConfig is the on-disk shape of one direction (scale-up or
// scale-down) of a stream's policy. ThresholdPct and ScalePct are plain
// percent numbers (75 means 75%, 150 means 1.5x) rather than fractions, so a
// policy document reads the way an operator would say it out loud.
type DirectionConfig struct {
	ThresholdPct string          `json:"thresholdPct"`
	AfterMins    int             `json:"afterMins"`
	CoolOffMins  int             `json:"coolOffMins,omitempty"`
	ScaleCount   *int            `json:"scaleCount,omitempty"`
	ScalePct     *decimal.Decimal `json:"scalePct,omitempty"`

	NotificationTarget string `json:"notificationTarget,omitempty"`
}

// StreamPolicy is the on-disk/wire shape of one stream's scaling policy.
type StreamPolicy struct {
	StreamName        string   `json:"streamName"`
	Region            string   `json:"region,omitempty"`
	ScaleOnOperations []string `json:"scaleOnOperations,omitempty"`

	MinShards *int `json:"minShards,omitempty"`
	MaxShards *int `json:"maxShards,omitempty"`

	ScaleUp   *DirectionConfig `json:"scaleUp,omitempty"`
	ScaleDown *DirectionConfig `json:"scaleDown,omitempty"`

	RefreshShardsAfterMins int `json:"refreshShardsAfterMins,omitempty"`
	CheckIntervalSec       int `json:"checkIntervalSec,omitempty"`
}

const (
	defaultCheckIntervalSec       = 45
	defaultRefreshShardsAfterMins = 10
)

func (p *StreamPolicy) applyDefaults() {
	if p.CheckIntervalSec == 0 {
		p.CheckIntervalSec = defaultCheckIntervalSec
	}
	if p.RefreshShardsAfterMins == 0 {
		p.RefreshShardsAfterMins = defaultRefreshShardsAfterMins
	}
	// CoolOffMins on either direction block defaults to 0 (no cooldown),
	// which is the zero value already — nothing to backfill there.
}

func (p StreamPolicy) validate() error {
	if p.StreamName == "" {
		return &InvalidConfiguration{Field: "streamName", Reason: "must not be empty"}
	}
	if p.ScaleUp == nil && p.ScaleDown == nil {
		return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleUp/scaleDown", Reason: "at least one of scaleUp or scaleDown must be present"}
	}
	for _, op := range p.ScaleOnOperations {
		if op != "PUT" && op != "GET" {
			return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleOnOperations", Reason: fmt.Sprintf("unknown operation %q", op)}
		}
	}
	if p.MinShards != nil && *p.MinShards < 1 {
		return &InvalidConfiguration{StreamName: p.StreamName, Field: "minShards", Reason: "must be at least 1"}
	}
	if p.MinShards != nil && p.MaxShards != nil && *p.MinShards > *p.MaxShards {
		return &InvalidConfiguration{StreamName: p.StreamName, Field: "minShards", Reason: "must not exceed maxShards"}
	}
	if p.ScaleUp != nil {
		if _, err := decimal.NewFromString(p.ScaleUp.ThresholdPct); err != nil {
			return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleUp.thresholdPct", Reason: err.Error()}
		}
		if p.ScaleUp.ScalePct != nil && !p.ScaleUp.ScalePct.GreaterThan(decimal.NewFromInt(100)) {
			return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleUp.scalePct", Reason: "must be greater than 100 (a target factor in percent of current)"}
		}
	}
	if p.ScaleDown != nil {
		if _, err := decimal.NewFromString(p.ScaleDown.ThresholdPct); err != nil {
			return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleDown.thresholdPct", Reason: err.Error()}
		}
		if p.ScaleDown.ScalePct != nil && !p.ScaleDown.ScalePct.LessThan(decimal.NewFromInt(100)) {
			return &InvalidConfiguration{StreamName: p.StreamName, Field: "scaleDown.scalePct", Reason: "must be less than 100 (a target factor in percent of current)"}
		}
	}
	return nil
}

func toMonitorDirection(d *DirectionConfig) (monitor.DirectionConfig, error) {
	if d == nil {
		return monitor.DirectionConfig{}, nil
	}
	pct, err := decimal.NewFromString(d.ThresholdPct)
	if err != nil {
		return monitor.DirectionConfig{}, err
	}
	return monitor.DirectionConfig{
		ThresholdPct:       pct,
		AfterMins:          d.AfterMins,
		CoolOffMins:        d.CoolOffMins,
		ScaleCount:         d.ScaleCount,
		ScalePct:           d.ScalePct,
		NotificationTarget: d.NotificationTarget,
	}, nil
}

// ToMonitorPolicy converts a validated StreamPolicy into the decimal/duration
// form monitor.StreamMonitor consumes.
func (p StreamPolicy) ToMonitorPolicy() (monitor.Policy, error) {
	scaleUp, err := toMonitorDirection(p.ScaleUp)
	if err != nil {
		return monitor.Policy{}, err
	}
	scaleDown, err := toMonitorDirection(p.ScaleDown)
	if err != nil {
		return monitor.Policy{}, err
	}

	var scaleOn map[metricsmgr.Operation]bool
	if len(p.ScaleOnOperations) > 0 {
		scaleOn = make(map[metricsmgr.Operation]bool, len(p.ScaleOnOperations))
		for _, op := range p.ScaleOnOperations {
			switch op {
			case "PUT":
				scaleOn[metricsmgr.OperationPut] = true
			case "GET":
				scaleOn[metricsmgr.OperationGet] = true
			}
		}
	}

	return monitor.Policy{
		StreamName:             p.StreamName,
		Region:                 p.Region,
		ScaleOnOperations:      scaleOn,
		ScaleUp:                scaleUp,
		ScaleDown:              scaleDown,
		MinShards:              p.MinShards,
		MaxShards:              p.MaxShards,
		CycleInterval:          time.Duration(p.CheckIntervalSec) * time.Second,
		RefreshShardsAfterMins: p.RefreshShardsAfterMins,
	}, nil
}

// Loader resolves and decodes a policy document into validated StreamPolicy
// values, applying field defaults the way the document may omit them.
type Loader struct {
	S3 S3API
}

// NewLoader builds a Loader. s3Client may be nil if the deployment never
// points at an s3:// source.
func NewLoader(s3Client S3API) *Loader {
	return &Loader{S3: s3Client}
}

// Load fetches ref (s3://, http(s)://, or a filesystem path), decodes it as
// a JSON array of StreamPolicy, applies defaults, and validates each entry.
func (l *Loader) Load(ctx context.Context, ref string) ([]StreamPolicy, error) {
	raw, err := Resolve(ctx, ref, l.S3)
	if err != nil {
		return nil, err
	}

	var policies []StreamPolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", ref, err)
	}

	for i := range policies {
		policies[i].applyDefaults()
		if err := policies[i].validate(); err != nil {
			return nil, err
		}
	}
	return policies, nil
}
