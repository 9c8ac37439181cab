package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"kinesis-scaling-utils/metricsmgr"
)

var hundred = decimal.NewFromInt(100)

// dimensionStats summarizes one (operation, dimension)'s trailing W-minute
// sample series against the scale-up/scale-down thresholds.
type dimensionStats struct {
	highCount int
	lowCount  int
	avgPct    float64
}

// statsFor walks w one-minute slots ending at (and including) end, counting
// high and low samples against capacityPerSec. A slot with no datapoint in
// series counts as a low sample — missing samples pad toward cold, never
// toward hot.
func statsFor(series map[time.Time]float64, end time.Time, w int, capacityPerSec float64, hotFrac, coldFrac float64) dimensionStats {
	var stats dimensionStats
	var sum float64
	var present int

	slot := end.Truncate(time.Minute)
	for i := 0; i < w; i++ {
		value, ok := series[slot]
		if !ok {
			stats.lowCount++
		} else {
			pct := 0.0
			if capacityPerSec > 0 {
				pct = value / capacityPerSec
			}
			sum += pct
			present++
			switch {
			case pct > hotFrac:
				stats.highCount++
			case pct < coldFrac:
				stats.lowCount++
			}
		}
		slot = slot.Add(-time.Minute)
	}
	if present > 0 {
		stats.avgPct = sum / float64(present)
	}
	return stats
}

// voteForOperation picks the governing dimension (bytes vs records,
// whichever has the larger average utilisation) for one operation and
// casts that operation's vote: UP if its high-sample count reaches
// scaleUp.AfterMins, else DOWN if its low-sample count reaches
// scaleDown.AfterMins, else NoChange.
func voteForOperation(series metricsmgr.DimensionSeries, capacity metricsmgr.StreamCapacity, end time.Time, w int, scaleUp, scaleDown DirectionConfig) Vote {
	hotFrac, _ := scaleUp.ThresholdPct.Div(hundred).Float64()
	coldFrac, _ := scaleDown.ThresholdPct.Div(hundred).Float64()

	bytesStats := statsFor(series.Bytes, end, w, float64(capacity.BytesPerSec), hotFrac, coldFrac)
	recordsStats := statsFor(series.Records, end, w, float64(capacity.RecordsPerSec), hotFrac, coldFrac)

	governing := bytesStats
	if recordsStats.avgPct > bytesStats.avgPct {
		governing = recordsStats
	}

	switch {
	case governing.highCount >= scaleUp.AfterMins:
		return VoteScaleUp
	case governing.lowCount >= scaleDown.AfterMins:
		return VoteScaleDown
	default:
		return VoteNoChange
	}
}
