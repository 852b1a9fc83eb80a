package outcome

import (
	"strconv"
	"strings"

	"github.com/33prime/aios-req-engine-sub007/entity"
)

// trendWindow is how many of the most recent measurements feed the trend.
const trendWindow = 5

// velocityThreshold is the relative change below which a trend is stable.
const velocityThreshold = 0.05

// ComputeTrend derives a trend from measurements ordered newest first.
//
// With numeric values, the window splits into a recent half and an older
// half; relative velocity between the half means decides the direction.
// Non-numeric values fall back to an ordinal severity comparison between
// the newest and oldest measurement in the window. Fewer than two
// measurements is unknown.
func ComputeTrend(measurements []*entity.Measurement) entity.Trend {
	if len(measurements) < 2 {
		return entity.TrendUnknown
	}

	window := measurements
	if len(window) > trendWindow {
		window = window[:trendWindow]
	}

	values := make([]float64, 0, len(window))
	numeric := true
	for _, m := range window {
		v, err := strconv.ParseFloat(strings.TrimSpace(m.Value), 64)
		if err != nil {
			numeric = false
			break
		}
		values = append(values, v)
	}

	if numeric {
		return numericTrend(values)
	}
	return ordinalTrend(window)
}

func numericTrend(values []float64) entity.Trend {
	half := len(values) / 2
	recentAvg := mean(values[:half])
	olderAvg := mean(values[half:])

	var velocity float64
	if olderAvg != 0 {
		velocity = (recentAvg - olderAvg) / abs(olderAvg)
	}

	switch {
	case velocity > velocityThreshold:
		return entity.TrendImproving
	case velocity < -velocityThreshold:
		return entity.TrendDeclining
	default:
		return entity.TrendStable
	}
}

// ordinalTrend compares the newest and oldest measurement in the window by
// severity ordinal. Unknown labels score zero, matching progress scoring.
func ordinalTrend(window []*entity.Measurement) entity.Trend {
	newest := severityScores[strings.ToLower(strings.TrimSpace(window[0].Value))]
	oldest := severityScores[strings.ToLower(strings.TrimSpace(window[len(window)-1].Value))]

	switch {
	case newest > oldest:
		return entity.TrendImproving
	case newest < oldest:
		return entity.TrendDeclining
	default:
		return entity.TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
