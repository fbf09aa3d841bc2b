package stats

import (
	"errors"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when a summary is requested for an empty distribution.
var ErrNoSamples = errors.New("cannot summarize an empty duration distribution")

// Summary describes a named latency distribution
type Summary struct {
	Name   string        `json:"name"`
	Count  int           `json:"count"`
	Min    time.Duration `json:"min"`
	Mean   time.Duration `json:"mean"`
	Max    time.Duration `json:"max"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
}

// Summarize computes min, mean, max, sample standard deviation and empirical
// quantiles over durations. The input slice is not modified.
func Summarize(name string, durations []time.Duration) (*Summary, error) {
	if len(durations) == 0 {
		return nil, ErrNoSamples
	}

	values := make([]float64, len(durations))
	for i, d := range durations {
		values[i] = float64(d)
	}
	sort.Float64s(values)

	summary := &Summary{
		Name:  name,
		Count: len(values),
		Min:   time.Duration(floats.Min(values)),
		Max:   time.Duration(floats.Max(values)),
		Mean:  time.Duration(stat.Mean(values, nil)),
		P50:   quantile(0.50, values),
		P95:   quantile(0.95, values),
		P99:   quantile(0.99, values),
	}

	// A single sample has no spread.
	if len(values) > 1 {
		summary.StdDev = time.Duration(stat.StdDev(values, nil))
	}

	return summary, nil
}

func quantile(p float64, sorted []float64) time.Duration {
	return time.Duration(stat.Quantile(p, stat.Empirical, sorted, nil))
}
