// Package stats aggregates raw trial samples into outlier-trimmed summaries.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/louisbranch/combatsim/internal/report"
)

// trimSigmas is the half-width of the kept band, in standard deviations.
const trimSigmas = 2

var (
	// ErrNoSamples indicates an aggregation request had no samples.
	ErrNoSamples = errors.New("at least one sample is required")
	// ErrInvalidTrials indicates the configured trial count is not positive.
	ErrInvalidTrials = errors.New("trial count must be positive")
)

// Summary is the aggregate of one scenario's raw samples.
type Summary struct {
	// Mean is sum(samples)/trials, the configured trial count.
	Mean float64
	// StdDev is the population standard deviation of the samples.
	StdDev float64
	// AdjustedMean is the mean of the samples strictly inside Mean ± 2·StdDev.
	AdjustedMean float64
	// Kept counts the samples that survived the trim.
	Kept int
	// Fallback is set when the trim removed every sample and AdjustedMean is
	// the untrimmed sample mean instead.
	Fallback bool
}

// Aggregate computes the summary of samples.
//
// The mean divides by trials rather than len(samples), so a short sample
// slice biases it low. Samples at or beyond mean ± 2σ are dropped in a single
// pass. Zero-variance input therefore keeps nothing and falls back to the
// untrimmed sample mean.
func Aggregate(samples []float64, trials int) (Summary, error) {
	if trials <= 0 {
		return Summary{}, ErrInvalidTrials
	}
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}

	sum := 0.0
	for _, x := range samples {
		sum += x
	}
	mean := sum / float64(trials)
	stdDev := populationStdDev(samples, sum/float64(len(samples)))

	low := mean - trimSigmas*stdDev
	high := mean + trimSigmas*stdDev
	keptSum := 0.0
	kept := 0
	for _, x := range samples {
		if x >= high || x <= low {
			continue
		}
		keptSum += x
		kept++
	}

	summary := Summary{Mean: mean, StdDev: stdDev, Kept: kept}
	if kept == 0 {
		summary.AdjustedMean = sum / float64(len(samples))
		summary.Fallback = true
		return summary, nil
	}
	summary.AdjustedMean = keptSum / float64(kept)
	return summary, nil
}

// Ints converts integer samples for Aggregate.
func Ints(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

// Ratio returns a.AdjustedMean / b.AdjustedMean, or 0 when b is zero.
func Ratio(a, b Summary) float64 {
	if b.AdjustedMean == 0 {
		return 0
	}
	return a.AdjustedMean / b.AdjustedMean
}

// Fields returns the labeled adjusted mean and standard deviation.
func (s Summary) Fields(meanLabel, stdDevLabel string) report.Fields {
	return report.Fields{
		{Label: meanLabel, Value: s.AdjustedMean},
		{Label: stdDevLabel, Value: s.StdDev},
	}
}

// Rounded returns the adjusted mean rounded to two decimals.
func (s Summary) Rounded() float64 {
	return Round2(s.AdjustedMean)
}

// String returns the single-line "mean (stddev)" form.
func (s Summary) String() string {
	return fmt.Sprintf("%.2f (%.2f)", s.AdjustedMean, s.StdDev)
}

// Round2 rounds x to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func populationStdDev(samples []float64, mean float64) float64 {
	variance := 0.0
	for _, x := range samples {
		d := x - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(samples)))
}
