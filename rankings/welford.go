package rankings

import (
	"errors"
	"math"
)

var ErrEmptyStats = errors.New("running stats hold no observations")

// RunningStats is an incrementally maintained mean/variance (Welford's
// algorithm) over leaderboard score submissions. M2 is the sum of squared
// deviations from the mean. Downdate removes a prior observation, which
// is needed when a replaced personal best leaves the population.
type RunningStats struct {
	Count int64
	Mean  float64
	M2    float64
}

// Update folds one observation into the statistics.
func (s *RunningStats) Update(x float64) {
	s.Count++
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (x - s.Mean)
}

// Downdate removes a previously folded observation. The caller must only
// remove values that were actually observed; numerical drift is clamped
// so M2 never goes negative.
func (s *RunningStats) Downdate(x float64) error {
	if s.Count == 0 {
		return ErrEmptyStats
	}
	if s.Count == 1 {
		*s = RunningStats{}
		return nil
	}
	count := float64(s.Count)
	prevMean := (count*s.Mean - x) / (count - 1)
	s.M2 -= (x - s.Mean) * (x - prevMean)
	if s.M2 < 0 {
		s.M2 = 0
	}
	s.Mean = prevMean
	s.Count--
	return nil
}

// Variance returns the population variance.
func (s RunningStats) Variance() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.M2 / float64(s.Count)
}

func (s RunningStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// ZScore places x relative to the observed population. With fewer than
// two observations, or zero spread, every score is average.
func (s RunningStats) ZScore(x float64) float64 {
	if s.Count < 2 {
		return 0
	}
	sd := s.StdDev()
	if sd == 0 {
		return 0
	}
	return (x - s.Mean) / sd
}
