package rankings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunningStatsUpdate(t *testing.T) {
	var s RunningStats
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Update(x)
	}

	assert.Equal(t, int64(8), s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 4.0, s.Variance(), 1e-9)
	assert.InDelta(t, 2.0, s.StdDev(), 1e-9)
}

func TestRunningStatsDowndateRoundtrip(t *testing.T) {
	var s RunningStats
	for _, x := range []float64{10, 20, 30} {
		s.Update(x)
	}
	before := s

	s.Update(47.5)
	require.NoError(t, s.Downdate(47.5))

	assert.Equal(t, before.Count, s.Count)
	assert.InDelta(t, before.Mean, s.Mean, 1e-9)
	assert.InDelta(t, before.M2, s.M2, 1e-6)
}

func TestRunningStatsDowndateLastObservation(t *testing.T) {
	var s RunningStats
	s.Update(42)

	require.NoError(t, s.Downdate(42))
	assert.Equal(t, RunningStats{}, s)
}

func TestRunningStatsDowndateEmpty(t *testing.T) {
	var s RunningStats
	assert.ErrorIs(t, s.Downdate(1), ErrEmptyStats)
}

func TestZScore(t *testing.T) {
	t.Run("fewer than two observations is average", func(t *testing.T) {
		var s RunningStats
		assert.Zero(t, s.ZScore(100))
		s.Update(50)
		assert.Zero(t, s.ZScore(100))
	})

	t.Run("zero spread is average", func(t *testing.T) {
		var s RunningStats
		s.Update(50)
		s.Update(50)
		assert.Zero(t, s.ZScore(80))
	})

	t.Run("standard deviations from the mean", func(t *testing.T) {
		var s RunningStats
		for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
			s.Update(x)
		}
		// mean 5, stddev 2
		assert.InDelta(t, 1.0, s.ZScore(7), 1e-9)
		assert.InDelta(t, -1.5, s.ZScore(2), 1e-9)
		assert.Zero(t, s.ZScore(5))
	})
}
