// Package scoring implements the rating primitives and the per-format
// strategies translating match placements into rating and point deltas.
package scoring

import (
	"errors"
	"math"
)

var (
	ErrInvalidKFactor   = errors.New("k-factors must be positive")
	ErrInvalidThreshold = errors.New("provisional threshold must not be negative")
	ErrInvalidBase      = errors.New("base points must be positive")
)

// Config carries the externally supplied rating parameters. The algorithm
// bodies read everything from here and hard-code nothing.
type Config struct {
	ProvisionalK          int // K-factor below the provisional threshold
	StandardK             int // K-factor at or above it
	ProvisionalThreshold  int // matches played before a player leaves provisional status
	LeaderboardBasePoints int // base for participation-points scoring
}

func (c Config) Validate() error {
	if c.ProvisionalK <= 0 || c.StandardK <= 0 {
		return ErrInvalidKFactor
	}
	if c.ProvisionalThreshold < 0 {
		return ErrInvalidThreshold
	}
	if c.LeaderboardBasePoints <= 0 {
		return ErrInvalidBase
	}
	return nil
}

// KFactor selects the K-factor for a player by matches played.
func (c Config) KFactor(matchesPlayed int) int {
	if matchesPlayed < c.ProvisionalThreshold {
		return c.ProvisionalK
	}
	return c.StandardK
}

// ExpectedScore is the classic Elo expectation for a rated player a
// against b: 1 / (1 + 10^((b−a)/400)).
func ExpectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10.0, (b-a)/400.0))
}
