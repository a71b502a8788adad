package scoring

import (
	"errors"
	"fmt"

	"github.com/jacoblam121/tournament-arc/models"
)

var (
	ErrUnknownFormat        = errors.New("unknown match format")
	ErrWrongParticipantCount = errors.New("wrong participant count for format")
	ErrMissingPlacement     = errors.New("participant has no placement")
	ErrMissingTeam          = errors.New("participant has no team")
)

// Participant is the per-player input every strategy consumes.
type Participant struct {
	PlayerID      int
	Rating        int
	MatchesPlayed int
	Placement     int
	TeamID        string // only meaningful for the team format
}

// Result is the per-player output of a strategy. KFactor records the
// player's base K as used, for the audit trail; participation-points
// results carry 0.
type Result struct {
	PlayerID    int
	RatingDelta int
	PointsDelta int
	KFactor     int
}

// Strategy is the closed dispatch point over match formats: one
// Calculate operation, one implementation per format.
type Strategy interface {
	Calculate(participants []Participant) ([]Result, error)
}

// ForFormat returns the strategy implementing the given format.
func ForFormat(format models.MatchFormat, cfg Config) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch format {
	case models.FormatOneVsOne:
		return &oneVsOneStrategy{cfg: cfg}, nil
	case models.FormatFFA:
		return &freeForAllStrategy{cfg: cfg}, nil
	case models.FormatTeam:
		return &teamStrategy{cfg: cfg}, nil
	case models.FormatLeaderboard:
		return &performancePointsStrategy{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func checkPlacements(participants []Participant) error {
	for _, p := range participants {
		if p.Placement < 1 {
			return fmt.Errorf("%w: player %d", ErrMissingPlacement, p.PlayerID)
		}
	}
	return nil
}

// pairScore is the actual score of a against b by relative placement:
// 1 for a better (lower) placement, 0.5 for a shared one, 0 otherwise.
func pairScore(a, b int) float64 {
	switch {
	case a < b:
		return 1.0
	case a > b:
		return 0.0
	default:
		return 0.5
	}
}
