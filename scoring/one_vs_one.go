package scoring

import (
	"fmt"
	"math"
)

// oneVsOneStrategy applies classic Elo to exactly two participants.
// The winner is the side with the lower placement; equal placements are
// scored as a draw (0.5 each), which is reachable only through
// administrative result entry, never through user reporting.
type oneVsOneStrategy struct {
	cfg Config
}

func (s *oneVsOneStrategy) Calculate(participants []Participant) ([]Result, error) {
	if len(participants) != 2 {
		return nil, fmt.Errorf("%w: 1v1 requires exactly 2, got %d", ErrWrongParticipantCount, len(participants))
	}
	if err := checkPlacements(participants); err != nil {
		return nil, err
	}

	a, b := participants[0], participants[1]
	expectedA := ExpectedScore(float64(a.Rating), float64(b.Rating))
	expectedB := ExpectedScore(float64(b.Rating), float64(a.Rating))
	actualA := pairScore(a.Placement, b.Placement)
	actualB := 1.0 - actualA

	kA := s.cfg.KFactor(a.MatchesPlayed)
	kB := s.cfg.KFactor(b.MatchesPlayed)

	return []Result{
		{
			PlayerID:    a.PlayerID,
			RatingDelta: int(math.Round(float64(kA) * (actualA - expectedA))),
			KFactor:     kA,
		},
		{
			PlayerID:    b.PlayerID,
			RatingDelta: int(math.Round(float64(kB) * (actualB - expectedB))),
			KFactor:     kB,
		},
	}, nil
}
