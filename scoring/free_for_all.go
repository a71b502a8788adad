package scoring

import (
	"fmt"
	"math"
)

// freeForAllStrategy decomposes a free-for-all into all N×(N−1)/2
// unordered pairs. Each player's K is divided by (N−1) before the pair
// deltas are combined, keeping aggregate volatility comparable to a 1v1
// match regardless of field size. The per-pair deltas are summed as
// floats and rounded once at the end.
type freeForAllStrategy struct {
	cfg Config
}

func (s *freeForAllStrategy) Calculate(participants []Participant) ([]Result, error) {
	n := len(participants)
	if n < 3 {
		return nil, fmt.Errorf("%w: free-for-all requires at least 3, got %d", ErrWrongParticipantCount, n)
	}
	if err := checkPlacements(participants); err != nil {
		return nil, err
	}

	deltas := make([]float64, n)
	for i := 0; i < n; i++ {
		scaledK := float64(s.cfg.KFactor(participants[i].MatchesPlayed)) / float64(n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			expected := ExpectedScore(float64(participants[i].Rating), float64(participants[j].Rating))
			actual := pairScore(participants[i].Placement, participants[j].Placement)
			deltas[i] += scaledK * (actual - expected)
		}
	}

	results := make([]Result, n)
	for i, p := range participants {
		results[i] = Result{
			PlayerID:    p.PlayerID,
			RatingDelta: int(math.Round(deltas[i])),
			KFactor:     s.cfg.KFactor(p.MatchesPlayed),
		}
	}
	return results, nil
}
