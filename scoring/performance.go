package scoring

import (
	"fmt"
	"math"
)

// performancePointsStrategy awards participation points for leaderboard
// format matches. Points never go negative and no Elo field is touched:
// points = round(basePoints × (N − placement + 1) / N).
type performancePointsStrategy struct {
	cfg Config
}

func (s *performancePointsStrategy) Calculate(participants []Participant) ([]Result, error) {
	n := len(participants)
	if n < 1 {
		return nil, fmt.Errorf("%w: leaderboard scoring requires at least 1 participant", ErrWrongParticipantCount)
	}
	if err := checkPlacements(participants); err != nil {
		return nil, err
	}

	base := float64(s.cfg.LeaderboardBasePoints)
	results := make([]Result, n)
	for i, p := range participants {
		points := int(math.Round(base * float64(n-p.Placement+1) / float64(n)))
		if points < 0 {
			points = 0
		}
		results[i] = Result{
			PlayerID:    p.PlayerID,
			PointsDelta: points,
		}
	}
	return results, nil
}
