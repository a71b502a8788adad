package scoring

import (
	"fmt"
	"math"
	"sort"
)

// teamStrategy treats each team as a synthetic free-for-all entrant.
// Team rating is the integer-truncated arithmetic mean of member ratings
// and the team K-factor is selected from the mean of member match counts,
// divided by (teamCount−1) exactly as the free-for-all scaling. The
// resulting delta is applied identically to every member of the team.
type teamStrategy struct {
	cfg Config
}

type teamEntry struct {
	id            string
	placement     int
	rating        int
	matchesPlayed int
	kFactor       int
	members       []int // indexes into participants
}

func (s *teamStrategy) Calculate(participants []Participant) ([]Result, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("%w: team match requires at least 2 participants, got %d", ErrWrongParticipantCount, len(participants))
	}
	if err := checkPlacements(participants); err != nil {
		return nil, err
	}

	teams, err := groupTeams(participants)
	if err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, fmt.Errorf("%w: team match requires at least 2 teams, got %d", ErrWrongParticipantCount, len(teams))
	}

	for t := range teams {
		ratingSum, matchesSum := 0, 0
		for _, idx := range teams[t].members {
			ratingSum += participants[idx].Rating
			matchesSum += participants[idx].MatchesPlayed
		}
		teams[t].rating = ratingSum / len(teams[t].members)
		teams[t].matchesPlayed = matchesSum / len(teams[t].members)
		teams[t].kFactor = s.cfg.KFactor(teams[t].matchesPlayed)
	}

	deltas := make([]float64, len(teams))
	for i := range teams {
		scaledK := float64(teams[i].kFactor) / float64(len(teams)-1)
		for j := range teams {
			if j == i {
				continue
			}
			expected := ExpectedScore(float64(teams[i].rating), float64(teams[j].rating))
			actual := pairScore(teams[i].placement, teams[j].placement)
			deltas[i] += scaledK * (actual - expected)
		}
	}

	results := make([]Result, 0, len(participants))
	for i, team := range teams {
		delta := int(math.Round(deltas[i]))
		for _, idx := range team.members {
			results = append(results, Result{
				PlayerID:    participants[idx].PlayerID,
				RatingDelta: delta,
				KFactor:     team.kFactor,
			})
		}
	}
	return results, nil
}

// groupTeams groups participants by team id, falling back to shared
// placement when no team ids were supplied. Teams are ordered
// deterministically by placement, then id.
func groupTeams(participants []Participant) ([]teamEntry, error) {
	byKey := make(map[string]*teamEntry)
	order := make([]string, 0)
	for i, p := range participants {
		key := p.TeamID
		if key == "" {
			key = fmt.Sprintf("placement-%d", p.Placement)
		}
		entry, ok := byKey[key]
		if !ok {
			entry = &teamEntry{id: key, placement: p.Placement}
			byKey[key] = entry
			order = append(order, key)
		}
		if entry.placement != p.Placement {
			return nil, fmt.Errorf("team %s has mixed placements %d and %d", key, entry.placement, p.Placement)
		}
		entry.members = append(entry.members, i)
	}

	teams := make([]teamEntry, 0, len(byKey))
	for _, key := range order {
		teams = append(teams, *byKey[key])
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].placement != teams[j].placement {
			return teams[i].placement < teams[j].placement
		}
		return teams[i].id < teams[j].id
	})
	return teams, nil
}
