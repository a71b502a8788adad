package services

import (
	"fmt"
	"sort"

	"github.com/jacoblam121/tournament-arc/models"
)

// ValidatePlacements checks a proposed player → placement mapping against
// the match participants. Rules:
//   - every participant has exactly one placement, and nobody else does
//   - placements are positive integers and start at 1
//   - ties are allowed, but the next distinct placement must equal
//     1 + the number of entrants already ranked above it
//     (standard competition ranking, no unjustified gaps)
//   - team matches rank teams, not players: members of a team share one
//     placement and the ranking is checked over distinct teams, so a 2v2
//     result of 1,1,2,2 ranks two entrants
func ValidatePlacements(placements map[int]int, participants []*models.MatchParticipant, format models.MatchFormat) error {
	if len(placements) != len(participants) {
		return fmt.Errorf("%w: got %d placements for %d participants", ErrPlacementMissing, len(placements), len(participants))
	}
	for _, p := range participants {
		placement, ok := placements[p.PlayerID]
		if !ok {
			return fmt.Errorf("%w: player %d", ErrPlacementMissing, p.PlayerID)
		}
		if placement < 1 {
			return fmt.Errorf("%w: player %d has placement %d", ErrPlacementNotPositive, p.PlayerID, placement)
		}
	}

	values, err := entrantPlacements(placements, participants, format)
	if err != nil {
		return err
	}
	sort.Ints(values)

	if values[0] != 1 {
		return fmt.Errorf("%w: placements must start at 1, got %d", ErrPlacementGap, values[0])
	}
	ranked := 0
	previous := 0
	for _, placement := range values {
		if placement != previous {
			if expected := ranked + 1; placement != expected {
				return fmt.Errorf("%w: expected next placement %d, got %d", ErrPlacementGap, expected, placement)
			}
			previous = placement
		}
		ranked++
	}
	return nil
}

// entrantPlacements reduces per-player placements to one value per
// ranked entrant. Team matches group members by team id, falling back
// to shared placement when no team ids were assigned, mirroring how
// the team strategy forms its teams; members of a team must agree on
// a single placement.
func entrantPlacements(placements map[int]int, participants []*models.MatchParticipant, format models.MatchFormat) ([]int, error) {
	if format != models.FormatTeam {
		values := make([]int, 0, len(participants))
		for _, p := range participants {
			values = append(values, placements[p.PlayerID])
		}
		return values, nil
	}

	byTeam := make(map[string]int)
	values := make([]int, 0, len(participants))
	for _, p := range participants {
		placement := placements[p.PlayerID]
		key := ""
		if p.TeamID != nil {
			key = *p.TeamID
		}
		if key == "" {
			key = fmt.Sprintf("placement-%d", placement)
		}
		if seen, ok := byTeam[key]; ok {
			if seen != placement {
				return nil, fmt.Errorf("%w: team %s has mixed placements %d and %d", ErrInvalidPlacements, key, seen, placement)
			}
			continue
		}
		byTeam[key] = placement
		values = append(values, placement)
	}
	return values, nil
}

// oneVsOneDraw reports a two-player tie. Peer-reported results reject
// it; administrative direct entry records it as a draw.
func oneVsOneDraw(format models.MatchFormat, placements map[int]int) bool {
	if format != models.FormatOneVsOne || len(placements) != 2 {
		return false
	}
	first := -1
	for _, placement := range placements {
		if first == -1 {
			first = placement
			continue
		}
		return placement == first
	}
	return false
}
