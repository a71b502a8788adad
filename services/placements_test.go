package services

import (
	"testing"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/stretchr/testify/assert"
)

func soloEntrants(ids ...int) []*models.MatchParticipant {
	participants := make([]*models.MatchParticipant, len(ids))
	for i, id := range ids {
		participants[i] = &models.MatchParticipant{PlayerID: id}
	}
	return participants
}

func teamEntrants(teams map[string][]int) []*models.MatchParticipant {
	participants := make([]*models.MatchParticipant, 0)
	for teamID, members := range teams {
		for _, id := range members {
			participants = append(participants, &models.MatchParticipant{PlayerID: id, TeamID: strPtr(teamID)})
		}
	}
	return participants
}

func TestValidatePlacements(t *testing.T) {
	entrants := soloEntrants(1, 2, 3)

	tests := []struct {
		name       string
		placements map[int]int
		format     models.MatchFormat
		wantErr    error
	}{
		{
			name:       "strict ordering",
			placements: map[int]int{1: 1, 2: 2, 3: 3},
			format:     models.FormatFFA,
		},
		{
			name:       "tie for first skips second",
			placements: map[int]int{1: 1, 2: 1, 3: 3},
			format:     models.FormatFFA,
		},
		{
			name:       "tie for first must skip second",
			placements: map[int]int{1: 1, 2: 1, 3: 2},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementGap,
		},
		{
			name:       "must start at 1",
			placements: map[int]int{1: 2, 2: 3, 3: 4},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementGap,
		},
		{
			name:       "no gaps between distinct ranks",
			placements: map[int]int{1: 1, 2: 3, 3: 3},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementGap,
		},
		{
			name:       "zero placement",
			placements: map[int]int{1: 0, 2: 1, 3: 2},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementNotPositive,
		},
		{
			name:       "missing participant",
			placements: map[int]int{1: 1, 2: 2, 4: 3},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementMissing,
		},
		{
			name:       "wrong cardinality",
			placements: map[int]int{1: 1, 2: 2},
			format:     models.FormatFFA,
			wantErr:    ErrPlacementMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlacements(tt.placements, entrants, tt.format)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePlacementsFourWayTies(t *testing.T) {
	entrants := soloEntrants(1, 2, 3, 4)

	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 1, 4: 4}, entrants, models.FormatFFA))
	assert.ErrorIs(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 1, 4: 3}, entrants, models.FormatFFA), ErrPlacementGap)
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 3, 4: 3}, entrants, models.FormatFFA))
}

func TestValidatePlacementsTeamsRankAsOne(t *testing.T) {
	entrants := teamEntrants(map[string][]int{"red": {1, 2}, "blue": {3, 4}})

	// A 2v2 ranks two entrants: placements 1,1,2,2 are the canonical
	// winner/loser result, not a gap after a two-way tie.
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 2, 4: 2}, entrants, models.FormatTeam))
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, entrants, models.FormatTeam), "team draw")
	assert.ErrorIs(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 3, 4: 3}, entrants, models.FormatTeam), ErrPlacementGap)
	assert.ErrorIs(t, ValidatePlacements(map[int]int{1: 1, 2: 2, 3: 2, 4: 2}, entrants, models.FormatTeam), ErrInvalidPlacements, "one team split across placements")

	three := teamEntrants(map[string][]int{"a": {1, 2}, "b": {3, 4}, "c": {5, 6}})
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 6: 3}, three, models.FormatTeam))
	assert.ErrorIs(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 4, 6: 4}, three, models.FormatTeam), ErrPlacementGap)
}

func TestValidatePlacementsTeamsByPlacementFallback(t *testing.T) {
	// No team ids assigned: a shared placement forms the team.
	entrants := soloEntrants(1, 2, 3, 4)
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 2, 4: 2}, entrants, models.FormatTeam))
	assert.ErrorIs(t, ValidatePlacements(map[int]int{1: 1, 2: 1, 3: 3, 4: 3}, entrants, models.FormatTeam), ErrPlacementGap)
}

func TestOneVsOneDrawDetection(t *testing.T) {
	entrants := soloEntrants(1, 2)

	// The validator itself accepts the tie; peer reporting layers the
	// draw rejection on top, administrative entry does not.
	assert.NoError(t, ValidatePlacements(map[int]int{1: 1, 2: 1}, entrants, models.FormatOneVsOne))
	assert.True(t, oneVsOneDraw(models.FormatOneVsOne, map[int]int{1: 1, 2: 1}))
	assert.False(t, oneVsOneDraw(models.FormatOneVsOne, map[int]int{1: 1, 2: 2}))
	assert.False(t, oneVsOneDraw(models.FormatTeam, map[int]int{1: 1, 2: 1}))
}
