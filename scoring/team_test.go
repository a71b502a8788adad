package scoring

import (
	"testing"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamStrategyForTest(t *testing.T) Strategy {
	t.Helper()
	strategy, err := ForFormat(models.FormatTeam, testConfig())
	require.NoError(t, err)
	return strategy
}

func TestTeamEqualTeamsSameDeltaPerMember(t *testing.T) {
	results, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, MatchesPlayed: 0, Placement: 1, TeamID: "red"},
		{PlayerID: 2, Rating: 1000, MatchesPlayed: 0, Placement: 1, TeamID: "red"},
		{PlayerID: 3, Rating: 1000, MatchesPlayed: 0, Placement: 2, TeamID: "blue"},
		{PlayerID: 4, Rating: 1000, MatchesPlayed: 0, Placement: 2, TeamID: "blue"},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	byPlayer := make(map[int]Result, len(results))
	for _, r := range results {
		byPlayer[r.PlayerID] = r
	}

	// Two teams scale K by teamCount−1 = 1, so this is a plain 1v1
	// between the team means.
	assert.Equal(t, 20, byPlayer[1].RatingDelta)
	assert.Equal(t, 20, byPlayer[2].RatingDelta)
	assert.Equal(t, -20, byPlayer[3].RatingDelta)
	assert.Equal(t, -20, byPlayer[4].RatingDelta)
}

func TestTeamRatingIsTruncatedMean(t *testing.T) {
	// red mean = (1100+901)/2 = 1000 (truncated); blue mean = 1000.
	results, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1100, MatchesPlayed: 10, Placement: 1, TeamID: "red"},
		{PlayerID: 2, Rating: 901, MatchesPlayed: 10, Placement: 1, TeamID: "red"},
		{PlayerID: 3, Rating: 1000, MatchesPlayed: 10, Placement: 2, TeamID: "blue"},
		{PlayerID: 4, Rating: 1000, MatchesPlayed: 10, Placement: 2, TeamID: "blue"},
	})
	require.NoError(t, err)

	for _, r := range results {
		switch r.PlayerID {
		case 1, 2:
			assert.Equal(t, 10, r.RatingDelta)
		case 3, 4:
			assert.Equal(t, -10, r.RatingDelta)
		}
	}
}

func TestTeamKFromMeanMatchCount(t *testing.T) {
	// red mean matches = (0+8)/2 = 4, still provisional: K=40.
	// blue mean matches = (6+6)/2 = 6: standard K=20.
	results, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, MatchesPlayed: 0, Placement: 1, TeamID: "red"},
		{PlayerID: 2, Rating: 1000, MatchesPlayed: 8, Placement: 1, TeamID: "red"},
		{PlayerID: 3, Rating: 1000, MatchesPlayed: 6, Placement: 2, TeamID: "blue"},
		{PlayerID: 4, Rating: 1000, MatchesPlayed: 6, Placement: 2, TeamID: "blue"},
	})
	require.NoError(t, err)

	for _, r := range results {
		switch r.PlayerID {
		case 1, 2:
			assert.Equal(t, 20, r.RatingDelta)
			assert.Equal(t, 40, r.KFactor)
		case 3, 4:
			assert.Equal(t, -10, r.RatingDelta)
			assert.Equal(t, 20, r.KFactor)
		}
	}
}

func TestTeamGroupingByPlacementWhenNoTeamIDs(t *testing.T) {
	results, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, MatchesPlayed: 10, Placement: 1},
		{PlayerID: 2, Rating: 1000, MatchesPlayed: 10, Placement: 1},
		{PlayerID: 3, Rating: 1000, MatchesPlayed: 10, Placement: 2},
		{PlayerID: 4, Rating: 1000, MatchesPlayed: 10, Placement: 2},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, r := range results {
		if r.PlayerID <= 2 {
			assert.Equal(t, 10, r.RatingDelta)
		} else {
			assert.Equal(t, -10, r.RatingDelta)
		}
	}
}

func TestTeamMixedPlacementsRejected(t *testing.T) {
	_, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, Placement: 1, TeamID: "red"},
		{PlayerID: 2, Rating: 1000, Placement: 2, TeamID: "red"},
		{PlayerID: 3, Rating: 1000, Placement: 2, TeamID: "blue"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed placements")
}

func TestTeamSingleTeamRejected(t *testing.T) {
	_, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, Placement: 1, TeamID: "red"},
		{PlayerID: 2, Rating: 1000, Placement: 1, TeamID: "red"},
	})
	assert.ErrorIs(t, err, ErrWrongParticipantCount)
}

func TestTeamThreeTeamsScaledK(t *testing.T) {
	// Three equal solo teams, K=20 scaled by 2: winner sweeps two pairs
	// at +0.5 each for +10.
	results, err := teamStrategyForTest(t).Calculate([]Participant{
		{PlayerID: 1, Rating: 1000, MatchesPlayed: 10, Placement: 1, TeamID: "a"},
		{PlayerID: 2, Rating: 1000, MatchesPlayed: 10, Placement: 2, TeamID: "b"},
		{PlayerID: 3, Rating: 1000, MatchesPlayed: 10, Placement: 3, TeamID: "c"},
	})
	require.NoError(t, err)

	byPlayer := make(map[int]int, len(results))
	for _, r := range results {
		byPlayer[r.PlayerID] = r.RatingDelta
	}
	assert.Equal(t, 10, byPlayer[1])
	assert.Equal(t, 0, byPlayer[2])
	assert.Equal(t, -10, byPlayer[3])
}
