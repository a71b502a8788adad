package services

import (
	"context"
	"testing"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cluster, err := env.eventService.CreateCluster(ctx, "Speedrunning")
	require.NoError(t, err)

	event, err := env.eventService.CreateEvent(ctx, CreateEventInput{
		ClusterID:        cluster.ID,
		Name:             "Any% Glitchless",
		SupportedFormats: []string{"1v1", "leaderboard"},
		MinPlayers:       2,
		MaxPlayers:       16,
		ScoreDirection:   models.ScoreDirectionLow,
	})
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.True(t, event.SupportsFormat(models.FormatLeaderboard))
	assert.False(t, event.SupportsFormat(models.FormatTeam))
	assert.Equal(t, models.ScoreDirectionLow, event.ScoreDirection)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	cluster, err := env.eventService.CreateCluster(ctx, "Fighting Games")
	require.NoError(t, err)

	base := CreateEventInput{
		ClusterID:        cluster.ID,
		Name:             "Weekly Bracket",
		SupportedFormats: []string{"1v1"},
		MinPlayers:       2,
	}

	t.Run("name required", func(t *testing.T) {
		input := base
		input.Name = "   "
		_, err := env.eventService.CreateEvent(ctx, input)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("formats required and known", func(t *testing.T) {
		input := base
		input.SupportedFormats = nil
		_, err := env.eventService.CreateEvent(ctx, input)
		assert.ErrorIs(t, err, ErrValidationFailed)

		input.SupportedFormats = []string{"best-of-nine"}
		_, err = env.eventService.CreateEvent(ctx, input)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("bounds must be coherent", func(t *testing.T) {
		input := base
		input.MinPlayers, input.MaxPlayers = 8, 4
		_, err := env.eventService.CreateEvent(ctx, input)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("direction defaults to high", func(t *testing.T) {
		input := base
		event, err := env.eventService.CreateEvent(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, models.ScoreDirectionHigh, event.ScoreDirection)
	})

	t.Run("unknown cluster", func(t *testing.T) {
		input := base
		input.ClusterID = 404
		_, err := env.eventService.CreateEvent(ctx, input)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty cluster name", func(t *testing.T) {
		_, err := env.eventService.CreateCluster(ctx, "")
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestListEvents(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c1, err := env.eventService.CreateCluster(ctx, "A")
	require.NoError(t, err)
	c2, err := env.eventService.CreateCluster(ctx, "B")
	require.NoError(t, err)

	for _, clusterID := range []int{c1.ID, c1.ID, c2.ID} {
		_, err := env.eventService.CreateEvent(ctx, CreateEventInput{
			ClusterID:        clusterID,
			Name:             "event",
			SupportedFormats: []string{"ffa"},
		})
		require.NoError(t, err)
	}

	all, err := env.eventService.ListEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scoped, err := env.eventService.ListEvents(ctx, &c1.ID)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
}
