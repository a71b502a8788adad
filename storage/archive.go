package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jacoblam121/tournament-arc/models"
)

// CSVArchiver snapshots event standings to the object store as CSV
// before destructive resets wipe them.
type CSVArchiver struct {
	uploader FileUploader
}

func NewCSVArchiver(uploader FileUploader) *CSVArchiver {
	return &CSVArchiver{uploader: uploader}
}

// ArchiveStandings writes one CSV object per call and returns its key.
// Keys embed the event id, a UTC timestamp and a random suffix, so
// repeated resets of the same event never collide.
func (a *CSVArchiver) ArchiveStandings(ctx context.Context, event *models.Event, rows []*models.PlayerEventStats) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{
		"player_id", "raw_elo", "scoring_elo", "matches_played",
		"wins", "losses", "draws", "points", "personal_best",
	}); err != nil {
		return "", fmt.Errorf("failed to write standings header: %w", err)
	}
	for _, row := range rows {
		best := ""
		if row.PersonalBest != nil {
			best = strconv.FormatFloat(*row.PersonalBest, 'f', -1, 64)
		}
		record := []string{
			strconv.Itoa(row.PlayerID),
			strconv.Itoa(row.RawElo),
			strconv.Itoa(row.ScoringElo),
			strconv.Itoa(row.MatchesPlayed),
			strconv.Itoa(row.Wins),
			strconv.Itoa(row.Losses),
			strconv.Itoa(row.Draws),
			strconv.Itoa(row.Points),
			best,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write standings row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush standings csv: %w", err)
	}

	key := fmt.Sprintf("standings/%d/%s-%s.csv",
		event.ID,
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.NewString(),
	)
	result, err := a.uploader.Upload(ctx, key, "text/csv", &buf)
	if err != nil {
		return "", err
	}
	return result.Key, nil
}
