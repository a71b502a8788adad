package models

import "time"

// Cluster groups related events for rating aggregation.
type Cluster struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ScoreDirection string

const (
	ScoreDirectionHigh ScoreDirection = "high" // higher submitted score is better
	ScoreDirectionLow  ScoreDirection = "low"  // lower submitted score is better (times etc.)
)

// Event is a single competitive activity with its own rating pool.
// ScoreCount/ScoreMean/ScoreM2 are Welford running statistics over
// leaderboard score submissions; they support incremental update and
// downdate when a personal best is replaced.
type Event struct {
	ID               int            `json:"id"`
	ClusterID        int            `json:"cluster_id"`
	Name             string         `json:"name"`
	SupportedFormats []string       `json:"supported_formats"`
	MinPlayers       int            `json:"min_players"`
	MaxPlayers       int            `json:"max_players"`
	ScoreDirection   ScoreDirection `json:"score_direction"`

	ScoreCount int64   `json:"score_count"`
	ScoreMean  float64 `json:"score_mean"`
	ScoreM2    float64 `json:"score_m2"`

	CreatedAt time.Time `json:"created_at"`
}

// SupportsFormat reports whether matches of the given format may be
// created in this event.
func (e *Event) SupportsFormat(f MatchFormat) bool {
	for _, s := range e.SupportedFormats {
		if s == string(f) {
			return true
		}
	}
	return false
}
