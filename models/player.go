package models

import "time"

type Player struct {
	ID          int    `json:"id"`
	ExternalID  string `json:"external_id"` // chat-platform user reference
	DisplayName string `json:"display_name"`

	// Aggregate ratings, written only by the rankings recompute path.
	OverallRawElo     int `json:"overall_raw_elo"`
	OverallScoringElo int `json:"overall_scoring_elo"`
	FinalScore        int `json:"final_score"`

	// Cumulative record across all events.
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`

	CreatedAt time.Time `json:"created_at"`
}

// PlayerEventStats is the authoritative per (player, event) rating state.
// ScoringElo never drops below the configured floor; RawElo may.
type PlayerEventStats struct {
	ID            int       `json:"id"`
	PlayerID      int       `json:"player_id"`
	EventID       int       `json:"event_id"`
	RawElo        int       `json:"raw_elo"`
	ScoringElo    int       `json:"scoring_elo"`
	MatchesPlayed int       `json:"matches_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	Points        int       `json:"points"`
	PersonalBest  *float64  `json:"personal_best,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Populated by joins, not stored on the row itself.
	ClusterID int `json:"cluster_id,omitempty" db:"-"`
}
