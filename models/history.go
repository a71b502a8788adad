package models

import "time"

// EloHistory is an immutable audit row, appended for every rating change
// and never updated. Reversal rows carry a K-factor of 0 so they can be
// told apart from competitive changes.
type EloHistory struct {
	ID         int64     `json:"id"`
	PlayerID   int       `json:"player_id"`
	EventID    *int      `json:"event_id,omitempty"`
	MatchID    *int      `json:"match_id,omitempty"`
	OpponentID *int      `json:"opponent_id,omitempty"`
	OldElo     int       `json:"old_elo"`
	NewElo     int       `json:"new_elo"`
	Change     int       `json:"change"`
	KFactor    int       `json:"k_factor"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchUndo records a completed administrative reversal. Its existence
// blocks a second reversal of the same match.
type MatchUndo struct {
	ID        int64     `json:"id"`
	MatchID   int       `json:"match_id"`
	AdminID   int       `json:"admin_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
