package models

import "time"

type MatchFormat string

const (
	FormatOneVsOne    MatchFormat = "1v1"
	FormatFFA         MatchFormat = "ffa"
	FormatTeam        MatchFormat = "team"
	FormatLeaderboard MatchFormat = "leaderboard"
)

type MatchStatus string

const (
	MatchStatusPending              MatchStatus = "pending"
	MatchStatusActive               MatchStatus = "active"
	MatchStatusAwaitingConfirmation MatchStatus = "awaiting_confirmation"
	MatchStatusCompleted            MatchStatus = "completed"
	MatchStatusCancelled            MatchStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

type Match struct {
	ID          int         `json:"id"`
	EventID     int         `json:"event_id"`
	Format      MatchFormat `json:"format"`
	Status      MatchStatus `json:"status"`
	ChallengeID *int64      `json:"challenge_id,omitempty"` // originating challenge, if bridged
	AdminNote   *string     `json:"admin_note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// MatchParticipant exists for the lifetime of its match and cascades on
// match deletion. Placement is nil until results are recorded; the Elo
// snapshot fields are written exactly once, at completion.
type MatchParticipant struct {
	ID               int     `json:"id"`
	MatchID          int     `json:"match_id"`
	PlayerID         int     `json:"player_id"`
	TeamID           *string `json:"team_id,omitempty"`
	Placement        *int    `json:"placement,omitempty"`
	EloBefore        *int    `json:"elo_before,omitempty"`
	EloAfter         *int    `json:"elo_after,omitempty"`
	EloChange        *int    `json:"elo_change,omitempty"`
	PointsAwarded    *int    `json:"points_awarded,omitempty"`
	ClusterEloBefore *int    `json:"cluster_elo_before,omitempty"`
	ClusterEloAfter  *int    `json:"cluster_elo_after,omitempty"`
}

// MatchResultProposal holds a reported result awaiting ratification.
// At most one active proposal exists per match, enforced by a partial
// unique index.
type MatchResultProposal struct {
	ID         int64 `json:"id"`
	MatchID    int   `json:"match_id"`
	ProposerID int   `json:"proposer_id"`
	// Placements is the player-id → placement mapping, serialized as JSON
	// in the proposal row.
	Placements map[int]int `json:"placements"`
	Active     bool        `json:"active"`
	ExpiresAt  time.Time   `json:"expires_at"`
	CreatedAt  time.Time   `json:"created_at"`
}

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationRejected  ConfirmationStatus = "rejected"
)

type MatchConfirmation struct {
	ID          int64              `json:"id"`
	MatchID     int                `json:"match_id"`
	PlayerID    int                `json:"player_id"`
	Status      ConfirmationStatus `json:"status"`
	RespondedAt *time.Time         `json:"responded_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
