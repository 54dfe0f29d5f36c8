package models

import (
	"time"
)

// Challenge statuses
const (
	ChallengeStatusPending   = "pending"
	ChallengeStatusAccepted  = "accepted"
	ChallengeStatusDeclined  = "declined"
	ChallengeStatusCompleted = "completed"
	ChallengeStatusCancelled = "cancelled"
)

// Challenge is a peer-to-peer request for an ad-hoc match outside the
// bracket. Pending until exactly one of accept/decline/cancel resolves
// it; accepting links the created challenge match 1:1.
type Challenge struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	ChallengerTeamID string     `json:"challenger_team_id" gorm:"not null;index"`
	ChallengedTeamID string     `json:"challenged_team_id" gorm:"not null;index"`
	Status           string     `json:"status" gorm:"type:varchar(12);default:'pending';index"`
	Message          string     `json:"message,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	MatchPlayedID    *string    `json:"match_played_id,omitempty" gorm:"uniqueIndex"`

	ChallengerTeam Team   `json:"challenger_team,omitempty" gorm:"foreignKey:ChallengerTeamID"`
	ChallengedTeam Team   `json:"challenged_team,omitempty" gorm:"foreignKey:ChallengedTeamID"`
	MatchPlayed    *Match `json:"match_played,omitempty" gorm:"foreignKey:MatchPlayedID"`
}
