package models

import (
	"time"
)

// LeaderboardScore holds one team's round-one standings. Created lazily
// on the team's first completed round-one match; updated only through
// relative increments (see LeaderboardService) so concurrent match
// runners never clobber each other.
type LeaderboardScore struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	TeamID        string    `json:"team_id" gorm:"uniqueIndex;not null"`
	Score         int       `json:"score" gorm:"default:0"`
	MatchesPlayed int       `json:"matches_played" gorm:"default:0"`
	MatchesWon    int       `json:"matches_won" gorm:"default:0"`
	Rank          *int      `json:"rank,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`

	Team Team `json:"team,omitempty" gorm:"foreignKey:TeamID"`
}
