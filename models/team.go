package models

import (
	"time"
)

// Team is a participating team. Users themselves live in the external
// accounts service; we only keep their IDs as members.
type Team struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatorID string    `json:"creator_id" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Relationships
	Members     []TeamMember    `json:"members,omitempty" gorm:"foreignKey:TeamID"`
	Submissions []BotSubmission `json:"submissions,omitempty" gorm:"foreignKey:TeamID"`
}

// TeamMember links an external user ID to a team. The creator always has
// a member row, written in the same transaction that creates the team.
type TeamMember struct {
	ID       string    `json:"id" gorm:"primaryKey"`
	TeamID   string    `json:"team_id" gorm:"not null;index:idx_team_user,unique"`
	UserID   string    `json:"user_id" gorm:"not null;index:idx_team_user,unique"`
	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
