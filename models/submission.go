package models

import (
	"time"
)

// BotSubmission is one uploaded bot script for a team. The code itself
// lives in the blob store under CodeKey; only the reference is kept here.
// At most one submission per team has IsActive=true — activating one
// deactivates all siblings in the same transaction.
type BotSubmission struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	TeamID        string    `json:"team_id" gorm:"not null;index"`
	SubmittedByID string    `json:"submitted_by_id" gorm:"not null;index"`
	CodeKey       string    `json:"code_key" gorm:"not null"`
	SubmittedAt   time.Time `json:"submitted_at" gorm:"autoCreateTime"`
	IsActive      bool      `json:"is_active" gorm:"default:false;index"`
	// Flag only — detection happens elsewhere.
	PlagiarismFlagged bool `json:"plagiarism_flagged" gorm:"default:false"`

	Team Team `json:"team,omitempty" gorm:"foreignKey:TeamID"`
}
