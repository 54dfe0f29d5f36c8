package models

import (
	"errors"
	"time"
)

// Match types
const (
	MatchTypeTestVsSystem = "test_vs_system"
	MatchTypeRoundOne     = "round_one"
	MatchTypeRoundTwo     = "round_two"
	MatchTypeChallenge    = "challenge"
)

// Match statuses. Transitions are strictly pending → running →
// {completed, error}, never reversed.
const (
	MatchStatusPending   = "pending"
	MatchStatusRunning   = "running"
	MatchStatusCompleted = "completed"
	MatchStatusError     = "error"
)

// Match records a single engine run between two bots (or one bot and the
// system bot). Created pending by exactly one of the seeder, the bracket
// manager, or the challenge flow; mutated only by the match runner.
type Match struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	MatchType string     `json:"match_type" gorm:"type:varchar(16);not null;index"`
	Status    string     `json:"status" gorm:"type:varchar(12);default:'pending';index"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	PlayedAt  *time.Time `json:"played_at,omitempty"`

	Player1SubmissionID *string `json:"player1_submission_id,omitempty" gorm:"index"`
	Player2SubmissionID *string `json:"player2_submission_id,omitempty" gorm:"index"`
	IsPlayer2SystemBot  bool    `json:"is_player2_system_bot" gorm:"default:false"`

	Player1Score *int `json:"player1_score,omitempty"`
	Player2Score *int `json:"player2_score,omitempty"`

	WinningTeamID *string `json:"winning_team_id,omitempty" gorm:"index"`

	// Bracket stage this match belongs to (round two only): the number of
	// teams entering the stage, always a power of two.
	RoundStage *int `json:"round_stage,omitempty" gorm:"index"`

	// Blob store key of the CSV game log produced by the engine.
	GameLogKey string `json:"game_log_key,omitempty"`

	Player1Submission *BotSubmission `json:"player1_submission,omitempty" gorm:"foreignKey:Player1SubmissionID"`
	Player2Submission *BotSubmission `json:"player2_submission,omitempty" gorm:"foreignKey:Player2SubmissionID"`
	WinningTeam       *Team          `json:"winning_team,omitempty" gorm:"foreignKey:WinningTeamID"`
}

// Validate enforces the participant invariants per match type. Callers
// run it before persisting a new match.
func (m *Match) Validate() error {
	switch m.MatchType {
	case MatchTypeRoundOne, MatchTypeTestVsSystem:
		if m.Player1SubmissionID == nil {
			return errors.New("round one/test matches require player1's submission")
		}
		if m.Player2SubmissionID != nil {
			return errors.New("player2 submission must not be set for matches against the system bot")
		}
		if !m.IsPlayer2SystemBot {
			return errors.New("is_player2_system_bot must be true for round one/test matches")
		}
	case MatchTypeRoundTwo, MatchTypeChallenge:
		if m.Player1SubmissionID == nil || m.Player2SubmissionID == nil {
			return errors.New("round two/challenge matches require two team submissions")
		}
		if m.IsPlayer2SystemBot {
			return errors.New("system bot cannot be player2 in round two/challenge matches")
		}
		if *m.Player1SubmissionID == *m.Player2SubmissionID {
			return errors.New("a match requires two distinct submissions")
		}
		if m.Player1Submission != nil && m.Player2Submission != nil &&
			m.Player1Submission.TeamID == m.Player2Submission.TeamID {
			return errors.New("a team cannot play against itself")
		}
	default:
		return errors.New("unknown match type: " + m.MatchType)
	}
	return nil
}
