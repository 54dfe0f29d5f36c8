package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/utils"

	"gorm.io/gorm"
)

// DefaultMatchTimeout is the wall-clock budget for one engine run.
const DefaultMatchTimeout = 3 * time.Second

// engineResult is the machine-readable outcome the engine prints on
// stdout.
type engineResult struct {
	Player1Score *int `json:"player1_score"`
	Player2Score *int `json:"player2_score"`
}

// MatchRunner executes a single match end to end: claim, fetch bots,
// run the engine, record the outcome. Invoked by queue workers, so the
// same match ID can arrive more than once; the conditional
// pending→running claim makes duplicates a silent no-op.
type MatchRunner struct {
	DB          *gorm.DB
	Blob        utils.BlobStore
	Leaderboard *LeaderboardService

	// EngineCommand is the interpreter + engine script, e.g.
	// ["python3", "/app/engine.py"]. The two bot paths and the log
	// location are appended per match.
	EngineCommand []string
	SystemBotPath string
	ScratchRoot   string
	Timeout       time.Duration
}

func NewMatchRunner(db *gorm.DB, blob utils.BlobStore, leaderboard *LeaderboardService, engineCommand []string, systemBotPath, scratchRoot string) *MatchRunner {
	return &MatchRunner{
		DB:            db,
		Blob:          blob,
		Leaderboard:   leaderboard,
		EngineCommand: engineCommand,
		SystemBotPath: systemBotPath,
		ScratchRoot:   scratchRoot,
		Timeout:       DefaultMatchTimeout,
	}
}

// Execute runs the match with the given ID through to a terminal status.
// Process-boundary failures never escape: they end as status completed
// (timeout fallback) or error on the match row.
func (r *MatchRunner) Execute(matchID string) error {
	var match models.Match
	err := r.DB.Preload("Player1Submission").Preload("Player2Submission").
		First(&match, "id = ?", matchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Runner] match %s not found, dropping", matchID)
			return &NotFoundError{Message: "match not found"}
		}
		return err
	}

	// Atomic claim: pending→running in one conditional update. A stale
	// or duplicate delivery finds zero rows and skips silently.
	claim := r.DB.Model(&models.Match{}).
		Where("id = ? AND status = ?", match.ID, models.MatchStatusPending).
		Update("status", models.MatchStatusRunning)
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		log.Printf("[Runner] match %s is not pending, skipping duplicate trigger", match.ID)
		return nil
	}

	scratchDir := filepath.Join(r.ScratchRoot, match.ID)
	if err := os.MkdirAll(scratchDir, os.ModePerm); err != nil {
		return r.finish(&match, models.MatchStatusError)
	}
	// The log is uploaded to the blob store before we get here, so the
	// scratch dir never outlives the run.
	defer os.RemoveAll(scratchDir)

	player1Path, player2Path, err := r.resolveBots(&match, scratchDir)
	if err != nil {
		log.Printf("[Runner] match %s: %v", match.ID, err)
		return r.finish(&match, models.MatchStatusError)
	}

	logPath := filepath.Join(scratchDir, "game_log.csv")

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	args := append(append([]string{}, r.EngineCommand[1:]...),
		"--p1", player1Path,
		"--p2", player2Path,
		"--out_dir", logPath,
	)
	cmd := exec.CommandContext(ctx, r.EngineCommand[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if captured := strings.TrimSpace(stderr.String()); captured != "" {
		log.Printf("[Runner] match %s: engine stderr:\n%s", match.ID, captured)
	}

	if ctx.Err() == context.DeadlineExceeded {
		// Fallback outcome: a minimal 1-0 win for player1 regardless of
		// which bot stalled. Asymmetric, but that is the recorded rule.
		log.Printf("[Runner] match %s: engine timed out after %s", match.ID, r.Timeout)
		one, zero := 1, 0
		match.Player1Score = &one
		match.Player2Score = &zero
		match.WinningTeamID = &match.Player1Submission.TeamID
		r.attachGameLog(&match, logPath)
		return r.finish(&match, models.MatchStatusCompleted)
	}

	if runErr != nil {
		log.Printf("[Runner] match %s: engine process failed: %v", match.ID, runErr)
		return r.finish(&match, models.MatchStatusError)
	}

	var result engineResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout.String())), &result); err != nil ||
		result.Player1Score == nil || result.Player2Score == nil {
		log.Printf("[Runner] match %s: malformed engine output %q", match.ID, stdout.String())
		return r.finish(&match, models.MatchStatusError)
	}

	match.Player1Score = result.Player1Score
	match.Player2Score = result.Player2Score
	r.attachGameLog(&match, logPath)

	// Higher score wins; draws have no winner; the system bot is never
	// recorded as a winning team.
	if *result.Player1Score > *result.Player2Score {
		match.WinningTeamID = &match.Player1Submission.TeamID
	} else if *result.Player2Score > *result.Player1Score && !match.IsPlayer2SystemBot {
		match.WinningTeamID = &match.Player2Submission.TeamID
	}

	return r.finish(&match, models.MatchStatusCompleted)
}

// resolveBots downloads both bot scripts into the scratch dir and
// returns their paths. The system bot is a fixed local file.
func (r *MatchRunner) resolveBots(match *models.Match, scratchDir string) (string, string, error) {
	if match.Player1Submission == nil || match.Player1Submission.CodeKey == "" {
		return "", "", fmt.Errorf("player1 bot script not found")
	}
	player1Path := filepath.Join(scratchDir, "player1.py")
	if err := r.Blob.Download(match.Player1Submission.CodeKey, player1Path); err != nil {
		return "", "", fmt.Errorf("failed to fetch player1 bot: %w", err)
	}

	if match.IsPlayer2SystemBot {
		if _, err := os.Stat(r.SystemBotPath); err != nil {
			return "", "", fmt.Errorf("system bot script missing at %s", r.SystemBotPath)
		}
		return player1Path, r.SystemBotPath, nil
	}

	if match.Player2Submission == nil || match.Player2Submission.CodeKey == "" {
		return "", "", fmt.Errorf("player2 bot script not found")
	}
	player2Path := filepath.Join(scratchDir, "player2.py")
	if err := r.Blob.Download(match.Player2Submission.CodeKey, player2Path); err != nil {
		return "", "", fmt.Errorf("failed to fetch player2 bot: %w", err)
	}
	return player1Path, player2Path, nil
}

// attachGameLog uploads the CSV game log to the blob store, best effort.
// A missing or unreadable log is logged and skipped, never fatal.
func (r *MatchRunner) attachGameLog(match *models.Match, logPath string) {
	f, err := os.Open(logPath)
	if err != nil {
		log.Printf("[Runner] match %s: no game log at %s", match.ID, logPath)
		return
	}
	defer f.Close()

	key := fmt.Sprintf("game_logs/game_log_%s.csv", match.ID)
	if err := r.Blob.Upload(key, f, "text/csv"); err != nil {
		log.Printf("[Runner] match %s: failed to store game log: %v", match.ID, err)
		return
	}
	match.GameLogKey = key
}

// finish stamps played_at, persists the terminal state, and feeds
// completed round-one results into the leaderboard. Runs on every exit
// path.
func (r *MatchRunner) finish(match *models.Match, status string) error {
	now := time.Now()
	match.Status = status
	match.PlayedAt = &now

	updates := map[string]interface{}{
		"status":          match.Status,
		"played_at":       match.PlayedAt,
		"player1_score":   match.Player1Score,
		"player2_score":   match.Player2Score,
		"winning_team_id": match.WinningTeamID,
		"game_log_key":    match.GameLogKey,
	}
	if err := r.DB.Model(&models.Match{}).Where("id = ?", match.ID).Updates(updates).Error; err != nil {
		return err
	}

	if status == models.MatchStatusCompleted && match.MatchType == models.MatchTypeRoundOne {
		if match.Player1Submission != nil {
			teamID := match.Player1Submission.TeamID
			score := 0
			if match.Player1Score != nil {
				score = *match.Player1Score
			}
			won := match.WinningTeamID != nil && *match.WinningTeamID == teamID
			if err := r.Leaderboard.ApplyRoundOneResult(teamID, score, won); err != nil {
				log.Printf("[Runner] match %s: leaderboard update failed: %v", match.ID, err)
			}
		}
	}
	return nil
}
