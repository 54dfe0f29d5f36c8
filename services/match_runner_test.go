package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script standing in for the game
// engine. Argument layout matches the runner's invocation:
// $1=--p1 $2=<p1> $3=--p2 $4=<p2> $5=--out_dir $6=<log>.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newRunnerCase(t *testing.T, engineBody string) (*testCase, *MatchRunner, *models.Match) {
	tc := newTestCase(t)

	blob := utils.NewDiskStore(t.TempDir())
	team := tc.makeTeam("Null Pointers", "user-1")
	submission := tc.makeSubmission(team.ID, true)
	require.NoError(t, blob.Upload(submission.CodeKey, strings.NewReader("print('hi')"), "text/x-python"))

	systemBot := filepath.Join(t.TempDir(), "system_bot.py")
	require.NoError(t, os.WriteFile(systemBot, []byte("pass\n"), 0o644))

	runner := NewMatchRunner(tc.db, blob, NewLeaderboardService(tc.db),
		[]string{"/bin/sh", writeScript(t, engineBody)}, systemBot, t.TempDir())

	match := &models.Match{
		ID:                  uuid.NewString(),
		MatchType:           models.MatchTypeRoundOne,
		Status:              models.MatchStatusPending,
		Player1SubmissionID: &submission.ID,
		IsPlayer2SystemBot:  true,
	}
	require.NoError(t, match.Validate())
	require.NoError(t, tc.db.Create(match).Error)
	return tc, runner, match
}

func TestExecuteCompletesAndScoresLeaderboard(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `
echo "turn,move" > "$6"
echo '{"player1_score": 5, "player2_score": 2}'`)

	require.NoError(t, runner.Execute(match.ID))

	got := tc.matchByID(match.ID)
	require.Equal(t, models.MatchStatusCompleted, got.Status)
	require.Equal(t, 5, *got.Player1Score)
	require.Equal(t, 2, *got.Player2Score)
	require.NotNil(t, got.PlayedAt)
	require.Equal(t, "game_logs/game_log_"+match.ID+".csv", got.GameLogKey)

	var sub models.BotSubmission
	require.NoError(t, tc.db.First(&sub, "id = ?", *match.Player1SubmissionID).Error)
	require.Equal(t, sub.TeamID, *got.WinningTeamID)

	var entry models.LeaderboardScore
	require.NoError(t, tc.db.First(&entry, "team_id = ?", sub.TeamID).Error)
	require.Equal(t, 5, entry.Score)
	require.Equal(t, 1, entry.MatchesPlayed)
	require.Equal(t, 1, entry.MatchesWon)
}

func TestExecuteSystemBotWinLeavesNoWinner(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `echo '{"player1_score": 1, "player2_score": 4}'`)

	require.NoError(t, runner.Execute(match.ID))

	got := tc.matchByID(match.ID)
	require.Equal(t, models.MatchStatusCompleted, got.Status)
	require.Nil(t, got.WinningTeamID)
}

func TestExecuteTimeoutFallsBackToPlayerOneWin(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `sleep 5`)
	runner.Timeout = 100 * time.Millisecond

	require.NoError(t, runner.Execute(match.ID))

	got := tc.matchByID(match.ID)
	require.Equal(t, models.MatchStatusCompleted, got.Status)
	require.Equal(t, 1, *got.Player1Score)
	require.Equal(t, 0, *got.Player2Score)
	require.NotNil(t, got.WinningTeamID)
}

func TestExecuteMalformedOutputEndsInError(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `echo "not json"`)

	require.NoError(t, runner.Execute(match.ID))
	require.Equal(t, models.MatchStatusError, tc.matchByID(match.ID).Status)
}

func TestExecuteEngineFailureEndsInError(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `exit 3`)

	require.NoError(t, runner.Execute(match.ID))
	require.Equal(t, models.MatchStatusError, tc.matchByID(match.ID).Status)
}

func TestExecuteSkipsAlreadyClaimedMatch(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `echo '{"player1_score": 1, "player2_score": 0}'`)

	require.NoError(t, tc.db.Model(&models.Match{}).
		Where("id = ?", match.ID).
		Update("status", models.MatchStatusRunning).Error)

	require.NoError(t, runner.Execute(match.ID))
	require.Equal(t, models.MatchStatusRunning, tc.matchByID(match.ID).Status)
}

func TestExecuteCleansScratchDir(t *testing.T) {
	tc, runner, match := newRunnerCase(t, `echo '{"player1_score": 0, "player2_score": 0}'`)

	require.NoError(t, runner.Execute(match.ID))

	_, err := os.Stat(filepath.Join(runner.ScratchRoot, match.ID))
	require.True(t, os.IsNotExist(err))
	require.Equal(t, models.MatchStatusCompleted, tc.matchByID(match.ID).Status)
}
