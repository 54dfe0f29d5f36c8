package services

import (
	"testing"

	"github.com/sjais1337/prog-battle/models"

	"github.com/stretchr/testify/require"
)

func TestSeedRoundOneCreatesMatchesForActiveBotsOnly(t *testing.T) {
	tc := newTestCase(t)
	svc := NewSeederService(tc.db, tc.queue)

	alpha := tc.makeTeam("Alpha", "user-1")
	beta := tc.makeTeam("Beta", "user-2")
	idle := tc.makeTeam("Idle", "user-3")
	tc.makeSubmission(alpha.ID, true)
	tc.makeSubmission(beta.ID, true)
	tc.makeSubmission(idle.ID, false)

	report, err := svc.SeedRoundOne(3)
	require.NoError(t, err)
	require.Equal(t, 2, report.TeamsSeeded)
	require.Equal(t, 6, report.MatchesCreated)

	var matches []models.Match
	require.NoError(t, tc.db.Where("match_type = ?", models.MatchTypeRoundOne).Find(&matches).Error)
	require.Len(t, matches, 6)
	for _, m := range matches {
		require.Equal(t, models.MatchStatusPending, m.Status)
		require.True(t, m.IsPlayer2SystemBot)
		require.Nil(t, m.Player2SubmissionID)
	}

	// Everything created is enqueued, and only after creation.
	require.ElementsMatch(t, report.MatchIDs, tc.queue.ids)
}

func TestSeedRoundOneWithNoActiveBots(t *testing.T) {
	tc := newTestCase(t)
	svc := NewSeederService(tc.db, tc.queue)

	team := tc.makeTeam("Idle", "user-1")
	tc.makeSubmission(team.ID, false)

	report, err := svc.SeedRoundOne(3)
	require.NoError(t, err)
	require.Zero(t, report.MatchesCreated)
	require.Empty(t, tc.queue.ids)
}

func TestSeedRoundOneRejectsNonPositiveCount(t *testing.T) {
	tc := newTestCase(t)
	svc := NewSeederService(tc.db, tc.queue)

	_, err := svc.SeedRoundOne(0)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
