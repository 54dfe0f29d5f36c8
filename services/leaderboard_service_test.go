package services

import (
	"sync"
	"testing"

	"github.com/sjais1337/prog-battle/models"

	"github.com/stretchr/testify/require"
)

func TestApplyRoundOneResultCreatesAndIncrements(t *testing.T) {
	tc := newTestCase(t)
	svc := NewLeaderboardService(tc.db)
	team := tc.makeTeam("Null Pointers", "user-1")

	require.NoError(t, svc.ApplyRoundOneResult(team.ID, 7, true))
	require.NoError(t, svc.ApplyRoundOneResult(team.ID, 3, false))

	var entry models.LeaderboardScore
	require.NoError(t, tc.db.First(&entry, "team_id = ?", team.ID).Error)
	require.Equal(t, 10, entry.Score)
	require.Equal(t, 2, entry.MatchesPlayed)
	require.Equal(t, 1, entry.MatchesWon)
}

func TestApplyRoundOneResultConcurrentRunnersCommute(t *testing.T) {
	tc := newTestCase(t)
	svc := NewLeaderboardService(tc.db)
	team := tc.makeTeam("Null Pointers", "user-1")

	// First result creates the row; the rest land concurrently and must
	// sum to the same totals as any serial order.
	require.NoError(t, svc.ApplyRoundOneResult(team.ID, 1, false))

	deltas := []int{2, 3, 4, 5, 6, 7, 8, 9}
	var wg sync.WaitGroup
	errs := make(chan error, len(deltas))
	for i, delta := range deltas {
		wg.Add(1)
		go func(delta int, won bool) {
			defer wg.Done()
			errs <- svc.ApplyRoundOneResult(team.ID, delta, won)
		}(delta, i%2 == 0)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var entry models.LeaderboardScore
	require.NoError(t, tc.db.First(&entry, "team_id = ?", team.ID).Error)
	require.Equal(t, 45, entry.Score)
	require.Equal(t, 9, entry.MatchesPlayed)
	require.Equal(t, 4, entry.MatchesWon)
}

func TestTopEntriesOrdering(t *testing.T) {
	tc := newTestCase(t)
	svc := NewLeaderboardService(tc.db)

	alpha := tc.makeTeam("Alpha", "user-1")
	beta := tc.makeTeam("Beta", "user-2")
	gamma := tc.makeTeam("Gamma", "user-3")

	tc.makeScore(alpha.ID, 10, 5, 3)
	tc.makeScore(beta.ID, 10, 3, 3) // same score, fewer games ranks higher
	tc.makeScore(gamma.ID, 20, 5, 5)

	entries, err := svc.TopEntries(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, gamma.ID, entries[0].TeamID)
	require.Equal(t, beta.ID, entries[1].TeamID)
	require.Equal(t, alpha.ID, entries[2].TeamID)
}

func TestRefreshRanks(t *testing.T) {
	tc := newTestCase(t)
	svc := NewLeaderboardService(tc.db)

	alpha := tc.makeTeam("Alpha", "user-1")
	beta := tc.makeTeam("Beta", "user-2")
	tc.makeScore(alpha.ID, 5, 2, 1)
	tc.makeScore(beta.ID, 15, 2, 2)

	require.NoError(t, svc.RefreshRanks())

	var entry models.LeaderboardScore
	require.NoError(t, tc.db.First(&entry, "team_id = ?", beta.ID).Error)
	require.NotNil(t, entry.Rank)
	require.Equal(t, 1, *entry.Rank)

	require.NoError(t, tc.db.First(&entry, "team_id = ?", alpha.ID).Error)
	require.NotNil(t, entry.Rank)
	require.Equal(t, 2, *entry.Rank)
}
