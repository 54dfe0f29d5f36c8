package services

import (
	"testing"

	"github.com/sjais1337/prog-battle/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testCase struct {
	*testing.T
	db    *gorm.DB
	queue *recorderQueue
}

func newTestCase(t *testing.T) *testCase {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.TeamMember{},
		&models.BotSubmission{},
		&models.Match{},
		&models.LeaderboardScore{},
		&models.Challenge{},
	))

	return &testCase{T: t, db: db, queue: &recorderQueue{}}
}

// recorderQueue collects enqueued match IDs instead of running them.
type recorderQueue struct {
	ids []string
}

func (q *recorderQueue) Enqueue(matchID string) {
	q.ids = append(q.ids, matchID)
}

func (tc *testCase) makeTeam(name, creatorID string) *models.Team {
	svc := NewTeamService(tc.db)
	team, err := svc.CreateTeam(name, creatorID)
	require.NoError(tc.T, err)
	return team
}

func (tc *testCase) makeSubmission(teamID string, active bool) *models.BotSubmission {
	submission := &models.BotSubmission{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		SubmittedByID: "user-" + teamID,
		CodeKey:       "bot_scripts/" + teamID + "/" + uuid.NewString() + ".py",
		IsActive:      active,
	}
	require.NoError(tc.T, tc.db.Create(submission).Error)
	return submission
}

func (tc *testCase) makeScore(teamID string, score, played, won int) {
	entry := &models.LeaderboardScore{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		Score:         score,
		MatchesPlayed: played,
		MatchesWon:    won,
	}
	require.NoError(tc.T, tc.db.Create(entry).Error)
}

func (tc *testCase) matchByID(id string) *models.Match {
	var match models.Match
	require.NoError(tc.T, tc.db.First(&match, "id = ?", id).Error)
	return &match
}
