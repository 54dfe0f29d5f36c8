package services

import (
	"testing"

	"github.com/sjais1337/prog-battle/models"

	"github.com/stretchr/testify/require"
)

func TestCreateTeamAddsCreatorAsMember(t *testing.T) {
	tc := newTestCase(t)

	team := tc.makeTeam("Null Pointers", "user-1")
	require.Equal(t, "user-1", team.CreatorID)
	require.True(t, isTeamMember(tc.db, team.ID, "user-1"))
}

func TestCreateTeamRejectsDuplicateName(t *testing.T) {
	tc := newTestCase(t)
	svc := NewTeamService(tc.db)

	tc.makeTeam("Null Pointers", "user-1")
	_, err := svc.CreateTeam("Null Pointers", "user-2")

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateTeamRejectsBlankName(t *testing.T) {
	tc := newTestCase(t)
	svc := NewTeamService(tc.db)

	_, err := svc.CreateTeam("   ", "user-1")

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestTeamOfUser(t *testing.T) {
	tc := newTestCase(t)

	team := tc.makeTeam("Null Pointers", "user-1")

	found, err := teamOfUser(tc.db, "user-1")
	require.NoError(t, err)
	require.Equal(t, team.ID, found.ID)

	_, err = teamOfUser(tc.db, "stranger")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMatchValidateParticipants(t *testing.T) {
	sub1 := "sub-1"
	sub2 := "sub-2"

	systemMatch := &models.Match{
		MatchType:           models.MatchTypeRoundOne,
		Player1SubmissionID: &sub1,
		IsPlayer2SystemBot:  true,
	}
	require.NoError(t, systemMatch.Validate())

	systemMatch.Player2SubmissionID = &sub2
	require.Error(t, systemMatch.Validate())

	peerMatch := &models.Match{
		MatchType:           models.MatchTypeChallenge,
		Player1SubmissionID: &sub1,
		Player2SubmissionID: &sub2,
	}
	require.NoError(t, peerMatch.Validate())

	peerMatch.IsPlayer2SystemBot = true
	require.Error(t, peerMatch.Validate())

	require.Error(t, (&models.Match{MatchType: "speedrun"}).Validate())
}

func TestMatchValidateRejectsSameTeamOpponents(t *testing.T) {
	sub1 := "sub-1"
	sub2 := "sub-2"

	// The same submission on both sides is never a match.
	selfMatch := &models.Match{
		MatchType:           models.MatchTypeRoundTwo,
		Player1SubmissionID: &sub1,
		Player2SubmissionID: &sub1,
	}
	require.Error(t, selfMatch.Validate())

	// Two different submissions from one team cannot play each other.
	sameTeam := &models.Match{
		MatchType:           models.MatchTypeChallenge,
		Player1SubmissionID: &sub1,
		Player2SubmissionID: &sub2,
		Player1Submission:   &models.BotSubmission{ID: sub1, TeamID: "team-1"},
		Player2Submission:   &models.BotSubmission{ID: sub2, TeamID: "team-1"},
	}
	require.Error(t, sameTeam.Validate())

	sameTeam.Player2Submission.TeamID = "team-2"
	require.NoError(t, sameTeam.Validate())
}
