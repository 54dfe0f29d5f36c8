package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sjais1337/prog-battle/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeService runs the peer-to-peer challenge flow: a team invites
// another, and exactly one of accept, decline or cancel resolves the
// invitation. Accepting creates the linked challenge match.
type ChallengeService struct {
	DB    *gorm.DB
	Queue Enqueuer
}

func NewChallengeService(db *gorm.DB, queue Enqueuer) *ChallengeService {
	return &ChallengeService{DB: db, Queue: queue}
}

// CreateChallenge issues a pending challenge from the caller's team to
// challengedTeamID. A team cannot challenge itself, and at most one
// pending challenge may exist per ordered pair.
func (s *ChallengeService) CreateChallenge(userID, challengedTeamID, message string) (*models.Challenge, error) {
	team, err := teamOfUser(s.DB, userID)
	if err != nil {
		return nil, err
	}

	var challenged models.Team
	if err := s.DB.First(&challenged, "id = ?", challengedTeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "challenged team not found"}
		}
		return nil, err
	}
	if team.ID == challenged.ID {
		return nil, &ValidationError{Message: "a team cannot challenge itself"}
	}

	var pending int64
	s.DB.Model(&models.Challenge{}).
		Where("challenger_team_id = ? AND challenged_team_id = ? AND status = ?",
			team.ID, challenged.ID, models.ChallengeStatusPending).
		Count(&pending)
	if pending > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("a pending challenge against %s already exists", challenged.Name)}
	}

	challenge := &models.Challenge{
		ID:               uuid.NewString(),
		ChallengerTeamID: team.ID,
		ChallengedTeamID: challenged.ID,
		Status:           models.ChallengeStatusPending,
		Message:          message,
	}
	if err := s.DB.Create(challenge).Error; err != nil {
		return nil, err
	}
	log.Printf("[Challenge] %s challenged %s (%s)", team.Name, challenged.Name, challenge.ID)
	return challenge, nil
}

// pendingChallenge loads a challenge and verifies it is still pending.
func (s *ChallengeService) pendingChallenge(challengeID string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.DB.Preload("ChallengerTeam").Preload("ChallengedTeam").
		First(&challenge, "id = ?", challengeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "challenge not found"}
		}
		return nil, err
	}
	if challenge.Status != models.ChallengeStatusPending {
		return nil, &StateError{Message: fmt.Sprintf("challenge is already %s", challenge.Status)}
	}
	return &challenge, nil
}

// AcceptChallenge resolves a pending challenge by creating the match
// between the two teams' own active submissions. Both teams must hold
// one; the challenge and its match are linked in a single transaction
// and the match is enqueued only after commit.
func (s *ChallengeService) AcceptChallenge(challengeID, userID string) (*models.Challenge, error) {
	challenge, err := s.pendingChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if !isTeamMember(s.DB, challenge.ChallengedTeamID, userID) {
		return nil, &PermissionError{Message: "only members of the challenged team can accept"}
	}

	challengerSub, err := activeSubmission(s.DB, challenge.ChallengerTeamID)
	if err != nil {
		return nil, err
	}
	if challengerSub == nil {
		return nil, &StateError{Message: fmt.Sprintf("challenger team %s has no active bot submission", challenge.ChallengerTeam.Name)}
	}
	challengedSub, err := activeSubmission(s.DB, challenge.ChallengedTeamID)
	if err != nil {
		return nil, err
	}
	if challengedSub == nil {
		return nil, &StateError{Message: fmt.Sprintf("your team %s has no active bot submission", challenge.ChallengedTeam.Name)}
	}

	var matchID string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		match := &models.Match{
			ID:                  uuid.NewString(),
			MatchType:           models.MatchTypeChallenge,
			Status:              models.MatchStatusPending,
			Player1SubmissionID: &challengerSub.ID,
			Player2SubmissionID: &challengedSub.ID,
			Player1Submission:   challengerSub,
			Player2Submission:   challengedSub,
		}
		if err := match.Validate(); err != nil {
			return &ValidationError{Message: err.Error()}
		}
		if err := tx.Omit(clause.Associations).Create(match).Error; err != nil {
			return err
		}

		now := time.Now()
		challenge.Status = models.ChallengeStatusAccepted
		challenge.ResolvedAt = &now
		challenge.MatchPlayedID = &match.ID
		if err := tx.Model(&models.Challenge{}).Where("id = ?", challenge.ID).
			Updates(map[string]interface{}{
				"status":          challenge.Status,
				"resolved_at":     challenge.ResolvedAt,
				"match_played_id": challenge.MatchPlayedID,
			}).Error; err != nil {
			return err
		}
		matchID = match.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Queue.Enqueue(matchID)
	log.Printf("[Challenge] %s accepted, match %s queued", challenge.ID, matchID)
	return challenge, nil
}

// DeclineChallenge resolves a pending challenge without a match. Only
// members of the challenged team may decline.
func (s *ChallengeService) DeclineChallenge(challengeID, userID string) (*models.Challenge, error) {
	challenge, err := s.pendingChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if !isTeamMember(s.DB, challenge.ChallengedTeamID, userID) {
		return nil, &PermissionError{Message: "only members of the challenged team can decline"}
	}
	return s.resolve(challenge, models.ChallengeStatusDeclined)
}

// CancelChallenge withdraws a pending challenge. Only members of the
// challenging team may cancel.
func (s *ChallengeService) CancelChallenge(challengeID, userID string) (*models.Challenge, error) {
	challenge, err := s.pendingChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if !isTeamMember(s.DB, challenge.ChallengerTeamID, userID) {
		return nil, &PermissionError{Message: "only members of the challenging team can cancel"}
	}
	return s.resolve(challenge, models.ChallengeStatusCancelled)
}

func (s *ChallengeService) resolve(challenge *models.Challenge, status string) (*models.Challenge, error) {
	now := time.Now()
	err := s.DB.Model(&models.Challenge{}).Where("id = ?", challenge.ID).
		Updates(map[string]interface{}{"status": status, "resolved_at": &now}).Error
	if err != nil {
		return nil, err
	}
	challenge.Status = status
	challenge.ResolvedAt = &now
	return challenge, nil
}

func (s *ChallengeService) CreateChallengeEndpoint(c *fiber.Ctx) error {
	type Req struct {
		ChallengedTeamID string `json:"challenged_team_id" validate:"required"`
		Message          string `json:"message"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	userID := c.Locals("user_id").(string)

	challenge, err := s.CreateChallenge(userID, req.ChallengedTeamID, req.Message)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(201).JSON(challenge)
}

func (s *ChallengeService) AcceptChallengeEndpoint(c *fiber.Ctx) error {
	challenge, err := s.AcceptChallenge(c.Params("id"), c.Locals("user_id").(string))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(challenge)
}

func (s *ChallengeService) DeclineChallengeEndpoint(c *fiber.Ctx) error {
	challenge, err := s.DeclineChallenge(c.Params("id"), c.Locals("user_id").(string))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(challenge)
}

func (s *ChallengeService) CancelChallengeEndpoint(c *fiber.Ctx) error {
	challenge, err := s.CancelChallenge(c.Params("id"), c.Locals("user_id").(string))
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(challenge)
}

// GetTeamChallenges lists challenges involving the caller's team, newest
// first.
func (s *ChallengeService) GetTeamChallenges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	team, err := teamOfUser(s.DB, userID)
	if err != nil {
		return ErrorResponse(c, err)
	}

	var challenges []models.Challenge
	err = s.DB.
		Preload("ChallengerTeam").
		Preload("ChallengedTeam").
		Preload("MatchPlayed").
		Where("challenger_team_id = ? OR challenged_team_id = ?", team.ID, team.ID).
		Order("created_at DESC").
		Find(&challenges).Error
	if err != nil {
		log.Printf("ERROR fetching challenges for team %s: %v", team.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch challenges"})
	}
	return c.JSON(challenges)
}
