package services

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	hourlySubmissionLimit = 5
	hourlyTestMatchLimit  = 100
)

// SubmissionService is the registry of bot artifacts. It owns the "at
// most one active submission per team" invariant.
type SubmissionService struct {
	DB    *gorm.DB
	Blob  utils.BlobStore
	Queue Enqueuer
}

func NewSubmissionService(db *gorm.DB, blob utils.BlobStore, queue Enqueuer) *SubmissionService {
	return &SubmissionService{DB: db, Blob: blob, Queue: queue}
}

// CreateSubmission uploads a new bot script for the team and records it,
// inactive by default. Teams are limited to 5 submissions per hour.
func (s *SubmissionService) CreateSubmission(teamID, userID string, code io.Reader, filename string) (*models.BotSubmission, error) {
	var team models.Team
	if err := s.DB.First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "team not found"}
		}
		return nil, err
	}
	if !isTeamMember(s.DB, teamID, userID) {
		return nil, &PermissionError{Message: "user is not a member of the team"}
	}

	oneHourAgo := time.Now().Add(-1 * time.Hour)
	var recent int64
	s.DB.Model(&models.BotSubmission{}).
		Where("team_id = ? AND submitted_at >= ?", teamID, oneHourAgo).
		Count(&recent)
	if recent >= hourlySubmissionLimit {
		return nil, &ValidationError{Message: fmt.Sprintf("team hourly submission limit of %d reached, please try again later", hourlySubmissionLimit)}
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".py"
	}
	key := fmt.Sprintf("bot_scripts/%s/%s%s", slug.Make(team.Name), uuid.NewString(), ext)
	if err := s.Blob.Upload(key, code, "text/x-python"); err != nil {
		return nil, fmt.Errorf("failed to store bot script: %w", err)
	}

	submission := &models.BotSubmission{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		SubmittedByID: userID,
		CodeKey:       key,
	}
	if err := s.DB.Create(submission).Error; err != nil {
		return nil, err
	}
	return submission, nil
}

// ActivateSubmission marks one submission active and deactivates every
// sibling in the same transaction, keeping the per-team invariant.
func (s *SubmissionService) ActivateSubmission(teamID, submissionID, userID string) (*models.BotSubmission, error) {
	var submission models.BotSubmission
	if err := s.DB.Where("id = ? AND team_id = ?", submissionID, teamID).
		First(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "submission not found"}
		}
		return nil, err
	}
	if !isTeamMember(s.DB, teamID, userID) {
		return nil, &PermissionError{Message: "user is not a member of the team"}
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BotSubmission{}).
			Where("team_id = ? AND id <> ?", teamID, submissionID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&submission).Update("is_active", true).Error
	})
	if err != nil {
		return nil, err
	}
	submission.IsActive = true
	return &submission, nil
}

// activeSubmission fetches the team's single active submission, if any.
func activeSubmission(db *gorm.DB, teamID string) (*models.BotSubmission, error) {
	var submission models.BotSubmission
	err := db.Where("team_id = ? AND is_active = ?", teamID, true).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// InitiateTestMatch creates a pending test match for the caller's team
// against the system bot and enqueues it once the record is durable.
func (s *SubmissionService) InitiateTestMatch(userID string) (*models.Match, error) {
	team, err := teamOfUser(s.DB, userID)
	if err != nil {
		return nil, err
	}

	submission, err := activeSubmission(s.DB, team.ID)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, &ValidationError{Message: fmt.Sprintf("no active bot submission found for team %s", team.Name)}
	}

	oneHourAgo := time.Now().Add(-1 * time.Hour)
	var recent int64
	s.DB.Model(&models.Match{}).
		Joins("JOIN bot_submissions ON bot_submissions.id = matches.player1_submission_id").
		Where("matches.match_type = ? AND bot_submissions.team_id = ? AND matches.created_at >= ?",
			models.MatchTypeTestVsSystem, team.ID, oneHourAgo).
		Count(&recent)
	if recent >= hourlyTestMatchLimit {
		return nil, &ConflictError{Message: fmt.Sprintf("team hourly test match limit of %d reached", hourlyTestMatchLimit)}
	}

	match := &models.Match{
		ID:                  uuid.NewString(),
		MatchType:           models.MatchTypeTestVsSystem,
		Status:              models.MatchStatusPending,
		Player1SubmissionID: &submission.ID,
		IsPlayer2SystemBot:  true,
	}
	if err := match.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.DB.Create(match).Error; err != nil {
		return nil, err
	}

	s.Queue.Enqueue(match.ID)
	return match, nil
}

func (s *SubmissionService) CreateSubmissionEndpoint(c *fiber.Ctx) error {
	teamID := c.Params("team_id")
	userID := c.Locals("user_id").(string)

	fileHeader, err := c.FormFile("code_file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "code_file is required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "failed to open uploaded file"})
	}
	defer file.Close()

	submission, err := s.CreateSubmission(teamID, userID, file, fileHeader.Filename)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(201).JSON(submission)
}

func (s *SubmissionService) GetTeamSubmissions(c *fiber.Ctx) error {
	teamID := c.Params("team_id")
	userID := c.Locals("user_id").(string)

	if !isTeamMember(s.DB, teamID, userID) {
		return c.Status(403).JSON(fiber.Map{"error": "user is not a member of the team"})
	}

	var submissions []models.BotSubmission
	if err := s.DB.Where("team_id = ?", teamID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		log.Printf("ERROR fetching submissions for team %s: %v", teamID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch submissions"})
	}
	return c.JSON(submissions)
}

func (s *SubmissionService) ActivateSubmissionEndpoint(c *fiber.Ctx) error {
	teamID := c.Params("team_id")
	submissionID := c.Params("submission_id")
	userID := c.Locals("user_id").(string)

	submission, err := s.ActivateSubmission(teamID, submissionID, userID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(submission)
}

func (s *SubmissionService) InitiateTestMatchEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	match, err := s.InitiateTestMatch(userID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(201).JSON(match)
}
