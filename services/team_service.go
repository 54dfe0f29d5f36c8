package services

import (
	"errors"
	"log"
	"strings"

	"github.com/sjais1337/prog-battle/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamService manages teams and membership lookups.
type TeamService struct {
	DB *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{DB: db}
}

// CreateTeam makes a new team owned by creatorID. The creator's member
// row is written in the same transaction, so creator ∈ members always
// holds.
func (s *TeamService) CreateTeam(name, creatorID string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Message: "team name is required"}
	}

	var count int64
	s.DB.Model(&models.Team{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return nil, &ConflictError{Message: "a team with this name already exists"}
	}

	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      name,
		CreatorID: creatorID,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &models.TeamMember{
			ID:     uuid.NewString(),
			TeamID: team.ID,
			UserID: creatorID,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// isTeamMember reports whether userID has a member row on teamID.
func isTeamMember(db *gorm.DB, teamID, userID string) bool {
	var count int64
	db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count)
	return count > 0
}

// teamOfUser returns the first team userID belongs to, or a
// NotFoundError when they have none.
func teamOfUser(db *gorm.DB, userID string) (*models.Team, error) {
	var member models.TeamMember
	if err := db.Where("user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "you are not part of any team"}
		}
		return nil, err
	}
	var team models.Team
	if err := db.First(&team, "id = ?", member.TeamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) CreateTeamEndpoint(c *fiber.Ctx) error {
	type Req struct {
		Name string `json:"name" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	userID := c.Locals("user_id").(string)

	team, err := s.CreateTeam(req.Name, userID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(201).JSON(team)
}

func (s *TeamService) GetAllTeams(c *fiber.Ctx) error {
	var teams []models.Team
	if err := s.DB.Preload("Members").Order("created_at ASC").Find(&teams).Error; err != nil {
		log.Printf("ERROR fetching teams: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch teams"})
	}
	return c.JSON(teams)
}

func (s *TeamService) GetTeamByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var team models.Team
	err := s.DB.Preload("Members").
		Preload("Submissions", func(db *gorm.DB) *gorm.DB {
			return db.Order("submitted_at DESC")
		}).
		First(&team, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "team not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(team)
}

// GetTeamMatches lists a team's matches. Members see everything; anyone
// else only sees completed matches, with test runs hidden.
func (s *TeamService) GetTeamMatches(c *fiber.Ctx) error {
	teamID := c.Params("id")
	if err := s.DB.First(&models.Team{}, "id = ?", teamID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "team not found"})
	}

	userID, _ := c.Locals("user_id").(string)
	member := userID != "" && isTeamMember(s.DB, teamID, userID)

	query := s.DB.
		Joins("LEFT JOIN bot_submissions p1 ON p1.id = matches.player1_submission_id").
		Joins("LEFT JOIN bot_submissions p2 ON p2.id = matches.player2_submission_id").
		Where("p1.team_id = ? OR p2.team_id = ?", teamID, teamID).
		Preload("Player1Submission.Team").
		Preload("Player2Submission.Team").
		Preload("WinningTeam")

	if !member {
		query = query.
			Where("matches.status = ?", models.MatchStatusCompleted).
			Where("matches.match_type <> ?", models.MatchTypeTestVsSystem)
	}

	var matches []models.Match
	if err := query.Order("matches.created_at DESC").Find(&matches).Error; err != nil {
		log.Printf("ERROR fetching matches for team %s: %v", teamID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(matches)
}
