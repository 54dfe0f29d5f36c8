package services

import (
	"fmt"
	"log"

	"github.com/sjais1337/prog-battle/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeederService creates the round-one batch: every team with an active
// bot plays a fixed number of matches against the system bot to build
// the leaderboard before bracket seeding.
type SeederService struct {
	DB    *gorm.DB
	Queue Enqueuer
}

func NewSeederService(db *gorm.DB, queue Enqueuer) *SeederService {
	return &SeederService{DB: db, Queue: queue}
}

// SeedReport summarizes one seeding run.
type SeedReport struct {
	GamesPerTeam   int      `json:"games_per_team"`
	TeamsSeeded    int      `json:"teams_seeded"`
	MatchesCreated int      `json:"matches_created"`
	MatchIDs       []string `json:"match_ids"`
}

// SeedRoundOne creates gamesPerTeam pending round-one matches for every
// team holding an active submission. All matches are created in one
// transaction; enqueueing happens only after it commits.
func (s *SeederService) SeedRoundOne(gamesPerTeam int) (*SeedReport, error) {
	if gamesPerTeam <= 0 {
		return nil, &ValidationError{Message: "number of games must be positive"}
	}

	var submissions []models.BotSubmission
	if err := s.DB.Where("is_active = ?", true).Find(&submissions).Error; err != nil {
		return nil, err
	}
	if len(submissions) == 0 {
		log.Printf("[Seeder] no teams with active bots, nothing to seed")
		return &SeedReport{GamesPerTeam: gamesPerTeam}, nil
	}

	report := &SeedReport{GamesPerTeam: gamesPerTeam, TeamsSeeded: len(submissions)}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, submission := range submissions {
			submissionID := submission.ID
			for i := 0; i < gamesPerTeam; i++ {
				match := &models.Match{
					ID:                  uuid.NewString(),
					MatchType:           models.MatchTypeRoundOne,
					Status:              models.MatchStatusPending,
					Player1SubmissionID: &submissionID,
					IsPlayer2SystemBot:  true,
				}
				if err := match.Validate(); err != nil {
					return &ValidationError{Message: err.Error()}
				}
				if err := tx.Create(match).Error; err != nil {
					return fmt.Errorf("error creating match for team %s: %w", submission.TeamID, err)
				}
				report.MatchIDs = append(report.MatchIDs, match.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Commit is durable here; workers can safely pick these up.
	for _, id := range report.MatchIDs {
		s.Queue.Enqueue(id)
	}
	report.MatchesCreated = len(report.MatchIDs)
	log.Printf("[Seeder] created and queued %d round-one matches for %d teams", report.MatchesCreated, report.TeamsSeeded)
	return report, nil
}

func (s *SeederService) SeedRoundOneEndpoint(c *fiber.Ctx) error {
	type Req struct {
		GamesPerTeam int `json:"games_per_team"`
	}
	req := Req{GamesPerTeam: 3}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
		}
	}

	report, err := s.SeedRoundOne(req.GamesPerTeam)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.Status(201).JSON(report)
}
