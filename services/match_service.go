package services

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MatchService serves read-side match endpoints: listings, detail and
// the CSV game log download.
type MatchService struct {
	DB   *gorm.DB
	Blob utils.BlobStore
}

func NewMatchService(db *gorm.DB, blob utils.BlobStore) *MatchService {
	return &MatchService{DB: db, Blob: blob}
}

func (s *MatchService) withParticipants(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Player1Submission.Team").
		Preload("Player2Submission.Team").
		Preload("WinningTeam")
}

// loadVisible fetches a match and checks the caller may see it. Test
// matches are private to the submitting team.
func (s *MatchService) loadVisible(matchID, userID string) (*models.Match, error) {
	var match models.Match
	err := s.withParticipants(s.DB).First(&match, "id = ?", matchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "match not found"}
		}
		return nil, err
	}

	if match.MatchType == models.MatchTypeTestVsSystem {
		if match.Player1Submission == nil ||
			!isTeamMember(s.DB, match.Player1Submission.TeamID, userID) {
			return nil, &PermissionError{Message: "test matches are only visible to the submitting team"}
		}
	}
	return &match, nil
}

// GetMatches lists completed public matches, newest first. Test runs
// never appear here.
func (s *MatchService) GetMatches(c *fiber.Ctx) error {
	query := s.withParticipants(s.DB).
		Where("match_type <> ?", models.MatchTypeTestVsSystem).
		Where("status = ?", models.MatchStatusCompleted)

	if matchType := c.Query("type"); matchType != "" {
		query = query.Where("match_type = ?", matchType)
	}

	var matches []models.Match
	if err := query.Order("played_at DESC").Limit(100).Find(&matches).Error; err != nil {
		log.Printf("ERROR fetching matches: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	return c.JSON(matches)
}

func (s *MatchService) GetMatchByID(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	match, err := s.loadVisible(c.Params("id"), userID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(match)
}

// DownloadGameLog streams the match's CSV game log. The file is pulled
// from the blob store into a temp file and served from there.
func (s *MatchService) DownloadGameLog(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	match, err := s.loadVisible(c.Params("id"), userID)
	if err != nil {
		return ErrorResponse(c, err)
	}
	if match.GameLogKey == "" {
		return c.Status(404).JSON(fiber.Map{"error": "no game log recorded for this match"})
	}

	tmpDir, err := os.MkdirTemp("", "game-log-")
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to prepare download"})
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, "game_log.csv")
	if err := s.Blob.Download(match.GameLogKey, localPath); err != nil {
		log.Printf("ERROR fetching game log %s: %v", match.GameLogKey, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch game log"})
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to read game log"})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="game_log_`+match.ID+`.csv"`)
	return c.Send(data)
}
