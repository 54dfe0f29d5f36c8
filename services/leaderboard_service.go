package services

import (
	"log"
	"time"

	"github.com/sjais1337/prog-battle/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaderboardService aggregates round-one results into per-team scores.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// ApplyRoundOneResult folds one completed round-one match into the
// team's leaderboard entry. Every mutation is a relative increment
// (score + delta, matches_played + 1, matches_won + 0/1) so any
// interleaving of concurrent runners sums to the same totals — never a
// read-modify-write on a cached row.
func (s *LeaderboardService) ApplyRoundOneResult(teamID string, scoreDelta int, won bool) error {
	entry := models.LeaderboardScore{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		LastUpdated: time.Now(),
	}
	if err := s.DB.Where(models.LeaderboardScore{TeamID: teamID}).
		Attrs(entry).FirstOrCreate(&entry).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"score":          gorm.Expr("score + ?", scoreDelta),
		"matches_played": gorm.Expr("matches_played + ?", 1),
		"last_updated":   time.Now(),
	}
	if won {
		updates["matches_won"] = gorm.Expr("matches_won + ?", 1)
	}

	return s.DB.Model(&models.LeaderboardScore{}).
		Where("team_id = ?", teamID).
		Updates(updates).Error
}

// TopEntries returns the best totalQualifiers entries in qualification
// order: score desc, then fewer matches played, then earliest update.
func (s *LeaderboardService) TopEntries(limit int) ([]models.LeaderboardScore, error) {
	var entries []models.LeaderboardScore
	err := s.DB.Preload("Team").
		Order("score DESC").
		Order("matches_played ASC").
		Order("last_updated ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// RefreshRanks rewrites the rank column from the display ordering. Run
// periodically by the scheduler; ranks are a denormalized convenience,
// the increments above are the source of truth.
func (s *LeaderboardService) RefreshRanks() error {
	var entries []models.LeaderboardScore
	if err := s.DB.
		Order("score DESC").
		Order("matches_won DESC").
		Order("matches_played ASC").
		Find(&entries).Error; err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			rank := i + 1
			if err := tx.Model(&models.LeaderboardScore{}).
				Where("id = ?", entries[i].ID).
				Update("rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLeaderboard returns the full leaderboard, best teams first.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	var entries []models.LeaderboardScore
	err := s.DB.Preload("Team").
		Order("score DESC").
		Order("matches_won DESC").
		Order("matches_played ASC").
		Find(&entries).Error
	if err != nil {
		log.Printf("ERROR fetching leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	return c.JSON(entries)
}
