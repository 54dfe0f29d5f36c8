package services

import (
	"fmt"
	"log"
	"sort"

	"github.com/sjais1337/prog-battle/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BracketService advances the single-elimination round-two bracket one
// stage at a time. A stage is named by the number of teams entering it
// (16, 8, 4, 2); each run derives the qualifiers, pairs them
// top-vs-bottom and creates the stage's matches.
type BracketService struct {
	DB    *gorm.DB
	Queue Enqueuer
}

func NewBracketService(db *gorm.DB, queue Enqueuer) *BracketService {
	return &BracketService{DB: db, Queue: queue}
}

// qualifier is a team eligible for the stage, with the seed score used
// to order pairings.
type qualifier struct {
	team       models.Team
	submission models.BotSubmission
	seedScore  int
}

// StageReport summarizes one advance run.
type StageReport struct {
	StageSize      int      `json:"stage_size"`
	QualifierCount int      `json:"qualifier_count"`
	MatchesCreated int      `json:"matches_created"`
	MatchIDs       []string `json:"match_ids,omitempty"`
	SkippedTeams   []string `json:"skipped_teams,omitempty"`
	ChampionTeamID string   `json:"champion_team_id,omitempty"`
	ChampionName   string   `json:"champion_name,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (rep *StageReport) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	rep.Warnings = append(rep.Warnings, msg)
	log.Printf("[Bracket] %s", msg)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AdvanceStage sets up the round-two stage of stageSize teams.
// totalQualifiers is the size of the initial stage; when the two are
// equal, qualifiers come from the round-one leaderboard, otherwise from
// the winners of the previous (double-sized) stage. Re-running with the
// same arguments and no new completions creates nothing.
func (s *BracketService) AdvanceStage(stageSize, totalQualifiers int) (*StageReport, error) {
	if !isPowerOfTwo(stageSize) || stageSize < 2 {
		return nil, &ValidationError{Message: fmt.Sprintf("stage size (%d) must be a power of 2 and at least 2", stageSize)}
	}
	if !isPowerOfTwo(totalQualifiers) {
		return nil, &ValidationError{Message: fmt.Sprintf("total qualifiers (%d) must be a positive power of 2", totalQualifiers)}
	}
	if stageSize > totalQualifiers {
		return nil, &ValidationError{Message: fmt.Sprintf("stage size (%d) cannot be greater than total qualifiers (%d)", stageSize, totalQualifiers)}
	}

	// At most one stage is ever in flight.
	var inFlight int64
	if err := s.DB.Model(&models.Match{}).
		Where("match_type = ? AND round_stage <= ? AND status IN ?",
			models.MatchTypeRoundTwo, stageSize,
			[]string{models.MatchStatusPending, models.MatchStatusRunning}).
		Count(&inFlight).Error; err != nil {
		return nil, err
	}
	if inFlight > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("found %d pending or running round-two matches; cannot create new matches until they complete", inFlight)}
	}

	report := &StageReport{StageSize: stageSize}

	var qualifiers []qualifier
	var err error
	if stageSize == totalQualifiers {
		qualifiers, err = s.initialStageQualifiers(totalQualifiers, stageSize, report)
	} else {
		qualifiers, err = s.laterStageQualifiers(stageSize, report)
	}
	if err != nil {
		return nil, err
	}
	report.QualifierCount = len(qualifiers)

	switch {
	case len(qualifiers) == 0:
		report.warn("no qualifying teams found for stage of %d", stageSize)
		return report, nil
	case len(qualifiers) == 1 && stageSize == 2:
		// Walkover: the lone finalist is the tournament winner.
		report.ChampionTeamID = qualifiers[0].team.ID
		report.ChampionName = qualifiers[0].team.Name
		log.Printf("[Bracket] tournament winner by walkover: %s", qualifiers[0].team.Name)
		return report, nil
	case len(qualifiers) == 1:
		report.warn("only one team (%s) advanced to stage of %d, which is not the final; check previous round results", qualifiers[0].team.Name, stageSize)
		return report, nil
	}

	sort.SliceStable(qualifiers, func(i, j int) bool {
		return qualifiers[i].seedScore > qualifiers[j].seedScore
	})

	// An odd leftover at the lowest seed is dropped, not auto-advanced.
	if len(qualifiers)%2 != 0 {
		dropped := qualifiers[len(qualifiers)-1]
		report.warn("odd number of teams (%d) for stage of %d; lowest seed %s is dropped", len(qualifiers), stageSize, dropped.team.Name)
		qualifiers = qualifiers[:len(qualifiers)-1]
	}

	var created []string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		n := len(qualifiers)
		for i := 0; i < n/2; i++ {
			top := qualifiers[i]
			bottom := qualifiers[n-1-i]

			if top.team.ID == bottom.team.ID {
				report.warn("refusing to pair team %s against itself", top.team.Name)
				continue
			}

			var existing int64
			if err := tx.Model(&models.Match{}).
				Where("match_type = ? AND round_stage = ? AND status IN ?",
					models.MatchTypeRoundTwo, stageSize,
					[]string{models.MatchStatusPending, models.MatchStatusRunning, models.MatchStatusCompleted}).
				Where("(player1_submission_id = ? AND player2_submission_id = ?) OR (player1_submission_id = ? AND player2_submission_id = ?)",
					top.submission.ID, bottom.submission.ID, bottom.submission.ID, top.submission.ID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				report.warn("match %s vs %s at stage of %d already exists, skipping", top.team.Name, bottom.team.Name, stageSize)
				continue
			}

			stage := stageSize
			p1 := top.submission
			p2 := bottom.submission
			match := &models.Match{
				ID:                  uuid.NewString(),
				MatchType:           models.MatchTypeRoundTwo,
				Status:              models.MatchStatusPending,
				RoundStage:          &stage,
				Player1SubmissionID: &p1.ID,
				Player2SubmissionID: &p2.ID,
				Player1Submission:   &p1,
				Player2Submission:   &p2,
			}
			if err := match.Validate(); err != nil {
				return &ValidationError{Message: err.Error()}
			}
			if err := tx.Omit(clause.Associations).Create(match).Error; err != nil {
				return fmt.Errorf("error creating match between %s and %s: %w", top.team.Name, bottom.team.Name, err)
			}
			created = append(created, match.ID)
			log.Printf("[Bracket] created stage-of-%d match: %s vs %s (%s)", stageSize, top.team.Name, bottom.team.Name, match.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Only enqueue once the creating transaction is durable.
	for _, id := range created {
		s.Queue.Enqueue(id)
	}
	report.MatchIDs = created
	report.MatchesCreated = len(created)
	return report, nil
}

// initialStageQualifiers seeds the first bracket stage from the
// round-one leaderboard. Teams that lost their active submission since
// qualifying are skipped, not backfilled from the next rank.
func (s *BracketService) initialStageQualifiers(totalQualifiers, stageSize int, report *StageReport) ([]qualifier, error) {
	var decided int64
	if err := s.DB.Model(&models.Match{}).
		Where("match_type = ? AND round_stage = ? AND status = ?",
			models.MatchTypeRoundTwo, totalQualifiers, models.MatchStatusCompleted).
		Count(&decided).Error; err != nil {
		return nil, err
	}
	if decided == int64(totalQualifiers/2) {
		return nil, &StateError{Message: fmt.Sprintf("initial stage of %d is already decided; advance with stage size %d", totalQualifiers, totalQualifiers/2)}
	}

	var entries []models.LeaderboardScore
	if err := s.DB.Preload("Team").
		Order("score DESC").
		Order("matches_played ASC").
		Order("last_updated ASC").
		Limit(totalQualifiers).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) < totalQualifiers {
		return nil, &ShortfallError{Message: fmt.Sprintf("not enough teams (%d) on the round-one leaderboard for %d qualifiers", len(entries), totalQualifiers)}
	}

	var qualifiers []qualifier
	for _, entry := range entries {
		submission, err := activeSubmission(s.DB, entry.TeamID)
		if err != nil {
			return nil, err
		}
		if submission == nil {
			report.SkippedTeams = append(report.SkippedTeams, entry.Team.Name)
			report.warn("team %s qualified but has no active bot and is skipped", entry.Team.Name)
			continue
		}
		qualifiers = append(qualifiers, qualifier{team: entry.Team, submission: *submission, seedScore: entry.Score})
	}

	if len(qualifiers) < stageSize {
		report.warn("only %d of %d initial qualifiers still hold active bots", len(qualifiers), totalQualifiers)
	}
	return qualifiers, nil
}

// laterStageQualifiers collects the winners of the previous stage
// (twice this stage's size). The previous stage must be fully decided
// and every winner must still hold an active submission; anything less
// makes the bracket unadvanceable.
func (s *BracketService) laterStageQualifiers(stageSize int, report *StageReport) ([]qualifier, error) {
	previousStage := stageSize * 2

	var completed []models.Match
	if err := s.DB.Preload("WinningTeam").
		Where("match_type = ? AND round_stage = ? AND status = ?",
			models.MatchTypeRoundTwo, previousStage, models.MatchStatusCompleted).
		Find(&completed).Error; err != nil {
		return nil, err
	}
	if len(completed) != previousStage/2 {
		return nil, &StateError{Message: fmt.Sprintf("previous stage of %d is not fully completed: expected %d completed matches, found %d", previousStage, previousStage/2, len(completed))}
	}

	var qualifiers []qualifier
	for _, match := range completed {
		if match.WinningTeamID == nil || match.WinningTeam == nil {
			return nil, &StateError{Message: fmt.Sprintf("match %s in stage of %d completed without a recorded winner; cannot advance bracket", match.ID, previousStage)}
		}
		submission, err := activeSubmission(s.DB, *match.WinningTeamID)
		if err != nil {
			return nil, err
		}
		if submission == nil {
			report.SkippedTeams = append(report.SkippedTeams, match.WinningTeam.Name)
			report.warn("team %s won their previous match but no longer has an active bot", match.WinningTeam.Name)
			continue
		}

		seedScore := 0
		var entry models.LeaderboardScore
		if err := s.DB.Where("team_id = ?", *match.WinningTeamID).First(&entry).Error; err == nil {
			seedScore = entry.Score
		}
		qualifiers = append(qualifiers, qualifier{team: *match.WinningTeam, submission: *submission, seedScore: seedScore})
	}

	if len(qualifiers) != stageSize {
		return nil, &ShortfallError{Message: fmt.Sprintf("expected %d winners with active bots from stage of %d, found %d", stageSize, previousStage, len(qualifiers))}
	}
	return qualifiers, nil
}

func (s *BracketService) AdvanceStageEndpoint(c *fiber.Ctx) error {
	type Req struct {
		StageSize       int `json:"stage_size"`
		TotalQualifiers int `json:"total_qualifiers"`
	}
	req := Req{TotalQualifiers: 16}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	report, err := s.AdvanceStage(req.StageSize, req.TotalQualifiers)
	if err != nil {
		return ErrorResponse(c, err)
	}
	return c.JSON(report)
}

// GetBracket lists every round-two match, ordered by stage for display.
func (s *BracketService) GetBracket(c *fiber.Ctx) error {
	var matches []models.Match
	err := s.DB.
		Preload("Player1Submission.Team").
		Preload("Player2Submission.Team").
		Preload("WinningTeam").
		Where("match_type = ?", models.MatchTypeRoundTwo).
		Order("round_stage ASC").
		Order("created_at ASC").
		Find(&matches).Error
	if err != nil {
		log.Printf("ERROR fetching bracket: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch bracket"})
	}
	return c.JSON(matches)
}
