package handlers

import (
	"github.com/sjais1337/prog-battle/middleware"
	"github.com/sjais1337/prog-battle/services"

	"github.com/gofiber/fiber/v2"
)

// TournamentServices bundles everything the route table needs.
type TournamentServices struct {
	Teams       *services.TeamService
	Submissions *services.SubmissionService
	Matches     *services.MatchService
	Leaderboard *services.LeaderboardService
	Seeder      *services.SeederService
	Bracket     *services.BracketService
	Challenges  *services.ChallengeService
}

func SetupTournamentRoutes(app *fiber.App, svc TournamentServices) {
	// 🔓 Public routes
	public := app.Group("/", middleware.OptionalUserContext())
	public.Get("/teams", svc.Teams.GetAllTeams)
	public.Get("/teams/:id", svc.Teams.GetTeamByID)
	public.Get("/teams/:id/matches", svc.Teams.GetTeamMatches)
	public.Get("/matches", svc.Matches.GetMatches)
	public.Get("/matches/:id", svc.Matches.GetMatchByID)
	public.Get("/matches/:id/log", svc.Matches.DownloadGameLog)
	public.Get("/leaderboard", svc.Leaderboard.GetLeaderboard)
	public.Get("/bracket", svc.Bracket.GetBracket)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/teams", svc.Teams.CreateTeamEndpoint)
	secured.Post("/teams/:team_id/submissions", svc.Submissions.CreateSubmissionEndpoint)
	secured.Get("/teams/:team_id/submissions", svc.Submissions.GetTeamSubmissions)
	secured.Post("/teams/:team_id/submissions/:submission_id/activate", svc.Submissions.ActivateSubmissionEndpoint)
	secured.Post("/matches/test", svc.Submissions.InitiateTestMatchEndpoint)

	// Challenges
	secured.Post("/challenges", svc.Challenges.CreateChallengeEndpoint)
	secured.Get("/challenges", svc.Challenges.GetTeamChallenges)
	secured.Post("/challenges/:id/accept", svc.Challenges.AcceptChallengeEndpoint)
	secured.Post("/challenges/:id/decline", svc.Challenges.DeclineChallengeEndpoint)
	secured.Post("/challenges/:id/cancel", svc.Challenges.CancelChallengeEndpoint)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware())
	admin.Post("/rounds/one/seed", svc.Seeder.SeedRoundOneEndpoint)
	admin.Post("/rounds/two/advance", svc.Bracket.AdvanceStageEndpoint)
}
