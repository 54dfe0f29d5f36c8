package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sjais1337/prog-battle/handlers"
	"github.com/sjais1337/prog-battle/middleware"
	"github.com/sjais1337/prog-battle/models"
	"github.com/sjais1337/prog-battle/services"
	"github.com/sjais1337/prog-battle/utils"
	"github.com/sjais1337/prog-battle/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // bot scripts are small
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Team{},
		&models.TeamMember{},
		&models.BotSubmission{},
		&models.Match{},
		&models.LeaderboardScore{},
		&models.Challenge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Bot scripts and game logs go to R2 unless a local directory is
	// configured for development.
	var blob utils.BlobStore
	if root := os.Getenv("BLOB_DIR"); root != "" {
		blob = utils.NewDiskStore(root)
		log.Printf("📁 Using local blob store at %s", root)
	} else {
		blob, err = utils.NewR2StoreFromEnv()
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	}

	engineScript := os.Getenv("ENGINE_SCRIPT")
	if engineScript == "" {
		engineScript = "./engine/engine.py"
	}
	systemBot := os.Getenv("SYSTEM_BOT_SCRIPT")
	if systemBot == "" {
		systemBot = "./engine/system_bot.py"
	}
	scratchRoot := os.Getenv("MATCH_SCRATCH_DIR")
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}

	workerCount := 4
	if v := os.Getenv("MATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerCount = n
		}
	}

	leaderboardService := services.NewLeaderboardService(db)
	runner := services.NewMatchRunner(db, blob, leaderboardService,
		[]string{"python3", engineScript}, systemBot, scratchRoot)
	queue := workers.NewMatchQueue(db, runner, workerCount)

	teamService := services.NewTeamService(db)
	submissionService := services.NewSubmissionService(db, blob, queue)
	matchService := services.NewMatchService(db, blob)
	seederService := services.NewSeederService(db, queue)
	bracketService := services.NewBracketService(db, queue)
	challengeService := services.NewChallengeService(db, queue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	leaderboardService.StartRankScheduler()

	handlers.SetupTournamentRoutes(app, handlers.TournamentServices{
		Teams:       teamService,
		Submissions: submissionService,
		Matches:     matchService,
		Leaderboard: leaderboardService,
		Seeder:      seederService,
		Bracket:     bracketService,
		Challenges:  challengeService,
	})

	go func() {
		if err := app.Listen(":5200"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5200")
	log.Printf("✅ Match queue running with %d workers", workerCount)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	queue.Wait()
}
