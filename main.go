package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"goat-rush/config"
	"goat-rush/events"
	"goat-rush/handlers"
	"goat-rush/logger"
	"goat-rush/middleware"
	"goat-rush/models"
	"goat-rush/repository"
	"goat-rush/services"
	"goat-rush/utils"
	"goat-rush/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const leaderboardSyncInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database: ", err)
	}

	rdb := openRedis(ctx, cfg.Redis)
	archiver := openArchiver(ctx, cfg.R2)

	clock := clockwork.NewRealClock()
	emitter := events.NewEmitter()
	ledger := repository.NewLedgerRepository(db)
	questionRepo := repository.NewQuestionRepository(db, clock)

	policy := services.LedgerPolicy{
		Mutation: services.RetryPolicy{Attempts: cfg.Game.MutationAttempts, Backoff: cfg.Game.Backoff()},
		Verify:   services.RetryPolicy{Attempts: cfg.Game.VerifyAttempts, Backoff: cfg.Game.Backoff()},
		Refresh:  services.RetryPolicy{Attempts: cfg.Game.RefreshAttempts, Backoff: cfg.Game.Backoff()},
	}

	wallets := services.NewWalletService(ledger, emitter, clock, policy)
	board := services.NewLeaderboard(rdb, ledger)
	game := services.NewGameService(services.GameDeps{
		Store:      ledger,
		Questions:  services.NewQuestionService(questionRepo, clock, policy.Mutation, cfg.Game.QuestionsPerRound, cfg.Game.QuestionPoolLimit),
		Credits:    services.NewCreditService(ledger, clock, policy),
		Verifier:   services.NewAnswerVerifier(questionRepo),
		Settlement: services.NewSettlementService(ledger, clock, policy, cfg.Game.Payout(), cfg.Game.QuestionsPerRound),
		Wallets:    wallets,
		Board:      board,
		Emitter:    emitter,
		Clock:      clock,
	}, services.GameSettings{
		RoundDuration: cfg.Game.RoundDuration(),
		SessionTTL:    cfg.Game.SessionTTL(),
	})
	importer := services.NewQuestionImporter(questionRepo, archiver, clock)
	claims := services.NewClaimService(ledger, wallets, board, clock, policy)
	purchases := services.NewPurchaseService(ledger, wallets, clock, policy, cfg.Game.AllowSimulatedPurchases)

	sched, err := services.StartMaintenanceScheduler(questionRepo, game, clock)
	if err != nil {
		logger.Fatal("failed to start scheduler: ", err)
	}

	if rdb != nil {
		go workers.NewLeaderboardSyncWorker(board, clock, leaderboardSyncInterval, 100).Run(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:   "GOAT Rush",
		BodyLimit: 4 * 1024 * 1024,
	})
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOriginsList(), ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.WalletHeader + ", " + middleware.ChainHeader,
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimitMax,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if w := c.Get(middleware.WalletHeader); w != "" {
				return "wallet:" + strings.ToLower(w)
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	handlers.SetupWalletRoutes(app, wallets, claims)
	handlers.SetupGameRoutes(app, game)
	handlers.SetupLeaderboardRoutes(app, board)
	handlers.SetupPurchaseRoutes(app, purchases)
	handlers.SetupAdminRoutes(app, importer, cfg.Admin.Token)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Infof("✅ Server running on %s", addr)
		if err := app.Listen(addr); err != nil {
			logger.Error("server error: ", err)
			stop()
		}
	}()
	logger.Infof("✅ CORS configured for origins: %s", cfg.Server.AllowedOrigins)
	if cfg.Game.AllowSimulatedPurchases {
		logger.Warn("⚠️  Simulated purchases are enabled")
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown: ", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Error("scheduler shutdown: ", err)
	}
	game.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.GameHistory{},
		&models.Purchase{},
		&models.Claim{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := repository.EnsurePublicView(db); err != nil {
		return nil, fmt.Errorf("failed to create public question view: %w", err)
	}
	return db, nil
}

// openRedis returns nil when Redis is not configured or unreachable; the
// leaderboard then reads straight from Postgres.
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("⚠️  REDIS_ADDR not set, leaderboard cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warnf("⚠️  Redis unreachable at %s, leaderboard cache disabled: %v", cfg.Addr, err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// openArchiver returns nil (archiving off) unless an R2 bucket is configured.
func openArchiver(ctx context.Context, cfg config.R2Config) services.Archiver {
	if cfg.Bucket == "" {
		return nil
	}
	archiver, err := utils.NewR2Archiver(ctx, utils.R2Options{
		AccountID:       cfg.AccountID,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
		Bucket:          cfg.Bucket,
		CDNBaseURL:      cfg.CDNBaseURL,
	})
	if err != nil {
		logger.Warnf("⚠️  failed to initialize R2 client, uploads will not be archived: %v", err)
		return nil
	}
	return archiver
}
