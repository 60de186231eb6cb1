package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"luckyspin/config"
	"luckyspin/handlers"
	"luckyspin/logging"
	"luckyspin/middleware"
	"luckyspin/models"
	"luckyspin/services"
	"luckyspin/utils"
	"luckyspin/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	cfg := config.Load()

	logger, err := logging.New(cfg.LogProduction)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := services.NewSettingsService(db, cfg.Rules, logger)
	if err := settings.Seed(ctx); err != nil {
		logger.Fatal("failed to seed settings", zap.Error(err))
	}
	if err := settings.Refresh(ctx); err != nil {
		logger.Fatal("failed to load settings", zap.Error(err))
	}

	var notifier services.Notifier = services.NopNotifier{}
	if cfg.TelegramNotify {
		tg, err := services.NewTelegramNotifier(cfg.BotToken, logger)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	ledger := services.NewLedger(db, settings, logger, services.LedgerOptions{
		TxTimeout:   cfg.LedgerTxTimeout,
		LockTimeout: cfg.LedgerLockTimeout,
		MaxAttempts: cfg.LedgerMaxAttempts,
		Notifier:    notifier,
	})

	var gateway services.PaymentGateway = &services.MockGateway{}
	if cfg.PaymentGateway == "http" {
		if cfg.PaymentAPIURL == "" {
			logger.Fatal("PAYMENT_API_URL is required when PAYMENT_GATEWAY=http")
		}
		gateway = services.NewHTTPGateway(cfg.PaymentAPIURL, cfg.PaymentAPIKey)
	}

	svc := &handlers.Services{
		Auth:        services.NewSessionAuthenticator(cfg.BotToken, cfg.SessionMaxAge),
		Accounts:    services.NewAccountService(ledger),
		Games:       services.NewGameService(ledger, services.NewRewardGenerator(nil)),
		Promos:      services.NewPromoService(ledger),
		Ads:         services.NewAdService(ledger),
		Tasks:       services.NewTaskService(ledger),
		Withdrawals: services.NewWithdrawalService(ledger, gateway),
		Admin:       services.NewAdminService(ledger),
		Leaderboard: services.NewLeaderboardService(db),
		Settings:    settings,
	}

	var archiver *services.GameLogArchiver
	if cfg.ArchiveEnabled() {
		store, err := utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		archiver = services.NewGameLogArchiver(db, store, logger)
	}

	sched, err := services.StartScheduler(services.Jobs{
		Settings: settings,
		Ads:      svc.Ads,
		Archiver: archiver,
		Log:      logger,
	})
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	go workers.PollSettlements(ctx, svc.Withdrawals, cfg.SettlementInterval, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Accept-Language, " + middleware.SessionPayloadHeader + ", " + middleware.AdminIDHeader,
		MaxAge:       86400,
	}))
	app.Use(middleware.RequestMetrics())

	handlers.SetupPublicRoutes(app, svc)
	handlers.SetupSessionRoutes(app, svc, logger)
	handlers.SetupAdminRoutes(app, svc, cfg.AdminServiceToken, logger)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	logger.Info("server running",
		zap.String("port", cfg.Port),
		zap.String("payment_gateway", cfg.PaymentGateway),
		zap.Bool("archive", archiver != nil),
		zap.Strings("cors_origins", cfg.AllowedOrigins))

	<-ctx.Done()
	logger.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := sched.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
}
