package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/alilals/ziraat-backend/database"
	"github.com/alilals/ziraat-backend/internal/config"
	"github.com/alilals/ziraat-backend/internal/handlers"
	"github.com/alilals/ziraat-backend/internal/jobs"
	"github.com/alilals/ziraat-backend/internal/routes"
	"github.com/alilals/ziraat-backend/internal/services"
	"github.com/alilals/ziraat-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			_ = godotenv.Load("environments/.env.development")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		_, _ = os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Initialize storage
	var (
		store       storage.BookingStore
		growerStore storage.GrowerStore
		db          *gorm.DB
		storageName string
	)
	if cfg.UseMemoryStore {
		log.Warn("Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
		growerStore = storage.NewMemoryGrowerStore()
		storageName = "In-Memory (Testing)"
	} else {
		db, err = database.Connect(cfg, log)
		if err != nil {
			log.Fatal("Database connection failed", zap.Error(err))
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal("Database migration failed", zap.Error(err))
		}
		log.Info("Database migrations completed")
		store = storage.NewDatabaseStore(db)
		growerStore = storage.NewDatabaseGrowerStore(db)
		storageName = "PostgreSQL Database"
	}

	redisClient, err := database.NewRedisConnection(cfg.RedisURL, log)
	if err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}

	registry := services.NewTemplateRegistry(services.DLTTemplates)
	sender, err := newSender(cfg, registry, log)
	if err != nil {
		log.Fatal("Failed to initialize SMS provider", zap.Error(err))
	}
	log.Info("SMS provider initialized", zap.String("provider", cfg.SMSProvider))

	// Initialize all services
	otpService := services.NewOTPService(
		storage.NewRedisOTPCache(redisClient.Client), sender, cfg.OTPSenderHeader, cfg.OTPTemplateID, log)
	templateService := services.NewTemplateService(registry, sender, log)
	bookingService := services.NewBookingService(store, log)
	sessions := services.NewBrowseSessionManager(store, cfg.BrowseSessionTTL, log)
	growerService := services.NewGrowerService(growerStore, log)

	sweeper := jobs.NewSessionSweeper(sessions, time.Minute, log)
	sweeper.Start()

	checks := map[string]handlers.Checker{
		"redis": redisClient.HealthCheck,
	}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	app := fiber.New(fiber.Config{
		AppName: "ZIRAAT Admin Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			} else {
				log.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + handlers.SessionHeader,
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Health:   handlers.NewHealthHandler(version, storageName, cfg.SMSProvider, sessions, checks),
		OTP:      handlers.NewOTPHandler(otpService, log),
		SMS:      handlers.NewSMSHandler(sender, registry, templateService, log),
		Bookings: handlers.NewBookingHandler(bookingService, sessions, log),
		Growers:  handlers.NewGrowerHandler(growerService, log),
	}, cfg.AdminAPIKey, log)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Gracefully shutting down...")
		sweeper.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("ZIRAAT backend starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("storage", storageName),
		zap.String("sms_provider", cfg.SMSProvider),
		zap.Int("dlt_headers", len(services.DLTTemplates)))

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("Server stopped", zap.Error(err))
	}

	redisClient.Close()
	if db != nil {
		if err := database.Close(db); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}
	log.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newSender(cfg *config.Config, registry *services.TemplateRegistry, log *zap.Logger) (services.SMSSender, error) {
	switch cfg.SMSProvider {
	case config.SMSProviderTwilio:
		sender, err := services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, registry, log)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.SMSProviderLog:
		return services.NewLogSender(log), nil
	default:
		return services.NewFast2SMSClient(cfg.Fast2SMSKey, cfg.Fast2SMSURL, log), nil
	}
}
