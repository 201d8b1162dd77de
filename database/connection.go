package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alilals/ziraat-backend/internal/config"
	"github.com/alilals/ziraat-backend/internal/models"
)

// Cloud Run mounts Cloud SQL sockets here
const socketDir = "/cloudsql"

// DSN builds the PostgreSQL connection string. DATABASE_URL wins; otherwise
// the Cloud SQL socket is used when an instance is configured, else TCP.
func DSN(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL
	}
	if cfg.InstanceConnectionName != "" {
		return fmt.Sprintf("host=%s/%s user=%s password=%s dbname=%s sslmode=disable",
			socketDir, cfg.InstanceConnectionName, cfg.DBUser, cfg.DBPass, cfg.DBName)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
}

// Connect opens the booking database
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch {
	case cfg.DatabaseURL != "":
		log.Info("Connecting to PostgreSQL via DATABASE_URL")
	case cfg.InstanceConnectionName != "":
		log.Info("Connecting to Cloud SQL via socket", zap.String("instance", cfg.InstanceConnectionName))
	default:
		log.Info("Connecting to PostgreSQL", zap.String("host", cfg.DBHost), zap.String("port", cfg.DBPort))
	}

	gormConfig := &gorm.Config{}
	if cfg.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connected")
	return db, nil
}

// Migrate creates or updates the booking and grower tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Booking{}, &models.Grower{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the pool behind db
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
