package models

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/teampoint/botcore/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	dbUrl := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.DatabaseName,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)
	if envDBURL := os.Getenv("DATABASE_URL"); envDBURL != "" {
		logrus.Warn("DATABASE_URL is set; overriding config values from TOML")
		dbUrl = envDBURL
	} else {
		logrus.Info("Using database config from TOML file")
	}
	logLevel := logger.Info
	if cfg.Server.Production {
		logLevel = logger.Silent
	}
	var err error
	maxRetries := cfg.Database.MaxTries
	if maxRetries < 1 {
		maxRetries = 1
	}
	for i := range maxRetries {
		DB, err = gorm.Open(postgres.Open(dbUrl), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logLevel),
		})
		if err == nil {
			break
		}
		logrus.Errorf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			logrus.Println("Retrying in 5 seconds...")
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		logrus.Fatalf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	}
	if err := Migrate(DB); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}
	logrus.Println("Database initialized successfully")
}

// Migrate brings any gorm connection up to the current schema. Init
// uses it against postgres; tests use it against in-memory sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Account{},
		&TransferRecord{},
		&PermanentBan{},
		&TempBan{},
		&Achievement{},
		&UserAchievement{},
		&AuditEntry{},
	)
}
