package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yoonbi/yoonbi-backend/internal/config"
	"github.com/yoonbi/yoonbi-backend/internal/models"
)

// Connect opens the PostgreSQL pool described by cfg
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.URL != "" {
		log.Println("Connecting to PostgreSQL via DATABASE_URL")
	} else {
		log.Printf("Connecting to PostgreSQL at %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("✅ Database connected successfully!")
	return db, nil
}

// Migrate creates or updates every table. CHECK constraints declared in the
// model tags are added by AutoMigrate when missing.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Position{},
		&models.Reservation{},
		&models.Payment{},
		&models.Evaluation{},
		&models.Report{},
	)
	if err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}

	return nil
}
