package models

import (
	"fmt"

	"github.com/tchtranslate/portal/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig, logSQL bool) error {
	db, err := Open(cfg, logSQL)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the configured database without touching the global.
func Open(cfg *config.DatabaseConfig, logSQL bool) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	level := logger.Warn
	if logSQL {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate creates or updates every table the portal owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Tenant{},
		&Project{},
		&Document{},
		&Counter{},
		&CodeSequence{},
		&SystemLog{},
		&JobLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the rows the services expect to exist.
func SeedDefaultData() error {
	var count int64
	if err := DB.Model(&Counter{}).Where(&Counter{Key: CounterProjects}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	// Start the advisory counter from whatever is already stored.
	var projects int64
	if err := DB.Model(&Project{}).Count(&projects).Error; err != nil {
		return err
	}
	return DB.Create(&Counter{Key: CounterProjects, Value: projects}).Error
}
