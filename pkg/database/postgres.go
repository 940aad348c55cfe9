package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Максимальное число открытых соединений
	sqlDB.SetMaxOpenConns(25)

	// Максимальное число простаивающих соединений
	sqlDB.SetMaxIdleConns(10)

	// Максимальное время жизни соединения
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// MigrateDB applies the engine's schema via gorm AutoMigrate. No SQL
// migration files ship with this engine (there is no schema history to
// version yet), so this replaces the teacher's golang-migrate-driven
// MigrateDB rather than shipping an unwired dependency.
func MigrateDB(db *gorm.DB, models ...interface{}) error {
	log.Println("Применение схемы базы данных (AutoMigrate)...")
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate schema: %w", err)
	}
	log.Println("Схема базы данных применена.")
	return nil
}

// GetSQLDB возвращает базовый *sql.DB из *gorm.DB
func GetSQLDB(gormDB *gorm.DB) (*sql.DB, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB, nil
}
