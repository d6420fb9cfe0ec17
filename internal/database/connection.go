package database

import (
	"errors"

	"github.com/thereayou/taskboard-chat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect открывает Postgres по DSN и применяет миграции
func (d *Database) Connect(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return d.Open(postgres.Open(dsn), &gorm.Config{})
}

// Open подключается через произвольный диалект (в тестах sqlite)
func (d *Database) Open(dialector gorm.Dialector, cfg *gorm.Config) error {
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Room{},
		&models.Message{},
		&models.Task{},
	)
	if err != nil {
		return err
	}

	d.db = db

	return nil
}
