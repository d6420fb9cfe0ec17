package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Project struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Task struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProjectID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title      string     `gorm:"not null"`
	AssigneeID *uuid.UUID `gorm:"type:uuid;index"`
	DueAt      *time.Time `gorm:"index"`
	Done       bool       `gorm:"default:false"`
	RemindedAt *time.Time
	CreatedAt  time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
