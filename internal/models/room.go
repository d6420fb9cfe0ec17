package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoomTypeDirect = "direct"
	RoomTypeGroup  = "group"
)

type Room struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name       string     `gorm:"not null"`
	Type       string     `gorm:"not null;check:type IN ('direct','group')"`
	ProjectID  *uuid.UUID `gorm:"type:uuid;index"`
	MaxMembers int        `gorm:"default:20"`
	CreatedBy  uuid.UUID  `gorm:"type:uuid"`
	CreatedAt  time.Time

	// Связи
	Project  *Project  `gorm:"foreignKey:ProjectID"`
	Members  []User    `gorm:"many2many:room_members"`
	Messages []Message `gorm:"foreignKey:RoomID"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Room) HasMember(userID uuid.UUID) bool {
	for _, m := range r.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
