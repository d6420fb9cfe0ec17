package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateRoom(room *models.Room) error {
	return d.db.Create(room).Error
}

func (d *Database) GetRoom(id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := d.db.Preload("Members").Preload("Project").First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetUserRooms комнаты пользователя вместе с участниками и проектом
func (d *Database) GetUserRooms(userID uuid.UUID) ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.
		Joins("JOIN room_members rm ON rm.room_id = rooms.id").
		Where("rm.user_id = ?", userID).
		Preload("Members").
		Preload("Project").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// IsMember проверяет участие без загрузки всей комнаты
func (d *Database) IsMember(userID, roomID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.Table("room_members").
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (d *Database) RoomMemberIDs(roomID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.Table("room_members").
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (d *Database) AddUserToRoom(userID, roomID uuid.UUID) error {
	var user models.User
	var room models.Room

	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if err := d.db.First(&room, "id = ?", roomID).Error; err != nil {
		return err
	}

	return d.db.Model(&room).Association("Members").Append(&user)
}

func (d *Database) RemoveUserFromRoom(userID, roomID uuid.UUID) error {
	var user models.User
	var room models.Room

	if err := d.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	if err := d.db.First(&room, "id = ?", roomID).Error; err != nil {
		return err
	}

	return d.db.Model(&room).Association("Members").Delete(&user)
}

func (d *Database) GetOrCreateDirectRoom(user1ID, user2ID uuid.UUID) (*models.Room, error) {
	var room models.Room

	// Ищем существующую direct комнату
	err := d.db.
		Joins("JOIN room_members rm1 ON rm1.room_id = rooms.id").
		Joins("JOIN room_members rm2 ON rm2.room_id = rooms.id").
		Where("rooms.type = ? AND rm1.user_id = ? AND rm2.user_id = ?", models.RoomTypeDirect, user1ID, user2ID).
		First(&room).Error

	if err == nil {
		return d.GetRoom(room.ID)
	}

	if !IsNotFound(err) {
		return nil, err
	}

	var created models.Room
	err = d.db.Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Find(&users, "id IN ?", []uuid.UUID{user1ID, user2ID}).Error; err != nil {
			return err
		}
		if len(users) != 2 {
			return ErrNotFound
		}

		created = models.Room{
			Name:      "Direct",
			Type:      models.RoomTypeDirect,
			CreatedBy: user1ID,
			CreatedAt: time.Now(),
			Members:   users,
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}

	return d.GetRoom(created.ID)
}

func (d *Database) UpdateRoom(room *models.Room) error {
	return d.db.Omit("Members", "Project").Save(room).Error
}

func (d *Database) DeleteRoom(id uuid.UUID) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Message{}, "room_id = ?", id).Error; err != nil {
			return err
		}

		var room models.Room
		if err := tx.First(&room, "id = ?", id).Error; err != nil {
			return err
		}

		if err := tx.Model(&room).Association("Members").Clear(); err != nil {
			return err
		}

		return tx.Delete(&room).Error
	})
}
