package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/taskboard-chat/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

func (d *Database) GetMessage(id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := d.db.Preload("User").First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (d *Database) UpdateMessage(message *models.Message) error {
	return d.db.Omit("User", "Room").Save(message).Error
}

func (d *Database) DeleteMessage(id uuid.UUID) error {
	return d.db.Delete(&models.Message{}, "id = ?", id).Error
}

// GetRoomMessages страница истории комнаты. Первая страница содержит самые
// свежие сообщения; внутри страницы порядок от старых к новым.
func (d *Database) GetRoomMessages(roomID uuid.UUID, page, limit int) ([]models.Message, bool, error) {
	if page < 1 {
		page = 1
	}

	var messages []models.Message

	// Берём на одно больше, чтобы понять, есть ли ещё страницы
	err := d.db.
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit + 1).
		Preload("User").
		Find(&messages).Error
	if err != nil {
		return nil, false, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, hasMore, nil
}

// GetLastMessage последнее сообщение комнаты или nil
func (d *Database) GetLastMessage(roomID uuid.UUID) (*models.Message, error) {
	var messages []models.Message
	err := d.db.
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(1).
		Find(&messages).Error
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return &messages[0], nil
}
