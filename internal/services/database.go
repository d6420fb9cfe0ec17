package services

import (
	"github.com/google/uuid"

	"github.com/thereayou/taskboard-chat/internal/models"
)

// DatabaseService часть слоя БД, нужная сервисам
type DatabaseService interface {
	GetUser(id uuid.UUID) (*models.User, error)
	IsMember(userID, roomID uuid.UUID) (bool, error)
	RoomMemberIDs(roomID uuid.UUID) ([]uuid.UUID, error)
	SaveMessage(message *models.Message) error
	GetMessage(id uuid.UUID) (*models.Message, error)
}

// Broadcaster доставка кадров подключённым клиентам
type Broadcaster interface {
	SendToUser(userID uuid.UUID, message []byte)
	SendToRoomExcept(roomID uuid.UUID, message []byte, excludeID uuid.UUID)
}
