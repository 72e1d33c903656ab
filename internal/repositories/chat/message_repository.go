package chat

import (
	"errors"

	"gorm.io/gorm"

	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/pkg/apperrors"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) Create(tx *gorm.DB, message *modelChat.Message) error {
	return tx.Create(message).Error
}

func (r *MessageRepository) FindByID(messageID string) (*modelChat.Message, error) {
	var message modelChat.Message
	err := r.DB.First(&message, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("chat", "message not found")
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByRoom returns the room's messages in their authoritative order:
// ascending (created_at, id), assigned by the store at persistence time.
func (r *MessageRepository) ListByRoom(roomID string) ([]modelChat.Message, error) {
	var messages []modelChat.Message
	err := r.DB.
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// DeleteByRoom removes all messages inside a case-deletion transaction.
func (r *MessageRepository) DeleteByRoom(tx *gorm.DB, roomID string) error {
	return tx.Where("room_id = ?", roomID).Delete(&modelChat.Message{}).Error
}
