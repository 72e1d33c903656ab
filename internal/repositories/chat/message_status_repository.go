package chat

import (
	"time"

	"gorm.io/gorm"

	modelChat "lawdesk_backend/internal/models/chat"
)

type MessageStatusRepository struct {
	DB *gorm.DB
}

func NewMessageStatusRepository(db *gorm.DB) *MessageStatusRepository {
	return &MessageStatusRepository{DB: db}
}

func (r *MessageStatusRepository) CreateMany(tx *gorm.DB, statuses []modelChat.MessageStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return tx.Create(&statuses).Error
}

// MarkRoomRead sets read_at on every unread row the recipient owns in the
// room. Already-read rows keep their original timestamp, so re-reading a
// room is idempotent.
func (r *MessageStatusRepository) MarkRoomRead(roomID, recipientID string) error {
	now := time.Now()
	return r.DB.Model(&modelChat.MessageStatus{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Where("message_id IN (?)", r.DB.Model(&modelChat.Message{}).Select("id").Where("room_id = ?", roomID)).
		Update("read_at", now).Error
}

// MarkDelivered records best-effort push delivery for one recipient.
func (r *MessageStatusRepository) MarkDelivered(messageID, recipientID string) error {
	now := time.Now()
	return r.DB.Model(&modelChat.MessageStatus{}).
		Where("message_id = ? AND recipient_id = ? AND delivered_at IS NULL", messageID, recipientID).
		Update("delivered_at", now).Error
}

// CountUnread derives the recipient's unread count for a room from the
// stored rows. Never cached, never incremented.
func (r *MessageStatusRepository) CountUnread(roomID, recipientID string) (int64, error) {
	var count int64
	err := r.DB.Model(&modelChat.MessageStatus{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Where("message_id IN (?)", r.DB.Model(&modelChat.Message{}).Select("id").Where("room_id = ?", roomID)).
		Count(&count).Error
	return count, err
}

// DeleteByRoom removes all status rows inside a case-deletion transaction.
func (r *MessageStatusRepository) DeleteByRoom(tx *gorm.DB, roomID string) error {
	return tx.
		Where("message_id IN (?)", tx.Model(&modelChat.Message{}).Select("id").Where("room_id = ?", roomID)).
		Delete(&modelChat.MessageStatus{}).Error
}
