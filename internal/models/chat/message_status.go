package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus tracks per-recipient delivery and read state. One row per
// (message, recipient), recipient never the sender. read_at is set only by
// the recipient reading their own rows.
type MessageStatus struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_message_recipient" json:"message_id"`
	RecipientID string     `gorm:"type:uuid;not null;uniqueIndex:idx_message_recipient;index" json:"recipient_id"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

func (s *MessageStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
