package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeFile  MessageType = "file"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
)

// ValidMessageType reports whether t is one of the accepted message types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeImage, MessageTypeAudio:
		return true
	}
	return false
}

// Message is immutable once created. CreatedAt and ID are assigned at
// persistence time and define the total order within a room; client clocks
// are never consulted.
type Message struct {
	ID        string      `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID    string      `gorm:"type:uuid;not null;index" json:"room_id"`
	SenderID  string      `gorm:"type:uuid;not null;index" json:"sender_id"`
	Type      MessageType `gorm:"not null;default:'text'" json:"type"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time   `json:"created_at"`

	Statuses []MessageStatus `gorm:"foreignKey:MessageID" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
