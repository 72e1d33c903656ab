package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the authoritative record for everything pushed to a
// user's private channel. The real-time push is best effort; this row is
// what unread counts and list fetches are computed from.
type Notification struct {
	BaseModel
	RecipientID string         `gorm:"type:uuid;not null;index;check:recipient_id <> ''" json:"recipient_id"`
	SenderID    *string        `gorm:"type:uuid" json:"sender_id,omitempty"`
	CaseID      *string        `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Message     string         `gorm:"not null" json:"message"`
	Data        datatypes.JSON `json:"data,omitempty"`
	Read        bool           `gorm:"not null;default:false;index" json:"read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
}
