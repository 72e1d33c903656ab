package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom is the durable channel for one case: exactly two fixed
// participants, created when the case is approved, deleted only by
// cascading case deletion.
type ChatRoom struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    string    `gorm:"type:uuid;uniqueIndex;not null" json:"case_id"`
	ClientID  string    `gorm:"type:uuid;not null;index" json:"client_id"`
	LawyerID  string    `gorm:"type:uuid;not null;index" json:"lawyer_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:RoomID" json:"-"`
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsParticipant reports whether userID may read and write this room.
func (r *ChatRoom) IsParticipant(userID string) bool {
	return userID == r.ClientID || userID == r.LawyerID
}

// OtherParticipant returns the participant opposite userID.
func (r *ChatRoom) OtherParticipant(userID string) string {
	if userID == r.ClientID {
		return r.LawyerID
	}
	return r.ClientID
}
