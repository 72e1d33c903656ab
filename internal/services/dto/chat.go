package dto

import (
	"time"

	modelChat "lawdesk_backend/internal/models/chat"
)

type SendMessageRequest struct {
	Type    string `json:"type" validate:"omitempty,oneof=text file image audio"`
	Content string `json:"content" validate:"required,max=10000"`
}

// MessageResponse is the wire form of a message, both in REST replies and
// in the new-message push payload.
type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessageResponse(m *modelChat.Message) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Type:      string(m.Type),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// RoomSummary annotates a room for the UI's room list: unread count is
// derived from stored status rows, online flags from the presence
// tracker.
type RoomSummary struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	ClientID    string    `json:"client_id"`
	LawyerID    string    `json:"lawyer_id"`
	UnreadCount int64     `json:"unread_count"`
	PeerOnline  bool      `json:"peer_online"`
	UpdatedAt   time.Time `json:"updated_at"`
}
