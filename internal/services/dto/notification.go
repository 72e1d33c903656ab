package dto

import (
	"encoding/json"
	"time"

	"lawdesk_backend/internal/models"
)

type NotificationResponse struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipient_id"`
	SenderID    *string                `json:"sender_id,omitempty"`
	CaseID      *string                `json:"case_id,omitempty"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Read        bool                   `json:"read"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func NewNotificationResponse(n *models.Notification) *NotificationResponse {
	resp := &NotificationResponse{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		CaseID:      n.CaseID,
		Message:     n.Message,
		Read:        n.Read,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
	if len(n.Data) > 0 {
		var data map[string]interface{}
		if err := json.Unmarshal(n.Data, &data); err == nil {
			resp.Data = data
		}
	}
	return resp
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
}

// UnreadCountPayload is the notification-count push and REST payload.
type UnreadCountPayload struct {
	UnreadCount int64 `json:"unread_count"`
}

type BroadcastRequest struct {
	Role    string `json:"role" validate:"required,oneof=client lawyer all"`
	Message string `json:"message" validate:"required,max=2000"`
	CaseID  string `json:"case_id,omitempty"`
}
