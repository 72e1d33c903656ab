package chat

import (
	"strings"

	"gorm.io/gorm"

	"lawdesk_backend/internal/logger"
	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/internal/realtime"
	repoChat "lawdesk_backend/internal/repositories/chat"
	"lawdesk_backend/internal/services/dto"
	"lawdesk_backend/pkg/apperrors"
)

// Pusher schedules a best-effort real-time push. Satisfied by
// realtime.Dispatcher; request paths never await delivery.
type Pusher interface {
	Enqueue(channel, event string, payload any)
}

// PresenceReader answers online checks for the room list. Satisfied by
// realtime.Tracker.
type PresenceReader interface {
	IsOnline(roomID, userID string) bool
}

// Notifier records a durable notification for a recipient who is away
// from the room when a message lands. Satisfied by
// services.NotificationService.
type Notifier interface {
	NotifyNewMessage(recipientID, preview, caseID, senderID string) error
}

// ChatService is the room registry and message store. It exclusively owns
// Message and MessageStatus rows; every mutation goes through here.
type ChatService struct {
	db       *gorm.DB
	rooms    *repoChat.RoomRepository
	messages *repoChat.MessageRepository
	statuses *repoChat.MessageStatusRepository
	pushes   Pusher
	presence PresenceReader
	notifier Notifier
}

func NewChatService(
	db *gorm.DB,
	rooms *repoChat.RoomRepository,
	messages *repoChat.MessageRepository,
	statuses *repoChat.MessageStatusRepository,
	pushes Pusher,
	presence PresenceReader,
	notifier Notifier,
) *ChatService {
	return &ChatService{
		db:       db,
		rooms:    rooms,
		messages: messages,
		statuses: statuses,
		pushes:   pushes,
		presence: presence,
		notifier: notifier,
	}
}

// GetOrCreateRoom opens the room for an approved case. Idempotent under
// concurrent retries: the room is keyed by its unique case_id and the
// participants are fixed for its lifetime.
func (s *ChatService) GetOrCreateRoom(caseID, clientID, lawyerID string) (*modelChat.ChatRoom, error) {
	if caseID == "" || clientID == "" || lawyerID == "" {
		return nil, apperrors.NewValidationError("case and both participants are required")
	}
	return s.rooms.GetOrCreate(caseID, clientID, lawyerID)
}

// Room returns the room or a NotFoundError.
func (s *ChatService) Room(roomID string) (*modelChat.ChatRoom, error) {
	return s.rooms.FindByID(roomID)
}

// SendMessage persists the message and its per-recipient status rows in
// one transaction, then schedules the new-message push. The push is
// fire-and-forget: the HTTP response never waits on delivery.
func (s *ChatService) SendMessage(roomID, senderID string, msgType modelChat.MessageType, content string) (*modelChat.Message, error) {
	room, err := s.rooms.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(senderID) {
		return nil, apperrors.NewAuthorizationError("sender is not a participant of this room")
	}

	if msgType == "" {
		msgType = modelChat.MessageTypeText
	}
	if !modelChat.ValidMessageType(msgType) {
		return nil, apperrors.NewValidationError("unknown message type: " + string(msgType))
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("message content must not be empty")
	}

	message := &modelChat.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Type:     msgType,
		Content:  content,
	}
	recipient := room.OtherParticipant(senderID)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.messages.Create(tx, message); err != nil {
			return err
		}
		status := modelChat.MessageStatus{
			MessageID:   message.ID,
			RecipientID: recipient,
		}
		if err := s.statuses.CreateMany(tx, []modelChat.MessageStatus{status}); err != nil {
			return err
		}
		return s.rooms.Touch(tx, roomID)
	})
	if err != nil {
		return nil, err
	}

	s.pushes.Enqueue(realtime.PrivateRoomChannel(roomID), realtime.EventNewMessage, dto.NewMessageResponse(message))

	// A recipient watching the room sees the message live; anyone else
	// gets a durable preview notification instead. Best effort: the
	// message itself is already committed.
	if s.notifier != nil && !s.presence.IsOnline(roomID, recipient) {
		if err := s.notifier.NotifyNewMessage(recipient, messagePreview(content), room.CaseID, senderID); err != nil {
			logger.Warn("message notification failed", "room_id", roomID, "recipient_id", recipient, "error", err.Error())
		}
	}
	return message, nil
}

const previewRunes = 120

// messagePreview truncates the content for the notification feed without
// splitting a multibyte rune.
func messagePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes]) + "..."
}

// ListMessages returns the room's messages in store order. As a side
// effect the requester's own status rows are marked read; repeating the
// call changes nothing. Two callers always observe the same order.
func (s *ChatService) ListMessages(roomID, requesterID string) ([]modelChat.Message, error) {
	room, err := s.rooms.FindByID(roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsParticipant(requesterID) {
		return nil, apperrors.NewAuthorizationError("requester is not a participant of this room")
	}

	messages, err := s.messages.ListByRoom(roomID)
	if err != nil {
		return nil, err
	}

	if err := s.statuses.MarkRoomRead(roomID, requesterID); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessageDelivered records a best-effort delivery receipt when a push
// reaches one of the recipient's live connections.
func (s *ChatService) MarkMessageDelivered(messageID, recipientID string) error {
	return s.statuses.MarkDelivered(messageID, recipientID)
}

// ListRooms builds the UI room list: unread counts recomputed from status
// rows, peer online flags read from the presence tracker.
func (s *ChatService) ListRooms(userID string) ([]dto.RoomSummary, error) {
	rooms, err := s.rooms.FindAllByUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.RoomSummary, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		unread, err := s.statuses.CountUnread(room.ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, dto.RoomSummary{
			ID:          room.ID,
			CaseID:      room.CaseID,
			ClientID:    room.ClientID,
			LawyerID:    room.LawyerID,
			UnreadCount: unread,
			PeerOnline:  s.presence.IsOnline(room.ID, room.OtherParticipant(userID)),
			UpdatedAt:   room.UpdatedAt,
		})
	}
	return summaries, nil
}

// UnreadCount recomputes the requester's unread message count for one room.
func (s *ChatService) UnreadCount(roomID, userID string) (int64, error) {
	return s.statuses.CountUnread(roomID, userID)
}

// DeleteRoomData removes the room, its messages, and their status rows
// inside the caller's case-deletion transaction.
func (s *ChatService) DeleteRoomData(tx *gorm.DB, caseID string) error {
	room, err := s.rooms.FindByCaseID(tx, caseID)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.CodeNotFound {
			return nil // case never reached approval
		}
		return err
	}

	if err := s.statuses.DeleteByRoom(tx, room.ID); err != nil {
		return err
	}
	if err := s.messages.DeleteByRoom(tx, room.ID); err != nil {
		return err
	}
	return s.rooms.DeleteByCase(tx, caseID)
}
