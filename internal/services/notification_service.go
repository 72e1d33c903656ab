package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lawdesk_backend/internal/logger"
	"lawdesk_backend/internal/models"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/repositories"
	"lawdesk_backend/internal/services/dto"
	"lawdesk_backend/pkg/apperrors"
)

// Pusher schedules a best-effort real-time push. Satisfied by
// realtime.Dispatcher.
type Pusher interface {
	Enqueue(channel, event string, payload any)
}

// NotifyOptions carries the optional references a notification may hold.
type NotifyOptions struct {
	CaseID   *string
	SenderID *string
	Data     map[string]interface{}
	// Event defaults to notification-created; message-driven paths use
	// notification-new.
	Event string
}

// NotificationService persists notification rows and fans them out to
// per-user channels. The row is authoritative; the push is best effort
// and a failed push is logged, never retried inline, never rolled back.
type NotificationService struct {
	db            *gorm.DB
	notifications *repositories.NotificationRepository
	users         *repositories.UserRepository
	pushes        Pusher
}

func NewNotificationService(
	db *gorm.DB,
	notifications *repositories.NotificationRepository,
	users *repositories.UserRepository,
	pushes Pusher,
) *NotificationService {
	return &NotificationService{
		db:            db,
		notifications: notifications,
		users:         users,
		pushes:        pushes,
	}
}

// Notify persists one row per recipient and schedules the pushes. Each
// recipient's durable write stands alone: a failure fails the call for
// that recipient only, and recipients are not ordered relative to each
// other.
func (s *NotificationService) Notify(recipientIDs []string, message string, opts NotifyOptions) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.NewValidationError("notification message must not be empty")
	}

	var errs []error
	for _, recipientID := range recipientIDs {
		notification, err := s.buildNotification(recipientID, message, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipientID, err))
			continue
		}
		if err := s.notifications.Create(notification); err != nil {
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipientID, err))
			continue
		}
		s.pushCreated(notification, opts.Event)
	}
	return errors.Join(errs...)
}

// NotifyNewMessage records a message preview for a chat recipient who is
// away from the room. Pushed as notification-new so clients route it to
// the message tray rather than the general feed.
func (s *NotificationService) NotifyNewMessage(recipientID, preview, caseID, senderID string) error {
	opts := NotifyOptions{Event: realtime.EventNotificationNew, SenderID: &senderID}
	if caseID != "" {
		opts.CaseID = &caseID
	}
	return s.Notify([]string{recipientID}, preview, opts)
}

// Broadcast persists a role-filtered announcement in one all-or-nothing
// batch. A recoverable constraint violation on the optional references
// triggers one logged, compensating retry with those references cleared;
// a second failure fails the whole batch with a single error. Schema is
// never altered at request time.
func (s *NotificationService) Broadcast(role, message string, opts NotifyOptions) (int, error) {
	if strings.TrimSpace(message) == "" {
		return 0, apperrors.NewValidationError("broadcast message must not be empty")
	}

	recipientIDs, err := s.users.IDsByRole(role)
	if err != nil {
		return 0, err
	}
	if len(recipientIDs) == 0 {
		return 0, apperrors.NewValidationError("unknown recipient role: " + role)
	}

	batch := make([]*models.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		notification, err := s.buildNotification(recipientID, message, opts)
		if err != nil {
			return 0, err
		}
		batch = append(batch, notification)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.notifications.CreateBatch(tx, batch)
	})
	if err != nil && isRecoverableReferenceError(err) {
		logger.Warn("broadcast batch hit recoverable constraint, clearing optional references and retrying once",
			"role", role, "recipients", len(batch), "error", err.Error())
		clearOptionalReferences(batch)
		err = s.db.Transaction(func(tx *gorm.DB) error {
			return s.notifications.CreateBatch(tx, batch)
		})
	}
	if err != nil {
		return 0, fmt.Errorf("broadcast to role %q failed, no notifications persisted: %w", role, err)
	}

	for _, notification := range batch {
		s.pushCreated(notification, opts.Event)
	}
	return len(batch), nil
}

// MarkRead flips one of the caller's own notifications. Idempotent:
// re-marking is a no-op. A fresh count push follows either way.
func (s *NotificationService) MarkRead(notificationID, userID string) error {
	notification, err := s.notifications.FindByID(notificationID)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return apperrors.NewAuthorizationError("cannot mark another user's notification")
	}

	if err := s.notifications.MarkRead(notificationID); err != nil {
		return err
	}
	s.pushCount(userID)
	return nil
}

// MarkAllRead flips every unread notification the caller owns.
func (s *NotificationService) MarkAllRead(userID string) error {
	if err := s.notifications.MarkAllRead(userID); err != nil {
		return err
	}
	s.pushCount(userID)
	return nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(userID string, page, pageSize int) (*dto.NotificationListResponse, error) {
	offset := (page - 1) * pageSize
	notifications, total, err := s.notifications.ListByRecipient(userID, pageSize, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, dto.NewNotificationResponse(&notifications[i]))
	}
	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// UnreadCount recomputes the count from stored rows. It is correct even
// when every push failed, because it never trusts an accumulated delta.
func (s *NotificationService) UnreadCount(userID string) (int64, error) {
	return s.notifications.CountUnread(userID)
}

// DeleteByCase removes case-scoped notifications inside the caller's
// case-deletion transaction.
func (s *NotificationService) DeleteByCase(tx *gorm.DB, caseID string) error {
	return s.notifications.DeleteByCase(tx, caseID)
}

func (s *NotificationService) buildNotification(recipientID, message string, opts NotifyOptions) (*models.Notification, error) {
	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    opts.SenderID,
		CaseID:      opts.CaseID,
		Message:     message,
	}
	if opts.Data != nil {
		raw, err := json.Marshal(opts.Data)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		notification.Data = datatypes.JSON(raw)
	}
	return notification, nil
}

// pushCreated schedules the notification push and a freshly recomputed
// count push. Count errors are logged only: the stored rows remain the
// source of truth and clients reconcile on the next fetch.
func (s *NotificationService) pushCreated(notification *models.Notification, event string) {
	if event == "" {
		event = realtime.EventNotificationCreated
	}
	channel := realtime.UserNotificationsChannel(notification.RecipientID)
	s.pushes.Enqueue(channel, event, dto.NewNotificationResponse(notification))
	s.pushCount(notification.RecipientID)
}

func (s *NotificationService) pushCount(userID string) {
	count, err := s.notifications.CountUnread(userID)
	if err != nil {
		logger.Warn("unread count recompute failed", "user_id", userID, "error", err.Error())
		return
	}
	channel := realtime.UserNotificationsChannel(userID)
	s.pushes.Enqueue(channel, realtime.EventNotificationCount, dto.UnreadCountPayload{UnreadCount: count})
}

// isRecoverableReferenceError matches constraint violations on the
// optional case/sender references: a NOT NULL left over from schema
// drift, or a foreign key pointing at a concurrently deleted row. Both
// are repairable by clearing the optional references.
func isRecoverableReferenceError(err error) bool {
	msg := strings.ToLower(err.Error())
	constrained := strings.Contains(msg, "not-null constraint") ||
		strings.Contains(msg, "not null constraint") ||
		strings.Contains(msg, "foreign key constraint")
	if !constrained {
		return false
	}
	return strings.Contains(msg, "case_id") || strings.Contains(msg, "sender_id")
}

func clearOptionalReferences(batch []*models.Notification) {
	for _, notification := range batch {
		notification.CaseID = nil
		notification.SenderID = nil
	}
}
