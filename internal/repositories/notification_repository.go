package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	"lawdesk_backend/pkg/apperrors"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.DB.Create(notification).Error
}

// CreateBatch inserts all rows inside tx. The caller wraps it in a
// transaction so a broadcast is all-or-nothing.
func (r *NotificationRepository) CreateBatch(tx *gorm.DB, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return tx.Create(&notifications).Error
}

func (r *NotificationRepository) FindByID(notificationID string) (*models.Notification, error) {
	var notification models.Notification
	err := r.DB.First(&notification, "id = ?", notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("notification", "notification not found")
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListByRecipient returns a page of the user's notifications, newest
// first, plus the total row count.
func (r *NotificationRepository) ListByRecipient(recipientID string, limit, offset int) ([]models.Notification, int64, error) {
	var total int64
	if err := r.DB.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := r.DB.
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, total, err
}

// MarkRead flips one row to read. Re-marking an already-read row matches
// zero rows, which keeps the call idempotent.
func (r *NotificationRepository) MarkRead(notificationID string) error {
	now := time.Now()
	return r.DB.Model(&models.Notification{}).
		Where("id = ? AND read = ?", notificationID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}

// MarkAllRead flips every unread row the user owns.
func (r *NotificationRepository) MarkAllRead(recipientID string) error {
	now := time.Now()
	return r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}

// CountUnread recomputes the unread count from stored rows. This is the
// only source of the count pushed to clients; there is no drift-prone
// running counter anywhere.
func (r *NotificationRepository) CountUnread(recipientID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// DeleteByCase removes case-scoped notifications inside a case-deletion
// transaction.
func (r *NotificationRepository) DeleteByCase(tx *gorm.DB, caseID string) error {
	return tx.Where("case_id = ?", caseID).Delete(&models.Notification{}).Error
}
