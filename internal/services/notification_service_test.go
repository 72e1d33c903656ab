package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/repositories"
	"lawdesk_backend/internal/services/dto"
	"lawdesk_backend/pkg/apperrors"
)

func newTestNotificationService(t *testing.T) (*NotificationService, *capturePusher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	pusher := &capturePusher{}
	service := NewNotificationService(
		db,
		repositories.NewNotificationRepository(db),
		repositories.NewUserRepository(db),
		pusher,
	)
	return service, pusher, db
}

func TestNotifyPersistsRowsAndSchedulesPushes(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)
	b := createUser(t, db, "bob", models.UserRoleLawyer)

	caseID := uuid.NewString()
	err := service.Notify([]string{a.ID, b.ID}, "case approved", NotifyOptions{CaseID: &caseID})
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.False(t, row.Read)
		require.NotNil(t, row.CaseID)
		assert.Equal(t, caseID, *row.CaseID)
	}

	// One created push and one count push per recipient, each on the
	// recipient's own channel.
	created := pusher.byEvent(realtime.EventNotificationCreated)
	require.Len(t, created, 2)
	counts := pusher.byEvent(realtime.EventNotificationCount)
	require.Len(t, counts, 2)
	for _, rec := range counts {
		payload, ok := rec.Payload.(dto.UnreadCountPayload)
		require.True(t, ok)
		assert.EqualValues(t, 1, payload.UnreadCount)
	}
}

func TestNotifyRejectsEmptyMessage(t *testing.T) {
	service, _, _ := newTestNotificationService(t)
	assert.Error(t, service.Notify([]string{"u1"}, "   ", NotifyOptions{}))
}

func TestNotifyEventOverride(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)

	err := service.Notify([]string{a.ID}, "you have a new message", NotifyOptions{Event: realtime.EventNotificationNew})
	require.NoError(t, err)

	assert.Len(t, pusher.byEvent(realtime.EventNotificationNew), 1)
	assert.Empty(t, pusher.byEvent(realtime.EventNotificationCreated))
}

func TestNotifyNewMessage(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)
	caseID := uuid.NewString()

	require.NoError(t, service.NotifyNewMessage(a.ID, "see you at the hearing", caseID, "lawyer-1"))

	var row models.Notification
	require.NoError(t, db.First(&row, "recipient_id = ?", a.ID).Error)
	assert.Equal(t, "see you at the hearing", row.Message)
	require.NotNil(t, row.CaseID)
	assert.Equal(t, caseID, *row.CaseID)
	require.NotNil(t, row.SenderID)
	assert.Equal(t, "lawyer-1", *row.SenderID)

	assert.Len(t, pusher.byEvent(realtime.EventNotificationNew), 1)
	assert.Empty(t, pusher.byEvent(realtime.EventNotificationCreated))
	assert.Len(t, pusher.byEvent(realtime.EventNotificationCount), 1)
}

func TestUnreadCountDerivedFromRowsNotPushes(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)

	require.NoError(t, service.Notify([]string{a.ID}, "one", NotifyOptions{}))
	require.NoError(t, service.Notify([]string{a.ID}, "two", NotifyOptions{}))

	// Throw every scheduled push away; the count must not care.
	pusher.reset()

	count, err := service.UnreadCount(a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMarkRead(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)
	b := createUser(t, db, "bob", models.UserRoleLawyer)

	require.NoError(t, service.Notify([]string{a.ID}, "hello", NotifyOptions{}))
	var row models.Notification
	require.NoError(t, db.First(&row, "recipient_id = ?", a.ID).Error)
	pusher.reset()

	// Another user cannot flip it.
	err := service.MarkRead(row.ID, b.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	// The owner can, and gets a fresh count push.
	require.NoError(t, service.MarkRead(row.ID, a.ID))
	require.NoError(t, db.First(&row, "id = ?", row.ID).Error)
	assert.True(t, row.Read)
	require.NotNil(t, row.ReadAt)
	firstReadAt := *row.ReadAt

	counts := pusher.byEvent(realtime.EventNotificationCount)
	require.Len(t, counts, 1)
	assert.EqualValues(t, 0, counts[0].Payload.(dto.UnreadCountPayload).UnreadCount)

	// Re-marking keeps the original read timestamp.
	require.NoError(t, service.MarkRead(row.ID, a.ID))
	require.NoError(t, db.First(&row, "id = ?", row.ID).Error)
	assert.Equal(t, firstReadAt.Unix(), row.ReadAt.Unix())

	// Unknown notification is a 404.
	err = service.MarkRead(uuid.NewString(), a.ID)
	require.Error(t, err)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestMarkAllRead(t *testing.T) {
	service, _, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)
	b := createUser(t, db, "bob", models.UserRoleLawyer)

	require.NoError(t, service.Notify([]string{a.ID}, "one", NotifyOptions{}))
	require.NoError(t, service.Notify([]string{a.ID}, "two", NotifyOptions{}))
	require.NoError(t, service.Notify([]string{b.ID}, "three", NotifyOptions{}))

	require.NoError(t, service.MarkAllRead(a.ID))

	count, err := service.UnreadCount(a.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Other users' rows are untouched.
	count, err = service.UnreadCount(b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestListNewestFirst(t *testing.T) {
	service, _, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, service.Notify([]string{a.ID}, msg, NotifyOptions{}))
	}

	page, err := service.List(a.ID, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "third", page.Notifications[0].Message)
	assert.Equal(t, "second", page.Notifications[1].Message)

	page, err = service.List(a.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "first", page.Notifications[0].Message)
}

func TestBroadcastTargetsRole(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	createUser(t, db, "client-a", models.UserRoleClient)
	createUser(t, db, "client-b", models.UserRoleClient)
	lawyer := createUser(t, db, "lawyer-a", models.UserRoleLawyer)
	createUserWithStatus(t, db, "lawyer-gone", models.UserRoleLawyer, models.UserStatusDisabled)

	count, err := service.Broadcast("lawyer", "new filing deadline rules", NotifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "disabled users are not recipients")

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, lawyer.ID, rows[0].RecipientID)
	assert.Len(t, pusher.byEvent(realtime.EventNotificationCreated), 1)

	// Role "all" reaches every active user.
	pusher.reset()
	count, err = service.Broadcast("all", "maintenance window tonight", NotifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, pusher.byEvent(realtime.EventNotificationCreated), 3)
}

func TestBroadcastUnknownRole(t *testing.T) {
	service, _, db := newTestNotificationService(t)
	createUser(t, db, "client-a", models.UserRoleClient)

	_, err := service.Broadcast("paralegal", "hello", NotifyOptions{})
	assert.Error(t, err)
	_, err = service.Broadcast("lawyer", "", NotifyOptions{})
	assert.Error(t, err)
}

// A single bad recipient must sink the whole batch: no partial fan-out.
func TestBroadcastAllOrNothing(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	for i := 0; i < 50; i++ {
		createUser(t, db, "lawyer", models.UserRoleLawyer)
	}
	// A corrupt directory row with an empty ID trips the recipient check
	// constraint mid-batch.
	require.NoError(t, db.Exec(
		"INSERT INTO users (id, created_at, updated_at, name, email, password_hash, role, status) VALUES ('', datetime('now'), datetime('now'), 'ghost', 'ghost@example.com', 'x', 'lawyer', 'active')",
	).Error)

	count, err := service.Broadcast("lawyer", "all hands", NotifyOptions{})
	require.Error(t, err)
	assert.Zero(t, count)

	var rows int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&rows).Error)
	assert.Zero(t, rows, "failed broadcast persists nothing")
	assert.Empty(t, pusher.byEvent(realtime.EventNotificationCreated), "failed broadcast pushes nothing")
}

// Schema drift on the optional case reference: the batch is retried once
// with the optional references cleared, and when that cannot satisfy the
// constraint either, the caller gets exactly one error and zero rows.
func TestBroadcastDriftedSchemaFailsAtomically(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	createUser(t, db, "lawyer-a", models.UserRoleLawyer)
	createUser(t, db, "lawyer-b", models.UserRoleLawyer)

	require.NoError(t, db.Exec("DROP TABLE notifications").Error)
	require.NoError(t, db.Exec(`CREATE TABLE notifications (
		id text PRIMARY KEY,
		created_at datetime,
		updated_at datetime,
		recipient_id text NOT NULL CHECK (recipient_id <> ''),
		sender_id text,
		case_id text NOT NULL,
		message text NOT NULL,
		data text,
		read numeric NOT NULL DEFAULT false,
		read_at datetime
	)`).Error)

	count, err := service.Broadcast("lawyer", "policy update", NotifyOptions{})
	require.Error(t, err)
	assert.Zero(t, count)
	assert.Contains(t, err.Error(), "no notifications persisted")

	var rows int64
	require.NoError(t, db.Table("notifications").Count(&rows).Error)
	assert.Zero(t, rows)
	assert.Empty(t, pusher.byEvent(realtime.EventNotificationCreated))
}

// A dangling case reference (the case was deleted between the admin
// composing the broadcast and submitting it) is repaired by clearing the
// optional reference and retrying once.
func TestBroadcastRepairsDanglingCaseReference(t *testing.T) {
	service, pusher, db := newTestNotificationService(t)
	createUser(t, db, "lawyer-a", models.UserRoleLawyer)
	createUser(t, db, "lawyer-b", models.UserRoleLawyer)

	// Emulate the production foreign key on notifications.case_id, which
	// the sqlite test schema does not carry.
	require.NoError(t, db.Exec(`CREATE TRIGGER notifications_case_fk
		BEFORE INSERT ON notifications
		WHEN NEW.case_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM cases WHERE id = NEW.case_id)
		BEGIN
			SELECT RAISE(ABORT, 'insert on notifications violates foreign key constraint on case_id');
		END`).Error)

	deletedCase := uuid.NewString()
	count, err := service.Broadcast("lawyer", "hearing rescheduled", NotifyOptions{CaseID: &deletedCase})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Nil(t, row.CaseID, "repaired batch drops the dangling reference")
		assert.Equal(t, "hearing rescheduled", row.Message)
	}
	assert.Len(t, pusher.byEvent(realtime.EventNotificationCreated), 2)
}

func TestRecoverableReferenceClassification(t *testing.T) {
	recoverable := []error{
		errors.New(`ERROR: null value in column "case_id" of relation "notifications" violates not-null constraint (SQLSTATE 23502)`),
		errors.New(`ERROR: insert or update on table "notifications" violates foreign key constraint "fk_notifications_case_id" (SQLSTATE 23503)`),
		errors.New("NOT NULL constraint failed: notifications.sender_id"),
	}
	for _, err := range recoverable {
		assert.True(t, isRecoverableReferenceError(err), "%v", err)
	}

	unrecoverable := []error{
		errors.New("CHECK constraint failed: recipient_id <> ''"),
		errors.New(`ERROR: null value in column "message" violates not-null constraint`),
		errors.New("connection refused"),
	}
	for _, err := range unrecoverable {
		assert.False(t, isRecoverableReferenceError(err), "%v", err)
	}
}

func TestClearOptionalReferences(t *testing.T) {
	caseID, senderID := uuid.NewString(), uuid.NewString()
	batch := []*models.Notification{
		{RecipientID: "u1", CaseID: &caseID, SenderID: &senderID, Message: "m"},
		{RecipientID: "u2", Message: "m"},
	}
	clearOptionalReferences(batch)
	for _, n := range batch {
		assert.Nil(t, n.CaseID)
		assert.Nil(t, n.SenderID)
		assert.NotEmpty(t, n.RecipientID)
		assert.NotEmpty(t, n.Message)
	}
}

func TestDeleteByCase(t *testing.T) {
	service, _, db := newTestNotificationService(t)
	a := createUser(t, db, "alice", models.UserRoleClient)

	caseID := uuid.NewString()
	require.NoError(t, service.Notify([]string{a.ID}, "case update", NotifyOptions{CaseID: &caseID}))
	require.NoError(t, service.Notify([]string{a.ID}, "general news", NotifyOptions{}))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return service.DeleteByCase(tx, caseID)
	}))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].CaseID)
}
