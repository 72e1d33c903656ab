package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/internal/realtime"
	"lawdesk_backend/internal/repositories"
	repoChat "lawdesk_backend/internal/repositories/chat"
	serviceschat "lawdesk_backend/internal/services/chat"
	"lawdesk_backend/pkg/apperrors"
)

type noPresence struct{}

func (noPresence) IsOnline(string, string) bool { return false }

func newTestCaseService(t *testing.T) (*CaseService, *serviceschat.ChatService, *capturePusher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	pusher := &capturePusher{}

	notificationService := NewNotificationService(
		db,
		repositories.NewNotificationRepository(db),
		repositories.NewUserRepository(db),
		pusher,
	)
	chatService := serviceschat.NewChatService(
		db,
		repoChat.NewRoomRepository(db),
		repoChat.NewMessageRepository(db),
		repoChat.NewMessageStatusRepository(db),
		pusher,
		noPresence{},
		notificationService,
	)
	caseService := NewCaseService(db, repositories.NewCaseRepository(db), chatService, notificationService)
	return caseService, chatService, pusher, db
}

func newPendingCase(t *testing.T, s *CaseService, db *gorm.DB) (*models.Case, *models.User, *models.User) {
	t.Helper()
	client := createUser(t, db, "client", models.UserRoleClient)
	lawyer := createUser(t, db, "lawyer", models.UserRoleLawyer)
	c, err := s.Create(client.ID, lawyer.ID, "Contract dispute", "Breach of delivery terms")
	require.NoError(t, err)
	return c, client, lawyer
}

func TestCreateCase(t *testing.T) {
	service, _, _, _ := newTestCaseService(t)

	_, err := service.Create("", "l", "title", "")
	assert.Error(t, err)
	_, err = service.Create("c", "l", "   ", "")
	assert.Error(t, err)
}

func TestApproveOpensRoomAndNotifiesClient(t *testing.T) {
	service, chatService, pusher, db := newTestCaseService(t)
	c, client, lawyer := newPendingCase(t, service, db)

	approved, err := service.Approve(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusApproved, approved.Status)

	// The room exists with the case's fixed participants.
	var room modelChat.ChatRoom
	require.NoError(t, db.First(&room, "case_id = ?", c.ID).Error)
	assert.Equal(t, client.ID, room.ClientID)
	assert.Equal(t, lawyer.ID, room.LawyerID)

	// The client got a durable notification referencing the case.
	var rows []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", client.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CaseID)
	assert.Equal(t, c.ID, *rows[0].CaseID)
	require.NotNil(t, rows[0].SenderID)
	assert.Equal(t, lawyer.ID, *rows[0].SenderID)

	assert.Len(t, pusher.byEvent(realtime.EventNotificationCreated), 1)

	// Duplicate approval converges on the same room.
	_, err = service.Approve(c.ID)
	require.NoError(t, err)
	var roomCount int64
	require.NoError(t, db.Model(&modelChat.ChatRoom{}).Count(&roomCount).Error)
	assert.EqualValues(t, 1, roomCount)

	// The room is immediately usable.
	_, err = chatService.SendMessage(room.ID, client.ID, modelChat.MessageTypeText, "thank you")
	require.NoError(t, err)
}

func TestApproveUnknownCase(t *testing.T) {
	service, _, _, _ := newTestCaseService(t)
	_, err := service.Approve(uuid.NewString())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestAddTrackingUpdate(t *testing.T) {
	service, _, _, db := newTestCaseService(t)
	c, client, lawyer := newPendingCase(t, service, db)

	// Only the assigned lawyer may post updates.
	_, err := service.AddTrackingUpdate(c.ID, client.ID, "sneaky self-update")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	_, err = service.AddTrackingUpdate(c.ID, lawyer.ID, "   ")
	assert.Error(t, err)

	update, err := service.AddTrackingUpdate(c.ID, lawyer.ID, "Filed the motion today")
	require.NoError(t, err)
	assert.Equal(t, c.ID, update.CaseID)

	// The client is notified about the update.
	var rows []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", client.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
}

func TestDeleteCaseCascades(t *testing.T) {
	service, chatService, _, db := newTestCaseService(t)
	c, client, _ := newPendingCase(t, service, db)

	_, err := service.Approve(c.ID)
	require.NoError(t, err)

	var room modelChat.ChatRoom
	require.NoError(t, db.First(&room, "case_id = ?", c.ID).Error)
	_, err = chatService.SendMessage(room.ID, client.ID, modelChat.MessageTypeText, "hello")
	require.NoError(t, err)

	require.NoError(t, service.Delete(c.ID))

	for _, model := range []any{
		&models.Case{},
		&models.CaseUpdate{},
		&modelChat.ChatRoom{},
		&modelChat.Message{},
		&modelChat.MessageStatus{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows should be gone", model)
	}

	var caseScoped int64
	require.NoError(t, db.Model(&models.Notification{}).Where("case_id = ?", c.ID).Count(&caseScoped).Error)
	assert.Zero(t, caseScoped)

	// Deleting again reports not found.
	err = service.Delete(c.ID)
	require.Error(t, err)
}
