package services

import (
	"strings"

	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	"lawdesk_backend/internal/repositories"
	serviceschat "lawdesk_backend/internal/services/chat"
	"lawdesk_backend/pkg/apperrors"
)

// CaseService exposes the case lifecycle signals the messaging core
// consumes: approval opens the chat room, tracking updates notify the
// client, deletion cascades everything the case owns.
type CaseService struct {
	db            *gorm.DB
	cases         *repositories.CaseRepository
	chat          *serviceschat.ChatService
	notifications *NotificationService
}

func NewCaseService(
	db *gorm.DB,
	cases *repositories.CaseRepository,
	chat *serviceschat.ChatService,
	notifications *NotificationService,
) *CaseService {
	return &CaseService{
		db:            db,
		cases:         cases,
		chat:          chat,
		notifications: notifications,
	}
}

func (s *CaseService) Create(clientID, lawyerID, title, description string) (*models.Case, error) {
	if clientID == "" || lawyerID == "" || strings.TrimSpace(title) == "" {
		return nil, apperrors.NewValidationError("client, lawyer, and title are required")
	}

	c := &models.Case{
		ClientID:    clientID,
		LawyerID:    lawyerID,
		Title:       title,
		Description: description,
		Status:      models.CaseStatusPending,
	}
	if err := s.cases.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CaseService) Get(caseID string) (*models.Case, error) {
	return s.cases.FindByID(caseID)
}

// Approve marks the case approved, opens (or reuses) its chat room, and
// notifies the client. Duplicate approval events converge on the same
// room through the registry's idempotent upsert.
func (s *CaseService) Approve(caseID string) (*models.Case, error) {
	c, err := s.cases.FindByID(caseID)
	if err != nil {
		return nil, err
	}

	if c.Status != models.CaseStatusApproved {
		if err := s.cases.UpdateStatus(caseID, models.CaseStatusApproved); err != nil {
			return nil, err
		}
		c.Status = models.CaseStatusApproved
	}

	if _, err := s.chat.GetOrCreateRoom(c.ID, c.ClientID, c.LawyerID); err != nil {
		return nil, err
	}

	err = s.notifications.Notify(
		[]string{c.ClientID},
		"Your case \""+c.Title+"\" has been approved",
		NotifyOptions{CaseID: &c.ID, SenderID: &c.LawyerID},
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddTrackingUpdate appends a tracking entry and notifies the client.
func (s *CaseService) AddTrackingUpdate(caseID, authorID, body string) (*models.CaseUpdate, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("tracking update body must not be empty")
	}

	c, err := s.cases.FindByID(caseID)
	if err != nil {
		return nil, err
	}
	if authorID != c.LawyerID {
		return nil, apperrors.NewAuthorizationError("only the case's lawyer may add tracking updates")
	}

	update := &models.CaseUpdate{CaseID: caseID, AuthorID: authorID, Body: body}
	if err := s.cases.CreateUpdate(update); err != nil {
		return nil, err
	}

	err = s.notifications.Notify(
		[]string{c.ClientID},
		"Case \""+c.Title+"\" has a new tracking update",
		NotifyOptions{CaseID: &c.ID, SenderID: &authorID},
	)
	if err != nil {
		return nil, err
	}
	return update, nil
}

// Delete removes the case and cascades its room, messages, statuses,
// tracking updates, and case-scoped notifications in one transaction.
func (s *CaseService) Delete(caseID string) error {
	if _, err := s.cases.FindByID(caseID); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.chat.DeleteRoomData(tx, caseID); err != nil {
			return err
		}
		if err := s.notifications.DeleteByCase(tx, caseID); err != nil {
			return err
		}
		return s.cases.Delete(tx, caseID)
	})
}
