package chat

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	modelChat "lawdesk_backend/internal/models/chat"
	"lawdesk_backend/pkg/apperrors"
)

type RoomRepository struct {
	DB *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{DB: db}
}

// GetOrCreate upserts the room keyed by its unique case_id. Concurrent
// duplicate approval events race on the unique index; the loser re-reads
// the winner's row, so both callers converge on the same room.
func (r *RoomRepository) GetOrCreate(caseID, clientID, lawyerID string) (*modelChat.ChatRoom, error) {
	var room modelChat.ChatRoom
	err := r.DB.
		Where(modelChat.ChatRoom{CaseID: caseID}).
		Attrs(modelChat.ChatRoom{ClientID: clientID, LawyerID: lawyerID}).
		FirstOrCreate(&room).Error
	if err == nil {
		return &room, nil
	}

	if isDuplicateKey(err) {
		if ferr := r.DB.First(&room, "case_id = ?", caseID).Error; ferr == nil {
			return &room, nil
		}
	}
	return nil, err
}

// FindByID returns the room or a NotFoundError.
func (r *RoomRepository) FindByID(roomID string) (*modelChat.ChatRoom, error) {
	var room modelChat.ChatRoom
	err := r.DB.First(&room, "id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("chat", "room not found")
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByCaseID returns the room bound to a case, if any. It reads on
// the caller's handle: case deletion looks the room up inside its own
// transaction, which with a single-connection pool would otherwise
// deadlock waiting for the connection the transaction already holds.
func (r *RoomRepository) FindByCaseID(tx *gorm.DB, caseID string) (*modelChat.ChatRoom, error) {
	var room modelChat.ChatRoom
	err := tx.First(&room, "case_id = ?", caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("chat", "room not found")
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindAllByUser returns every room the user participates in, most
// recently active first.
func (r *RoomRepository) FindAllByUser(userID string) ([]modelChat.ChatRoom, error) {
	var rooms []modelChat.ChatRoom
	err := r.DB.
		Where("client_id = ? OR lawyer_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// Touch bumps updated_at so the room list sorts by recent activity.
func (r *RoomRepository) Touch(tx *gorm.DB, roomID string) error {
	return tx.Model(&modelChat.ChatRoom{}).
		Where("id = ?", roomID).
		Update("updated_at", time.Now()).Error
}

// DeleteByCase removes the room inside a case-deletion transaction.
func (r *RoomRepository) DeleteByCase(tx *gorm.DB, caseID string) error {
	return tx.Where("case_id = ?", caseID).Delete(&modelChat.ChatRoom{}).Error
}

// RoomParticipants implements realtime.RoomDirectory for the channel
// authorization gateway.
func (r *RoomRepository) RoomParticipants(roomID string) (string, string, error) {
	room, err := r.FindByID(roomID)
	if err != nil {
		return "", "", err
	}
	return room.ClientID, room.LawyerID, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
