package repositories

import (
	"errors"

	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	"lawdesk_backend/pkg/apperrors"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *models.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(userID string) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("user", "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.DB.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("user", "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IDsByRole resolves broadcast role filters to recipient IDs. Role "all"
// matches every active user.
func (r *UserRepository) IDsByRole(role string) ([]string, error) {
	var ids []string
	q := r.DB.Model(&models.User{}).Where("status = ?", models.UserStatusActive)
	if role != "all" {
		q = q.Where("role = ?", role)
	}
	err := q.Pluck("id", &ids).Error
	return ids, err
}

// DisplayName returns the user's display name for presence metadata.
func (r *UserRepository) DisplayName(userID string) (string, error) {
	user, err := r.FindByID(userID)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}
