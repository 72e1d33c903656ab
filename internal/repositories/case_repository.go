package repositories

import (
	"errors"

	"gorm.io/gorm"

	"lawdesk_backend/internal/models"
	"lawdesk_backend/pkg/apperrors"
)

type CaseRepository struct {
	DB *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{DB: db}
}

func (r *CaseRepository) Create(c *models.Case) error {
	return r.DB.Create(c).Error
}

func (r *CaseRepository) FindByID(caseID string) (*models.Case, error) {
	var c models.Case
	err := r.DB.First(&c, "id = ?", caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("case", "case not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) UpdateStatus(caseID string, status models.CaseStatus) error {
	return r.DB.Model(&models.Case{}).
		Where("id = ?", caseID).
		Update("status", status).Error
}

func (r *CaseRepository) CreateUpdate(update *models.CaseUpdate) error {
	return r.DB.Create(update).Error
}

// Delete removes the case and its tracking updates inside tx. Room,
// messages, and notifications are cascaded by the case service in the
// same transaction.
func (r *CaseRepository) Delete(tx *gorm.DB, caseID string) error {
	if err := tx.Where("case_id = ?", caseID).Delete(&models.CaseUpdate{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", caseID).Delete(&models.Case{}).Error
}
