package repository

import (
	"github.com/onegreenvn/stockplus-backend/internal/models"

	"gorm.io/gorm"
)

type RecoveryContactRepository struct {
	db *gorm.DB
}

func NewRecoveryContactRepository(db *gorm.DB) *RecoveryContactRepository {
	return &RecoveryContactRepository{db: db}
}

func (r *RecoveryContactRepository) WithTx(tx *gorm.DB) *RecoveryContactRepository {
	return &RecoveryContactRepository{db: tx}
}

func (r *RecoveryContactRepository) Create(contact *models.RecoveryContact) error {
	return r.db.Create(contact).Error
}

// GetVerifiedByValue finds a verified contact with its owner
func (r *RecoveryContactRepository) GetVerifiedByValue(value string) (*models.RecoveryContact, error) {
	var contact models.RecoveryContact
	err := r.db.Preload("User").
		Where("contact_value = ? AND is_verified = ?", value, true).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByUserAndValue finds a contact of a user regardless of verification
func (r *RecoveryContactRepository) GetByUserAndValue(userID, value string) (*models.RecoveryContact, error) {
	var contact models.RecoveryContact
	err := r.db.Where("user_id = ? AND contact_value = ?", userID, value).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// ExistsByValue reports whether any user already holds the contact value
func (r *RecoveryContactRepository) ExistsByValue(value string) (bool, error) {
	var count int64
	err := r.db.Model(&models.RecoveryContact{}).Where("contact_value = ?", value).Count(&count).Error
	return count > 0, err
}

func (r *RecoveryContactRepository) MarkVerified(id uint) error {
	return r.db.Model(&models.RecoveryContact{}).Where("id = ?", id).Update("is_verified", true).Error
}

func (r *RecoveryContactRepository) ListByUser(userID string) ([]models.RecoveryContact, error) {
	var contacts []models.RecoveryContact
	err := r.db.Where("user_id = ?", userID).Order("created_at").Find(&contacts).Error
	return contacts, err
}
