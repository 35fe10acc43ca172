package repository

import (
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/models"

	"gorm.io/gorm"
)

// OTPLookup selects the row a code is checked against. Empty fields are not filtered on.
type OTPLookup struct {
	Code        string
	Purpose     models.OTPPurpose
	UserID      string
	Email       string
	PhoneNumber string
	Verified    *bool
	// AnyContact matches rows of the email or the phone instead of both
	AnyContact bool
}

type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) WithTx(tx *gorm.DB) *OTPRepository {
	return &OTPRepository{db: tx}
}

func (r *OTPRepository) Create(otp *models.OTP) error {
	return r.db.Create(otp).Error
}

// DeleteSignupForContacts removes every signup row bound to the email or the phone
func (r *OTPRepository) DeleteSignupForContacts(email, phone string) error {
	query := r.db.Where("purpose = ?", models.OTPPurposeSignup)
	switch {
	case email != "" && phone != "":
		query = query.Where("email = ? OR phone_number = ?", email, phone)
	case email != "":
		query = query.Where("email = ?", email)
	case phone != "":
		query = query.Where("phone_number = ?", phone)
	default:
		return nil
	}
	return query.Delete(&models.OTP{}).Error
}

// DeleteForUserContact removes rows of a user and purpose bound to one contact
func (r *OTPRepository) DeleteForUserContact(userID string, purpose models.OTPPurpose, email, phone *string) error {
	query := r.db.Where("user_id = ? AND purpose = ?", userID, purpose)
	query = whereNullable(query, "email", email)
	query = whereNullable(query, "phone_number", phone)
	return query.Delete(&models.OTP{}).Error
}

// Find returns the oldest row matching the lookup
func (r *OTPRepository) Find(lookup OTPLookup) (*models.OTP, error) {
	query := r.db.Where("otp = ? AND purpose = ?", lookup.Code, lookup.Purpose)
	if lookup.UserID != "" {
		query = query.Where("user_id = ?", lookup.UserID)
	}
	if lookup.AnyContact && lookup.Email != "" && lookup.PhoneNumber != "" {
		query = query.Where("email = ? OR phone_number = ?", lookup.Email, lookup.PhoneNumber)
	} else {
		if lookup.Email != "" {
			query = query.Where("email = ?", lookup.Email)
		}
		if lookup.PhoneNumber != "" {
			query = query.Where("phone_number = ?", lookup.PhoneNumber)
		}
	}
	if lookup.Verified != nil {
		query = query.Where("verified = ?", *lookup.Verified)
	}
	var otp models.OTP
	if err := query.Order("id").First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

// FindVerifiedSignup finds a verified signup row for either the email or the phone
func (r *OTPRepository) FindVerifiedSignup(email, phone string) (*models.OTP, error) {
	query := r.db.Where("purpose = ? AND verified = ?", models.OTPPurposeSignup, true)
	switch {
	case email != "" && phone != "":
		query = query.Where("email = ? OR phone_number = ?", email, phone)
	case email != "":
		query = query.Where("email = ?", email)
	case phone != "":
		query = query.Where("phone_number = ?", phone)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	var otp models.OTP
	if err := query.Order("id").First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

func (r *OTPRepository) MarkVerified(id uint) error {
	return r.db.Model(&models.OTP{}).Where("id = ?", id).Update("verified", true).Error
}

// Delete removes a row and reports whether it still existed
func (r *OTPRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&models.OTP{}, id)
	return res.RowsAffected > 0, res.Error
}

// DeleteCreatedBefore removes every row created before cutoff
func (r *OTPRepository) DeleteCreatedBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.OTP{})
	return res.RowsAffected, res.Error
}

func whereNullable(query *gorm.DB, column string, value *string) *gorm.DB {
	if value == nil {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", *value)
}
