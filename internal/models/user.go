package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account in the system
type User struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Username      string     `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	Email         *string    `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	PhoneNumber   *string    `json:"phone_number" gorm:"type:varchar(15);uniqueIndex"`
	PasswordHash  string     `json:"-" gorm:"type:varchar(255);not null"`
	Name          string     `json:"name" gorm:"type:varchar(255)"`
	DOB           *time.Time `json:"dob" gorm:"type:date"`
	Gender        string     `json:"gender" gorm:"type:varchar(20)"`
	Role          Role       `json:"role" gorm:"type:varchar(20);not null;index"`
	LocationID    *uint      `json:"location_id" gorm:"index"`
	CreatedByID   *string    `json:"created_by_id" gorm:"type:varchar(36);index"`
	FCMToken      *string    `json:"fcm_token,omitempty" gorm:"type:text"`
	IsActive      bool       `json:"is_active" gorm:"not null;index"`
	IsVerified    bool       `json:"is_verified" gorm:"not null"`
	IsPasswordSet bool       `json:"is_password_set" gorm:"not null"`
	TokenVersion  uint       `json:"-" gorm:"not null;default:0"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	// Relationships
	Location  *Location `json:"location,omitempty" gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
	CreatedBy *User     `json:"-" gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when none was set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// RecoveryContact is a verified email or phone a user can recover the account with
type RecoveryContact struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_recovery_user_contact"`
	ContactType  string    `json:"contact_type" gorm:"type:varchar(10);not null"`
	ContactValue string    `json:"contact_value" gorm:"type:varchar(255);not null;uniqueIndex;uniqueIndex:idx_recovery_user_contact"`
	IsVerified   bool      `json:"is_verified" gorm:"not null"`
	User         *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (RecoveryContact) TableName() string {
	return "recovery_contacts"
}

const (
	ContactTypeEmail = "email"
	ContactTypePhone = "phone"
)
