package models

import "time"

// OTPPurpose binds a code to the flow it was issued for
type OTPPurpose string

const (
	OTPPurposeSignup         OTPPurpose = "signup"
	OTPPurposePasswordReset  OTPPurpose = "password_reset"
	OTPPurposeRecoveryVerify OTPPurpose = "recovery_verify"
)

// OTPTTL is how long a code stays valid after creation
const OTPTTL = 5 * time.Minute

// OTP is a one-time numeric code bound to a contact or a user
type OTP struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;index"`
	UserID      *string    `json:"user_id" gorm:"type:varchar(36);index"`
	Email       *string    `json:"email" gorm:"type:varchar(255);index"`
	PhoneNumber *string    `json:"phone_number" gorm:"type:varchar(15);index"`
	Code        string     `json:"-" gorm:"column:otp;type:varchar(6);not null;index"`
	Purpose     OTPPurpose `json:"purpose" gorm:"type:varchar(20);not null;index"`
	Verified    bool       `json:"verified" gorm:"not null"`
	User        *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (OTP) TableName() string {
	return "otps"
}

// IsExpired reports whether the code is past its validity window at now
func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.CreatedAt.Add(OTPTTL))
}
