package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest represents the login request payload. Login accepts a username, email or phone number.
type LoginRequest struct {
	Login    string `json:"login" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// RefreshTokenRequest represents the refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents the logout request
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	TokenVersion uint   `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenInfo represents token information
type TokenInfo struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	TokenVersion uint      `json:"token_version"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ChangePasswordRequest represents a request to change user's own password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// CheckUsernameRequest asks whether a username is still free
type CheckUsernameRequest struct {
	Username string `json:"username" binding:"required,max=150"`
}

// SignupSendOTPRequest starts self-signup for a username and at least one contact
type SignupSendOTPRequest struct {
	Username    string `json:"username" binding:"required,max=150"`
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,phone"`
}

// VerifyOTPRequest verifies a signup code sent to an email or phone
type VerifyOTPRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,phone"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
}

// CompleteSignupRequest creates the account once a signup code has been verified
type CompleteSignupRequest struct {
	Username    string `json:"username" binding:"required,max=150"`
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,phone"`
	Password    string `json:"password" binding:"required,min=6"`
	Name        string `json:"name"`
	DOB         string `json:"dob" binding:"omitempty,datetime=2006-01-02" example:"1990-01-15"`
	Gender      string `json:"gender" binding:"max=20"`
}

// ForgotPasswordSendOTPRequest requests a reset code for a recovery contact
type ForgotPasswordSendOTPRequest struct {
	Contact string `json:"contact" binding:"required"`
}

// ForgotPasswordVerifyOTPRequest verifies a reset code
type ForgotPasswordVerifyOTPRequest struct {
	Contact string `json:"contact" binding:"required"`
	OTP     string `json:"otp" binding:"required,len=6,numeric"`
}

// ForgotPasswordResetRequest sets a new password with a verified reset code
type ForgotPasswordResetRequest struct {
	Contact     string `json:"contact" binding:"required"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// CreateSuperuserRequest bootstraps the first superuser
type CreateSuperuserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// CreateAdminRequest provisions an admin account
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// CreateStaffRequest provisions a staff account at a location
type CreateStaffRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Name       string `json:"name"`
	Role       string `json:"role" example:"staff"`
	LocationID uint   `json:"location" binding:"required"`
}

// UpdateStaffRequest edits an owned staff account
type UpdateStaffRequest struct {
	Name       *string `json:"name"`
	LocationID *uint   `json:"location"`
}

// UpdateProfileRequest edits the caller's own profile
type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	DOB    *string `json:"dob" binding:"omitempty,datetime=2006-01-02" example:"1990-01-15"`
	Gender *string `json:"gender" binding:"omitempty,max=20"`
}

// UpdateFCMTokenRequest stores the push notification token of the device
type UpdateFCMTokenRequest struct {
	FCMToken string `json:"fcm_token"`
}

// AddRecoveryContactRequest registers an extra email or phone for recovery
type AddRecoveryContactRequest struct {
	Contact string `json:"contact" binding:"required"`
}

// VerifyRecoveryContactRequest confirms a recovery contact with its code
type VerifyRecoveryContactRequest struct {
	Contact string `json:"contact" binding:"required"`
	OTP     string `json:"otp" binding:"required,len=6,numeric"`
}

// ProvisionedUser is returned after an account has been created by a privileged caller
type ProvisionedUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	Location string `json:"location,omitempty"`
}

// StaffSummary is one row of the staff listing
type StaffSummary struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PhoneNumber  *string   `json:"phone_number"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	LocationID   *uint     `json:"location_id"`
	LocationName string    `json:"location_name"`
	CreatedByID  *string   `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminSummary is one row of the admin listing
type AdminSummary struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Email      *string   `json:"email"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	StaffCount int64     `json:"staff_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// LocationRef is the id/name pair shown on the user dashboard
type LocationRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// UserDashboard is the caller's own summary card
type UserDashboard struct {
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"`
	Role      Role        `json:"role"`
	Name      string      `json:"name"`
	FCMStatus bool        `json:"fcm_status"`
	Location  LocationRef `json:"location"`
}
