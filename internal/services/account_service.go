package services

import (
	"errors"
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// classifyContact normalizes an email or phone number and reports which one it is
func classifyContact(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case utils.IsEmail(raw):
		return utils.NormalizeEmail(raw), models.ContactTypeEmail, nil
	case utils.IsPhone(raw):
		return raw, models.ContactTypePhone, nil
	}
	return "", "", apperror.Validation("invalid_contact", "contact must be an email address or a phone number")
}

func contactTarget(userID, value, kind string) OTPTarget {
	target := OTPTarget{UserID: userID}
	if kind == models.ContactTypeEmail {
		target.Email = value
	} else {
		target.PhoneNumber = value
	}
	return target
}

// SignupSendOTP issues a signup code after checking the username and contacts are free
func (s *UserService) SignupSendOTP(req *models.SignupSendOTPRequest) error {
	email := utils.NormalizeEmail(req.Email)
	phone := strings.TrimSpace(req.PhoneNumber)
	if email == "" && phone == "" {
		return apperror.Validation("contact_required", "email or phone number is required")
	}
	if err := s.ensureUsernameFree(req.Username); err != nil {
		return err
	}
	if err := s.ensureContactsFree(email, phone); err != nil {
		return err
	}
	_, err := s.otp.Issue(OTPTarget{Email: email, PhoneNumber: phone}, models.OTPPurposeSignup)
	return err
}

// SignupVerifyOTP marks the signup code of an email or phone verified
func (s *UserService) SignupVerifyOTP(req *models.VerifyOTPRequest) error {
	target := OTPTarget{Email: utils.NormalizeEmail(req.Email), PhoneNumber: strings.TrimSpace(req.PhoneNumber)}
	_, err := s.otp.Verify(target, models.OTPPurposeSignup, req.OTP)
	return err
}

// CompleteSignup creates the account once a signup code of the email or the phone has been
// verified, consumes the code and opens a session
func (s *UserService) CompleteSignup(req *models.CompleteSignupRequest, userAgent, ipAddress string) (*models.AuthResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	phone := strings.TrimSpace(req.PhoneNumber)
	if email == "" && phone == "" {
		return nil, apperror.Validation("contact_required", "email or phone number is required")
	}

	otp, err := s.otp.VerifiedForSignup(email, phone)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(req.Username); err != nil {
		return nil, err
	}
	if err := s.ensureContactsFree(email, phone); err != nil {
		return nil, err
	}
	dob, err := parseDOB(req.DOB)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.createAccount(tx, newAccount{
			Username:    strings.TrimSpace(req.Username),
			Email:       email,
			PhoneNumber: phone,
			Password:    req.Password,
			Name:        req.Name,
			DOB:         dob,
			Gender:      req.Gender,
			Role:        models.RoleStaff,
		})
		if err != nil {
			return err
		}
		return s.otp.Consume(tx, otp)
	})
	if err != nil {
		return nil, wrapStorage("complete signup", err)
	}

	logrus.Infof("User %s signed up", user.Username)
	return s.tokens.IssueTokens(user, userAgent, ipAddress)
}

func (s *UserService) ensureUsernameFree(username string) error {
	available, err := s.CheckUsername(username)
	if err != nil {
		return err
	}
	if !available {
		return apperror.Conflict("username_taken", "username already exists")
	}
	return nil
}

// findRecoveryContact returns the verified recovery contact holding value, or nil
func (s *UserService) findRecoveryContact(raw string) (*models.RecoveryContact, error) {
	value, _, err := classifyContact(raw)
	if err != nil {
		return nil, err
	}
	contact, err := s.contactRepo.GetVerifiedByValue(value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Storage("load recovery contact", err)
	}
	return contact, nil
}

// ForgotPasswordSendOTP issues a reset code to a verified recovery contact. An unknown
// contact gets the same answer so accounts cannot be enumerated.
func (s *UserService) ForgotPasswordSendOTP(raw string) error {
	contact, err := s.findRecoveryContact(raw)
	if err != nil {
		return err
	}
	if contact == nil {
		logrus.Infof("Password reset requested for unknown contact %s", raw)
		return nil
	}
	_, err = s.otp.Issue(contactTarget(contact.UserID, contact.ContactValue, contact.ContactType), models.OTPPurposePasswordReset)
	return err
}

// ForgotPasswordVerifyOTP verifies an unverified reset code of the contact's owner
func (s *UserService) ForgotPasswordVerifyOTP(raw, code string) error {
	contact, err := s.findRecoveryContact(raw)
	if err != nil {
		return err
	}
	if contact == nil {
		return errInvalidOTP()
	}
	_, err = s.otp.Verify(contactTarget(contact.UserID, contact.ContactValue, contact.ContactType), models.OTPPurposePasswordReset, code)
	return err
}

// ResetPassword sets a new password with a verified reset code, consumes the code and
// signs out every session of the account
func (s *UserService) ResetPassword(raw, code, newPassword string) error {
	contact, err := s.findRecoveryContact(raw)
	if err != nil {
		return err
	}
	if contact == nil {
		return errOTPNotVerified()
	}
	otp, err := s.otp.VerifiedForReset(contact.UserID, code)
	if err != nil {
		return err
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperror.Storage("hash password", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := s.userRepo.WithTx(tx).UpdateFields(contact.UserID, map[string]interface{}{
			"password_hash":   hashed,
			"is_password_set": true,
			"token_version":   gorm.Expr("token_version + 1"),
		})
		if err != nil {
			return err
		}
		if err := repository.NewRefreshTokenRepository(tx).RevokeAllForUser(contact.UserID); err != nil {
			return err
		}
		return s.otp.Consume(tx, otp)
	})
	if err != nil {
		return wrapStorage("reset password", err)
	}
	logrus.Infof("Password reset for user %s", contact.UserID)
	return nil
}

// ListRecoveryContacts lists the actor's recovery contacts
func (s *UserService) ListRecoveryContacts(actor policy.Actor) ([]models.RecoveryContact, error) {
	if err := policy.Authorize(actor, policy.OpRecoveryContacts); err != nil {
		return nil, err
	}
	contacts, err := s.contactRepo.ListByUser(actor.ID)
	if err != nil {
		return nil, apperror.Storage("list recovery contacts", err)
	}
	return contacts, nil
}

// AddRecoveryContact registers an unverified contact for the actor and sends it a code.
// Adding the same unverified contact again sends a fresh code.
func (s *UserService) AddRecoveryContact(actor policy.Actor, raw string) (*models.RecoveryContact, error) {
	if err := policy.Authorize(actor, policy.OpRecoveryContacts); err != nil {
		return nil, err
	}
	value, kind, err := classifyContact(raw)
	if err != nil {
		return nil, err
	}

	contact, err := s.contactRepo.GetByUserAndValue(actor.ID, value)
	switch {
	case err == nil && contact.IsVerified:
		return nil, apperror.Conflict("contact_already_verified", "contact is already verified")
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		email, phone := "", ""
		if kind == models.ContactTypeEmail {
			email = value
		} else {
			phone = value
		}
		if err := s.ensureContactsFree(email, phone); err != nil {
			return nil, err
		}
		contact = &models.RecoveryContact{UserID: actor.ID, ContactType: kind, ContactValue: value}
		if err := s.contactRepo.Create(contact); err != nil {
			return nil, wrapStorage("create recovery contact", err)
		}
	default:
		return nil, apperror.Storage("load recovery contact", err)
	}

	if _, err := s.otp.Issue(contactTarget(actor.ID, value, kind), models.OTPPurposeRecoveryVerify); err != nil {
		return nil, err
	}
	return contact, nil
}

// VerifyRecoveryContact confirms one of the actor's contacts with its code
func (s *UserService) VerifyRecoveryContact(actor policy.Actor, raw, code string) (*models.RecoveryContact, error) {
	if err := policy.Authorize(actor, policy.OpRecoveryContacts); err != nil {
		return nil, err
	}
	value, kind, err := classifyContact(raw)
	if err != nil {
		return nil, err
	}
	contact, err := s.contactRepo.GetByUserAndValue(actor.ID, value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("contact_not_found", "recovery contact not found")
	}
	if err != nil {
		return nil, apperror.Storage("load recovery contact", err)
	}
	if contact.IsVerified {
		return contact, nil
	}

	otp, err := s.otp.Verify(contactTarget(actor.ID, value, kind), models.OTPPurposeRecoveryVerify, code)
	if err != nil {
		return nil, err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.contactRepo.WithTx(tx).MarkVerified(contact.ID); err != nil {
			return err
		}
		return s.otp.Consume(tx, otp)
	})
	if err != nil {
		return nil, wrapStorage("verify recovery contact", err)
	}
	contact.IsVerified = true
	return contact, nil
}
