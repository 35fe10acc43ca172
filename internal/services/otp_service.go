package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	digits        = "0123456789"
	otpCodeLength = 6
	otpOutboxSize = 64
)

// OTPTarget is what a code is bound to: an account, a bare contact, or both
type OTPTarget struct {
	UserID      string
	Email       string
	PhoneNumber string
}

// contact returns the address a code is delivered to, email first
func (t OTPTarget) contact() (string, string) {
	if t.Email != "" {
		return t.Email, models.ContactTypeEmail
	}
	return t.PhoneNumber, models.ContactTypePhone
}

// OTPService issues and checks one-time codes. Expiry is evaluated when a code is read.
// Codes are handed to the notifier by a background worker, see Start.
type OTPService struct {
	db       *gorm.DB
	otpRepo  *repository.OTPRepository
	notifier Notifier
	now      func() time.Time
	genCode  func() (string, error)

	outbox   chan OTPMessage
	stopChan chan bool
	wg       sync.WaitGroup
}

func NewOTPService(db *gorm.DB, notifier Notifier) *OTPService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &OTPService{
		db:       db,
		otpRepo:  repository.NewOTPRepository(db),
		notifier: notifier,
		now:      time.Now,
		genCode: func() (string, error) {
			return gonanoid.Generate(digits, otpCodeLength)
		},
		outbox:   make(chan OTPMessage, otpOutboxSize),
		stopChan: make(chan bool),
	}
}

// Start runs the delivery worker. Issued codes wait in the outbox until it runs.
func (s *OTPService) Start() {
	s.wg.Add(1)
	go s.run()
	logrus.Info("OTP delivery worker started")
}

// Stop delivers whatever is still queued and stops the worker
func (s *OTPService) Stop() {
	s.stopChan <- true
	s.wg.Wait()
	logrus.Info("OTP delivery worker stopped")
}

func (s *OTPService) run() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.outbox:
			s.deliver(msg)
		case <-s.stopChan:
			for {
				select {
				case msg := <-s.outbox:
					s.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

// Issue creates a code for target and purpose and hands it to the notifier.
// A signup code replaces every earlier signup code of the same email or phone,
// a recovery code replaces the earlier one of the same user and contact, and
// password reset codes accumulate.
func (s *OTPService) Issue(target OTPTarget, purpose models.OTPPurpose) (*models.OTP, error) {
	if target.Email == "" && target.PhoneNumber == "" {
		return nil, apperror.Validation("contact_required", "email or phone number is required")
	}
	if purpose != models.OTPPurposeSignup && target.UserID == "" {
		return nil, apperror.Validation("owner_required", "an account is required for this code")
	}

	code, err := s.genCode()
	if err != nil {
		return nil, apperror.Storage("generate otp", err)
	}

	otp := &models.OTP{
		CreatedAt:   s.now(),
		UserID:      utils.StringPtr(target.UserID),
		Email:       utils.StringPtr(target.Email),
		PhoneNumber: utils.StringPtr(target.PhoneNumber),
		Code:        code,
		Purpose:     purpose,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.otpRepo.WithTx(tx)
		switch purpose {
		case models.OTPPurposeSignup:
			if err := repo.DeleteSignupForContacts(target.Email, target.PhoneNumber); err != nil {
				return err
			}
		case models.OTPPurposeRecoveryVerify:
			if err := repo.DeleteForUserContact(target.UserID, purpose, otp.Email, otp.PhoneNumber); err != nil {
				return err
			}
		case models.OTPPurposePasswordReset:
		default:
			return apperror.Validation("invalid_purpose", fmt.Sprintf("unknown OTP purpose %q", purpose))
		}
		return repo.Create(otp)
	})
	if err != nil {
		if apperror.Is(err, apperror.KindValidation) {
			return nil, err
		}
		return nil, apperror.Storage("issue otp", err)
	}

	s.notify(target, otp)
	return otp, nil
}

// notify queues the code for delivery and never waits on the notifier
func (s *OTPService) notify(target OTPTarget, otp *models.OTP) {
	contact, kind := target.contact()
	msg := OTPMessage{
		Contact:     contact,
		ContactType: kind,
		Code:        otp.Code,
		Purpose:     otp.Purpose,
	}
	select {
	case s.outbox <- msg:
	default:
		logrus.Warnf("OTP outbox full, delivering to %s out of band", contact)
		go s.deliver(msg)
	}
}

func (s *OTPService) deliver(msg OTPMessage) {
	if err := s.notifier.SendOTP(msg); err != nil {
		logrus.WithError(err).WithField("purpose", msg.Purpose).Warnf("Failed to deliver OTP to %s", msg.Contact)
	}
}

// Verify checks an unconsumed code and marks it verified. Signup codes are matched by
// either contact, reset codes by owner among unverified rows, recovery codes by owner and contact
// among unverified rows. An expired row is deleted on the way out.
func (s *OTPService) Verify(target OTPTarget, purpose models.OTPPurpose, code string) (*models.OTP, error) {
	unverified := false
	lookup := repository.OTPLookup{Code: code, Purpose: purpose}
	switch purpose {
	case models.OTPPurposeSignup:
		if target.Email == "" && target.PhoneNumber == "" {
			return nil, apperror.Validation("contact_required", "email or phone number is required")
		}
		lookup.Email = target.Email
		lookup.PhoneNumber = target.PhoneNumber
		lookup.AnyContact = true
	case models.OTPPurposePasswordReset:
		lookup.UserID = target.UserID
		lookup.Verified = &unverified
	case models.OTPPurposeRecoveryVerify:
		lookup.UserID = target.UserID
		lookup.Email = target.Email
		lookup.PhoneNumber = target.PhoneNumber
		lookup.Verified = &unverified
	default:
		return nil, apperror.Validation("invalid_purpose", fmt.Sprintf("unknown OTP purpose %q", purpose))
	}
	if purpose != models.OTPPurposeSignup && target.UserID == "" {
		return nil, errInvalidOTP()
	}

	otp, err := s.find(lookup)
	if err != nil {
		return nil, err
	}
	if err := s.otpRepo.MarkVerified(otp.ID); err != nil {
		return nil, apperror.Storage("mark otp verified", err)
	}
	otp.Verified = true
	return otp, nil
}

// VerifiedForReset returns the verified, live reset code of a user
func (s *OTPService) VerifiedForReset(userID, code string) (*models.OTP, error) {
	verified := true
	otp, err := s.find(repository.OTPLookup{
		Code:     code,
		Purpose:  models.OTPPurposePasswordReset,
		UserID:   userID,
		Verified: &verified,
	})
	if apperror.HasCode(err, "otp_invalid") {
		return nil, errOTPNotVerified()
	}
	return otp, err
}

// VerifiedForSignup returns a verified, live signup code of the email or the phone
func (s *OTPService) VerifiedForSignup(email, phone string) (*models.OTP, error) {
	otp, err := s.otpRepo.FindVerifiedSignup(email, phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errOTPNotVerified()
	}
	if err != nil {
		return nil, apperror.Storage("find signup otp", err)
	}
	if otp.IsExpired(s.now()) {
		s.expire(otp)
		return nil, errOTPExpired()
	}
	return otp, nil
}

// Consume deletes a code inside the caller's transaction once its purpose is fulfilled
func (s *OTPService) Consume(tx *gorm.DB, otp *models.OTP) error {
	deleted, err := s.otpRepo.WithTx(tx).Delete(otp.ID)
	if err != nil {
		return apperror.Storage("consume otp", err)
	}
	if !deleted {
		return errOTPNotVerified()
	}
	return nil
}

// ReapExpired deletes codes past their validity window
func (s *OTPService) ReapExpired() (int64, error) {
	return s.otpRepo.DeleteCreatedBefore(s.now().Add(-models.OTPTTL))
}

func (s *OTPService) find(lookup repository.OTPLookup) (*models.OTP, error) {
	otp, err := s.otpRepo.Find(lookup)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidOTP()
	}
	if err != nil {
		return nil, apperror.Storage("find otp", err)
	}
	if otp.IsExpired(s.now()) {
		s.expire(otp)
		return nil, errOTPExpired()
	}
	return otp, nil
}

func (s *OTPService) expire(otp *models.OTP) {
	if _, err := s.otpRepo.Delete(otp.ID); err != nil {
		logrus.Warnf("Failed to delete expired OTP %d: %v", otp.ID, err)
	}
}

func errInvalidOTP() *apperror.Error {
	return apperror.NotFound("otp_invalid", "invalid OTP")
}

func errOTPExpired() *apperror.Error {
	return apperror.Expired("otp_expired", "OTP has expired")
}

func errOTPNotVerified() *apperror.Error {
	return apperror.Validation("otp_not_verified", "OTP not verified")
}
