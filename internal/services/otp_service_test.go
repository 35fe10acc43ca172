package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/testutil"
	"github.com/onegreenvn/stockplus-backend/internal/models"
)

func newTestOTPService(t *testing.T, codes ...string) (*OTPService, *gorm.DB, *fakeClock, *recordingNotifier) {
	t.Helper()
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{}
	clock := newFakeClock()
	svc := NewOTPService(db, notifier)
	svc.now = clock.Now
	if len(codes) > 0 {
		svc.genCode = codeSeq(codes...)
	}
	startOTP(t, svc)
	return svc, db, clock, notifier
}

func countOTPs(t *testing.T, db *gorm.DB, purpose models.OTPPurpose) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OTP{}).Where("purpose = ?", purpose).Count(&n).Error)
	return n
}

func TestOTPIssueGeneratesSixDigits(t *testing.T) {
	svc, _, _, notifier := newTestOTPService(t)

	otp, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Len(t, otp.Code, 6)
	for _, r := range otp.Code {
		assert.True(t, r >= '0' && r <= '9', "non digit in %q", otp.Code)
	}

	msg := notifier.nth(t, 1)
	assert.Equal(t, "alice@x.com", msg.Contact)
	assert.Equal(t, models.ContactTypeEmail, msg.ContactType)
	assert.Equal(t, otp.Code, msg.Code)
}

func TestOTPSignupVerify(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "123456")

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	otp, err := svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "123456")
	require.NoError(t, err)
	assert.True(t, otp.Verified)

	var stored models.OTP
	require.NoError(t, db.First(&stored, otp.ID).Error)
	assert.True(t, stored.Verified)

	_, err = svc.Verify(OTPTarget{Email: "bob@x.com"}, models.OTPPurposeSignup, "123456")
	assert.True(t, apperror.HasCode(err, "otp_invalid"))

	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "654321")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestOTPSignupReissueInvalidatesPrevious(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "111111", "222222")

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	_, err = svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countOTPs(t, db, models.OTPPurposeSignup))

	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "111111")
	assert.True(t, apperror.HasCode(err, "otp_invalid"))

	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "222222")
	assert.NoError(t, err)
}

func TestOTPSignupReissueByPhoneReplacesEmailRow(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "111111", "222222")

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com", PhoneNumber: "+919800000001"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	_, err = svc.Issue(OTPTarget{PhoneNumber: "+919800000001"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countOTPs(t, db, models.OTPPurposeSignup))
	_, err = svc.Verify(OTPTarget{PhoneNumber: "+919800000001"}, models.OTPPurposeSignup, "222222")
	assert.NoError(t, err)
}

func TestOTPSignupVerifyAcceptsEitherContact(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t, "111111")

	_, err := svc.Issue(OTPTarget{PhoneNumber: "+919800000001"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	otp, err := svc.Verify(OTPTarget{Email: "alice@x.com", PhoneNumber: "+919800000001"}, models.OTPPurposeSignup, "111111")
	require.NoError(t, err)
	assert.True(t, otp.Verified)

	_, err = svc.Verify(OTPTarget{Email: "alice@x.com", PhoneNumber: "+919800000002"}, models.OTPPurposeSignup, "111111")
	assert.True(t, apperror.HasCode(err, "otp_invalid"))
}

func TestOTPExpiryBoundary(t *testing.T) {
	svc, db, clock, _ := newTestOTPService(t, "123456")

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	clock.Advance(models.OTPTTL)
	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "123456")
	require.NoError(t, err, "a code is still valid exactly at created_at + ttl")

	clock.Advance(time.Second)
	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "123456")
	assert.True(t, apperror.Is(err, apperror.KindExpired))
	assert.Equal(t, int64(0), countOTPs(t, db, models.OTPPurposeSignup), "expired row is deleted on touch")

	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "123456")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestOTPPasswordResetAppendsAndRequiresUnverified(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "111111", "222222")
	user := createUser(t, db, "alice", models.RoleStaff, nil, nil)
	target := OTPTarget{UserID: user.ID, Email: *user.Email}

	_, err := svc.Issue(target, models.OTPPurposePasswordReset)
	require.NoError(t, err)
	_, err = svc.Issue(target, models.OTPPurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countOTPs(t, db, models.OTPPurposePasswordReset))

	_, err = svc.Verify(target, models.OTPPurposePasswordReset, "111111")
	require.NoError(t, err)

	_, err = svc.Verify(target, models.OTPPurposePasswordReset, "111111")
	assert.True(t, apperror.HasCode(err, "otp_invalid"), "a verified reset code cannot be verified again")

	otp, err := svc.VerifiedForReset(user.ID, "111111")
	require.NoError(t, err)
	assert.Equal(t, "111111", otp.Code)

	_, err = svc.VerifiedForReset(user.ID, "222222")
	assert.True(t, apperror.HasCode(err, "otp_not_verified"))
}

func TestOTPPurposeMustMatch(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "123456")
	user := createUser(t, db, "alice", models.RoleStaff, nil, nil)

	_, err := svc.Issue(OTPTarget{Email: "alice@example.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	_, err = svc.Verify(OTPTarget{UserID: user.ID, Email: "alice@example.com"}, models.OTPPurposeRecoveryVerify, "123456")
	assert.True(t, apperror.HasCode(err, "otp_invalid"))
}

func TestOTPRecoveryReissueReplacesPrevious(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "111111", "222222")
	user := createUser(t, db, "alice", models.RoleStaff, nil, nil)
	target := OTPTarget{UserID: user.ID, PhoneNumber: "+919800000001"}

	_, err := svc.Issue(target, models.OTPPurposeRecoveryVerify)
	require.NoError(t, err)
	_, err = svc.Issue(target, models.OTPPurposeRecoveryVerify)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countOTPs(t, db, models.OTPPurposeRecoveryVerify))

	_, err = svc.Verify(target, models.OTPPurposeRecoveryVerify, "222222")
	assert.NoError(t, err)
}

func TestOTPNotifierFailureDoesNotFailIssue(t *testing.T) {
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := NewOTPService(db, notifier)
	startOTP(t, svc)

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countOTPs(t, db, models.OTPPurposeSignup))
	assert.Equal(t, "alice@x.com", notifier.nth(t, 1).Contact)
}

func TestOTPIssueDoesNotWaitForDelivery(t *testing.T) {
	db := testutil.NewTestDB(t)
	notifier := newBlockingNotifier()
	svc := NewOTPService(db, notifier)
	startOTP(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(notifier.release)
		t.Fatal("Issue waited for the notifier")
	}
	assertNoDelivery(t, notifier)

	close(notifier.release)
	select {
	case msg := <-notifier.sent:
		assert.Equal(t, "alice@x.com", msg.Contact)
	case <-time.After(2 * time.Second):
		t.Fatal("code was never delivered")
	}
}

func TestOTPStopDeliversQueuedCodes(t *testing.T) {
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewOTPService(db, notifier)

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, 0, notifier.count(), "nothing is sent before the worker runs")

	svc.Start()
	svc.Stop()
	assert.Equal(t, 1, notifier.count())
}

func TestOTPConsume(t *testing.T) {
	svc, db, _, _ := newTestOTPService(t, "123456")

	_, err := svc.Issue(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	_, err = svc.Verify(OTPTarget{Email: "alice@x.com"}, models.OTPPurposeSignup, "123456")
	require.NoError(t, err)

	otp, err := svc.VerifiedForSignup("", "")
	assert.Nil(t, otp)
	assert.True(t, apperror.HasCode(err, "otp_not_verified"))

	otp, err = svc.VerifiedForSignup("nobody@x.com", "")
	assert.Nil(t, otp)
	assert.True(t, apperror.HasCode(err, "otp_not_verified"))

	otp, err = svc.VerifiedForSignup("alice@x.com", "+919800000001")
	require.NoError(t, err)

	require.NoError(t, svc.Consume(db, otp))
	assert.True(t, apperror.HasCode(svc.Consume(db, otp), "otp_not_verified"))
	assert.Equal(t, int64(0), countOTPs(t, db, models.OTPPurposeSignup))
}

func TestOTPIssueValidation(t *testing.T) {
	svc, _, _, _ := newTestOTPService(t)

	_, err := svc.Issue(OTPTarget{}, models.OTPPurposeSignup)
	assert.True(t, apperror.HasCode(err, "contact_required"))

	_, err = svc.Issue(OTPTarget{Email: "a@x.com"}, models.OTPPurposePasswordReset)
	assert.True(t, apperror.HasCode(err, "owner_required"))
}

func TestOTPReapExpired(t *testing.T) {
	svc, db, clock, _ := newTestOTPService(t, "111111", "222222")

	_, err := svc.Issue(OTPTarget{Email: "old@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = svc.Issue(OTPTarget{Email: "new@x.com"}, models.OTPPurposeSignup)
	require.NoError(t, err)

	removed, err := svc.ReapExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, int64(1), countOTPs(t, db, models.OTPPurposeSignup))
}
