package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/testutil"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"
)

type fakeTokens struct{}

func (fakeTokens) IssueTokens(user *models.User, userAgent, ipAddress string) (*models.AuthResponse, error) {
	return &models.AuthResponse{AccessToken: "access-" + user.ID, TokenType: "Bearer", User: *user}, nil
}

func newTestUserService(t *testing.T, quota int, codes ...string) (*UserService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{}
	otp := NewOTPService(db, notifier)
	if len(codes) > 0 {
		otp.genCode = codeSeq(codes...)
	}
	startOTP(t, otp)
	return NewUserService(db, otp, fakeTokens{}, quota), db, notifier
}

func TestSignupScenario(t *testing.T) {
	svc, db, notifier := newTestUserService(t, 5, "123456")

	err := svc.SignupSendOTP(&models.SignupSendOTPRequest{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "123456", notifier.nth(t, 1).Code)

	complete := &models.CompleteSignupRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"}

	_, err = svc.CompleteSignup(complete, "", "")
	assert.True(t, apperror.HasCode(err, "otp_not_verified"), "completion before verification")

	require.NoError(t, svc.SignupVerifyOTP(&models.VerifyOTPRequest{Email: "alice@x.com", OTP: "123456"}))

	resp, err := svc.CompleteSignup(complete, "", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, models.RoleStaff, resp.User.Role)
	assert.True(t, resp.User.IsVerified)

	var otps int64
	require.NoError(t, db.Model(&models.OTP{}).Count(&otps).Error)
	assert.Equal(t, int64(0), otps, "signup code is consumed")

	var contact models.RecoveryContact
	require.NoError(t, db.Where("contact_value = ?", "alice@x.com").First(&contact).Error)
	assert.Equal(t, resp.User.ID, contact.UserID)
	assert.True(t, contact.IsVerified)

	_, err = svc.CompleteSignup(complete, "", "")
	assert.True(t, apperror.HasCode(err, "otp_not_verified"))
}

func TestSignupCompletesWithEitherContact(t *testing.T) {
	svc, _, _ := newTestUserService(t, 5, "654321")

	require.NoError(t, svc.SignupSendOTP(&models.SignupSendOTPRequest{Username: "bob", PhoneNumber: "+919800000002"}))
	require.NoError(t, svc.SignupVerifyOTP(&models.VerifyOTPRequest{PhoneNumber: "+919800000002", OTP: "654321"}))

	resp, err := svc.CompleteSignup(&models.CompleteSignupRequest{
		Username:    "bob",
		Email:       "bob@x.com",
		PhoneNumber: "+919800000002",
		Password:    "secret1",
		DOB:         "1990-01-15",
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "+919800000002", utils.Deref(resp.User.PhoneNumber))
	require.NotNil(t, resp.User.DOB)
	assert.Equal(t, 1990, resp.User.DOB.Year())
}

func TestSignupRejectsTakenUsernameAndContact(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	createUser(t, db, "alice", models.RoleStaff, nil, nil)

	err := svc.SignupSendOTP(&models.SignupSendOTPRequest{Username: "ALICE", Email: "new@x.com"})
	assert.True(t, apperror.HasCode(err, "username_taken"))

	err = svc.SignupSendOTP(&models.SignupSendOTPRequest{Username: "other", Email: "alice@example.com"})
	assert.True(t, apperror.HasCode(err, "email_taken"))

	err = svc.SignupSendOTP(&models.SignupSendOTPRequest{Username: "other"})
	assert.True(t, apperror.HasCode(err, "contact_required"))
}

func TestCreateFirstSuperuserOnlyOnce(t *testing.T) {
	svc, _, _ := newTestUserService(t, 5)

	su, err := svc.CreateFirstSuperuser(&models.CreateSuperuserRequest{Email: "root@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "root", su.Username)
	assert.Equal(t, models.RoleSuperuser, su.Role)

	_, err = svc.CreateFirstSuperuser(&models.CreateSuperuserRequest{Email: "other@x.com", Password: "password1"})
	assert.True(t, apperror.HasCode(err, "superuser_exists"))
}

func TestCreateAdminRequiresSuperuser(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	admin := createUser(t, db, "boss", models.RoleAdmin, &super.ID, nil)

	_, err := svc.CreateAdmin(actorOf(admin), &models.CreateAdminRequest{Email: "a2@x.com", Password: "password1"})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	created, err := svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "a2@x.com", Password: "password1", Name: "A Two"})
	require.NoError(t, err)
	assert.Equal(t, "a2", created.Username)
	assert.Equal(t, models.RoleAdmin, created.Role)
}

func TestProvisionDerivesUniqueUsernames(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	createUser(t, db, "John", models.RoleStaff, nil, nil)

	first, err := svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "john@a.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "john1", first.Username, "existing usernames are compared case-insensitively")

	second, err := svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "john@b.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "john2", second.Username)
}

func TestProvisionFallsBackToRandomSuffix(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	createUser(t, db, "sam", models.RoleStaff, nil, nil)
	for i := 1; i <= usernameNumberedAttempts; i++ {
		createUser(t, db, "sam"+strconv.Itoa(i), models.RoleStaff, nil, nil)
	}
	svc.genSuffix = codeSeq("0042")

	created, err := svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "sam@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "sam0042", created.Username)

	// every random candidate now collides too
	_, err = svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "sam@y.com", Password: "password1"})
	assert.True(t, apperror.HasCode(err, "username_unavailable"))
}

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "john.doetag", usernameBase("John.Doe+tag@x.com"))
	assert.Equal(t, "user", usernameBase("+++@x.com"))
}

func TestCreateStaffQuota(t *testing.T) {
	const quota = 3
	svc, db, _ := newTestUserService(t, quota)
	location := createLocation(t, db, "Main")
	admin := createUser(t, db, "boss", models.RoleAdmin, nil, nil)

	for i := 0; i < quota; i++ {
		_, err := svc.CreateStaff(actorOf(admin), &models.CreateStaffRequest{
			Email:      "staff" + strconv.Itoa(i) + "@x.com",
			Password:   "password1",
			LocationID: location.ID,
		})
		require.NoError(t, err, "staff %d of %d", i+1, quota)
	}

	_, err := svc.CreateStaff(actorOf(admin), &models.CreateStaffRequest{
		Email:      "one-too-many@x.com",
		Password:   "password1",
		LocationID: location.ID,
	})
	assert.True(t, apperror.Is(err, apperror.KindQuotaExceeded))
}

func TestCreateStaffSuperuserIsNotQuotaLimited(t *testing.T) {
	svc, db, _ := newTestUserService(t, 1)
	location := createLocation(t, db, "Main")
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)

	for i := 0; i < 2; i++ {
		created, err := svc.CreateStaff(actorOf(super), &models.CreateStaffRequest{
			Email:      "staff" + strconv.Itoa(i) + "@x.com",
			Password:   "password1",
			LocationID: location.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "Main", created.Location)
	}
}

func TestCreateStaffValidation(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	location := createLocation(t, db, "Main")
	admin := createUser(t, db, "boss", models.RoleAdmin, nil, nil)
	staff := createUser(t, db, "clerk", models.RoleStaff, &admin.ID, &location.ID)

	_, err := svc.CreateStaff(actorOf(staff), &models.CreateStaffRequest{Email: "x@x.com", Password: "password1", LocationID: location.ID})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	_, err = svc.CreateStaff(actorOf(admin), &models.CreateStaffRequest{Email: "x@x.com", Password: "password1", LocationID: 999})
	assert.True(t, apperror.HasCode(err, "location_not_found"))

	_, err = svc.CreateStaff(actorOf(admin), &models.CreateStaffRequest{Email: "x@x.com", Password: "password1", LocationID: location.ID, Role: "admin"})
	assert.True(t, apperror.HasCode(err, "invalid_role"))

	_, err = svc.CreateStaff(actorOf(admin), &models.CreateStaffRequest{Email: "clerk@example.com", Password: "password1", LocationID: location.ID})
	assert.True(t, apperror.HasCode(err, "email_taken"))
}

func TestStaffOwnership(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	location := createLocation(t, db, "Main")
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	owner := createUser(t, db, "owner", models.RoleAdmin, &super.ID, nil)
	other := createUser(t, db, "other", models.RoleAdmin, &super.ID, nil)
	staff := createUser(t, db, "clerk", models.RoleStaff, &owner.ID, &location.ID)

	_, err := svc.SetStaffActive(actorOf(other), staff.ID, false)
	assert.True(t, apperror.HasCode(err, "not_owner"))

	updated, err := svc.SetStaffActive(actorOf(owner), staff.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	updated, err = svc.SetStaffActive(actorOf(super), staff.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, err = svc.SetStaffActive(actorOf(owner), super.ID, false)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	_, err = svc.SetStaffActive(actorOf(owner), "missing", false)
	assert.True(t, apperror.HasCode(err, "user_not_found"))

	name := "Clerk Kent"
	edited, err := svc.UpdateStaff(actorOf(owner), staff.ID, &models.UpdateStaffRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Clerk Kent", edited.Name)

	_, err = svc.UpdateStaff(actorOf(other), staff.ID, &models.UpdateStaffRequest{Name: &name})
	assert.True(t, apperror.HasCode(err, "not_owner"))
}

func TestListStaffScoping(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	a1 := createUser(t, db, "a1", models.RoleAdmin, &super.ID, nil)
	a2 := createUser(t, db, "a2", models.RoleAdmin, &super.ID, nil)
	createUser(t, db, "s1", models.RoleStaff, &a1.ID, nil)
	createUser(t, db, "s2", models.RoleStaff, &a1.ID, nil)
	createUser(t, db, "s3", models.RoleStaff, &a2.ID, nil)

	mine, total, err := svc.ListStaff(actorOf(a1), 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	all, total, err := svc.ListStaff(actorOf(super), 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total, "every non-superuser")
	assert.Len(t, all, 5)

	admins, total, err := svc.ListAdmins(actorOf(super), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	counts := map[string]int64{}
	for _, a := range admins {
		counts[a.Username] = a.StaffCount
	}
	assert.Equal(t, map[string]int64{"a1": 2, "a2": 1}, counts)

	_, _, err = svc.ListAdmins(actorOf(a1), 1, 10)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
}

func TestProfileRules(t *testing.T) {
	svc, db, _ := newTestUserService(t, 5)
	location := createLocation(t, db, "Main")
	admin := createUser(t, db, "boss", models.RoleAdmin, nil, nil)
	staff := createUser(t, db, "clerk", models.RoleStaff, &admin.ID, &location.ID)

	name := "New Name"
	_, err := svc.UpdateProfile(actorOf(staff), &models.UpdateProfileRequest{Name: &name})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied), "staff cannot edit their own profile")

	dob := "1985-06-30"
	updated, err := svc.UpdateProfile(actorOf(admin), &models.UpdateProfileRequest{Name: &name, DOB: &dob})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	require.NoError(t, svc.UpdateFCMToken(actorOf(staff), "device-token"))

	dash, err := svc.Dashboard(actorOf(staff))
	require.NoError(t, err)
	assert.True(t, dash.FCMStatus)
	assert.Equal(t, models.LocationRef{ID: location.ID, Name: "Main"}, dash.Location)

	dash, err = svc.Dashboard(actorOf(admin))
	require.NoError(t, err)
	assert.False(t, dash.FCMStatus)
	assert.Equal(t, models.LocationRef{ID: 0, Name: "Default Location"}, dash.Location)

	_, err = svc.GetProfile(policy.Actor{})
	assert.True(t, apperror.HasCode(err, "not_authenticated"))
}

func TestForgotPasswordFlow(t *testing.T) {
	svc, db, notifier := newTestUserService(t, 5, "111111", "222222")
	super := createUser(t, db, "root", models.RoleSuperuser, nil, nil)
	admin, err := svc.CreateAdmin(actorOf(super), &models.CreateAdminRequest{Email: "boss@x.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPasswordSendOTP("nobody@x.com"), "unknown contacts get the same answer")
	assert.Equal(t, 0, notifier.count())

	require.NoError(t, svc.ForgotPasswordSendOTP("Boss@X.com"))
	assert.Equal(t, "boss@x.com", notifier.nth(t, 1).Contact)

	err = svc.ResetPassword("boss@x.com", "111111", "newpassword")
	assert.True(t, apperror.HasCode(err, "otp_not_verified"), "reset needs a verified code")

	require.NoError(t, svc.ForgotPasswordVerifyOTP("boss@x.com", "111111"))
	err = svc.ForgotPasswordVerifyOTP("boss@x.com", "111111")
	assert.True(t, apperror.HasCode(err, "otp_invalid"), "verified code cannot be verified again")

	require.NoError(t, svc.ResetPassword("boss@x.com", "111111", "newpassword"))

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", admin.UserID).Error)
	assert.True(t, utils.CheckPassword(user.PasswordHash, "newpassword"))
	assert.Equal(t, uint(1), user.TokenVersion)

	err = svc.ResetPassword("boss@x.com", "111111", "again")
	assert.True(t, apperror.HasCode(err, "otp_not_verified"), "code is consumed")
}

func TestRecoveryContacts(t *testing.T) {
	svc, db, notifier := newTestUserService(t, 5, "333333")
	user := createUser(t, db, "alice", models.RoleStaff, nil, nil)
	actor := actorOf(user)

	_, err := svc.AddRecoveryContact(actor, "not a contact")
	assert.True(t, apperror.HasCode(err, "invalid_contact"))

	contact, err := svc.AddRecoveryContact(actor, "+919800000009")
	require.NoError(t, err)
	assert.False(t, contact.IsVerified)
	assert.Equal(t, models.ContactTypePhone, notifier.nth(t, 1).ContactType)

	_, err = svc.VerifyRecoveryContact(actor, "+919800000009", "000000")
	assert.True(t, apperror.HasCode(err, "otp_invalid"))

	verified, err := svc.VerifyRecoveryContact(actor, "+919800000009", "333333")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = svc.AddRecoveryContact(actor, "+919800000009")
	assert.True(t, apperror.HasCode(err, "contact_already_verified"))

	contacts, err := svc.ListRecoveryContacts(actor)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	require.NoError(t, svc.ForgotPasswordSendOTP("+919800000009"))
	assert.Equal(t, models.OTPPurposePasswordReset, notifier.nth(t, 2).Purpose)
}
