package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/database/repository"
	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/policy"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// numbered candidates tried after the bare email local part
	usernameNumberedAttempts = 20
	// random candidates tried after the numbered ones
	usernameRandomAttempts = 5
	usernameSuffixLength   = 4

	defaultLocationName = "Default Location"
)

// TokenIssuer mints a session for an account
type TokenIssuer interface {
	IssueTokens(user *models.User, userAgent, ipAddress string) (*models.AuthResponse, error)
}

// UserService provisions accounts and manages profiles, staff and recovery contacts
type UserService struct {
	db           *gorm.DB
	userRepo     *repository.UserRepository
	contactRepo  *repository.RecoveryContactRepository
	locationRepo *repository.LocationRepository
	otp          *OTPService
	tokens       TokenIssuer
	staffQuota   int
	genSuffix    func() (string, error)
}

func NewUserService(db *gorm.DB, otp *OTPService, tokens TokenIssuer, staffQuota int) *UserService {
	return &UserService{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		contactRepo:  repository.NewRecoveryContactRepository(db),
		locationRepo: repository.NewLocationRepository(db),
		otp:          otp,
		tokens:       tokens,
		staffQuota:   staffQuota,
		genSuffix: func() (string, error) {
			return gonanoid.Generate(digits, usernameSuffixLength)
		},
	}
}

// newAccount describes an account about to be inserted
type newAccount struct {
	Username    string
	Email       string
	PhoneNumber string
	Password    string
	Name        string
	DOB         *time.Time
	Gender      string
	Role        models.Role
	LocationID  *uint
	CreatedByID string
}

// createAccount inserts the user and a verified recovery contact per supplied contact
func (s *UserService) createAccount(tx *gorm.DB, acc newAccount) (*models.User, error) {
	hashed, err := utils.HashPassword(acc.Password)
	if err != nil {
		return nil, apperror.Storage("hash password", err)
	}
	user := &models.User{
		Username:      acc.Username,
		Email:         utils.StringPtr(acc.Email),
		PhoneNumber:   utils.StringPtr(acc.PhoneNumber),
		PasswordHash:  hashed,
		Name:          acc.Name,
		DOB:           acc.DOB,
		Gender:        acc.Gender,
		Role:          acc.Role,
		LocationID:    acc.LocationID,
		CreatedByID:   utils.StringPtr(acc.CreatedByID),
		IsActive:      true,
		IsVerified:    true,
		IsPasswordSet: true,
	}
	if err := s.userRepo.WithTx(tx).Create(user); err != nil {
		return nil, err
	}

	contacts := s.contactRepo.WithTx(tx)
	if acc.Email != "" {
		err := contacts.Create(&models.RecoveryContact{
			UserID:       user.ID,
			ContactType:  models.ContactTypeEmail,
			ContactValue: acc.Email,
			IsVerified:   true,
		})
		if err != nil {
			return nil, err
		}
	}
	if acc.PhoneNumber != "" {
		err := contacts.Create(&models.RecoveryContact{
			UserID:       user.ID,
			ContactType:  models.ContactTypePhone,
			ContactValue: acc.PhoneNumber,
			IsVerified:   true,
		})
		if err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ensureContactsFree rejects contacts already held by an account or a recovery contact
func (s *UserService) ensureContactsFree(email, phone string) error {
	if email != "" {
		taken, err := s.userRepo.CheckEmailExists(email)
		if err == nil && !taken {
			taken, err = s.contactRepo.ExistsByValue(email)
		}
		if err != nil {
			return apperror.Storage("check email", err)
		}
		if taken {
			return apperror.Conflict("email_taken", "email already registered")
		}
	}
	if phone != "" {
		taken, err := s.userRepo.CheckPhoneExists(phone)
		if err == nil && !taken {
			taken, err = s.contactRepo.ExistsByValue(phone)
		}
		if err != nil {
			return apperror.Storage("check phone", err)
		}
		if taken {
			return apperror.Conflict("phone_taken", "phone number already registered")
		}
	}
	return nil
}

// provision creates an account with a username derived from the email local part.
// Each candidate is inserted under a savepoint; a uniqueness conflict moves on to the next one.
func (s *UserService) provision(tx *gorm.DB, acc newAccount) (*models.User, error) {
	base := usernameBase(acc.Email)
	users := s.userRepo.WithTx(tx)

	for attempt := 0; attempt < 1+usernameNumberedAttempts+usernameRandomAttempts; attempt++ {
		candidate, err := s.usernameCandidate(base, attempt)
		if err != nil {
			return nil, apperror.Storage("generate username", err)
		}
		taken, err := users.CheckUsernameExists(candidate)
		if err != nil {
			return nil, apperror.Storage("check username", err)
		}
		if taken {
			continue
		}

		acc.Username = candidate
		var user *models.User
		err = tx.Transaction(func(sp *gorm.DB) error {
			var err error
			user, err = s.createAccount(sp, acc)
			return err
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Retry only when a concurrent insert took the username
			if taken, checkErr := users.CheckUsernameExists(candidate); checkErr == nil && taken {
				logrus.Debugf("Username candidate %s collided, retrying", candidate)
				continue
			}
			return nil, err
		}
		if err != nil {
			return nil, wrapStorage("create account", err)
		}
		return user, nil
	}
	return nil, apperror.Conflict("username_unavailable", fmt.Sprintf("could not derive a free username from %q", base))
}

func (s *UserService) usernameCandidate(base string, attempt int) (string, error) {
	switch {
	case attempt == 0:
		return base, nil
	case attempt <= usernameNumberedAttempts:
		return fmt.Sprintf("%s%d", base, attempt), nil
	default:
		suffix, err := s.genSuffix()
		if err != nil {
			return "", err
		}
		return base + suffix, nil
	}
}

// usernameBase lower-cases the email local part and keeps letters, digits, '.', '_' and '-'
func usernameBase(email string) string {
	local := strings.ToLower(utils.EmailLocalPart(email))
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if len(base) > 140 {
		base = base[:140]
	}
	return base
}

// CheckUsername reports whether username is still available, ignoring case
func (s *UserService) CheckUsername(username string) (bool, error) {
	taken, err := s.userRepo.CheckUsernameExists(strings.TrimSpace(username))
	if err != nil {
		return false, apperror.Storage("check username", err)
	}
	return !taken, nil
}

// CreateFirstSuperuser bootstraps the only superuser. Any later call is rejected.
func (s *UserService) CreateFirstSuperuser(req *models.CreateSuperuserRequest) (*models.ProvisionedUser, error) {
	exists, err := s.userRepo.SuperuserExists()
	if err != nil {
		return nil, apperror.Storage("check superuser", err)
	}
	if exists {
		return nil, errSuperuserExists()
	}
	email := utils.NormalizeEmail(req.Email)
	if err := s.ensureContactsFree(email, ""); err != nil {
		return nil, err
	}
	var user *models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := s.userRepo.WithTx(tx).SuperuserExists()
		if err != nil {
			return apperror.Storage("check superuser", err)
		}
		if exists {
			return errSuperuserExists()
		}
		user, err = s.provision(tx, newAccount{
			Email:    email,
			Password: req.Password,
			Role:     models.RoleSuperuser,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errSuperuserExists()
		}
		return nil, wrapStorage("create superuser", err)
	}
	logrus.Infof("Superuser %s created", user.Username)
	return toProvisioned(user, nil), nil
}

func errSuperuserExists() *apperror.Error {
	return apperror.Conflict("superuser_exists", "a superuser already exists")
}

// CreateAdmin provisions an admin account
func (s *UserService) CreateAdmin(actor policy.Actor, req *models.CreateAdminRequest) (*models.ProvisionedUser, error) {
	if err := policy.Authorize(actor, policy.OpCreateAdmin); err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)
	if err := s.ensureContactsFree(email, ""); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.provision(tx, newAccount{
			Email:       email,
			Password:    req.Password,
			Name:        req.Name,
			Role:        models.RoleAdmin,
			CreatedByID: actor.ID,
		})
		return err
	})
	if err != nil {
		return nil, wrapStorage("create admin", err)
	}
	logrus.WithField("created_by", actor.ID).Infof("Admin %s created", user.Username)
	return toProvisioned(user, nil), nil
}

// CreateStaff provisions a staff account at a location. Admins are limited to staffQuota
// staff accounts; the count is taken under the admin's row lock.
func (s *UserService) CreateStaff(actor policy.Actor, req *models.CreateStaffRequest) (*models.ProvisionedUser, error) {
	if err := policy.Authorize(actor, policy.OpCreateStaff); err != nil {
		return nil, err
	}
	if req.Role != "" && models.Role(req.Role) != models.RoleStaff {
		return nil, apperror.Validation("invalid_role", "only staff accounts can be created here")
	}
	location, err := s.resolveLocation(req.LocationID)
	if err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(req.Email)
	if err := s.ensureContactsFree(email, ""); err != nil {
		return nil, err
	}

	var user *models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if actor.Role == models.RoleAdmin {
			if err := s.checkStaffQuota(tx, actor.ID); err != nil {
				return err
			}
		}
		var err error
		user, err = s.provision(tx, newAccount{
			Email:       email,
			Password:    req.Password,
			Name:        req.Name,
			Role:        models.RoleStaff,
			LocationID:  &location.ID,
			CreatedByID: actor.ID,
		})
		return err
	})
	if err != nil {
		return nil, wrapStorage("create staff", err)
	}
	logrus.WithField("created_by", actor.ID).Infof("Staff %s created", user.Username)
	return toProvisioned(user, location), nil
}

func (s *UserService) checkStaffQuota(tx *gorm.DB, adminID string) error {
	users := s.userRepo.WithTx(tx)
	if _, err := users.LockByID(adminID); err != nil {
		return wrapStorage("lock admin", err)
	}
	count, err := users.CountCreatedBy(adminID, models.RoleStaff)
	if err != nil {
		return apperror.Storage("count staff", err)
	}
	if count >= int64(s.staffQuota) {
		return apperror.QuotaExceeded("staff_quota_exceeded",
			fmt.Sprintf("staff limit reached, an admin can create at most %d staff accounts", s.staffQuota))
	}
	return nil
}

// resolveLocation loads a location, NotFound when it does not exist
func (s *UserService) resolveLocation(id uint) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("location_not_found", "location not found")
	}
	if err != nil {
		return nil, apperror.Storage("load location", err)
	}
	return location, nil
}

func toProvisioned(user *models.User, location *models.Location) *models.ProvisionedUser {
	p := &models.ProvisionedUser{
		UserID:   user.ID,
		Username: user.Username,
		Email:    utils.Deref(user.Email),
		Role:     user.Role,
	}
	if location != nil {
		p.Location = location.Name
	}
	return p
}

// ListStaff lists the accounts the actor manages: every non-superuser for a superuser,
// the admin's own staff for an admin
func (s *UserService) ListStaff(actor policy.Actor, page, pageSize int, search string) ([]models.StaffSummary, int64, error) {
	if err := policy.Authorize(actor, policy.OpListStaff); err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)

	createdBy := actor.ID
	if policy.IsSuperuser(actor) {
		createdBy = ""
	}
	users, total, err := s.userRepo.ListStaff(createdBy, page, pageSize, search)
	if err != nil {
		return nil, 0, apperror.Storage("list staff", err)
	}

	result := make([]models.StaffSummary, len(users))
	for i, u := range users {
		result[i] = models.StaffSummary{
			UserID:      u.ID,
			Username:    u.Username,
			Email:       u.Email,
			PhoneNumber: u.PhoneNumber,
			Name:        u.Name,
			Role:        u.Role,
			IsActive:    u.IsActive,
			LocationID:  u.LocationID,
			CreatedByID: u.CreatedByID,
			CreatedAt:   u.CreatedAt,
		}
		if u.Location != nil {
			result[i].LocationName = u.Location.Name
		}
	}
	return result, total, nil
}

// ListAdmins lists admins with the number of staff each has created
func (s *UserService) ListAdmins(actor policy.Actor, page, pageSize int) ([]models.AdminSummary, int64, error) {
	if err := policy.Authorize(actor, policy.OpListAdmins); err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)

	admins, total, err := s.userRepo.ListAdminsWithStaffCount(page, pageSize)
	if err != nil {
		return nil, 0, apperror.Storage("list admins", err)
	}
	return admins, total, nil
}

// loadTarget loads the account an operation acts on and checks the actor may manage it
func (s *UserService) loadTarget(actor policy.Actor, op policy.Operation, userID string) (*models.User, error) {
	if err := policy.Authorize(actor, op); err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return nil, apperror.Storage("load user", err)
	}
	if err := policy.AuthorizeTarget(actor, op, target); err != nil {
		return nil, err
	}
	return target, nil
}

// SetStaffActive activates or deactivates an account the actor manages
func (s *UserService) SetStaffActive(actor policy.Actor, userID string, active bool) (*models.User, error) {
	op := policy.OpDeactivateStaff
	if active {
		op = policy.OpActivateStaff
	}
	target, err := s.loadTarget(actor, op, userID)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateFields(target.ID, map[string]interface{}{"is_active": active}); err != nil {
		return nil, apperror.Storage("update user status", err)
	}
	target.IsActive = active
	logrus.WithField("actor", actor.ID).Infof("User %s active=%t", target.Username, active)
	return target, nil
}

// UpdateStaff edits the name or location of an account the actor manages
func (s *UserService) UpdateStaff(actor policy.Actor, userID string, req *models.UpdateStaffRequest) (*models.User, error) {
	target, err := s.loadTarget(actor, policy.OpUpdateStaff, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.LocationID != nil {
		location, err := s.resolveLocation(*req.LocationID)
		if err != nil {
			return nil, err
		}
		fields["location_id"] = location.ID
	}
	if len(fields) == 0 {
		return target, nil
	}
	if err := s.userRepo.UpdateFields(target.ID, fields); err != nil {
		return nil, apperror.Storage("update staff", err)
	}
	return s.getUser(target.ID)
}

func (s *UserService) getUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return nil, apperror.Storage("load user", err)
	}
	return user, nil
}

// GetProfile returns the actor's own account
func (s *UserService) GetProfile(actor policy.Actor) (*models.User, error) {
	if err := policy.Authorize(actor, policy.OpViewProfile); err != nil {
		return nil, err
	}
	return s.getUser(actor.ID)
}

// UpdateProfile edits the actor's own name, date of birth and gender. Staff may not.
func (s *UserService) UpdateProfile(actor policy.Actor, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := policy.Authorize(actor, policy.OpUpdateProfile); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Gender != nil {
		fields["gender"] = *req.Gender
	}
	if req.DOB != nil {
		dob, err := parseDOB(*req.DOB)
		if err != nil {
			return nil, err
		}
		fields["dob"] = dob
	}
	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(actor.ID, fields); err != nil {
			return nil, apperror.Storage("update profile", err)
		}
	}
	return s.getUser(actor.ID)
}

func parseDOB(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	dob, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperror.Validation("invalid_dob", "dob must be formatted as YYYY-MM-DD")
	}
	return &dob, nil
}

// UpdateFCMToken stores the push token of the actor's device
func (s *UserService) UpdateFCMToken(actor policy.Actor, token string) error {
	if err := policy.Authorize(actor, policy.OpUpdateFCMToken); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return apperror.Validation("fcm_token_required", "fcm_token is required")
	}
	if err := s.userRepo.UpdateFields(actor.ID, map[string]interface{}{"fcm_token": token}); err != nil {
		return apperror.Storage("update fcm token", err)
	}
	return nil
}

// Dashboard returns the actor's summary card
func (s *UserService) Dashboard(actor policy.Actor) (*models.UserDashboard, error) {
	user, err := s.GetProfile(actor)
	if err != nil {
		return nil, err
	}
	dashboard := &models.UserDashboard{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Name:      user.Name,
		FCMStatus: user.FCMToken != nil && *user.FCMToken != "",
		Location:  models.LocationRef{ID: 0, Name: defaultLocationName},
	}
	if user.Location != nil {
		dashboard.Location = models.LocationRef{ID: user.Location.ID, Name: user.Location.Name}
	}
	return dashboard, nil
}

// wrapStorage keeps business errors and turns everything else into a storage failure.
// Uniqueness conflicts that slip past the pre-checks surface as Conflict.
func wrapStorage(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict("already_exists", "a record with the same unique value already exists")
	}
	return apperror.Storage(op, err)
}
