package repository

import (
	"strings"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/models"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Preload("Location").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LockByID loads a user holding its row lock until the transaction ends
func (r *UserRepository) LockByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByLogin retrieves a user whose username, email or phone number equals login
func (r *UserRepository) GetByLogin(login string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username = ? OR email = ? OR phone_number = ?", login, login, login).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Omit("Location", "CreatedBy").Save(user).Error
}

// UpdateFields updates selected columns of a user
func (r *UserRepository) UpdateFields(userID string, fields map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error
}

// UpdateLastLogin updates the last login time for a user
func (r *UserRepository) UpdateLastLogin(userID string) error {
	now := time.Now()
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", now).Error
}

// IncrementTokenVersion increments the token version for a user
func (r *UserRepository) IncrementTokenVersion(userID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

// CheckUsernameExists checks if a username already exists, ignoring case
func (r *UserRepository) CheckUsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(username)).Count(&count).Error
	return count > 0, err
}

// CheckEmailExists checks if an email is already used by an account
func (r *UserRepository) CheckEmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CheckPhoneExists checks if a phone number is already used by an account
func (r *UserRepository) CheckPhoneExists(phone string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("phone_number = ?", phone).Count(&count).Error
	return count > 0, err
}

// SuperuserExists reports whether the bootstrap superuser has been created
func (r *UserRepository) SuperuserExists() (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role = ?", models.RoleSuperuser).Count(&count).Error
	return count > 0, err
}

// CountCreatedBy counts accounts of the given role provisioned by creatorID
func (r *UserRepository) CountCreatedBy(creatorID string, role models.Role) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("created_by_id = ? AND role = ?", creatorID, role).Count(&count).Error
	return count, err
}

// ListStaff lists non-superuser accounts. When createdBy is set only accounts provisioned by it are returned.
func (r *UserRepository) ListStaff(createdBy string, page, pageSize int, search string) ([]models.User, int64, error) {
	var users []models.User
	var total int64
	query := r.db.Model(&models.User{}).Where("role <> ?", models.RoleSuperuser)
	if createdBy != "" {
		query = query.Where("created_by_id = ?", createdBy)
	}
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Location").
		Order("created_at DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type staffCountRow struct {
	CreatedByID string
	Total       int64
}

// ListAdminsWithStaffCount lists admin accounts with the number of staff each has provisioned
func (r *UserRepository) ListAdminsWithStaffCount(page, pageSize int) ([]models.AdminSummary, int64, error) {
	var admins []models.User
	var total int64
	query := r.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").
		Offset(utils.CalculateOffset(page, pageSize)).
		Limit(pageSize).
		Find(&admins).Error
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int64, len(admins))
	if len(admins) > 0 {
		ids := make([]string, len(admins))
		for i, a := range admins {
			ids[i] = a.ID
		}
		var rows []staffCountRow
		err = r.db.Model(&models.User{}).
			Select("created_by_id, COUNT(*) AS total").
			Where("role = ? AND created_by_id IN ?", models.RoleStaff, ids).
			Group("created_by_id").
			Scan(&rows).Error
		if err != nil {
			return nil, 0, err
		}
		for _, row := range rows {
			counts[row.CreatedByID] = row.Total
		}
	}

	result := make([]models.AdminSummary, len(admins))
	for i, a := range admins {
		result[i] = models.AdminSummary{
			UserID:     a.ID,
			Username:   a.Username,
			Email:      a.Email,
			Name:       a.Name,
			IsActive:   a.IsActive,
			StaffCount: counts[a.ID],
			CreatedAt:  a.CreatedAt,
		}
	}
	return result, total, nil
}
